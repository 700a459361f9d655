// Package dashboard provides a 1Hz sampling loop over cache statistics
// and a tview-based live view of it (SPEC_FULL.md section B.2).
// Grounded on the teacher's stats package (TopInfo/StatsCollector/
// StatsConsumer), repurposed from build-rate sampling to cache-hit-rate
// sampling.
package dashboard

import "time"

// Snapshot is the unified payload shared with every registered Consumer,
// mirroring the teacher's TopInfo but carrying cache metrics instead of
// build-worker metrics.
type Snapshot struct {
	Hits                    int64
	Misses                  int64
	HitRatePct              float64
	CurrentSize             int64
	MaxSize                 int64
	EntryCount              int
	InvocationsSinceCleanup int
	LastEviction            time.Time
	Elapsed                 time.Duration
}

// Consumer receives a fresh Snapshot once per second.
type Consumer interface {
	OnSnapshot(s Snapshot)
}
