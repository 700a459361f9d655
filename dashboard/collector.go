package dashboard

import (
	"context"
	"sync"
	"time"

	"tidycache/cacheconfig"
	"tidycache/store"
)

// Source is whatever Collector samples from: the live config/stats
// record and the store's current entries. The watch command passes in
// the config and store it loaded itself; dashboard never mutates either.
type Source struct {
	Config *cacheconfig.Config
	Store  *store.Store
}

// Collector samples Source at 1Hz and fans each Snapshot out to its
// registered consumers, grounded on stats.StatsCollector's ticker/
// consumer-list structure.
type Collector struct {
	mu           sync.RWMutex
	source       Source
	consumers    []Consumer
	startTime    time.Time
	lastEviction time.Time
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewCollector starts the 1Hz sampling loop immediately; call Close to
// stop it.
func NewCollector(ctx context.Context, source Source) *Collector {
	cctx, cancel := context.WithCancel(ctx)
	c := &Collector{
		source:    source,
		startTime: time.Now(),
		ctx:       cctx,
		cancel:    cancel,
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// RegisterConsumer adds a consumer that will receive future snapshots.
func (c *Collector) RegisterConsumer(consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, consumer)
}

// NoteEviction records that an eviction sweep just ran, for display.
func (c *Collector) NoteEviction(when time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEviction = when
}

// Close stops the sampling loop and waits for it to exit.
func (c *Collector) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Collector) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sampleAndPublish()
		}
	}
}

func (c *Collector) sampleAndPublish() {
	snap := c.Sample()
	c.mu.RLock()
	consumers := make([]Consumer, len(c.consumers))
	copy(consumers, c.consumers)
	c.mu.RUnlock()

	for _, consumer := range consumers {
		consumer.OnSnapshot(snap)
	}
}

// Sample takes one immediate reading without waiting for the ticker.
func (c *Collector) Sample() Snapshot {
	hits := c.source.Config.GetStat(cacheconfig.StatHits)
	misses := c.source.Config.GetStat(cacheconfig.StatMisses)

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	size, _ := c.source.Store.Size()
	entries, _ := c.source.Store.IterEntries()

	c.mu.RLock()
	lastEviction := c.lastEviction
	c.mu.RUnlock()

	return Snapshot{
		Hits:                    hits,
		Misses:                  misses,
		HitRatePct:              hitRate,
		CurrentSize:             size,
		MaxSize:                 c.source.Config.GetInt64(cacheconfig.KeyMaxCacheSize),
		EntryCount:              len(entries),
		InvocationsSinceCleanup: int(c.source.Config.GetStat(cacheconfig.StatInvocationsSinceCleanup)),
		LastEviction:            lastEviction,
		Elapsed:                 time.Since(c.startTime),
	}
}
