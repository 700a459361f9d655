// Package eviction implements the Eviction Manager (spec section 4.4):
// LRU-by-mtime cleanup that rides the filesystem's own metadata instead
// of an auxiliary index. Grounded on original_source/tools/
// clang_tidy_cacher.py's cleanup_cache.
package eviction

import (
	"os"
	"sort"

	"tidycache/store"
)

// removeFile deletes one entry file; a package variable so tests can
// inject a deletion failure.
var removeFile = os.Remove

// Result reports what one Sweep call did.
type Result struct {
	Ran            bool  // true if entries were actually inspected for eviction
	Evicted        int   // number of entries deleted
	SizeBefore     int64
	SizeAfter      int64
	UnlinkFailures int // best-effort: counted, never fatal
}

// Sweep enforces spec 4.4's algorithm: if total size is at or below
// threshold*maxSize, do nothing; otherwise delete oldest-mtime entries
// until size is at or below target*maxSize. Ties on mtime break on path
// for determinism within one run.
func Sweep(s *store.Store, maxSize int64, threshold, target float64) (Result, error) {
	entries, err := s.IterEntries()
	if err != nil {
		return Result{}, err
	}

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	thresholdBytes := int64(float64(maxSize) * threshold)
	if total <= thresholdBytes {
		return Result{Ran: false, SizeBefore: total, SizeAfter: total}, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Mtime.Equal(entries[j].Mtime) {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Mtime.Before(entries[j].Mtime)
	})

	targetBytes := int64(float64(maxSize) * target)
	result := Result{Ran: true, SizeBefore: total}

	remaining := total
	for _, e := range entries {
		if remaining <= targetBytes {
			break
		}
		if err := removeFile(e.Path); err != nil {
			// Deletion failures are ignored, best-effort (spec 4.4).
			result.UnlinkFailures++
			continue
		}
		remaining -= e.Size
		result.Evicted++
	}

	result.SizeAfter = remaining
	return result, nil
}
