// Package store implements the Cache Store (spec section 4.3): a
// sharded on-disk key/value store mapping digests to cached tool
// outputs. Grounded on original_source/tools/clang_tidy_cacher.py's
// get_cache_path/get_cache_size, generalized into a type with the
// lookup/store/iterate/clear contract spec section 4.3 names.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Record is the cached result of one tool invocation.
type Record struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
}

// Entry describes one on-disk cache file for iteration (spec 4.3,
// iter_entries).
type Entry struct {
	Path  string
	Mtime time.Time
	Size  int64
}

// Store owns the on-disk tree rooted at dir.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is created lazily on
// first write, not here.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) shardDir(digest string) string {
	return filepath.Join(s.dir, digest[:2])
}

func (s *Store) entryPath(digest string) string {
	return filepath.Join(s.shardDir(digest), digest)
}

// Lookup returns the cached record for digest. The second return value
// is false on a miss, including when the on-disk entry is unreadable or
// malformed (spec 4.3, "Read policy": any non-well-formed entry is a
// miss, cleanup is the Eviction Manager's job, not Lookup's).
func (s *Store) Lookup(digest string) (Record, bool) {
	data, err := os.ReadFile(s.entryPath(digest))
	if err != nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// WorthCaching reports whether a tool result should be written at all
// (spec 4.3, "Write policy"): only on success or when stdout carries
// diagnostics, so invocation-time errors with no output never poison
// the cache.
func WorthCaching(rec Record) bool {
	return rec.ReturnCode == 0 || rec.Stdout != ""
}

// Store writes rec under digest, creating the shard directory on
// demand. Atomicity across crashes is not required by the contract
// (spec 4.3), but entries are written to a temp file and renamed into
// place anyway — the same tempfile-and-rename discipline spec section
// 9's open question recommends, and what the teacher's CRCDatabase.Save
// already does for its own file.
func (s *Store) Store(digest string, rec Record) error {
	shard := s.shardDir(digest)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return &Error{Op: "mkdir", Digest: digest, Err: err}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &Error{Op: "marshal", Digest: digest, Err: err}
	}

	tmp, err := os.CreateTemp(shard, digest+".tmp-*")
	if err != nil {
		return &Error{Op: "create", Digest: digest, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &Error{Op: "write", Digest: digest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &Error{Op: "close", Digest: digest, Err: err}
	}

	if err := os.Rename(tmpPath, s.entryPath(digest)); err != nil {
		os.Remove(tmpPath)
		return &Error{Op: "rename", Digest: digest, Err: err}
	}
	return nil
}

// IterEntries enumerates every cache file exactly one shard level deep
// (<dir>/<xx>/<digest>), matching original_source's get_cache_size/
// cleanup_cache, which only ever walks cache_dir's immediate
// subdirectories — a file placed directly under dir, outside any
// two-hex shard, is invisible to size accounting and eviction alike
// (SPEC_FULL.md section C).
func (s *Store) IterEntries() ([]Entry, error) {
	shards, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Op: "readdir", Err: err}
	}

	var entries []Entry
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(s.dir, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{
				Path:  filepath.Join(shardPath, f.Name()),
				Mtime: info.ModTime(),
				Size:  info.Size(),
			})
		}
	}
	return entries, nil
}

// Size returns the sum of every entry's size.
func (s *Store) Size() (int64, error) {
	entries, err := s.IterEntries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// Clear removes every cache entry and recreates an empty cache root.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return &Error{Op: "clear", Err: err}
	}
	return os.MkdirAll(s.dir, 0o755)
}
