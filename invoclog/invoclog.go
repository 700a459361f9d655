// Package invoclog implements the Invocation Log (SPEC_FULL.md section
// B.1): a bbolt-backed record of every tidycache invocation, independent
// of the Cache Store. Grounded on the teacher's builddb package
// (db.go's bucket-per-concern layout, runs.go's per-run record shape,
// errors.go's structured-error taxonomy), repurposed from build-run
// bookkeeping to cache-invocation bookkeeping.
package invoclog

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for the bbolt database.
const (
	BucketRuns        = "runs"
	BucketDigestIndex = "digest_index"
)

// Outcome classifies how one invocation was resolved.
type Outcome string

const (
	OutcomeHit         Outcome = "hit"
	OutcomeMiss        Outcome = "miss"
	OutcomeUncacheable Outcome = "uncacheable"
)

// RunRecord captures one tidycache invocation.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	ToolBinary string    `json:"tool_binary"`
	SourceFile string    `json:"source_file"`
	Digest     string    `json:"digest"`
	Outcome    Outcome   `json:"outcome"`
	ExitCode   int       `json:"exit_code"`
}

// DB wraps a bbolt database for invocation history.
type DB struct {
	db   *bolt.DB
	path string
}

// Open opens or creates a bbolt database at path, initializing its
// buckets if absent (mirrors builddb.OpenDB).
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketRuns)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketRuns, Err: err}
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketDigestIndex)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketDigestIndex, Err: err}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	return &DB{db: bdb, path: path}, nil
}

// Close closes the database. Safe to call on an already-closed DB.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// RecordRun writes rec into the runs bucket and updates the digest
// index (when rec.Digest is non-empty) to point at this run. Per spec
// section 7's "Cache write failure" policy, a failure here is always
// non-fatal to the caller — the Driver discards the error and continues.
func (d *DB) RecordRun(rec RunRecord) error {
	if rec.RunID == "" {
		return &ValidationError{Field: "RunID", Err: ErrEmptyRunID}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &RecordError{Op: "marshal", RunID: rec.RunID, Err: err}
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		if runs == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}
		if err := runs.Put([]byte(rec.RunID), data); err != nil {
			return &RecordError{Op: "put", RunID: rec.RunID, Err: err}
		}

		if rec.Digest != "" {
			idx := tx.Bucket([]byte(BucketDigestIndex))
			if idx == nil {
				return &DatabaseError{Op: "get bucket", Bucket: BucketDigestIndex, Err: ErrBucketNotFound}
			}
			if err := idx.Put([]byte(rec.Digest), []byte(rec.RunID)); err != nil {
				return &RecordError{Op: "put digest index", RunID: rec.RunID, Err: err}
			}
		}
		return nil
	})
}

// Recent returns up to limit most-recently-recorded runs, newest first.
// limit <= 0 means "all".
func (d *DB) Recent(limit int) ([]RunRecord, error) {
	var records []RunRecord

	err := d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketRuns))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // malformed entries are skipped, not fatal
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Run IDs are random UUIDs, so key order says nothing about recency.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ByDigest returns the run that last produced or confirmed digest, if
// any is indexed.
func (d *DB) ByDigest(digest string) (RunRecord, bool, error) {
	var runID string

	err := d.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket([]byte(BucketDigestIndex))
		if idx == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketDigestIndex, Err: ErrBucketNotFound}
		}
		v := idx.Get([]byte(digest))
		if v != nil {
			runID = string(bytes.Clone(v))
		}
		return nil
	})
	if err != nil {
		return RunRecord{}, false, err
	}
	if runID == "" {
		return RunRecord{}, false, nil
	}

	var rec RunRecord
	err = d.db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		if runs == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketRuns, Err: ErrBucketNotFound}
		}
		v := runs.Get([]byte(runID))
		if v == nil {
			return &RecordError{Op: "get", RunID: runID, Err: ErrRecordNotFound}
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return RunRecord{}, false, err
	}
	return rec, true, nil
}

// Clear deletes every recorded run and digest-index entry, without
// deleting the database file itself. Distinct from the Cache Store's
// Clear: `--clear` alone leaves history untouched (SPEC_FULL.md B.1);
// only `--clear --history` calls this.
func (d *DB) Clear() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketDigestIndex} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && err != bolt.ErrBucketNotFound {
				return &DatabaseError{Op: "delete bucket", Bucket: name, Err: err}
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return &DatabaseError{Op: "recreate bucket", Bucket: name, Err: err}
			}
		}
		return nil
	})
}
