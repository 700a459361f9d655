// Package cacheconfig implements the persistent Configuration & Statistics
// component: a process-singleton record of recognized cache options and
// hit/miss/eviction counters, loaded once at first use and flushed to disk
// with a tempfile-and-rename so a crash never corrupts the live file.
package cacheconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Key is a recognized configuration option name.
type Key string

const (
	KeyMaxCacheSize      Key = "max_cache_size"
	KeyCacheDir          Key = "cache_dir"
	KeyCleanupThreshold  Key = "cleanup_threshold"
	KeyCleanupTarget     Key = "cleanup_target"
	KeyCleanupInterval   Key = "cleanup_interval"
)

// StatKey is a recognized counter name.
type StatKey string

const (
	StatHits                     StatKey = "hits"
	StatMisses                   StatKey = "misses"
	StatInvocationsSinceCleanup  StatKey = "invocations_since_cleanup"
)

const envCacheDir = "TIDYCACHE_DIR"

// defaults mirrors the recognized key set in spec section 3.
var defaults = map[Key]any{
	KeyMaxCacheSize:     int64(16 * 1024 * 1024 * 1024),
	KeyCleanupThreshold: 0.90,
	KeyCleanupTarget:    0.70,
	KeyCleanupInterval:  100,
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".tidycache_cache")
}

var statDefaults = map[StatKey]int64{
	StatHits:                    0,
	StatMisses:                  0,
	StatInvocationsSinceCleanup: 0,
}

// Config is the process-singleton persistent configuration and statistics
// record described in spec section 4.5. It is safe for use from a single
// goroutine; tidycache is a single-threaded-per-invocation tool and the
// Config does not add its own locking (see spec section 5).
type Config struct {
	path    string
	values  map[Key]any
	stats   map[StatKey]int64
	dirty   bool
	loadErr error
}

// Load reads the configuration file at path, or returns built-in defaults
// if it does not exist. path is typically <config_dir>/config.json.
func Load(path string) (*Config, error) {
	cfg := &Config{
		path:   path,
		values: make(map[Key]any),
		stats:  make(map[StatKey]int64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A malformed config file is not fatal: fall back to defaults,
		// same spirit as spec's "cache read corruption -> treat as miss".
		cfg.loadErr = &LoadError{Path: path, Err: err}
		return cfg, nil
	}

	for _, k := range []Key{KeyMaxCacheSize, KeyCacheDir, KeyCleanupThreshold, KeyCleanupTarget, KeyCleanupInterval} {
		if raw, ok := raw[string(k)]; ok {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				cfg.values[k] = v
			}
		}
	}

	if rawStats, ok := raw["stats"]; ok {
		var s map[string]int64
		if err := json.Unmarshal(rawStats, &s); err == nil {
			for k, v := range s {
				cfg.stats[StatKey(k)] = v
			}
		}
	}

	return cfg, nil
}

// LoadErr returns the non-fatal error (if any) encountered while loading
// a malformed config file. The config still behaves as if empty.
func (c *Config) LoadErr() error { return c.loadErr }

// Path returns the config file path this Config was loaded from.
func (c *Config) Path() string { return c.path }

// Get returns the current value for key, falling back to the built-in
// default when absent.
func (c *Config) Get(key Key) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	if key == KeyCacheDir {
		return defaultCacheDir()
	}
	return defaults[key]
}

// GetInt64 is a convenience accessor for integer-valued keys.
func (c *Config) GetInt64(key Key) int64 {
	switch v := c.Get(key).(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// GetFloat64 is a convenience accessor for ratio-valued keys.
func (c *Config) GetFloat64(key Key) float64 {
	switch v := c.Get(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// GetString is a convenience accessor for path-valued keys.
func (c *Config) GetString(key Key) string {
	if v, ok := c.Get(key).(string); ok {
		return v
	}
	return fmt.Sprintf("%v", c.Get(key))
}

// CacheDir resolves the cache_dir: an explicitly set cache_dir wins;
// otherwise TIDYCACHE_DIR, when set, overrides the default. The
// environment variable is consulted on every call, whether or not a
// config file was loaded.
func (c *Config) CacheDir() string {
	if v, ok := c.values[KeyCacheDir]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if envDir := os.Getenv(envCacheDir); envDir != "" {
		return envDir
	}
	return defaultCacheDir()
}

// Set sets a value and marks the record dirty. Validation of the
// threshold/target invariant happens in ValidateThresholds, which the
// config subcommand runs on a probe copy before committing a Set that
// touches those two keys.
func (c *Config) Set(key Key, value any) {
	c.values[key] = value
	c.dirty = true
}

// ValidateThresholds enforces 0 < cleanup_target < cleanup_threshold <= 1.
func (c *Config) ValidateThresholds() error {
	threshold := c.GetFloat64(KeyCleanupThreshold)
	target := c.GetFloat64(KeyCleanupTarget)
	if !(threshold > 0 && threshold <= 1) {
		return &ValidationError{Field: string(KeyCleanupThreshold), Value: fmt.Sprintf("%v", threshold), Err: ErrOutOfRange}
	}
	if !(target > 0 && target < threshold) {
		return &ValidationError{Field: string(KeyCleanupTarget), Value: fmt.Sprintf("%v", target), Err: ErrOutOfRange}
	}
	return nil
}

// GetStat returns a counter value, defaulting to 0 when absent.
func (c *Config) GetStat(key StatKey) int64 {
	if v, ok := c.stats[key]; ok {
		return v
	}
	return statDefaults[key]
}

// IncStat increments a counter by delta and marks the record dirty.
func (c *Config) IncStat(key StatKey, delta int64) {
	c.stats[key] = c.GetStat(key) + delta
	c.dirty = true
}

// SetStat sets a counter to an exact value and marks the record dirty.
func (c *Config) SetStat(key StatKey, value int64) {
	c.stats[key] = value
	c.dirty = true
}

// ResetStats zeroes hits and misses (used by --clear). invocations_since_cleanup
// is left untouched here; eviction resets it independently.
func (c *Config) ResetStats() {
	c.SetStat(StatHits, 0)
	c.SetStat(StatMisses, 0)
}

// Dirty reports whether any mutation occurred since load or the last flush.
func (c *Config) Dirty() bool { return c.dirty }

// Flush writes the record to a sibling temp file and renames it over the
// live path, an atomic replace on every supported filesystem. A no-op
// when nothing changed. The parent directory is created if missing.
func (c *Config) Flush() error {
	if !c.dirty {
		return nil
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FlushError{Path: c.path, Err: err}
	}

	out := map[string]any{}
	for k, v := range c.values {
		out[string(k)] = v
	}
	statsOut := map[string]int64{}
	for k, v := range c.stats {
		statsOut[string(k)] = v
	}
	out["stats"] = statsOut

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return &FlushError{Path: c.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return &FlushError{Path: c.path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &FlushError{Path: c.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &FlushError{Path: c.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &FlushError{Path: c.path, Err: err}
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return &FlushError{Path: c.path, Err: err}
	}

	c.dirty = false
	return nil
}

// Dump returns a copy of every recognized key's current-or-default value
// plus stats, for `--config` with no key argument.
func (c *Config) Dump() map[string]any {
	out := map[string]any{}
	for _, k := range []Key{KeyMaxCacheSize, KeyCacheDir, KeyCleanupThreshold, KeyCleanupTarget, KeyCleanupInterval} {
		out[string(k)] = c.Get(k)
	}
	stats := map[string]int64{}
	for _, k := range []StatKey{StatHits, StatMisses, StatInvocationsSinceCleanup} {
		stats[string(k)] = c.GetStat(k)
	}
	out["stats"] = stats
	return out
}

// ParseCLIValue implements spec section 6's `--config <key> <value>`
// parsing rule: purely-digit strings become int, digit strings with at
// most one decimal point become float, everything else stays a string.
// original_source/tools/clang_tidy_cacher.py applies the checks in this
// exact order (isdigit, then the single-dot float check), which matters:
// "1.0" must come out as a float, not a string.
func ParseCLIValue(raw string) any {
	if raw == "" {
		return raw
	}
	if isAllDigits(raw) {
		var n int64
		fmt.Sscanf(raw, "%d", &n)
		return n
	}
	if isDigitsWithOneDot(raw) {
		var f float64
		fmt.Sscanf(raw, "%g", &f)
		return f
	}
	return raw
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDigitsWithOneDot(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return dots == 1
}
