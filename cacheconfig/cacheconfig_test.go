package cacheconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCLIValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"pure int", "100", int64(100)},
		{"zero", "0", int64(0)},
		{"float with one dot", "1.0", float64(1)},
		{"float fraction", "0.9", float64(0.9)},
		{"plain string", "hello", "hello"},
		{"path string", "/var/cache/tidycache", "/var/cache/tidycache"},
		{"two dots is a string", "1.2.3", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCLIValue(tt.input)
			if got != tt.want {
				t.Errorf("ParseCLIValue(%q) = %#v (%T), want %#v (%T)", tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.GetInt64(KeyMaxCacheSize); got != 16*1024*1024*1024 {
		t.Errorf("max_cache_size default = %d, want 16GiB", got)
	}
	if got := cfg.GetFloat64(KeyCleanupThreshold); got != 0.90 {
		t.Errorf("cleanup_threshold default = %v, want 0.90", got)
	}
	if got := cfg.GetFloat64(KeyCleanupTarget); got != 0.70 {
		t.Errorf("cleanup_target default = %v, want 0.70", got)
	}
	if got := cfg.GetInt64(KeyCleanupInterval); got != 100 {
		t.Errorf("cleanup_interval default = %d, want 100", got)
	}
}

func TestFlushThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Set(KeyMaxCacheSize, int64(1000))
	cfg.IncStat(StatHits, 3)
	cfg.IncStat(StatMisses, 1)

	if err := cfg.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if cfg.Dirty() {
		t.Error("Flush should clear the dirty flag")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.GetInt64(KeyMaxCacheSize); got != 1000 {
		t.Errorf("max_cache_size after reload = %d, want 1000", got)
	}
	if got := reloaded.GetStat(StatHits); got != 3 {
		t.Errorf("hits after reload = %d, want 3", got)
	}
	if got := reloaded.GetStat(StatMisses); got != 1 {
		t.Errorf("misses after reload = %d, want 1", got)
	}
}

func TestFlush_NoopWhenClean(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Flush(); err != nil {
		t.Fatalf("Flush on clean config failed: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("expected no config file to be written when nothing was dirty")
	}
}

func TestResetStats(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.IncStat(StatHits, 5)
	cfg.IncStat(StatMisses, 2)
	cfg.SetStat(StatInvocationsSinceCleanup, 40)

	cfg.ResetStats()

	if got := cfg.GetStat(StatHits); got != 0 {
		t.Errorf("hits after reset = %d, want 0", got)
	}
	if got := cfg.GetStat(StatMisses); got != 0 {
		t.Errorf("misses after reset = %d, want 0", got)
	}
	if got := cfg.GetStat(StatInvocationsSinceCleanup); got != 40 {
		t.Errorf("invocations_since_cleanup should survive ResetStats, got %d", got)
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		target    float64
		wantErr   bool
	}{
		{"defaults ok", 0.90, 0.70, false},
		{"target equals threshold", 0.9, 0.9, true},
		{"target above threshold", 0.9, 0.95, true},
		{"threshold above one", 1.5, 0.5, true},
		{"target zero", 0.9, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg, err := Load(filepath.Join(dir, "config.json"))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			cfg.Set(KeyCleanupThreshold, tt.threshold)
			cfg.Set(KeyCleanupTarget, tt.target)

			err = cfg.ValidateThresholds()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
