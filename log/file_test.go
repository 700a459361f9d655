package log

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLogger_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tidycache.log")
	l, err := OpenFileLogger(path)
	if err != nil {
		t.Fatalf("OpenFileLogger: %v", err)
	}
	l.Warn("cache write failed: %v", "disk full")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain a line")
	}
}

func TestFileLogger_NilSafeAfterFailedOpen(t *testing.T) {
	var l *FileLogger
	l.Warn("should not panic")
}
