// Package util holds small filesystem and formatting helpers shared
// across tidycache's packages, trimmed from the teacher's util package
// down to the handful of helpers a single-invocation cache wrapper
// actually needs — the rest (CopyDir, AskYN, SetNice, process helpers)
// belonged to build orchestration and has no home here.
package util

import (
	"fmt"
	"os"
)

// FileExists reports whether path names an existing regular file or
// directory (the argument parser needs only "does this exist", not a
// type distinction).
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FormatBytes formats a byte count as a human-readable string, used by
// --stats and the --watch dashboard.
func FormatBytes(n int64) string {
	const kib = 1024
	if n < kib {
		return fmt.Sprintf("%d B", n)
	}
	suffixes := []string{"KB", "MB", "GB", "TB", "PB"}
	size := float64(n)
	for _, suffix := range suffixes {
		size /= kib
		if size < kib || suffix == suffixes[len(suffixes)-1] {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
	}
	return fmt.Sprintf("%.1f %s", size, suffixes[len(suffixes)-1])
}
