package fingerprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CompileCommand is one entry of a compilation database (spec section 3,
// "Compile Command Entry"): the working directory, the source file it
// was produced for, and either a shell-style command string or a
// tokenized argument vector.
type CompileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

// Tokens returns the argument vector for this entry, splitting Command
// on whitespace when Arguments was not supplied.
func (c CompileCommand) Tokens() []string {
	if len(c.Arguments) > 0 {
		return c.Arguments
	}
	if c.Command == "" {
		return nil
	}
	return strings.Fields(c.Command)
}

// CompileCommandIndex maps a resolved absolute source path to its
// compile command entry, built once per build directory.
type CompileCommandIndex struct {
	byResolvedSource map[string]CompileCommand
}

// Lookup returns the entry matching the given resolved absolute source
// path, if any.
func (idx *CompileCommandIndex) Lookup(resolvedSourcePath string) (CompileCommand, bool) {
	if idx == nil {
		return CompileCommand{}, false
	}
	e, ok := idx.byResolvedSource[resolvedSourcePath]
	return e, ok
}

// LoadCompileCommandIndex reads <buildPath>/compile_commands.json and
// resolves each entry's directory+file into an absolute path key. A
// missing compilation database is not an error: callers get a nil index
// and fall back to raw-source absorption (spec 4.1 step 2).
func LoadCompileCommandIndex(buildPath string) (*CompileCommandIndex, error) {
	path := filepath.Join(buildPath, "compile_commands.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Op: "read compilation database", Path: path, Err: err}
	}

	var entries []CompileCommand
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &Error{Op: "parse compilation database", Path: path, Err: err}
	}

	idx := &CompileCommandIndex{byResolvedSource: make(map[string]CompileCommand, len(entries))}
	for _, e := range entries {
		dir := e.Directory
		if dir == "" {
			dir = "."
		}
		resolved, err := filepath.Abs(filepath.Join(dir, e.File))
		if err != nil {
			continue
		}
		idx.byResolvedSource[resolved] = e
	}
	return idx, nil
}

// BuildDirMemo caches a resolved CompileCommandIndex per build directory
// for the lifetime of one process (spec section 3, "Process-Local
// Memoizations"; section 9 notes a global is not required, an
// explicitly-passed context achieves the same semantics).
type BuildDirMemo struct {
	mu      sync.Mutex
	indices map[string]*CompileCommandIndex
	loaded  map[string]bool
}

// NewBuildDirMemo returns an empty memoization table.
func NewBuildDirMemo() *BuildDirMemo {
	return &BuildDirMemo{
		indices: make(map[string]*CompileCommandIndex),
		loaded:  make(map[string]bool),
	}
}

// Get returns the CompileCommandIndex for buildPath, loading and caching
// it on first request. A nil index (no compilation database present) is
// cached too, so repeated lookups for the same build directory never
// re-stat the filesystem.
func (m *BuildDirMemo) Get(buildPath string) (*CompileCommandIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded[buildPath] {
		return m.indices[buildPath], nil
	}

	idx, err := LoadCompileCommandIndex(buildPath)
	if err != nil {
		return nil, err
	}
	m.indices[buildPath] = idx
	m.loaded[buildPath] = true
	return idx, nil
}

// VersionMemo caches the --version probe per tool binary for the
// lifetime of one process (spec section 3).
type VersionMemo struct {
	mu       sync.Mutex
	versions map[string]string
	probed   map[string]bool
	probeErr map[string]error
}

// NewVersionMemo returns an empty memoization table.
func NewVersionMemo() *VersionMemo {
	return &VersionMemo{
		versions: make(map[string]string),
		probed:   make(map[string]bool),
		probeErr: make(map[string]error),
	}
}

// Get returns the memoized --version output for bin, probing it on
// first request.
func (m *VersionMemo) Get(bin string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.probed[bin] {
		return m.versions[bin], m.probeErr[bin]
	}

	version, err := VersionProbe(bin)
	m.probed[bin] = true
	m.versions[bin] = version
	m.probeErr[bin] = err
	return version, err
}
