package fingerprint

import (
	"path/filepath"
	"testing"
)

func writeCompileCommands(t *testing.T, buildDir string, json string) {
	t.Helper()
	writeFile(t, filepath.Join(buildDir, "compile_commands.json"), json)
}

func TestLoadCompileCommandIndex_MatchesByResolvedPath(t *testing.T) {
	buildDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "x.c")
	writeFile(t, src, "int main();\n")

	writeCompileCommands(t, buildDir, `[
		{"directory": "`+srcDir+`", "file": "x.c", "command": "cc -c x.c -o x.o"}
	]`)

	idx, err := LoadCompileCommandIndex(buildDir)
	if err != nil {
		t.Fatalf("LoadCompileCommandIndex: %v", err)
	}
	if idx == nil {
		t.Fatal("expected non-nil index")
	}

	entry, ok := idx.Lookup(src)
	if !ok {
		t.Fatal("expected entry for resolved source path")
	}
	if entry.Directory != srcDir {
		t.Errorf("directory = %q, want %q", entry.Directory, srcDir)
	}
}

func TestLoadCompileCommandIndex_MissingFileReturnsNilIndex(t *testing.T) {
	idx, err := LoadCompileCommandIndex(t.TempDir())
	if err != nil {
		t.Fatalf("LoadCompileCommandIndex: %v", err)
	}
	if idx != nil {
		t.Error("expected nil index when compile_commands.json is absent")
	}
}

func TestCompileCommand_TokensPrefersArgumentsOverCommand(t *testing.T) {
	c := CompileCommand{
		Command:   "cc -c x.c",
		Arguments: []string{"cc", "-c", "x.c", "-DFOO"},
	}
	tokens := c.Tokens()
	if len(tokens) != 4 {
		t.Fatalf("Tokens() = %v, want 4 tokens", tokens)
	}
	if tokens[3] != "-DFOO" {
		t.Errorf("Tokens()[3] = %q, want -DFOO", tokens[3])
	}
}

func TestCompileCommand_TokensSplitsCommandString(t *testing.T) {
	c := CompileCommand{Command: "cc -c x.c -o x.o"}
	tokens := c.Tokens()
	want := []string{"cc", "-c", "x.c", "-o", "x.o"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("Tokens()[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestBuildDirMemo_CachesAcrossCalls(t *testing.T) {
	buildDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "x.c")
	writeFile(t, src, "int main();\n")
	writeCompileCommands(t, buildDir, `[{"directory": "`+srcDir+`", "file": "x.c", "command": "cc -c x.c"}]`)

	memo := NewBuildDirMemo()
	idx1, err := memo.Get(buildDir)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Overwrite the database on disk with an empty list; a cached memo
	// should not need to re-read it.
	writeCompileCommands(t, buildDir, `[]`)

	idx2, err := memo.Get(buildDir)
	if err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if idx1 != idx2 {
		t.Error("expected the same cached index pointer on second Get")
	}
	if _, ok := idx2.Lookup(src); !ok {
		t.Error("cached index should still report the original entry")
	}
}

func TestVersionMemo_CachesPerBinary(t *testing.T) {
	memo := NewVersionMemo()

	v1, err := memo.Get("go")
	if err != nil {
		t.Skipf("go binary not available for version probe: %v", err)
	}
	v2, _ := memo.Get("go")
	if v1 != v2 {
		t.Error("expected memoized version to be stable across calls")
	}
}
