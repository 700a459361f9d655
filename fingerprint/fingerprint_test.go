package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCompute_SameInputsSameDigest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	writeFile(t, src, "int main() { return 0; }\n")

	in := Input{
		ToolBinary:   "clang-tidy",
		SourceFile:   src,
		ResidualArgs: []string{"-Wall"},
	}

	d1, err := Compute(in, "clang-tidy version 18.0.0", nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	d2, err := Compute(in, "clang-tidy version 18.0.0", nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if d1 != d2 {
		t.Errorf("identical inputs produced different digests: %s vs %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(d1))
	}
}

func TestCompute_DifferentVersionDiffersDigest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	writeFile(t, src, "int main() { return 0; }\n")
	in := Input{SourceFile: src}

	d1, _ := Compute(in, "v1", nil)
	d2, _ := Compute(in, "v2", nil)
	if d1 == d2 {
		t.Error("different tool versions produced the same digest")
	}
}

func TestCompute_DifferentResidualArgsDiffersDigest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	writeFile(t, src, "int main() { return 0; }\n")

	d1, _ := Compute(Input{SourceFile: src, ResidualArgs: []string{"-Wall"}}, "v1", nil)
	d2, _ := Compute(Input{SourceFile: src, ResidualArgs: []string{"-Wextra"}}, "v1", nil)
	if d1 == d2 {
		t.Error("different residual args produced the same digest")
	}
}

func TestCompute_HeaderChangeInvalidatesViaCompileCommands(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	hdr := filepath.Join(dir, "h.h")
	writeFile(t, src, "#include \"h.h\"\nint main() { return VAL; }\n")
	writeFile(t, hdr, "#define VAL 1\n")

	fakeCompiler := filepath.Join(dir, "fake-cc.sh")
	writeFile(t, fakeCompiler, "#!/bin/sh\ncat \"$3\" h.h 2>/dev/null\n")
	if err := os.Chmod(fakeCompiler, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	entry := CompileCommand{Directory: dir, File: "x.c", Arguments: []string{fakeCompiler, src}}
	idx := &CompileCommandIndex{byResolvedSource: map[string]CompileCommand{src: entry}}

	in := Input{SourceFile: src}
	d1, err := Compute(in, "v1", idx)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	writeFile(t, hdr, "#define VAL 2\n")
	d2, err := Compute(in, "v1", idx)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if d1 == d2 {
		t.Error("expected digest to change after preprocessed content changed, but it did not")
	}
}

func TestCompute_ConfigFileOverrideDiffersDigest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	writeFile(t, src, "int main() { return 0; }\n")

	cfgA := filepath.Join(dir, "A.yaml")
	cfgB := filepath.Join(dir, "B.yaml")
	writeFile(t, cfgA, "Checks: 'a'\n")
	writeFile(t, cfgB, "Checks: 'b'\n")

	d1, _ := Compute(Input{SourceFile: src, ConfigFile: cfgA}, "v1", nil)
	d2, _ := Compute(Input{SourceFile: src, ConfigFile: cfgB}, "v1", nil)
	if d1 == d2 {
		t.Error("different --config-file contents produced the same digest")
	}
}

func TestEffectiveConfigBytes_WalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	writeFile(t, filepath.Join(root, ".clang-tidy"), "Checks: 'root'\n")
	src := filepath.Join(sub, "x.c")
	writeFile(t, src, "int x;\n")

	got, err := effectiveConfigBytes(Input{SourceFile: src})
	if err != nil {
		t.Fatalf("effectiveConfigBytes: %v", err)
	}
	if string(got) != "Checks: 'root'\n" {
		t.Errorf("got %q, want contents of root .clang-tidy", got)
	}
}

func TestEffectiveConfigBytes_NoneFoundIsEmpty(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "x.c")
	writeFile(t, src, "int x;\n")

	got, err := effectiveConfigBytes(Input{SourceFile: src})
	if err != nil {
		t.Fatalf("effectiveConfigBytes: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty config bytes, got %q", got)
	}
}

func TestPreprocessedOrRawSource_FallsBackOnMissingIndex(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.c")
	writeFile(t, src, "raw contents\n")

	got, err := preprocessedOrRawSource(Input{SourceFile: src}, nil)
	if err != nil {
		t.Fatalf("preprocessedOrRawSource: %v", err)
	}
	if string(got) != "raw contents\n" {
		t.Errorf("got %q, want raw source bytes", got)
	}
}

func TestPreprocessedOrRawSource_UnreadableSourceIsFatal(t *testing.T) {
	_, err := preprocessedOrRawSource(Input{SourceFile: "/nonexistent/does/not/exist.c"}, nil)
	if err == nil {
		t.Fatal("expected error for unreadable source file")
	}
}
