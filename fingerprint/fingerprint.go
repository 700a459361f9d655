// Package fingerprint computes the content-addressed digest that keys a
// cached static-analysis invocation: tool version, preprocessed
// translation unit (or raw source as a fallback), the effective
// configuration file, and the residual argument vector, absorbed in that
// fixed order (spec section 4.1).
//
// Grounded on original_source/tools/clang_tidy_cacher.py's compute_hash,
// replacing its blake3 hasher with github.com/opencontainers/go-digest's
// SHA-256 (already present in the retrieved pack via meigma-blob), which
// happens to produce exactly the 64-hex-character key spec section 3
// requires.
package fingerprint

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	digest "github.com/opencontainers/go-digest"
)

// Input is the full set of absorbed inputs for one invocation (spec
// section 3, "Invocation Input").
type Input struct {
	ToolBinary     string
	SourceFile     string // resolved absolute path
	BuildPath      string // optional
	ConfigFile     string // optional, explicit --config-file override
	ResidualArgs   []string
}

// VersionProbe returns the trimmed stdout of invoking bin with --version.
// Callers should memoize this per tool binary for the process lifetime
// (spec section 3, "Process-Local Memoizations").
func VersionProbe(bin string) (string, error) {
	cmd := exec.Command(bin, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", &Error{Op: "version probe", Path: bin, Err: err}
	}
	return strings.TrimRight(string(out), " \t\r\n"), nil
}

// Compute absorbs every input in the fixed order spec section 4.1
// mandates and returns the resulting hex digest. version must already be
// resolved (see VersionProbe); index may be nil when no build directory
// was supplied or none matched.
func Compute(in Input, version string, index *CompileCommandIndex) (string, error) {
	digester := digest.Canonical.Digester()
	hasher := digester.Hash()

	// 1. tool version
	hasher.Write([]byte(version))

	// 2. preprocessed source, or raw source on any degradation path
	preprocessed, err := preprocessedOrRawSource(in, index)
	if err != nil {
		return "", err
	}
	hasher.Write(preprocessed)

	// 3. effective .clang-tidy-style config bytes
	configBytes, err := effectiveConfigBytes(in)
	if err != nil {
		return "", err
	}
	hasher.Write(configBytes)

	// 4. residual arguments, raw bytes, in order
	for _, arg := range in.ResidualArgs {
		hasher.Write([]byte(arg))
	}

	return digester.Digest().Encoded(), nil
}

// preprocessedOrRawSource implements spec 4.1 step 2: try to replay the
// compiler's preprocessing step from a matching compile-command entry,
// falling back to the raw source bytes whenever preprocessing is
// impossible or fails. Reading the raw source itself failing is fatal
// (spec 4.1 "Failure modes").
func preprocessedOrRawSource(in Input, index *CompileCommandIndex) ([]byte, error) {
	if index != nil {
		if entry, ok := index.Lookup(in.SourceFile); ok {
			if out, err := runPreprocess(entry, in.SourceFile); err == nil {
				return out, nil
			}
			// Preprocess failure silently degrades to raw source (spec 4.1, 7).
		}
	}

	raw, err := os.ReadFile(in.SourceFile)
	if err != nil {
		return nil, &Error{Op: "read source", Path: in.SourceFile, Err: err}
	}
	return raw, nil
}

// runPreprocess derives and executes a preprocess-only invocation of the
// compiler named in entry, per spec 4.1 step 2's transformation rules.
func runPreprocess(entry CompileCommand, sourceFile string) ([]byte, error) {
	tokens := entry.Tokens()
	if len(tokens) == 0 {
		return nil, &Error{Op: "preprocess", Path: sourceFile, Err: errNoCompiler}
	}

	compiler := tokens[0]
	sourceName := filepath.Base(sourceFile)

	args := []string{"-E", "-P"}
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "-c":
			continue
		case tok == "-o":
			i++ // skip the operand too
			continue
		case strings.HasPrefix(tok, "-o") && tok != "-o":
			continue
		case tok == sourceFile || tok == sourceName || strings.HasSuffix(tok, sourceName):
			continue
		default:
			args = append(args, tok)
		}
	}
	args = append(args, sourceFile)

	cmd := exec.Command(compiler, args...)
	cmd.Dir = entry.Directory
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &Error{Op: "preprocess", Path: sourceFile, Err: err}
	}
	return stdout.Bytes(), nil
}

// effectiveConfigBytes implements spec 4.1 step 3: an explicit
// --config-file override is read verbatim (empty if missing); otherwise
// walk upward from the source file's directory for the first
// .clang-tidy-style file, absorbing the empty string if none is found.
func effectiveConfigBytes(in Input) ([]byte, error) {
	if in.ConfigFile != "" {
		data, err := os.ReadFile(in.ConfigFile)
		if err != nil {
			// Missing/unreadable explicit config file is "no config", not fatal.
			return []byte{}, nil
		}
		return data, nil
	}

	dir := filepath.Dir(in.SourceFile)
	for {
		candidate := filepath.Join(dir, ".clang-tidy")
		if data, err := os.ReadFile(candidate); err == nil {
			return data, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return []byte{}, nil
}
