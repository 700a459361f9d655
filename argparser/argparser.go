// Package argparser recovers the source file, build-directory hint,
// explicit config-file override, and residual argument vector from the
// raw command line handed to the wrapped static-analysis tool (spec
// section 4.2). Grounded on original_source/tools/clang_tidy_cacher.py's
// parse_args, generalized to accept the project-defaults file described
// in SPEC_FULL.md section B.3.
package argparser

import (
	"path/filepath"
	"strings"

	"tidycache/util"
)

// Parsed holds the recovered invocation shape.
type Parsed struct {
	SourceFile   string // absolute resolved path, or "" if none found
	BuildPath    string
	ConfigFile   string
	ResidualArgs []string
}

// Parse implements spec section 4.2's extraction rules over args (the
// tool's own argv, i.e. everything after the tidycache binary and the
// wrapped tool's path).
func Parse(args []string) Parsed {
	var p Parsed
	p.ResidualArgs = make([]string, 0, len(args))

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-p" && i+1 < len(args):
			p.BuildPath = args[i+1]
			p.ResidualArgs = append(p.ResidualArgs, arg, args[i+1])
			i += 2
			continue

		case strings.HasPrefix(arg, "-p="):
			p.BuildPath = strings.TrimPrefix(arg, "-p=")
			p.ResidualArgs = append(p.ResidualArgs, arg)
			i++
			continue

		case strings.HasPrefix(arg, "--config-file="):
			p.ConfigFile = strings.TrimPrefix(arg, "--config-file=")
			p.ResidualArgs = append(p.ResidualArgs, arg)
			i++
			continue

		case strings.HasPrefix(arg, "-"):
			p.ResidualArgs = append(p.ResidualArgs, arg)
			i++
			continue

		default:
			if p.SourceFile == "" {
				if resolved, ok := resolveExistingPath(arg); ok {
					p.SourceFile = resolved
				}
			}
			p.ResidualArgs = append(p.ResidualArgs, arg)
			i++
		}
	}

	return p
}

// resolveExistingPath returns the absolute form of arg if it refers to
// an existing filesystem entry.
func resolveExistingPath(arg string) (string, bool) {
	if !util.FileExists(arg) {
		return "", false
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", false
	}
	return abs, true
}

// ApplyProjectDefaults fills BuildPath/ConfigFile from the nearest
// .tidycache.ini when the command line left them unset (SPEC_FULL.md
// section B.3). It is a no-op when SourceFile is empty, when both
// fields are already set, or when no .tidycache.ini is found.
func (p *Parsed) ApplyProjectDefaults() {
	if p.SourceFile == "" || (p.BuildPath != "" && p.ConfigFile != "") {
		return
	}

	defaults, ok := findProjectDefaults(filepath.Dir(p.SourceFile))
	if !ok {
		return
	}
	if p.BuildPath == "" && defaults.BuildPath != "" {
		p.BuildPath = defaults.BuildPath
	}
	if p.ConfigFile == "" && defaults.ConfigFile != "" {
		p.ConfigFile = defaults.ConfigFile
	}
}
