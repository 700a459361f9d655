package argparser

import (
	"path/filepath"

	"gopkg.in/ini.v1"
)

// projectDefaults holds the optional per-project fallbacks read from
// .tidycache.ini (SPEC_FULL.md section B.3), grounded on the teacher's
// config.parseINI walking an INI file for named settings.
type projectDefaults struct {
	BuildPath  string
	ConfigFile string
}

const projectDefaultsFileName = ".tidycache.ini"

// findProjectDefaults walks upward from startDir to the filesystem root
// looking for the first .tidycache.ini, the same traversal the
// fingerprint engine uses for .clang-tidy (spec 4.1 step 3).
func findProjectDefaults(startDir string) (projectDefaults, bool) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, projectDefaultsFileName)
		if cfg, err := ini.Load(candidate); err == nil {
			section := cfg.Section("tidycache")
			return projectDefaults{
				BuildPath:  section.Key("build_path").String(),
				ConfigFile: section.Key("config_file").String(),
			}, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return projectDefaults{}, false
		}
		dir = parent
	}
}
