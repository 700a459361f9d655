// Command tidycache wraps a static-analysis tool invocation with a
// content-addressed result cache (spec section 4.6). The primary mode
// (`tidycache <tool> [args...]`) never touches cobra — a cobra root
// would greedily try to parse the wrapped tool's own flags. Only the
// maintenance subcommands (--stats, --clear, --config, --history,
// --watch) go through cmd.NewRootCommand (SPEC_FULL.md section A.5).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tidycache/cacheconfig"
	"tidycache/cmd"
	"tidycache/driver"
	"tidycache/invoclog"
	tidylog "tidycache/log"
	"tidycache/store"
)

var maintenanceFlags = map[string]string{
	"--stats":   "stats",
	"--clear":   "clear",
	"--config":  "config",
	"--history": "history",
	"--watch":   "watch",
	"--help":    "help",
	"-h":        "help",
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "tidycache")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tidycache <tool_binary> [tool_args...]")
		return 1
	}

	if sub, ok := maintenanceFlags[args[0]]; ok {
		root := cmd.NewRootCommand()
		root.SetArgs(append([]string{sub}, args[1:]...))
		if err := root.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "tidycache: %v\n", err)
			return 1
		}
		return 0
	}

	if strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(os.Stderr, "tidycache: unrecognized option %q\n", args[0])
		return 1
	}

	if len(args) == 1 {
		// A single bare tool path with no further arguments can never name
		// a source file, so there is nothing to cache or to run usefully.
		fmt.Fprintln(os.Stderr, "usage: tidycache <tool_binary> [tool_args...]")
		return 1
	}

	return runCaching(args)
}

func runCaching(args []string) int {
	cfg, err := cacheconfig.Load(filepath.Join(configDir(), "config.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tidycache: %v\n", err)
		return 1
	}

	st := store.New(cfg.CacheDir())

	invLog, err := invoclog.Open(filepath.Join(configDir(), "history.db"))
	if err != nil {
		invLog = nil
	} else {
		defer invLog.Close()
	}

	d := driver.New(cfg, st, invLog)
	// Sibling of the cache directory, not inside it, so the debug log is
	// never itself subject to eviction accounting.
	if fileLog, err := tidylog.OpenFileLogger(filepath.Join(filepath.Dir(st.Dir()), "tidycache.log")); err == nil {
		d.Logger = fileLog
		defer fileLog.Close()
	}
	if os.Getenv("TIDYCACHE_DEBUG") != "" {
		d.Logger = tidylog.StderrLogger{}
	}
	code := d.Run(context.Background(), args)

	if err := cfg.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "tidycache: warning: failed to flush config: %v\n", err)
	}
	return code
}
