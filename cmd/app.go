// Package cmd wires the cobra subcommands for tidycache's maintenance
// surface (--stats, --clear, --config, --history, --watch), per
// SPEC_FULL.md section A.5: cobra drives these but never the primary
// `<self> <tool_binary> [args...]` invocation, since a cobra root would
// otherwise try to parse the wrapped tool's own flags. Grounded on
// yanhool-picoclaw's cmd/picoclaw/internal/*/command.go NewXCommand
// factory pattern.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tidycache/cacheconfig"
	"tidycache/invoclog"
	"tidycache/store"
)

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "tidycache")
}

// app bundles the collaborators every subcommand needs, loaded once.
type app struct {
	cfg   *cacheconfig.Config
	store *store.Store
	log   *invoclog.DB // nil if the invocation log could not be opened
}

func loadApp() (*app, error) {
	cfg, err := cacheconfig.Load(filepath.Join(configDir(), "config.json"))
	if err != nil {
		return nil, err
	}

	st := store.New(cfg.CacheDir())

	log, err := invoclog.Open(filepath.Join(configDir(), "history.db"))
	if err != nil {
		log = nil // history is best-effort; stats/clear/config still work
	}

	return &app{cfg: cfg, store: st, log: log}, nil
}

func (a *app) close() {
	if a.log != nil {
		a.log.Close()
	}
	if err := a.cfg.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "tidycache: warning: failed to flush config: %v\n", err)
	}
}

// NewRootCommand assembles the maintenance-surface command tree. args[0]
// is expected to already have had its "--" prefix stripped by main (e.g.
// "stats", not "--stats").
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tidycache",
		Short:         "tidycache caches static-analysis tool invocations by source content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStatsCommand(),
		newClearCommand(),
		newConfigCommand(),
		newHistoryCommand(),
		newWatchCommand(),
	)

	return root
}
