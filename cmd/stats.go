package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidycache/cacheconfig"
	"tidycache/util"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache directory, budget, hit/miss counters, and current size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.store.IterEntries()
			if err != nil {
				return err
			}
			size, err := a.store.Size()
			if err != nil {
				return err
			}

			hits := a.cfg.GetStat(cacheconfig.StatHits)
			misses := a.cfg.GetStat(cacheconfig.StatMisses)
			var hitRate float64
			if total := hits + misses; total > 0 {
				hitRate = float64(hits) / float64(total) * 100
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cache directory:   %s\n", a.store.Dir())
			fmt.Fprintf(out, "max cache size:    %s\n", util.FormatBytes(a.cfg.GetInt64(cacheconfig.KeyMaxCacheSize)))
			fmt.Fprintf(out, "current size:      %s\n", util.FormatBytes(size))
			fmt.Fprintf(out, "entries:           %d\n", len(entries))
			fmt.Fprintf(out, "hits:              %d\n", hits)
			fmt.Fprintf(out, "misses:            %d\n", misses)
			fmt.Fprintf(out, "hit rate:          %.1f%%\n", hitRate)
			fmt.Fprintf(out, "since cleanup:     %d\n", a.cfg.GetStat(cacheconfig.StatInvocationsSinceCleanup))
			return nil
		},
	}
}
