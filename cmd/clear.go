package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCommand() *cobra.Command {
	var withHistory bool

	c := &cobra.Command{
		Use:   "clear",
		Short: "Delete all cache entries and reset hit/miss counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Clear(); err != nil {
				return err
			}
			a.cfg.ResetStats()

			if withHistory {
				if a.log == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "tidycache: warning: invocation history unavailable, nothing to clear")
				} else if err := a.log.Clear(); err != nil {
					return err
				}
			}
			return nil
		},
	}

	c.Flags().BoolVar(&withHistory, "history", false, "also clear invocation history")
	return c
}
