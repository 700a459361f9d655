package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"tidycache/dashboard"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show a live-updating view of cache hit rate and size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			collector := dashboard.NewCollector(ctx, dashboard.Source{Config: a.cfg, Store: a.store})
			defer collector.Close()

			ui := dashboard.NewTUI()
			collector.RegisterConsumer(ui)

			return ui.Run()
		},
	}
}
