package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tidycache/cacheconfig"
)

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Print or set configuration values",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()

			switch len(args) {
			case 0:
				fmt.Fprintf(out, "config file: %s\n\n", a.cfg.Path())
				data, err := json.MarshalIndent(a.cfg.Dump(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil

			case 1:
				fmt.Fprintln(out, a.cfg.Get(cacheconfig.Key(args[0])))
				return nil

			default: // 2
				key := cacheconfig.Key(args[0])
				value := cacheconfig.ParseCLIValue(args[1])

				if key == cacheconfig.KeyCleanupThreshold || key == cacheconfig.KeyCleanupTarget {
					// Validate against the prospective value before committing it,
					// so a rejected --config call never leaves the record dirty.
					probe, _ := cacheconfig.Load(a.cfg.Path())
					probe.Set(key, value)
					if err := probe.ValidateThresholds(); err != nil {
						return err
					}
				}

				a.cfg.Set(key, value)
				return nil
			}
		},
	}
}
