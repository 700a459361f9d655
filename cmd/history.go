package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent recorded invocations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			if a.log == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "tidycache: invocation history is unavailable")
				return nil
			}

			runs, err := a.log.Recent(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %-11s  %-4d  %s  %s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.ExitCode, r.Digest, r.SourceFile)
			}
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to print")
	return c
}
