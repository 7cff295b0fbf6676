package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/subcut/internal/tempfiles"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove intermediate files left behind by interrupted runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			removed, err := tempfiles.Sweep(dir)
			for _, p := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
			}
			if err != nil {
				return fmt.Errorf("clean %s: %w", dir, err)
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
			}
			return nil
		},
	}
}
