package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newMissionsCmd creates the 'missions' subcommand, which lists the open
// missions without running a scan.
func newMissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missions",
		Short: "List open missions",

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			open, err := appInstance.Missions().Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch missions: %w", err)
			}
			if len(open) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no open missions")
				return nil
			}
			for _, m := range open {
				if len(m.Keywords) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), m.Forum)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", m.Forum, strings.Join(m.Keywords, ", "))
			}
			return nil
		},
	}
}
