package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newScanCmd creates the 'scan' subcommand: one full acquisition, scoring
// and ledger sync cycle over the currently open missions.
func newScanCmd() *cobra.Command {
	var serveMetrics bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan cycle",
		Long: `Refreshes the endpoint pool, fetches and scores posts for every
open mission, and syncs the resulting snapshot into the day ledger.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if serveMetrics {
				appInstance.ServeMetrics()
			}
			if err := appInstance.RunScan(cmd.Context()); err != nil {
				return fmt.Errorf("run scan: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&serveMetrics, "serve-metrics", false, "expose /metrics and /healthz while scanning")
	return cmd
}
