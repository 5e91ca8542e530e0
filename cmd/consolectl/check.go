package main

import (
	"github.com/spf13/cobra"
)

func newCheckCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one fault monitor cycle",
		Long:  `Run every fault check once. Exits 0 when the installation is healthy and 1 when faults are found. Nothing is repaired.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := a.newMonitor().RunCycle(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}
			if !report.Passed() {
				return errFaultsFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the fault report as JSON")
	return cmd
}
