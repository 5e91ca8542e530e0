package main

import (
	"context"

	"github.com/spf13/cobra"

	"m365console/internal/common/logger"
	"m365console/internal/remediation"
)

func newRepairCommand(a *app) *cobra.Command {
	var tierName string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Force a remediation tier",
		Long: `Run the given remediation tier now, whatever the escalation state, then re-check. Exits 1 when faults remain.

When an app registration is configured, Standard and Deep repairs stop and restart the service sessions; otherwise they only repair files.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := remediation.ParseTier(tierName)
			if err != nil {
				return err
			}

			sessions := a.managedSessions()
			if sessions != nil {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
					defer cancel()
					if err := sessions.DisconnectAll(shutdownCtx); err != nil {
						logger.LogWarn(a.log, "Disconnect failed", "error", err)
					}
				}()
			}

			esc, closeAudit := a.newEscalator(sessions)
			defer closeAudit()

			outcome := esc.RunRemediation(cmd.Context(), tier)
			printOutcome(cmd.OutOrStdout(), outcome)
			if !outcome.Success {
				return errFaultsFound
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tierName, "tier", "quick", "remediation tier: quick, standard or deep")
	return cmd
}
