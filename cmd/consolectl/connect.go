package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"m365console/internal/common/logger"
	"m365console/internal/session"
)

func newConnectCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "connect [service...]",
		Short: "Connect services and show their connection state",
		Long: `Authenticate to each named service (all registered services when none is given) and print the resulting connection states.

Services: graph, and exchange-imap when imapMailbox is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireValidConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()
			m := a.newSessionManager()

			services := args
			if len(services) == 0 {
				services = m.Services()
			}

			audit := a.openAudit("connect", connectAuditColumns)
			if audit != nil {
				defer audit.Close()
			}

			var failures []error
			for _, id := range services {
				if _, err := m.Connect(ctx, id); err != nil {
					failures = append(failures, err)
				}
				if audit != nil {
					st := m.IsConnected(id)
					row := []string{id, st.Status.String(), string(st.CredentialKind), strconv.Itoa(st.RetryCount), st.HandleID, st.LastError}
					if err := audit.WriteRow(row); err != nil {
						logger.LogWarn(a.log, "Failed to write audit row", "error", err)
					}
				}
			}

			states := make([]session.ConnectionState, 0, len(services))
			for _, id := range services {
				states = append(states, m.IsConnected(id))
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, states); err != nil {
					return err
				}
			} else {
				printStates(out, states)
			}

			if err := m.DisconnectAll(ctx); err != nil {
				logger.LogWarn(a.log, "Disconnect failed", "error", err)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d of %d services failed to connect: %w", len(failures), len(services), errors.Join(failures...))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print connection states as JSON")
	return cmd
}
