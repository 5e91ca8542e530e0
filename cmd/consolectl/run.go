package main

import (
	"context"
	"errors"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"m365console/internal/common/logger"
	"m365console/internal/config"
	"m365console/internal/remediation"
	"m365console/internal/session"
)

const shutdownTimeout = 15 * time.Second

func newRunCommand(a *app) *cobra.Command {
	var (
		once         bool
		untilHealthy bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor and repair the installation",
		Long: `Without flags, run the monitoring loop until interrupted: check every monitoringInterval, escalate repairs from Quick to Standard to Deep while faults persist, and pause when maxRepairAttempts is reached.

--once runs a single monitor and repair cycle. --until-healthy repeats cycles without pausing until the installation is healthy or the repair attempts are exhausted. Both exit 1 when faults remain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sessions := a.managedSessions()
			esc, closeAudit := a.newEscalator(sessions)
			defer closeAudit()

			switch {
			case once:
				result := esc.RunCycle(ctx)
				if result.Repair != nil {
					printOutcome(cmd.OutOrStdout(), *result.Repair)
				} else {
					printReport(cmd.OutOrStdout(), result.Report)
				}
				if result.State != remediation.StateHealthy {
					return errFaultsFound
				}
				return nil

			case untilHealthy:
				err := esc.RunOnce(ctx)
				printSession(cmd.OutOrStdout(), esc.Snapshot())
				if errors.Is(err, remediation.ErrExhausted) {
					return errFaultsFound
				}
				return err
			}

			return a.runDaemon(ctx, esc, sessions)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run one monitor and repair cycle and exit")
	cmd.Flags().BoolVar(&untilHealthy, "until-healthy", false, "repair until healthy or out of attempts, then exit")
	cmd.MarkFlagsMutuallyExclusive("once", "until-healthy")
	return cmd
}

func (a *app) runDaemon(ctx context.Context, esc *remediation.Escalator, sessions *session.Manager) error {
	if a.cfg.MetricsAddr != "" {
		srv := startHTTPServer(a.cfg.MetricsAddr, newMonitoringServer(a.registry, esc.Snapshot, a.log).handler(), a.log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			shutdownHTTPServer(shutdownCtx, srv, a.log)
		}()
	}

	go func() {
		err := config.Watch(ctx, a.layout.ConfigFile(), a.log, func(fsnotify.Event) {
			esc.Wake()
		})
		if err != nil {
			logger.LogWarn(a.log, "Config watch disabled", "error", err)
		}
	}()

	if sessions != nil {
		if err := sessions.ConnectAll(ctx); err != nil {
			logger.LogWarn(a.log, "Initial connect failed", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sessions.DisconnectAll(shutdownCtx); err != nil {
				logger.LogWarn(a.log, "Disconnect failed", "error", err)
			}
		}()
	}

	return esc.Run(ctx)
}
