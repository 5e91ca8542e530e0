package main

import (
	"os"

	"m365console/internal/artifacts"
	"m365console/internal/common/logger"
	"m365console/internal/common/ratelimit"
	"m365console/internal/common/retry"
	"m365console/internal/common/version"
	"m365console/internal/credential"
	"m365console/internal/monitor"
	"m365console/internal/remediation"
	"m365console/internal/session"
)

var connectAuditColumns = []string{"Service", "Status", "Credential", "RetryCount", "HandleID", "Error"}

func (a *app) hasCredentials() bool {
	return a.cfg.TenantID != "" && a.cfg.ClientID != ""
}

func (a *app) credentialOptions() credential.Options {
	return credential.Options{
		TenantID:              a.cfg.TenantID,
		ClientID:              a.cfg.ClientID,
		ClientSecret:          a.cfg.ClientSecret,
		CertificateThumbprint: a.cfg.CertificateThumbprint,
		CertificatePath:       a.cfg.CertificatePath,
		CertificatePassword:   a.cfg.CertificatePassword,
	}
}

// strategies resolves credentials on every connect so a rotated
// certificate or secret is picked up without a restart.
func (a *app) strategies() session.StrategySource {
	resolver := credential.NewResolver()
	return func() ([]credential.Credential, error) {
		res, err := resolver.Resolve(a.credentialOptions())
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			logger.LogWarn(a.log, "Credential warning", "warning", w)
		}
		return res.Strategies, nil
	}
}

func (a *app) retryPolicy() *retry.Policy {
	policy := retry.NewPolicy(a.log)
	policy.MaxAttempts = a.cfg.MaxRetries
	policy.BaseDelay = a.cfg.RetryDelay()
	policy.NetworkBaseDelay = a.cfg.NetworkRetryDelay()
	policy.MaxDelay = a.cfg.MaxRetryDelay()
	return policy
}

func (a *app) newSessionManager() *session.Manager {
	limiter := ratelimit.New(a.cfg.AuthRateLimit)
	if limiter.Enabled() {
		logger.LogDebug(a.log, "Authentication attempts rate limited", "rps", limiter.RPS())
	}
	m := session.NewManager(a.strategies(), a.retryPolicy(),
		session.WithLogger(a.log),
		session.WithLimiter(limiter),
		session.WithTimeout(a.cfg.Timeout()),
		session.WithMetrics(session.NewMetrics(a.registry)),
	)
	m.Register(session.ServiceGraph, session.NewGraphAuthenticator(a.log))
	if a.cfg.ImapMailbox != "" {
		m.Register(session.ServiceExchangeIMAP, session.NewIMAPAuthenticator(a.cfg.ImapHost, a.cfg.ImapMailbox, a.log))
	}
	return m
}

func (a *app) newMonitor() *monitor.Monitor {
	opts := monitor.OptionsFromConfig(a.cfg)
	opts.Logger = a.log
	opts.Registerer = a.registry
	return monitor.New(a.layout, opts)
}

func (a *app) newFixer() *remediation.Fixer {
	exe, err := os.Executable()
	if err != nil {
		exe = toolName
	}
	return &remediation.Fixer{
		Layout:        a.layout,
		ReportSubdirs: a.cfg.ReportSubdirs,
		Config:        a.cfg,
		Artifact: artifacts.Data{
			RootDir:    a.layout.Root,
			Executable: exe,
			Version:    version.Get(),
		},
		Log: a.log,
	}
}

// openAudit opens an audit log under logs/. The log directory is not
// created here so a missing one stays visible to the fault monitor.
func (a *app) openAudit(action string, columns []string) logger.ActionLogger {
	audit, err := logger.NewActionLogger(a.cfg.AuditFormat, a.layout.Dir(monitor.DirLogs), toolName, action, columns)
	if err != nil {
		logger.LogWarn(a.log, "Could not initialize audit logging", "action", action, "error", err)
		return nil
	}
	return audit
}

// managedSessions returns the sessions that Standard and Deep repairs stop
// and restart, or nil when no usable app registration is configured.
func (a *app) managedSessions() *session.Manager {
	if !a.hasCredentials() || a.configErr != nil {
		logger.LogInfo(a.log, "No app registration configured, repairs will not restart service sessions")
		return nil
	}
	return a.newSessionManager()
}

// newEscalator wires the monitor, fixes and repair audit log together.
// Service sessions are restarted by Standard and Deep tiers only when a
// session manager is given. The returned func closes the audit log.
func (a *app) newEscalator(sessions *session.Manager) (*remediation.Escalator, func()) {
	audit := a.openAudit("repair", remediation.AuditColumns)
	opts := remediation.Options{
		Thresholds: remediation.Thresholds{
			Standard: a.cfg.StandardThreshold,
			Deep:     a.cfg.DeepThreshold,
		},
		MaxRepairAttempts:  a.cfg.MaxRepairAttempts,
		MonitoringInterval: a.cfg.MonitoringInterval,
		Store:              remediation.NewSnapshotStore(a.layout),
		Audit:              audit,
		Registerer:         a.registry,
		Logger:             a.log,
	}
	if sessions != nil {
		opts.Processes = remediation.SessionProcesses{Manager: sessions}
	}

	esc := remediation.New(a.newMonitor(), a.newFixer(), opts)
	return esc, func() {
		if audit != nil {
			audit.Close()
		}
	}
}
