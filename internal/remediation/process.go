package remediation

import (
	"context"

	"m365console/internal/session"
)

// ProcessController stops and restarts the managed processes around a
// Standard or Deep repair.
type ProcessController interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
}

// SessionProcesses treats the SessionManager's service sessions as the
// managed processes.
type SessionProcesses struct {
	Manager *session.Manager
}

func (p SessionProcesses) Stop(ctx context.Context) error {
	return p.Manager.DisconnectAll(ctx)
}

func (p SessionProcesses) Start(ctx context.Context) error {
	return p.Manager.ConnectAll(ctx)
}

type noProcesses struct{}

func (noProcesses) Stop(context.Context) error  { return nil }
func (noProcesses) Start(context.Context) error { return nil }
