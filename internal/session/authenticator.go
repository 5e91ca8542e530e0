package session

import (
	"context"
	"time"

	"m365console/internal/credential"
)

// Session is an authenticated connection to one service.
type Session interface {
	Close(ctx context.Context) error
}

// Authenticator establishes a Session with one credential strategy.
// Errors are classified by the Manager's retry policy; authenticators may
// return *errs.Error values to pin a kind.
type Authenticator interface {
	Authenticate(ctx context.Context, cred credential.Credential) (Session, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, cred credential.Credential) (Session, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, cred credential.Credential) (Session, error) {
	return f(ctx, cred)
}

// Handle is returned by Connect and stays valid until Disconnect.
type Handle struct {
	ID          string
	ServiceID   string
	Credential  credential.Kind
	ConnectedAt time.Time
	Session     Session
}
