// Package errs defines the error taxonomy shared by the connection and
// remediation layers. Every failure that crosses a package boundary carries
// one of the kinds below so callers can decide whether to retry, fall back,
// repair or give up.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindPermanent is anything that is not known to be transient. Never retried.
	KindPermanent Kind = iota
	// KindConfig is a missing or invalid setting. Fatal to the operation that found it.
	KindConfig
	// KindAuth is a credential rejected by the remote service.
	KindAuth
	// KindNetwork is a transient connectivity fault.
	KindNetwork
	// KindIntegrity is a structural or configuration fault found by the fault monitor.
	KindIntegrity
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindAuth:
		return "AuthError"
	case KindNetwork:
		return "NetworkError"
	case KindIntegrity:
		return "IntegrityError"
	default:
		return "PermanentError"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrConfig    = &Error{Kind: KindConfig}
	ErrAuth      = &Error{Kind: KindAuth}
	ErrNetwork   = &Error{Kind: KindNetwork}
	ErrIntegrity = &Error{Kind: KindIntegrity}
	ErrPermanent = &Error{Kind: KindPermanent}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "resolve credentials"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Op and Err are
// ignored so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns a classified error.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Config returns a ConfigError for op.
func Config(op string, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

// Auth wraps err as an AuthError.
func Auth(op string, err error) error {
	return &Error{Kind: KindAuth, Op: op, Err: err}
}

// Network wraps err as a NetworkError.
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Integrity returns an IntegrityError describing a failed check.
func Integrity(check, message string) error {
	return &Error{Kind: KindIntegrity, Op: check, Err: errors.New(message)}
}

// KindOf returns the kind of the outermost classified error in err's chain.
// The second result is false when err carries no classification.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindPermanent, false
}
