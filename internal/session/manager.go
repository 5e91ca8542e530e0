// Package session owns per-service connection state for the console. A
// single Manager connects each registered service with the resolved
// credential strategies, retrying transient failures and falling back from
// the certificate to the client secret at most once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
	"m365console/internal/common/ratelimit"
	"m365console/internal/common/retry"
	"m365console/internal/credential"
)

// StrategySource returns the credential strategies to try, in order.
type StrategySource func() ([]credential.Credential, error)

// Static returns a StrategySource with a fixed list.
func Static(strategies ...credential.Credential) StrategySource {
	return func() ([]credential.Credential, error) {
		if len(strategies) == 0 {
			return nil, errs.Config("session.strategies", "no credential strategies configured")
		}
		return strategies, nil
	}
}

// ConnectError is returned when every strategy failed for a service.
type ConnectError struct {
	ServiceID string
	Err       error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.ServiceID, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ErrDisconnected is returned by a Connect that was overtaken by Disconnect.
var ErrDisconnected = errors.New("service disconnected while connecting")

type service struct {
	auth   Authenticator
	state  ConnectionState
	handle *Handle
	// gen is bumped by Disconnect so a connect started earlier cannot
	// install its session afterwards.
	gen uint64
}

// Manager owns the ConnectionState of every registered service.
type Manager struct {
	source  StrategySource
	policy  *retry.Policy
	limiter *ratelimit.Limiter
	log     *slog.Logger
	metrics *Metrics
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	services map[string]*service
	inflight singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(log *slog.Logger) Option { return func(m *Manager) { m.log = log } }

// WithLimiter throttles authentication attempts across all services.
func WithLimiter(l *ratelimit.Limiter) Option { return func(m *Manager) { m.limiter = l } }

// WithTimeout bounds a whole connect attempt, retries and fallback included.
// The attempt is shared by concurrent callers and does not end when one of
// them gives up, so this is its only bound.
func WithTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

func WithMetrics(metrics *Metrics) Option { return func(m *Manager) { m.metrics = metrics } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager returns a Manager with no services registered.
func NewManager(source StrategySource, policy *retry.Policy, opts ...Option) *Manager {
	m := &Manager{
		source:   source,
		policy:   policy,
		now:      time.Now,
		services: make(map[string]*service),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.policy == nil {
		m.policy = retry.NewPolicy(m.log)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// Register adds a service. Registering an existing id replaces its
// authenticator and leaves any live session untouched.
func (m *Manager) Register(serviceID string, auth Authenticator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc, ok := m.services[serviceID]; ok {
		svc.auth = auth
		return
	}
	m.services[serviceID] = &service{
		auth:  auth,
		state: ConnectionState{ServiceID: serviceID, Status: StatusDisconnected},
	}
	m.metrics.setStatus(serviceID, StatusDisconnected)
}

// Services returns the registered service ids in sorted order.
func (m *Manager) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.services))
	for id := range m.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connect returns the session handle for serviceID, authenticating if
// needed. It is idempotent: a connected service returns its existing handle
// without any remote call. Concurrent calls for the same id share a single
// authentication attempt; different ids proceed independently. A caller
// whose ctx ends stops waiting without cancelling the shared attempt.
func (m *Manager) Connect(ctx context.Context, serviceID string) (*Handle, error) {
	if h, err := m.existing(serviceID); h != nil || err != nil {
		return h, err
	}

	ch := m.inflight.DoChan(serviceID, func() (any, error) {
		return m.connect(context.WithoutCancel(ctx), serviceID)
	})
	select {
	case res := <-ch:
		if res.Shared {
			logger.LogDebug(m.log, "Joined in-flight connect", "service", serviceID)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		logger.LogDebug(m.log, "Stopped waiting for connect", "service", serviceID, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

func (m *Manager) existing(serviceID string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[serviceID]
	if !ok {
		return nil, errs.Config("session.connect", "unknown service %q", serviceID)
	}
	if svc.handle != nil && svc.state.Connected() {
		return svc.handle, nil
	}
	return nil, nil
}

func (m *Manager) connect(ctx context.Context, serviceID string) (*Handle, error) {
	// A caller that lost the race with a finished connect lands here.
	if h, err := m.existing(serviceID); h != nil || err != nil {
		return h, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.mu.Lock()
	svc := m.services[serviceID]
	auth := svc.auth
	svc.state.Status = StatusConnecting
	svc.state.RetryCount = 0
	gen := svc.gen
	m.mu.Unlock()
	m.metrics.setStatus(serviceID, StatusConnecting)

	strategies, err := m.source()
	if err != nil {
		return nil, m.fail(serviceID, gen, 0, err)
	}

	logger.LogInfo(m.log, "Connecting service", "service", serviceID, "strategies", len(strategies))

	var (
		failures []error
		retries  int
	)
	for i, cred := range strategies {
		// One fallback at most: the primary and a single alternative.
		if i > 1 {
			logger.LogWarn(m.log, "Fallback already used, not trying further strategies",
				"service", serviceID, "skipped", len(strategies)-i)
			break
		}
		if i == 1 {
			logger.LogWarn(m.log, "Primary strategy failed, falling back",
				"service", serviceID, "from", strategies[0].Kind, "to", cred.Kind)
		}

		var sess Session
		attempts := 0
		op := fmt.Sprintf("connect %s (%s)", serviceID, cred.Kind)
		err := m.policy.Execute(ctx, op, func(ctx context.Context) error {
			attempts++
			if err := m.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
			s, err := auth.Authenticate(ctx, cred)
			if err != nil {
				return credential.ClassifyAuthError("authenticate", err)
			}
			sess = s
			return nil
		})
		retries += max(attempts-1, 0)
		m.metrics.observeAttempts(serviceID, string(cred.Kind), attempts)

		if err == nil {
			return m.succeed(ctx, serviceID, gen, cred, sess, i > 0, retries)
		}

		failures = append(failures, fmt.Errorf("%s strategy: %w", cred.Kind, err))
		logger.LogWarn(m.log, "Credential strategy failed",
			"service", serviceID, "credential", cred, "kind", failureKind(err).String(), "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, m.fail(serviceID, gen, retries, errors.Join(failures...))
}

func failureKind(err error) errs.Kind {
	var f *retry.Failure
	if errors.As(err, &f) {
		return f.LastKind
	}
	if k, ok := errs.KindOf(err); ok {
		return k
	}
	return errs.KindPermanent
}

func (m *Manager) succeed(ctx context.Context, serviceID string, gen uint64, cred credential.Credential, sess Session, fallback bool, retries int) (*Handle, error) {
	now := m.now()
	h := &Handle{
		ID:          uuid.NewString(),
		ServiceID:   serviceID,
		Credential:  cred.Kind,
		ConnectedAt: now,
		Session:     sess,
	}
	status := StatusConnected
	if fallback {
		status = StatusDegraded
	}

	m.mu.Lock()
	svc := m.services[serviceID]
	if svc.gen != gen {
		m.mu.Unlock()
		logger.LogInfo(m.log, "Service disconnected while connecting, closing new session", "service", serviceID)
		if sess != nil {
			if err := sess.Close(ctx); err != nil {
				logger.LogWarn(m.log, "Session close failed", "service", serviceID, "error", err)
			}
		}
		return nil, &ConnectError{ServiceID: serviceID, Err: ErrDisconnected}
	}
	svc.handle = h
	svc.state = ConnectionState{
		ServiceID:      serviceID,
		Status:         status,
		LastSuccess:    now,
		RetryCount:     retries,
		CredentialKind: cred.Kind,
		HandleID:       h.ID,
	}
	m.mu.Unlock()

	m.metrics.setStatus(serviceID, status)
	m.metrics.connects.WithLabelValues(serviceID, "success").Inc()
	logger.LogInfo(m.log, "Service connected",
		"service", serviceID, "status", status.String(), "credential", cred.Kind, "retries", retries)
	return h, nil
}

func (m *Manager) fail(serviceID string, gen uint64, retries int, err error) error {
	m.mu.Lock()
	svc := m.services[serviceID]
	if svc.gen != gen {
		m.mu.Unlock()
		logger.LogDebug(m.log, "Connect failed after disconnect", "service", serviceID, "error", err)
		return &ConnectError{ServiceID: serviceID, Err: errors.Join(ErrDisconnected, err)}
	}
	svc.handle = nil
	svc.state.Status = StatusFailed
	svc.state.LastError = err.Error()
	svc.state.RetryCount = retries
	svc.state.CredentialKind = ""
	svc.state.HandleID = ""
	m.mu.Unlock()

	m.metrics.setStatus(serviceID, StatusFailed)
	m.metrics.connects.WithLabelValues(serviceID, "failure").Inc()
	logger.LogError(m.log, "Service connection failed", "service", serviceID, "error", err)
	return &ConnectError{ServiceID: serviceID, Err: err}
}

// Disconnect closes the session for serviceID, if any, and marks it
// Disconnected. Close errors are logged and returned.
func (m *Manager) Disconnect(ctx context.Context, serviceID string) error {
	m.mu.Lock()
	svc, ok := m.services[serviceID]
	if !ok {
		m.mu.Unlock()
		return errs.Config("session.disconnect", "unknown service %q", serviceID)
	}
	h := svc.handle
	svc.handle = nil
	svc.gen++
	svc.state.Status = StatusDisconnected
	svc.state.HandleID = ""
	m.mu.Unlock()
	m.metrics.setStatus(serviceID, StatusDisconnected)

	if h == nil || h.Session == nil {
		return nil
	}
	logger.LogInfo(m.log, "Disconnecting service", "service", serviceID, "handle", h.ID)
	if err := h.Session.Close(ctx); err != nil {
		logger.LogWarn(m.log, "Session close failed", "service", serviceID, "error", err)
		return fmt.Errorf("close %s session: %w", serviceID, err)
	}
	return nil
}

// IsConnected returns a snapshot of the service's ConnectionState. Unknown
// ids report Disconnected.
func (m *Manager) IsConnected(serviceID string) ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc, ok := m.services[serviceID]; ok {
		return svc.state
	}
	return ConnectionState{ServiceID: serviceID, Status: StatusDisconnected}
}

// States returns snapshots for every registered service, sorted by id.
func (m *Manager) States() []ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConnectionState, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc.state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out
}

// ConnectAll connects every registered service in parallel and returns the
// joined errors of those that failed.
func (m *Manager) ConnectAll(ctx context.Context) error {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []error
	)
	for _, id := range m.Services() {
		g.Go(func() error {
			if _, err := m.Connect(ctx, id); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failures...)
}

// DisconnectAll disconnects every registered service.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	var failures []error
	for _, id := range m.Services() {
		if err := m.Disconnect(ctx, id); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
