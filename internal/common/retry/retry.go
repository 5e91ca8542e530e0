// Package retry runs remote operations under a classification-aware retry
// policy with exponential backoff. Only failures classified as NetworkError
// are retried; everything else returns after the first attempt.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"m365console/internal/common/errs"
	"m365console/internal/common/logger"
)

// Defaults applied by NewPolicy.
const (
	DefaultMaxAttempts      = 7
	DefaultBaseDelay        = 5 * time.Second
	DefaultNetworkBaseDelay = 15 * time.Second
	DefaultMaxDelay         = 5 * time.Minute
	DefaultMaxJitter        = time.Second
)

// Context describes one invocation of Execute. It is handed to the attempt
// hook and embedded in the returned Failure.
type Context struct {
	Operation   string
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
	LastKind    errs.Kind
}

// Failure is returned when Execute gives up, either because the last
// failure was not retryable or because attempts ran out.
type Failure struct {
	Context
	Attempts  int
	Exhausted bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Exhausted {
		return fmt.Sprintf("%s failed after %d attempts: %v", f.Operation, f.Attempts, f.Err)
	}
	return fmt.Sprintf("%s failed (%s, attempt %d): %v", f.Operation, f.LastKind, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [0, max).
type JitterFunc func(max time.Duration) time.Duration

// Policy executes operations with retries.
type Policy struct {
	MaxAttempts      int
	BaseDelay        time.Duration // used while no failure has been classified as network
	NetworkBaseDelay time.Duration // replaces BaseDelay after a network failure; 0 disables the raise
	MaxDelay         time.Duration
	MaxJitter        time.Duration

	Classifier Classifier
	Sleep      SleepFunc
	Jitter     JitterFunc
	Logger     *slog.Logger

	// OnAttempt, when set, is called after every failed attempt.
	OnAttempt func(rc Context, err error)
}

// NewPolicy returns a policy with the package defaults.
func NewPolicy(log *slog.Logger) *Policy {
	return &Policy{
		MaxAttempts:      DefaultMaxAttempts,
		BaseDelay:        DefaultBaseDelay,
		NetworkBaseDelay: DefaultNetworkBaseDelay,
		MaxDelay:         DefaultMaxDelay,
		MaxJitter:        DefaultMaxJitter,
		Classifier:       NewClassifier(),
		Logger:           log,
	}
}

// Option adjusts a single Execute call.
type Option func(*execOptions)

type execOptions struct {
	maxAttempts int
	baseDelay   time.Duration
	fixedBase   bool
}

// WithMaxAttempts overrides the attempt budget for one call.
func WithMaxAttempts(n int) Option {
	return func(o *execOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the base delay for one call. An explicit base delay is
// used as-is and is not raised for network failures.
func WithBaseDelay(d time.Duration) Option {
	return func(o *execOptions) {
		o.baseDelay = d
		o.fixedBase = true
	}
}

// Delay returns the wait before attempt n (n > 1) without jitter:
// base * 2^(n-2), clamped to max when max > 0.
func Delay(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 1 || base <= 0 {
		return 0
	}
	delay := base
	for i := 2; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// Execute runs op until it succeeds, fails with a non-network error, or the
// attempt budget is spent. It returns nil or a *Failure.
//
// Example usage:
//
//	err := policy.Execute(ctx, "connect graph", func(ctx context.Context) error {
//	    return authenticate(ctx)
//	}, retry.WithMaxAttempts(3))
func (p *Policy) Execute(ctx context.Context, name string, op func(context.Context) error, opts ...Option) error {
	o := execOptions{maxAttempts: p.MaxAttempts, baseDelay: p.BaseDelay}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	for _, opt := range opts {
		opt(&o)
	}

	classifier := p.Classifier
	if classifier == nil {
		classifier = defaultClassifier
	}

	rc := Context{Operation: name, MaxAttempts: o.maxAttempts, BaseDelay: o.baseDelay}
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		rc.Attempt = attempt

		if attempt > 1 {
			wait := Delay(rc.BaseDelay, attempt, p.MaxDelay) + p.jitter()
			logger.LogWarn(p.Logger, "Retrying operation",
				"operation", name, "attempt", attempt, "maxAttempts", o.maxAttempts,
				"delay", wait, "lastError", lastErr)
			if err := p.sleep(ctx, wait); err != nil {
				return &Failure{Context: rc, Attempts: attempt - 1, Err: fmt.Errorf("retry cancelled: %w", err)}
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.LogInfo(p.Logger, "Operation succeeded after retries", "operation", name, "attempts", attempt)
			}
			return nil
		}

		rc.LastKind = classifier.Classify(lastErr)
		logger.LogDebug(p.Logger, "Attempt failed",
			"operation", name, "attempt", attempt, "kind", rc.LastKind.String(), "error", lastErr)
		if p.OnAttempt != nil {
			p.OnAttempt(rc, lastErr)
		}

		// Non-retryable error - fail immediately
		if rc.LastKind != errs.KindNetwork {
			return &Failure{Context: rc, Attempts: attempt, Err: lastErr}
		}

		// Transient faults get more room to clear unless the caller pinned the base delay.
		if !o.fixedBase && p.NetworkBaseDelay > rc.BaseDelay {
			rc.BaseDelay = p.NetworkBaseDelay
		}
	}

	logger.LogError(p.Logger, "Operation failed after all attempts",
		"operation", name, "attempts", o.maxAttempts, "error", lastErr)
	return &Failure{Context: rc, Attempts: o.maxAttempts, Exhausted: true, Err: lastErr}
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (p *Policy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	if p.Jitter != nil {
		j := p.Jitter(p.MaxJitter)
		if j < 0 || j >= p.MaxJitter {
			return 0
		}
		return j
	}
	return randomJitter(p.MaxJitter)
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomJitter(max time.Duration) time.Duration {
	rngMu.Lock()
	defer rngMu.Unlock()
	return time.Duration(rng.Int63n(int64(max)))
}
