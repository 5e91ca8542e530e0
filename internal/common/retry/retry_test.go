//go:build !integration
// +build !integration

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"m365console/internal/common/errs"
)

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestPolicy(s *recordingSleeper) *Policy {
	p := NewPolicy(nil)
	p.MaxJitter = 0
	p.Sleep = s.Sleep
	return p
}

func TestExecute_NetworkExhaustion(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := newTestPolicy(sleeper)

	calls := 0
	err := policy.Execute(context.Background(), "connect", func(context.Context) error {
		calls++
		return errors.New("read tcp 10.0.0.1:443: connection reset by peer")
	}, WithMaxAttempts(3), WithBaseDelay(5*time.Second))

	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute() error = %v, want *Failure", err)
	}
	if !failure.Exhausted {
		t.Error("Failure.Exhausted = false, want true")
	}
	if failure.Attempts != 3 {
		t.Errorf("Failure.Attempts = %d, want 3", failure.Attempts)
	}
	if failure.LastKind != errs.KindNetwork {
		t.Errorf("Failure.LastKind = %v, want %v", failure.LastKind, errs.KindNetwork)
	}
}

func TestExecute_NetworkRaisesDefaultBase(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := newTestPolicy(sleeper)

	_ = policy.Execute(context.Background(), "token", func(context.Context) error {
		return errors.New("i/o timeout")
	}, WithMaxAttempts(3))

	want := []time.Duration{15 * time.Second, 30 * time.Second}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_PermanentNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.Kind
	}{
		{"unclassified", errors.New("invalid character in response"), errs.KindPermanent},
		{"auth text", errors.New("AADSTS7000215: Invalid client secret provided"), errs.KindAuth},
		{"typed auth", errs.Auth("authenticate", errors.New("rejected")), errs.KindAuth},
		{"config", errs.Config("resolve", "no tenant"), errs.KindConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			policy := newTestPolicy(sleeper)

			calls := 0
			err := policy.Execute(context.Background(), "op", func(context.Context) error {
				calls++
				return tt.err
			})

			if calls != 1 {
				t.Errorf("operation called %d times, want 1", calls)
			}
			if len(sleeper.delays) != 0 {
				t.Errorf("slept %v, want no sleeps", sleeper.delays)
			}
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("Execute() error = %v, want *Failure", err)
			}
			if failure.Exhausted {
				t.Error("Failure.Exhausted = true, want false")
			}
			if failure.LastKind != tt.kind {
				t.Errorf("Failure.LastKind = %v, want %v", failure.LastKind, tt.kind)
			}
			if !errors.Is(err, tt.err) {
				t.Error("Failure should unwrap to the last error")
			}
		})
	}
}

func TestExecute_SucceedsAfterTransient(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := newTestPolicy(sleeper)

	var seen []int
	policy.OnAttempt = func(rc Context, err error) {
		seen = append(seen, rc.Attempt)
	}

	calls := 0
	err := policy.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	}, WithBaseDelay(time.Second))

	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Errorf("OnAttempt attempts mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_DelaysNonDecreasingAndClamped(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := newTestPolicy(sleeper)
	policy.MaxDelay = 40 * time.Second

	calls := 0
	_ = policy.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("connection timed out")
	}, WithBaseDelay(5*time.Second))

	if calls > DefaultMaxAttempts {
		t.Errorf("operation called %d times, want <= %d", calls, DefaultMaxAttempts)
	}
	for i := 1; i < len(sleeper.delays); i++ {
		if sleeper.delays[i] < sleeper.delays[i-1] {
			t.Errorf("delay %d (%v) < delay %d (%v)", i, sleeper.delays[i], i-1, sleeper.delays[i-1])
		}
		if sleeper.delays[i] > policy.MaxDelay {
			t.Errorf("delay %d = %v exceeds max %v", i, sleeper.delays[i], policy.MaxDelay)
		}
	}
}

func TestExecute_JitterBounded(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := newTestPolicy(sleeper)
	policy.MaxJitter = 500 * time.Millisecond
	policy.Jitter = func(max time.Duration) time.Duration { return 200 * time.Millisecond }

	_ = policy.Execute(context.Background(), "op", func(context.Context) error {
		return errors.New("timeout")
	}, WithMaxAttempts(2), WithBaseDelay(time.Second))

	want := []time.Duration{1200 * time.Millisecond}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	policy := NewPolicy(nil)
	policy.MaxJitter = 0

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := policy.Execute(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	}, WithBaseDelay(time.Hour))

	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{"first attempt has no delay", 5 * time.Second, 1, 0, 0},
		{"second attempt waits base", 5 * time.Second, 2, 0, 5 * time.Second},
		{"third attempt doubles", 5 * time.Second, 3, 0, 10 * time.Second},
		{"seventh attempt", 5 * time.Second, 7, 0, 160 * time.Second},
		{"clamped", 5 * time.Second, 7, time.Minute, time.Minute},
		{"zero base", 0, 4, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(tt.base, tt.attempt, tt.max); got != tt.want {
				t.Errorf("Delay(%v, %d, %v) = %v, want %v", tt.base, tt.attempt, tt.max, got, tt.want)
			}
		})
	}
}
