package ratelimit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		rps         float64
		wantEnabled bool
		wantRPS     float64
	}{
		{name: "disabled with zero", rps: 0, wantEnabled: false, wantRPS: 0},
		{name: "disabled with negative", rps: -1, wantEnabled: false, wantRPS: 0},
		{name: "one attempt per second", rps: 1.0, wantEnabled: true, wantRPS: 1.0},
		{name: "fractional", rps: 0.5, wantEnabled: true, wantRPS: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.rps)
			if limiter.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", limiter.Enabled(), tt.wantEnabled)
			}
			if limiter.RPS() != tt.wantRPS {
				t.Errorf("RPS() = %v, want %v", limiter.RPS(), tt.wantRPS)
			}
		})
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := New(0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if !limiter.Allow() {
			t.Fatal("Allow() = false on disabled limiter")
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled limiter took %v, want near zero", elapsed)
	}
	if r := limiter.Reserve(); r != nil {
		t.Errorf("Reserve() = %v, want nil for disabled limiter", r)
	}
}

func TestLimiter_NilSafe(t *testing.T) {
	var limiter *Limiter
	if limiter.Enabled() {
		t.Error("nil limiter reports enabled")
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("nil Wait() error = %v", err)
	}
}

func TestLimiter_Wait_ContextCanceled(t *testing.T) {
	limiter := New(0.1) // 1 attempt per 10 seconds
	_ = limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait() should fail when the context ends before a token is available")
	}
}

func TestLimiter_Allow_Enabled(t *testing.T) {
	limiter := New(10.0)

	if !limiter.Allow() {
		t.Fatal("first Allow() = false, want true")
	}
	if limiter.Allow() {
		t.Error("second immediate Allow() = true, want false (burst is 1)")
	}
}

func TestLimiter_String(t *testing.T) {
	tests := []struct {
		rps  float64
		want string
	}{
		{0, "disabled"},
		{10.0, "10.00 rps"},
		{0.5, "1 request per 2s"},
	}

	for _, tt := range tests {
		if got := New(tt.rps).String(); !strings.Contains(got, tt.want) {
			t.Errorf("New(%v).String() = %q, want substring %q", tt.rps, got, tt.want)
		}
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	limiter := New(1000.0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := limiter.Wait(ctx); err != nil {
					t.Errorf("Wait() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()
}
