package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("503 service unavailable")

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2}
}

// flaky fails the first n calls.
func flaky(n int, err error) (func() (string, error), *int) {
	calls := 0
	return func() (string, error) {
		calls++
		if calls <= n {
			return "", err
		}
		return "connected", nil
	}, &calls
}

func TestRetry(t *testing.T) {
	permanent := errors.New("401 unauthorized")

	tests := []struct {
		name      string
		cfg       RetryConfig
		failures  int
		err       error
		wantErr   error
		wantCalls int
	}{
		{"first attempt", fastConfig(3), 0, nil, nil, 1},
		{"recovers", fastConfig(3), 2, errUnavailable, nil, 3},
		{"exhausted", fastConfig(3), 10, errUnavailable, errUnavailable, 3},
		{"default attempts", RetryConfig{InitialBackoff: time.Millisecond}, 10, errUnavailable, errUnavailable, 3},
		{
			name: "not retryable",
			cfg: RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: time.Millisecond,
				RetryIf:        func(err error) bool { return !errors.Is(err, permanent) },
			},
			failures: 10, err: permanent, wantErr: permanent, wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, calls := flaky(tt.failures, tt.err)
			got, err := Retry(context.Background(), tt.cfg, fn)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && got != "connected" {
				t.Errorf("unexpected result %q", got)
			}
			if *calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, *calls)
			}
		})
	}
}

func TestRetry_StopsOnContext(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fn, calls := flaky(10, errUnavailable)
	if _, err := Retry(ctx, cfg, fn); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if *calls >= 10 {
		t.Errorf("expected the wait to be interrupted, got %d calls", *calls)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var attempts []int
	var delays []time.Duration
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error, backoff time.Duration) {
		attempts = append(attempts, attempt)
		delays = append(delays, backoff)
	}

	fn, _ := flaky(10, errUnavailable)
	_, _ = Retry(context.Background(), cfg, fn)

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("expected retries after attempts [1 2], got %v", attempts)
	}
	if delays[1] <= delays[0] {
		t.Errorf("expected growing delays, got %v", delays)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := cfg.Backoff(i + 1); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
	if got := cfg.Backoff(0); got != 100*time.Millisecond {
		t.Errorf("attempt 0 should behave like the first, got %v", got)
	}

	cfg.Jitter = 0.5
	for i := 0; i < 50; i++ {
		if got := cfg.Backoff(2); got < 100*time.Millisecond || got > 300*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [100ms, 300ms]", got)
		}
	}
}

func TestRetryConfig_ApplyDefaults(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 5 * time.Second, MaxBackoff: time.Second}
	cfg.ApplyDefaults()
	if cfg.MaxBackoff != 5*time.Second {
		t.Errorf("expected MaxBackoff raised to InitialBackoff, got %v", cfg.MaxBackoff)
	}
	if cfg.BackoffFactor != 2 || cfg.RetryIf == nil {
		t.Errorf("expected factor and RetryIf defaults, got %+v", cfg)
	}
	if cfg.MaxAttempts != 0 {
		t.Errorf("MaxAttempts should be left alone, got %d", cfg.MaxAttempts)
	}
	if DefaultRetryIf(context.Canceled) || !DefaultRetryIf(errUnavailable) {
		t.Error("cancellation must not be retried, other errors must")
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), time.Millisecond); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := Wait(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled for zero wait on done ctx, got %v", err)
	}
}
