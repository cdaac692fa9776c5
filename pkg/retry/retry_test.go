package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "yxscraper/pkg/errors"
)

func quickConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, quickConfig(3))

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.WithCode(errs.KindTransport, 503, "service unavailable")
		}
		return nil
	}, quickConfig(5))

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	permanent := errs.WithCode(errs.KindTransport, 404, "not found")

	calls := 0
	err := Do(func() error {
		calls++
		return permanent
	}, quickConfig(5))

	if !errors.Is(err, permanent) {
		t.Errorf("Expected the permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retries for non-retryable error, got %d calls", calls)
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.KindRateLimit, "slow down")
	}, quickConfig(3))

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := quickConfig(0) // unlimited attempts
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: 50 * time.Millisecond}

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(func() error {
		calls++
		return errs.New(errs.KindTransport, "flaky")
	}, cfg)

	if err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if calls > 3 {
		t.Errorf("Expected cancellation to stop retries quickly, got %d calls", calls)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	value, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.KindTransport, "flaky")
		}
		return "payload", nil
	}, quickConfig(3))

	if err != nil {
		t.Fatalf("DoWithResult returned error: %v", err)
	}
	if value != "payload" {
		t.Errorf("Expected payload, got %q", value)
	}
}

func TestWaitReturnsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Wait(ctx, time.Minute)
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected cancellation error from Wait")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	first := backoff.NextDelay(1)
	third := backoff.NextDelay(3)

	if third <= first {
		t.Errorf("Expected delay to grow with attempts: attempt1=%v attempt3=%v", first, third)
	}
}

func TestExponentialBackoffCapped(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   2 * time.Second,
		Multiplier: 10.0,
	}

	if d := backoff.NextDelay(10); d > 2*time.Second {
		t.Errorf("Expected delay capped at 2s, got %v", d)
	}
}
