package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpillora/backoff"
)

func fastBackoff() *backoff.Backoff {
	return &backoff.Backoff{Min: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retry(context.Background(), "test", 5, fastBackoff(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("still down")
	err := retry(context.Background(), "test", 3, fastBackoff(), func(context.Context) error {
		calls++
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, "test", 10, &backoff.Backoff{Min: time.Hour, Max: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryRunsAtLeastOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), "test", 0, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
