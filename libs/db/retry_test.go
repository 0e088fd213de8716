package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("conn closed")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" {
		t.Fatalf("unexpected result %q", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
}

func TestWithRetry_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("still broken")
	_, err := WithRetry(context.Background(), RetryOptions{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
	}, func(context.Context) (int, error) {
		calls++
		if calls < 4 {
			return 0, errors.New("transient")
		}
		return 0, lastErr
	})
	if calls != 4 {
		t.Fatalf("expected 4 invocations, got %d", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error, got %v", err)
	}
}

func TestWithRetry_ReconnectOnClosedConnection(t *testing.T) {
	reconnects := 0
	calls := 0
	_, err := WithRetry(context.Background(), RetryOptions{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Reconnect: func(context.Context) error {
			reconnects++
			return nil
		},
	}, func(context.Context) (struct{}, error) {
		calls++
		if calls == 1 {
			return struct{}{}, errors.New("unexpected EOF")
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if reconnects != 1 {
		t.Fatalf("expected 1 reconnect, got %d", reconnects)
	}
}

func TestWithRetry_ReconnectFailureDoesNotAbort(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), RetryOptions{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Reconnect: func(context.Context) error {
			return errors.New("reconnect refused")
		},
	}, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("connection closed")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != 42 {
		t.Fatalf("unexpected result %d", result)
	}
}

func TestIsConnClosed(t *testing.T) {
	if IsConnClosed(nil) {
		t.Fatal("nil error must not classify as closed connection")
	}
	if IsConnClosed(errors.New("duplicate key value")) {
		t.Fatal("query error must not classify as closed connection")
	}
	if !IsConnClosed(errors.New("write tcp: connection reset by peer")) {
		t.Fatal("connection reset should classify as closed connection")
	}
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := WithRetry(ctx, RetryOptions{
		MaxAttempts: 5,
		BaseDelay:   time.Hour,
	}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected a single invocation, got %d", calls)
	}
}
