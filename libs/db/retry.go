package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// RetryOptions controls WithRetry. Zero values fall back to the defaults
// above. Reconnect is invoked best-effort when the failure looks like a
// closed connection; its own error is logged and otherwise ignored.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Reconnect   func(context.Context) error
	Logger      *slog.Logger
}

// WithRetry runs op up to MaxAttempts times, waiting BaseDelay*attempt
// between attempts (linear, not exponential). On exhaustion the last
// observed error is returned.
func WithRetry[T any](ctx context.Context, opts RetryOptions, op func(context.Context) (T, error)) (T, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsConnClosed(err) {
			if opts.Logger != nil {
				opts.Logger.Warn("database connection closed, reconnecting",
					"attempt", attempt, "max_attempts", opts.MaxAttempts, "err", err)
			}
			if opts.Reconnect != nil {
				if rerr := opts.Reconnect(ctx); rerr != nil && opts.Logger != nil {
					opts.Logger.Warn("reconnect failed", "err", rerr)
				}
			}
		} else if opts.Logger != nil {
			opts.Logger.Warn("database operation failed",
				"attempt", attempt, "max_attempts", opts.MaxAttempts, "err", err)
		}

		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, opts.BaseDelay*time.Duration(attempt)); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Retry is WithRetry for operations without a result value.
func Retry(ctx context.Context, opts RetryOptions, op func(context.Context) error) error {
	_, err := WithRetry(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// IsConnClosed reports whether err indicates the server-side connection
// went away (as opposed to a query-level failure that retrying cannot fix
// any faster).
func IsConnClosed(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection exception; 57P01 = admin shutdown.
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "unexpected EOF")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
