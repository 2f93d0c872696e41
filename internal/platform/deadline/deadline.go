// Package deadline races backend calls against a wall-clock timeout.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTimeout is returned when a call does not finish before its deadline.
var ErrTimeout = errors.New("deadline exceeded")

// Call runs fn with a context bounded by d. If fn has not returned when the
// deadline passes, Call returns ErrTimeout without waiting for it.
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("after %s: %w", d, ErrTimeout)
		}
		return zero, ctx.Err()
	}
}

// Soft is Call that degrades any failure to fallback, logging it under name.
func Soft[T any](ctx context.Context, d time.Duration, name string, fallback T, fn func(context.Context) (T, error)) T {
	v, err := Call(ctx, d, fn)
	if err != nil {
		slog.WarnContext(ctx, "fetch degraded to default", "source", name, "error", err)
		return fallback
	}
	return v
}
