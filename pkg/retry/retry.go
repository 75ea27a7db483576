// Package retry bounds idempotent reads against flaky upstreams: one attempt plus at
// most one retry, each under its own timeout.
package retry

import (
	"context"
	"errors"
	"time"
)

// Once runs fn with a per-attempt timeout and retries a single time on failure.
// It does not retry when the parent context is already done. Never use it for
// mutations: a retried write could double-apply.
func Once[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := attempt(ctx, timeout, fn)
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil || errors.Is(err, ErrPermanent) {
		return v, err
	}
	return attempt(ctx, timeout, fn)
}

// ErrPermanent marks an error that a retry cannot fix.
var ErrPermanent = errors.New("permanent failure")

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}
