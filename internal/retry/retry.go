// Package retry runs an operation repeatedly until it succeeds, a terminal
// error is seen, or the attempt budget is spent.
package retry

import (
	"context"
	"time"

	"github.com/1ureka/sigcore/internal/util"
)

// DefaultMaxRetries is the attempt budget when Policy.MaxRetries is zero.
const DefaultMaxRetries = 10

// Policy describes one retry call site. Build a fresh Policy (and a fresh
// stateful DelayFunc) for every call: delay generators are not reusable.
type Policy[T any] struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int
	// Delay is consulted once before every retry. Nil means no wait.
	Delay DelayFunc
	// Validator inspects a successful result; a non-nil error forces a retry
	// exactly as if the operation itself had failed.
	Validator func(T) error
	// Terminal classifies an error as not worth retrying.
	Terminal func(error) bool
}

// Do runs fn under p. The first attempt runs immediately. When attempts are
// exhausted or Terminal accepts the error, that error is returned unmodified.
// The only suspension point is the pre-retry delay, which honors ctx.
func Do[T any](ctx context.Context, p Policy[T], fn func(context.Context) (T, error)) (T, error) {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var zero T
	for attempt := 1; ; attempt++ {
		res, err := fn(ctx)
		if err == nil && p.Validator != nil {
			err = p.Validator(res)
		}
		if err == nil {
			return res, nil
		}

		if attempt >= maxRetries || (p.Terminal != nil && p.Terminal(err)) {
			return zero, err
		}

		var wait time.Duration
		if p.Delay != nil {
			wait = p.Delay()
		}
		util.Stats.AddRetry()
		util.LogDebug("retry: attempt %d/%d failed (%v), next in %v", attempt, maxRetries, err, wait)

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
