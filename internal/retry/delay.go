package retry

import (
	"errors"
	"fmt"
	"time"
)

// DelayFunc returns the wait before the next attempt. Generators returned by
// this package are stateful: every call advances them by one step.
type DelayFunc func() time.Duration

// ErrInvalidDelay is returned by the generator constructors for negative or
// out-of-bound parameters.
var ErrInvalidDelay = errors.New("invalid delay parameters")

// DelayConfig parameterizes the stepping generators.
type DelayConfig struct {
	InitialDelay time.Duration // first value returned
	Variation    time.Duration // step applied after every call
	Limit        time.Duration // clamp: maximum for Increasing, minimum for Decreasing
}

func (c DelayConfig) validate() error {
	if c.InitialDelay < 0 || c.Variation < 0 || c.Limit < 0 {
		return fmt.Errorf("%w: negative value in %+v", ErrInvalidDelay, c)
	}
	return nil
}

// IncreasingDelay returns a generator starting at InitialDelay and growing by
// Variation per call up to Limit. Once clamped it stays at Limit.
func IncreasingDelay(cfg DelayConfig) (DelayFunc, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.InitialDelay > cfg.Limit {
		return nil, fmt.Errorf("%w: initial delay %v above limit %v", ErrInvalidDelay, cfg.InitialDelay, cfg.Limit)
	}

	next := cfg.InitialDelay
	return func() time.Duration {
		cur := next
		next = min(next+cfg.Variation, cfg.Limit)
		return cur
	}, nil
}

// DecreasingDelay returns a generator starting at InitialDelay and shrinking
// by Variation per call down to Limit. Once clamped it stays at Limit.
func DecreasingDelay(cfg DelayConfig) (DelayFunc, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.InitialDelay < cfg.Limit {
		return nil, fmt.Errorf("%w: initial delay %v below limit %v", ErrInvalidDelay, cfg.InitialDelay, cfg.Limit)
	}

	next := cfg.InitialDelay
	return func() time.Duration {
		cur := next
		next = max(next-cfg.Variation, cfg.Limit)
		return cur
	}, nil
}

// ConstDelay returns a generator that always yields d.
func ConstDelay(d time.Duration) (DelayFunc, error) {
	if d < 0 {
		return nil, fmt.Errorf("%w: negative delay %v", ErrInvalidDelay, d)
	}
	return func() time.Duration { return d }, nil
}
