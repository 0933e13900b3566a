// Package retry wraps transient-failure-prone upstream calls with an
// exponential backoff policy. Callers must only wrap idempotent
// operations; write paths use idempotency keys, not retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-bot/internal/domain"
)

// ErrExhausted is returned once the attempt budget runs out.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy parameterises the wrapper. The zero value is unusable; use
// DefaultPolicy or construct one explicitly.
type Policy struct {
	// BaseDelay is the sleep before the second attempt; attempt i waits
	// BaseDelay * 2^i.
	BaseDelay time.Duration
	// MaxAttempts bounds the total number of attempts, first included.
	MaxAttempts int
	// Classify decides whether an error is worth retrying. Any error it
	// rejects propagates immediately. Defaults to domain.IsRateLimited.
	Classify func(error) bool

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy mirrors the upstream client defaults: 2s base delay,
// five attempts, retrying rate-limited failures only.
func DefaultPolicy() Policy {
	return Policy{BaseDelay: 2 * time.Second, MaxAttempts: 5}
}

func (p Policy) classify(err error) bool {
	if p.Classify != nil {
		return p.Classify(err)
	}
	return domain.IsRateLimited(err)
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op, retrying retriable failures with exponential backoff until
// the attempt budget is exhausted.
func Do(ctx context.Context, p Policy, op func() error) error {
	_, err := DoValue(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// DoValue runs op and returns its value, retrying retriable failures with
// exponential backoff. Non-retriable errors propagate on the spot.
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		return zero, fmt.Errorf("retry: max attempts must be positive")
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !p.classify(err) {
			return zero, err
		}
		lastErr = err
		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.BaseDelay << uint(attempt)
		if waitErr := p.wait(ctx, delay); waitErr != nil {
			return zero, waitErr
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, p.MaxAttempts, lastErr)
}
