// Package retry wraps a fallible remote operation with exponential backoff.
// The policy is an explicit value passed per call, so individual requests
// can tune or disable retries without touching shared state. Waiting is a
// per-call suspension: only the invoking goroutine sleeps, and context
// cancellation interrupts the wait.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
)

// Policy bounds for validation.
const (
	MinAttempts        = 1
	MaxAttempts        = 5
	MinExponentialBase = 1.5
	MaxExponentialBase = 3.0
)

// Policy configures retry behavior for a single operation. The zero value
// is invalid; use DefaultPolicy or construct explicitly and Validate.
type Policy struct {
	Enabled         bool          // false bypasses retries entirely
	MaxAttempts     int           // total attempts including the first
	BaseDelay       time.Duration // delay before the second attempt
	MaxDelay        time.Duration // ceiling for any computed delay
	ExponentialBase float64       // growth factor between attempts
	Jitter          bool          // randomize delays downward to decorrelate retries

	// OnRetry, when set, is invoked before each backoff sleep. Intended for
	// tests and metrics hooks.
	OnRetry func(err error, attempt int, delay time.Duration)

	// Stats, when set, accumulates attempt counters across calls.
	Stats *Stats
}

// DefaultPolicy returns the standard retry policy: three attempts,
// one second base delay doubling up to a minute, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:         true,
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// Validate checks the policy parameters against their allowed ranges.
// A disabled policy is always valid.
func (p Policy) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.MaxAttempts < MinAttempts || p.MaxAttempts > MaxAttempts {
		return fmt.Errorf("max attempts must be in [%d, %d], got %d",
			MinAttempts, MaxAttempts, p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("base delay must be positive, got %v", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("max delay %v must be >= base delay %v", p.MaxDelay, p.BaseDelay)
	}
	if p.ExponentialBase < MinExponentialBase || p.ExponentialBase > MaxExponentialBase {
		return fmt.Errorf("exponential base must be in [%.1f, %.1f], got %g",
			MinExponentialBase, MaxExponentialBase, p.ExponentialBase)
	}
	return nil
}

// Do executes op under the policy. Retriable failures are re-attempted up
// to MaxAttempts with exponential backoff; fatal errors propagate
// immediately with no further attempts. When the final attempt fails with
// a retriable error, Do returns RetryExhaustedError wrapping it.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if !p.Enabled {
		return op(ctx)
	}
	if err := p.Validate(); err != nil {
		return zero, fmt.Errorf("invalid retry policy: %w", err)
	}

	logger := slog.Default().With("component", "retry")

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled before attempt %d: %w", attempt, ctx.Err())
		default:
		}

		result, err := op(ctx)
		p.Stats.recordAttempt()

		if err == nil {
			if attempt > 1 {
				p.Stats.recordRecovery()
				logger.Info("operation succeeded after retry", "attempt", attempt)
			}
			return result, nil
		}

		if !llmerrors.IsRetryable(err) {
			logger.Debug("non-retriable error, not retrying", "attempt", attempt, "error", err)
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, delay)
		}
		logger.Warn("retriable error, backing off",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err)

		// Per-call wait: suspends only this invocation, never the process.
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
		}
	}

	p.Stats.recordExhaustion()
	return zero, &llmerrors.RetryExhaustedError{Attempts: p.MaxAttempts, LastErr: lastErr}
}
