package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/retry"
)

// fastPolicy keeps backoff delays negligible so tests run quickly.
func fastPolicy() retry.Policy {
	return retry.Policy{
		Enabled:         true,
		MaxAttempts:     3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func transientErr() error {
	return &llmerrors.ProviderError{
		Provider:   "openai",
		StatusCode: 503,
		Message:    "service unavailable",
		Type:       llmerrors.ErrorTypeProvider,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := retry.Do(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "answer", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "answer", result)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := retry.Do(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transientErr()
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "", transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *llmerrors.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)

	var providerErr *llmerrors.ProviderError
	assert.True(t, errors.As(err, &providerErr), "exhaustion must wrap the last provider error")
}

func TestDo_FatalErrorStopsImmediately(t *testing.T) {
	fatal := llmerrors.NewValidationError("question", "too long")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "", fatal
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, error(fatal), err)
}

func TestDo_DisabledCallsOnce(t *testing.T) {
	p := fastPolicy()
	p.Enabled = false

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", transientErr()
	})

	assert.Equal(t, 1, calls)

	var exhausted *llmerrors.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted), "disabled policy must surface the raw error")
	var providerErr *llmerrors.ProviderError
	assert.True(t, errors.As(err, &providerErr))
}

func TestDo_InvalidPolicyRejected(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 10

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid retry policy")
	assert.Zero(t, calls)
}

func TestDo_OnRetryObservesEachBackoff(t *testing.T) {
	type event struct {
		attempt int
		delay   time.Duration
	}
	var events []event

	p := fastPolicy()
	p.OnRetry = func(err error, attempt int, delay time.Duration) {
		events = append(events, event{attempt, delay})
	}

	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		return "", transientErr()
	})
	require.Error(t, err)

	// Backoff fires between attempts, so two events for three attempts.
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].attempt)
	assert.Equal(t, 2, events[1].attempt)
	assert.Greater(t, events[0].delay, time.Duration(0))
}

func TestDo_ContextCancellationDuringBackoff(t *testing.T) {
	p := fastPolicy()
	p.BaseDelay = time.Second
	p.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := retry.Do(ctx, p, func(context.Context) (string, error) {
		calls++
		return "", transientErr()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must not trigger another attempt")
	assert.Less(t, time.Since(start), 500*time.Millisecond, "cancellation must interrupt the wait")
}

func TestDo_StatsAccumulate(t *testing.T) {
	stats := &retry.Stats{}

	p := fastPolicy()
	p.Stats = stats

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", transientErr()
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalAttempts())
	assert.Equal(t, int64(1), stats.Recoveries())
	assert.Zero(t, stats.Exhaustions())

	_, err = retry.Do(context.Background(), p, func(context.Context) (string, error) {
		return "", transientErr()
	})
	require.Error(t, err)
	assert.Equal(t, int64(5), stats.TotalAttempts())
	assert.Equal(t, int64(1), stats.Exhaustions())
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*retry.Policy)
		wantErr string
	}{
		{
			name:   "default policy valid",
			mutate: func(*retry.Policy) {},
		},
		{
			name:    "zero attempts",
			mutate:  func(p *retry.Policy) { p.MaxAttempts = 0 },
			wantErr: "max attempts",
		},
		{
			name:    "too many attempts",
			mutate:  func(p *retry.Policy) { p.MaxAttempts = 6 },
			wantErr: "max attempts",
		},
		{
			name:    "non-positive base delay",
			mutate:  func(p *retry.Policy) { p.BaseDelay = 0 },
			wantErr: "base delay",
		},
		{
			name:    "max delay below base",
			mutate:  func(p *retry.Policy) { p.MaxDelay = p.BaseDelay / 2 },
			wantErr: "max delay",
		},
		{
			name:    "exponential base too small",
			mutate:  func(p *retry.Policy) { p.ExponentialBase = 1.2 },
			wantErr: "exponential base",
		},
		{
			name:    "exponential base too large",
			mutate:  func(p *retry.Policy) { p.ExponentialBase = 3.5 },
			wantErr: "exponential base",
		},
		{
			name:    "disabled policy always valid",
			mutate:  func(p *retry.Policy) { p.Enabled = false; p.MaxAttempts = 99 },
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := retry.DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
