package qa

import (
	"fmt"
	"time"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/retry"
	"github.com/ahrav/go-ctxqa/internal/qa/guard"
)

// Configuration defaults. The zero Config is not useful; start from
// DefaultConfig and override fields as needed.
const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.2
	DefaultMaxContextChars = 6000
	DefaultRateIdentifier  = "default"

	DefaultMaxRetryAttempts     = 3
	DefaultRetryBaseDelay       = time.Second
	DefaultRetryMaxDelay        = 60 * time.Second
	DefaultRetryExponentialBase = 2.0
)

// Config is the per-request value object controlling one pipeline run.
// It is fully resolved by the calling shell; the pipeline never reads
// environment variables. Invalid values fail validation before any
// network call.
type Config struct {
	// Model is the allow-listed model identifier sent upstream.
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature, 0 to 2.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxContextChars bounds how much context reaches the prompt, 500 to 50000.
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"`

	// EnableRateLimiting gates admission control for this request.
	EnableRateLimiting bool `json:"enable_rate_limiting" yaml:"enable_rate_limiting"`

	// RateLimitIdentifier keys the sliding window, e.g. a user or API key ID.
	RateLimitIdentifier string `json:"rate_limit_identifier" yaml:"rate_limit_identifier"`

	// EnableRetry wraps the LLM call in the retry policy. When false the
	// call runs exactly once.
	EnableRetry bool `json:"enable_retry" yaml:"enable_retry"`

	// MaxRetryAttempts is the total attempt budget, 1 to 5.
	MaxRetryAttempts int `json:"max_retry_attempts" yaml:"max_retry_attempts"`

	// RetryBaseDelay is the backoff before the second attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// RetryMaxDelay caps any computed backoff.
	RetryMaxDelay time.Duration `json:"retry_max_delay" yaml:"retry_max_delay"`

	// RetryExponentialBase is the backoff growth factor, 1.5 to 3.0.
	RetryExponentialBase float64 `json:"retry_exponential_base" yaml:"retry_exponential_base"`

	// RetryJitter randomizes backoff downward to decorrelate retries.
	RetryJitter bool `json:"retry_jitter" yaml:"retry_jitter"`

	// Timeout bounds a single LLM call. Zero uses the client default;
	// expiry is treated as a retriable timeout error.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Model:                DefaultModel,
		Temperature:          DefaultTemperature,
		MaxContextChars:      DefaultMaxContextChars,
		EnableRateLimiting:   true,
		RateLimitIdentifier:  DefaultRateIdentifier,
		EnableRetry:          true,
		MaxRetryAttempts:     DefaultMaxRetryAttempts,
		RetryBaseDelay:       DefaultRetryBaseDelay,
		RetryMaxDelay:        DefaultRetryMaxDelay,
		RetryExponentialBase: DefaultRetryExponentialBase,
		RetryJitter:          true,
	}
}

// Validate checks the configuration against its static constraints.
// Every violation is a *llmerrors.ValidationError scoped to the offending
// field: model, temperature, and context bounds via the guard, retry
// parameters against the policy ranges. Retry bounds are skipped when
// retry is disabled, matching the policy's own validation.
func (c Config) Validate() error {
	if err := guard.ValidateConfig(c.Model, c.Temperature, c.MaxContextChars); err != nil {
		return err
	}
	if !c.EnableRetry {
		return nil
	}

	if c.MaxRetryAttempts < retry.MinAttempts || c.MaxRetryAttempts > retry.MaxAttempts {
		return &llmerrors.ValidationError{
			Field:   "max_retry_attempts",
			Value:   c.MaxRetryAttempts,
			Message: fmt.Sprintf("max_retry_attempts must be in [%d, %d], got %d",
				retry.MinAttempts, retry.MaxAttempts, c.MaxRetryAttempts),
		}
	}
	if c.RetryBaseDelay <= 0 {
		return &llmerrors.ValidationError{
			Field:   "retry_base_delay",
			Value:   c.RetryBaseDelay.String(),
			Message: fmt.Sprintf("retry_base_delay must be positive, got %v", c.RetryBaseDelay),
		}
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return &llmerrors.ValidationError{
			Field:   "retry_max_delay",
			Value:   c.RetryMaxDelay.String(),
			Message: fmt.Sprintf("retry_max_delay %v must be >= retry_base_delay %v",
				c.RetryMaxDelay, c.RetryBaseDelay),
		}
	}
	if c.RetryExponentialBase < retry.MinExponentialBase || c.RetryExponentialBase > retry.MaxExponentialBase {
		return &llmerrors.ValidationError{
			Field:   "retry_exponential_base",
			Value:   c.RetryExponentialBase,
			Message: fmt.Sprintf("retry_exponential_base must be in [%.1f, %.1f], got %g",
				retry.MinExponentialBase, retry.MaxExponentialBase, c.RetryExponentialBase),
		}
	}
	return nil
}

// retryPolicy derives the per-call retry policy from config fields.
func (c Config) retryPolicy() retry.Policy {
	return retry.Policy{
		Enabled:         c.EnableRetry,
		MaxAttempts:     c.MaxRetryAttempts,
		BaseDelay:       c.RetryBaseDelay,
		MaxDelay:        c.RetryMaxDelay,
		ExponentialBase: c.RetryExponentialBase,
		Jitter:          c.RetryJitter,
	}
}
