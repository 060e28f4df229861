// Package errors defines the closed error taxonomy for the QA pipeline.
// Callers distinguish input faults, throttling, exhausted retries, and
// upstream provider failures without relying on error message inspection.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes pipeline and provider failures for retry classification.
// Types determine whether an operation should be retried and how the failure
// is surfaced to the caller.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (retriable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates a provider rate limit response (retriable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity issues (retriable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider service is unavailable (retriable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeValidation indicates input or config validation failed (never retried).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeAuth indicates authentication failed (never retried).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common pipeline errors for consistent error handling.
var (
	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates an admission or provider rate limit was hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownProvider indicates an unknown or unsupported provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty provider response")
)

// ValidationError captures a static constraint violation in the request
// inputs or configuration. It is always a client fault and is never retried.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Offending value, omitted for oversized inputs
	Message string `json:"message"` // Validation message
}

// Error returns the formatted validation failure with field context.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError builds a field-scoped validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitError signals that the admission limiter refused a request.
// RetryAfter carries the time until the oldest retained request leaves
// the sliding window, letting callers schedule a sensible retry.
type RateLimitError struct {
	Identifier string        `json:"identifier"`  // Rate limit identifier that was refused
	Limit      int           `json:"limit"`       // Configured max requests per window
	RetryAfter time.Duration `json:"retry_after"` // Time until admission is possible again
}

// Error returns the formatted rate limit error with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %q, retry after %.1fs",
			e.Identifier, e.RetryAfter.Seconds())
	}
	return fmt.Sprintf("rate limit exceeded for %q", e.Identifier)
}

// GetRetryAfter reports the recommended wait before the next attempt.
func (e *RateLimitError) GetRetryAfter() time.Duration { return e.RetryAfter }

// RetryExhaustedError indicates that all retry attempts failed with
// retriable errors. It wraps the last error for root cause inspection.
type RetryExhaustedError struct {
	Attempts int   `json:"attempts"` // Attempts made, equals the configured maximum
	LastErr  error `json:"-"`        // Final retriable error observed
}

// Error returns the exhaustion message including the final failure.
func (e *RetryExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("all %d attempts failed", e.Attempts)
}

// Unwrap exposes the last error for errors.Is/As chains.
func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// ProviderError captures structured error responses from LLM providers.
// Includes HTTP status codes and retry timing to enable appropriate retry
// behavior and error diagnosis.
type ProviderError struct {
	Provider   string    `json:"provider"`    // Provider name
	StatusCode int       `json:"status_code"` // HTTP status code
	Message    string    `json:"message"`     // Error message
	Code       string    `json:"code"`        // Provider error code
	Type       ErrorType `json:"type"`        // Classified error type
	RetryAfter int       `json:"retry_after"` // Retry-After header value in seconds
}

// Error returns the formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable determines if the provider error warrants a retry attempt.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter reports provider-specified retry timing, zero when absent.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}
