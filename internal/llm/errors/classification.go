package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// retriableStatusCodes are the HTTP statuses treated as transient.
var retriableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retriableMessageIndicators are pre-lowercased substrings that mark an
// otherwise untyped error as transient. Matching is a last resort after
// typed and status-code classification.
var retriableMessageIndicators = []string{
	"rate limit",
	"timeout",
	"connection",
	"temporarily unavailable",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
	"too many requests",
}

// IsRetryable evaluates whether an error represents a transient failure
// eligible for automatic re-attempt. Typed errors are classified first,
// then HTTP status codes, then network error types, and finally message
// substrings. Unknown errors are fatal to avoid retry loops.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Validation failures are client faults and never transient.
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.IsRetryable()
	}

	// Provider-side 429s arrive as RateLimitError from error parsing.
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}

	// Errors that expose an HTTP status are classified by code.
	type statusCoder interface {
		StatusCode() int
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return retriableStatusCodes[sc.StatusCode()]
	}

	if isNetworkError(err) {
		return true
	}

	return hasRetriableMessage(err.Error())
}

// RetriableStatus reports whether an HTTP status code is transient.
func RetriableStatus(code int) bool { return retriableStatusCodes[code] }

// isNetworkError checks for network-related errors using type assertions
// before falling back to string matching on wrapped transport errors.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return hasRetriableMessage(urlErr.Err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// hasRetriableMessage matches the error text against known transient
// failure indicators, case-insensitively.
func hasRetriableMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, indicator := range retriableMessageIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}
