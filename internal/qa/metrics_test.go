package qa

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
)

func TestMetrics_ObserveByOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.observe(outcomeOK, 100*time.Millisecond)
	m.observe(outcomeOK, 200*time.Millisecond)
	m.observe(outcomeValidation, time.Millisecond)
	m.recordRetry()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(outcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(outcomeValidation)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.requests.WithLabelValues(outcomeRateLimited)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.retries))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.observe(outcomeOK, time.Second)
		m.recordRetry()
	})
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, outcomeOK},
		{"validation", llmerrors.NewValidationError("question", "empty"), outcomeValidation},
		{"rate limited", &llmerrors.RateLimitError{Identifier: "x"}, outcomeRateLimited},
		{"exhausted", &llmerrors.RetryExhaustedError{Attempts: 3}, outcomeRetryExhausted},
		{"other", llmerrors.ErrEmptyResponse, outcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeFor(tt.err))
		})
	}
}
