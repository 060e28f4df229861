// Package qa implements the context-bound question answering pipeline:
// guarded inputs, sliding-window admission, text normalization and
// clipping, prompt construction, a retried LLM invocation, and output
// sanitization. The pipeline holds no per-request mutable state beyond the
// rate limiter's counters, so concurrent invocations are independent.
package qa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ctxqa/internal/llm"
	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/ratelimit"
	"github.com/ahrav/go-ctxqa/internal/llm/retry"
	"github.com/ahrav/go-ctxqa/internal/qa/guard"
	"github.com/ahrav/go-ctxqa/internal/qa/textprep"
)

// Generator is the LLM capability the pipeline consumes. *llm.Client
// implements it; tests inject stubs.
type Generator interface {
	Generate(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Service orchestrates the answer pipeline around a Generator.
type Service struct {
	gen           Generator
	limiter       ratelimit.Admitter
	logger        *slog.Logger
	metrics       *Metrics
	slowThreshold time.Duration
}

// Option customizes Service construction.
type Option func(*Service)

// WithLimiter overrides the process-wide default rate limiter, e.g. to
// stack a distributed limiter or isolate state in tests.
func WithLimiter(a ratelimit.Admitter) Option {
	return func(s *Service) { s.limiter = a }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics attaches Prometheus metrics to the pipeline.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSlowRequestThreshold logs a warning for requests slower than d.
// Zero disables slow-request logging.
func WithSlowRequestThreshold(d time.Duration) Option {
	return func(s *Service) { s.slowThreshold = d }
}

// NewService creates the pipeline around an LLM generator. Without options
// it uses the process-wide rate limiter and the default slog logger.
func NewService(gen Generator, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		limiter: ratelimit.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "qa")
	return s
}

// AnswerQuestion answers a question using only the supplied context
// passage. A nil cfg uses DefaultConfig. Failures are typed:
// *llmerrors.ValidationError for input or config faults,
// *llmerrors.RateLimitError when admission is refused,
// *llmerrors.RetryExhaustedError when transient provider failures outlast
// the retry budget; any other provider error propagates unchanged.
func (s *Service) AnswerQuestion(ctx context.Context, question, contextText string, cfg *Config) (string, error) {
	start := time.Now()
	answer, err := s.answer(ctx, question, contextText, cfg)
	elapsed := time.Since(start)

	s.metrics.observe(outcomeFor(err), elapsed)

	if err != nil {
		s.logger.Error("question answering failed",
			"duration", elapsed,
			"outcome", outcomeFor(err),
			"error", err)
		return "", err
	}

	if s.slowThreshold > 0 && elapsed > s.slowThreshold {
		s.logger.Warn("slow request",
			"duration", elapsed,
			"threshold", s.slowThreshold)
	}
	s.logger.Info("question answered",
		"duration", elapsed,
		"answer_chars", len(answer))
	return answer, nil
}

// answer runs the pipeline stages in order, each able to short-circuit.
func (s *Service) answer(ctx context.Context, question, contextText string, cfg *Config) (string, error) {
	resolved := DefaultConfig()
	if cfg != nil {
		resolved = *cfg
	}

	// Fail fast before any cost is incurred.
	if err := resolved.Validate(); err != nil {
		return "", err
	}
	if err := guard.ValidateInput(question, contextText); err != nil {
		return "", err
	}

	if resolved.EnableRateLimiting {
		if err := s.limiter.Check(ctx, resolved.RateLimitIdentifier); err != nil {
			return "", err
		}
	}

	q := textprep.Normalize(question)
	c := textprep.Clip(textprep.Normalize(contextText), resolved.MaxContextChars)

	req := &llm.Request{
		Model:        resolved.Model,
		Temperature:  resolved.Temperature,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(q, c),
		Timeout:      resolved.Timeout,
		TraceID:      uuid.NewString(),
	}

	policy := resolved.retryPolicy()
	policy.OnRetry = func(_ error, _ int, _ time.Duration) { s.metrics.recordRetry() }

	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (*llm.Response, error) {
		return s.gen.Generate(ctx, req)
	})
	if err != nil {
		return "", err
	}

	return guard.SanitizeOutput(resp.Content), nil
}

// outcomeFor maps the error taxonomy onto metrics outcome labels.
func outcomeFor(err error) string {
	if err == nil {
		return outcomeOK
	}
	var validationErr *llmerrors.ValidationError
	if errors.As(err, &validationErr) {
		return outcomeValidation
	}
	var rateLimitErr *llmerrors.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return outcomeRateLimited
	}
	var exhaustedErr *llmerrors.RetryExhaustedError
	if errors.As(err, &exhaustedErr) {
		return outcomeRetryExhausted
	}
	return outcomeError
}
