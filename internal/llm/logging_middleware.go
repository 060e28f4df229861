package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

// NewLoggingMiddleware returns transport middleware that logs the request
// lifecycle with trace correlation. Prompts are never logged, only lengths,
// so user content stays out of log streams. A nil logger uses slog.Default.
func NewLoggingMiddleware(logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = uuid.NewString()
			}

			logger.Debug("llm request started",
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", req.Model,
				"prompt_chars", len(req.UserPrompt),
				"temperature", req.Temperature)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("llm request failed",
					"trace_id", req.TraceID,
					"provider", req.Provider,
					"model", req.Model,
					"duration", elapsed,
					"retriable", llmerrors.IsRetryable(err),
					"error", err)
				return resp, err
			}

			logger.Info("llm request completed",
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", req.Model,
				"duration", elapsed,
				"finish_reason", resp.FinishReason,
				"total_tokens", resp.Usage.TotalTokens)
			return resp, nil
		})
	}
}
