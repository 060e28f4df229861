package transport

import (
	"net/http"
	"time"
)

// Request is the normalized generation request shared by all provider
// adapters. The pipeline builds one Request per question; middleware reads
// but never mutates it.
type Request struct {
	// Provider identifies which LLM service to use, "openai" or "azure".
	Provider string `json:"provider"`

	// Model specifies the exact model identifier.
	Model string `json:"model"`

	// SystemPrompt carries the grounding instructions for the model.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// UserPrompt is the rendered context-plus-question message.
	UserPrompt string `json:"user_prompt"`

	// Temperature controls sampling randomness, 0 to 2.
	Temperature float64 `json:"temperature"`

	// Timeout bounds a single provider call. Zero means the client default.
	Timeout time.Duration `json:"timeout"`

	// TraceID correlates logs across the request lifecycle.
	TraceID string `json:"trace_id"`
}

// Response is the normalized output from any provider adapter.
type Response struct {
	// Content is the raw generated text before output sanitization.
	Content string `json:"content"`

	// FinishReason indicates why generation stopped, provider vocabulary.
	FinishReason string `json:"finish_reason"`

	// ProviderRequestID enables cross-system correlation when present.
	ProviderRequestID string `json:"provider_request_id,omitempty"`

	// Usage tracks token consumption and latency.
	Usage Usage `json:"usage"`

	// Headers preserves raw response headers for debugging.
	Headers http.Header `json:"-"`
}

// Usage provides consistent usage metrics across providers.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}
