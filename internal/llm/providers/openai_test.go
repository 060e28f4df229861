package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

func sampleRequest() *transport.Request {
	return &transport.Request{
		Provider:     ProviderOpenAI,
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are a careful assistant.",
		UserPrompt:   "Context:\nParis is the capital.\n\nQuestion: capital of France?",
		Temperature:  0.2,
	}
}

func httpResponse(status int, body string, headers map[string]string) *http.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestOpenAIAdapter_Build(t *testing.T) {
	adapter := NewOpenAIAdapter(Config{APIKey: "sk-test-key"})
	req := sampleRequest()

	httpReq, err := adapter.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, httpReq.Method)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", httpReq.URL.String())
	assert.Equal(t, "Bearer sk-test-key", httpReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))

	var body chatRequest
	require.NoError(t, json.NewDecoder(httpReq.Body).Decode(&body))
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.Equal(t, 0.2, body.Temperature)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, req.SystemPrompt, body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, req.UserPrompt, body.Messages[1].Content)
}

func TestOpenAIAdapter_BuildCustomEndpointAndHeaders(t *testing.T) {
	adapter := NewOpenAIAdapter(Config{
		Endpoint: "https://proxy.internal/v1",
		APIKey:   "sk-test-key",
		Headers:  map[string]string{"X-Org": "acme"},
	})

	httpReq, err := adapter.Build(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.internal/v1/chat/completions", httpReq.URL.String())
	assert.Equal(t, "acme", httpReq.Header.Get("X-Org"))
}

func TestOpenAIAdapter_BuildOmitsEmptySystemPrompt(t *testing.T) {
	req := sampleRequest()
	req.SystemPrompt = ""

	httpReq, err := NewOpenAIAdapter(Config{APIKey: "k"}).Build(context.Background(), req)
	require.NoError(t, err)

	var body chatRequest
	require.NoError(t, json.NewDecoder(httpReq.Body).Decode(&body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
}

func TestOpenAIAdapter_ParseSuccess(t *testing.T) {
	body := `{
		"id": "chatcmpl-123",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "Paris."},
			"finish_reason": "stop"
		}],
		"usage": {"prompt_tokens": 42, "completion_tokens": 3, "total_tokens": 45}
	}`
	httpResp := httpResponse(200, body, map[string]string{"x-request-id": "req-abc"})

	resp, err := NewOpenAIAdapter(Config{}).Parse(httpResp)
	require.NoError(t, err)

	assert.Equal(t, "Paris.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "req-abc", resp.ProviderRequestID)
	assert.Equal(t, int64(42), resp.Usage.PromptTokens)
	assert.Equal(t, int64(3), resp.Usage.CompletionTokens)
	assert.Equal(t, int64(45), resp.Usage.TotalTokens)
}

func TestOpenAIAdapter_ParseEmptyChoices(t *testing.T) {
	httpResp := httpResponse(200, `{"id": "x", "choices": []}`, nil)

	_, err := NewOpenAIAdapter(Config{}).Parse(httpResp)
	assert.ErrorIs(t, err, llmerrors.ErrEmptyResponse)
}

func TestOpenAIAdapter_ParseRateLimitError(t *testing.T) {
	body := `{"error": {"message": "Rate limit reached", "type": "rate_limit_error", "code": "rate_limit_exceeded"}}`
	httpResp := httpResponse(429, body, map[string]string{"Retry-After": "30"})

	_, err := NewOpenAIAdapter(Config{}).Parse(httpResp)
	require.Error(t, err)

	var providerErr *llmerrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, ProviderOpenAI, providerErr.Provider)
	assert.Equal(t, 429, providerErr.StatusCode)
	assert.Equal(t, "Rate limit reached", providerErr.Message)
	assert.Equal(t, "rate_limit_exceeded", providerErr.Code)
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, providerErr.Type)
	assert.Equal(t, 30, providerErr.RetryAfter)
	assert.True(t, providerErr.IsRetryable())
}

func TestOpenAIAdapter_ParseAuthError(t *testing.T) {
	body := `{"error": {"message": "Incorrect API key", "type": "invalid_request_error", "code": "invalid_api_key"}}`
	httpResp := httpResponse(401, body, nil)

	_, err := NewOpenAIAdapter(Config{}).Parse(httpResp)
	require.Error(t, err)

	var providerErr *llmerrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, llmerrors.ErrorTypeAuth, providerErr.Type)
	assert.False(t, providerErr.IsRetryable())
}

func TestOpenAIAdapter_ParseNonJSONError(t *testing.T) {
	httpResp := httpResponse(502, "Bad Gateway", nil)

	_, err := NewOpenAIAdapter(Config{}).Parse(httpResp)
	require.Error(t, err)

	var providerErr *llmerrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, 502, providerErr.StatusCode)
	assert.Equal(t, "Bad Gateway", providerErr.Message)
	assert.Equal(t, llmerrors.ErrorTypeProvider, providerErr.Type)
	assert.True(t, providerErr.IsRetryable())
}

func TestClassifyErrorType(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		want       llmerrors.ErrorType
	}{
		{"code beats status", 500, "rate_limit_exceeded", llmerrors.ErrorTypeRateLimit},
		{"timeout code", 200, "request_timeout", llmerrors.ErrorTypeTimeout},
		{"auth code", 500, "unauthorized_access", llmerrors.ErrorTypeAuth},
		{"status 429", 429, "", llmerrors.ErrorTypeRateLimit},
		{"status 401", 401, "", llmerrors.ErrorTypeAuth},
		{"status 403", 403, "", llmerrors.ErrorTypeAuth},
		{"status 408", 408, "", llmerrors.ErrorTypeTimeout},
		{"status 504", 504, "", llmerrors.ErrorTypeTimeout},
		{"status 400", 400, "", llmerrors.ErrorTypeValidation},
		{"status 500", 500, "", llmerrors.ErrorTypeProvider},
		{"status 503", 503, "", llmerrors.ErrorTypeProvider},
		{"status 599", 599, "", llmerrors.ErrorTypeProvider},
		{"status 418", 418, "", llmerrors.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyErrorType(tt.statusCode, tt.errorCode))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"absent", "", 0},
		{"numeric", "30", 30},
		{"multi digit", "120", 120},
		{"http date ignored", "Wed, 21 Oct 2026 07:28:00 GMT", 0},
		{"garbage ignored", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			assert.Equal(t, tt.want, retryAfterSeconds(h))
		})
	}
}
