package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/providers"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

const chatCompletionJSON = `{
	"id": "chatcmpl-1",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Paris."},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
}`

func newTestHandler(t *testing.T, serverHandler http.HandlerFunc) transport.Handler {
	t.Helper()
	server := httptest.NewServer(serverHandler)
	t.Cleanup(server.Close)

	router, err := providers.NewRouter(map[string]providers.Config{
		providers.ProviderOpenAI: {Endpoint: server.URL, APIKey: "test-key"},
	})
	require.NoError(t, err)

	return transport.NewHTTPHandler(server.Client(), router)
}

func testRequest() *transport.Request {
	return &transport.Request{
		Provider:    providers.ProviderOpenAI,
		Model:       "gpt-4o-mini",
		UserPrompt:  "Question: capital of France?",
		Temperature: 0.2,
	}
}

func TestHTTPHandler_RoundTrip(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("x-request-id", "srv-1")
		_, _ = w.Write([]byte(chatCompletionJSON))
	})

	resp, err := handler.Handle(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Paris.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "srv-1", resp.ProviderRequestID)
	assert.Equal(t, int64(12), resp.Usage.TotalTokens)
	assert.GreaterOrEqual(t, resp.Usage.LatencyMs, int64(0))
}

func TestHTTPHandler_TimeoutIsRetriable(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(chatCompletionJSON))
	})

	req := testRequest()
	req.Timeout = 30 * time.Millisecond

	_, err := handler.Handle(context.Background(), req)
	require.Error(t, err)
	assert.True(t, llmerrors.IsRetryable(err), "timeout must classify as retriable")
}

func TestHTTPHandler_ProviderErrorPropagates(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	})

	_, err := handler.Handle(context.Background(), testRequest())
	require.Error(t, err)

	var providerErr *llmerrors.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusTooManyRequests, providerErr.StatusCode)
	assert.Equal(t, 2, providerErr.RetryAfter)
}

func TestHTTPHandler_UnknownProvider(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletionJSON))
	})

	req := testRequest()
	req.Provider = "unknown"

	_, err := handler.Handle(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}

func TestChain_OrderAndComposition(t *testing.T) {
	var order []string
	mw := func(name string) transport.Middleware {
		return func(next transport.Handler) transport.Handler {
			return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
				order = append(order, name)
				return next.Handle(ctx, req)
			})
		}
	}

	core := transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		order = append(order, "core")
		return &transport.Response{Content: "ok"}, nil
	})

	resp, err := transport.Chain(core, mw("outer"), mw("inner")).Handle(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer", "inner", "core"}, order)
}
