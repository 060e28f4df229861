package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

// OpenAIAdapter implements ProviderAdapter for the OpenAI chat/completions
// API, handling message formatting, authentication, and OpenAI-specific
// error responses.
type OpenAIAdapter struct {
	config Config
}

// NewOpenAIAdapter creates an OpenAI adapter with the production endpoint
// as default.
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{config: cfg}
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string { return ProviderOpenAI }

// chatRequest is the chat/completions request body shared with the Azure
// adapter, which speaks the same wire format.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse mirrors the chat/completions response shape for both the
// direct API and the Azure gateway.
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// buildChatBody renders the shared chat/completions body from a normalized
// request. includeModel is false for Azure, where the deployment path
// already selects the model.
func buildChatBody(req *transport.Request, includeModel bool) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	body := chatRequest{
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if includeModel {
		body.Model = req.Model
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return jsonBody, nil
}

// Build constructs the OpenAI HTTP request with bearer authentication.
func (a *OpenAIAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	jsonBody, err := buildChatBody(req, true)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", a.config.Endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.config.APIKey))
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Parse extracts normalized content and usage from an OpenAI response.
func (a *OpenAIAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	return parseChatResponse(ProviderOpenAI, httpResp)
}

// parseChatResponse handles the shared chat/completions response format.
func parseChatResponse(provider string, httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseChatError(provider, httpResp, body)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w from %s", llmerrors.ErrEmptyResponse, provider)
	}

	return &transport.Response{
		Content:           resp.Choices[0].Message.Content,
		FinishReason:      resp.Choices[0].FinishReason,
		ProviderRequestID: httpResp.Header.Get("x-request-id"),
		Usage: transport.Usage{
			PromptTokens:     int64(resp.Usage.PromptTokens),
			CompletionTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:      int64(resp.Usage.TotalTokens),
		},
		Headers: httpResp.Header,
	}, nil
}

// parseChatError converts a non-200 chat/completions response into a typed
// ProviderError, preserving the Retry-After hint when the gateway sends one.
func parseChatError(provider string, httpResp *http.Response, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	perr := &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: httpResp.StatusCode,
		Message:    string(body),
		Type:       classifyErrorType(httpResp.StatusCode, ""),
		RetryAfter: retryAfterSeconds(httpResp.Header),
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		perr.Message = errResp.Error.Message
		perr.Code = errResp.Error.Code
		perr.Type = classifyErrorType(httpResp.StatusCode, errResp.Error.Type)
	}

	return perr
}
