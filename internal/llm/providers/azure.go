package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

// DefaultAzureAPIVersion is used when the configuration leaves the
// api-version unset.
const DefaultAzureAPIVersion = "2024-02-01"

// AzureAdapter implements ProviderAdapter for Azure OpenAI deployments.
// The wire format matches the direct OpenAI API, but routing goes through
// a per-deployment path and authentication uses the api-key header.
type AzureAdapter struct {
	config Config
}

// NewAzureAdapter creates an Azure OpenAI adapter. The endpoint must be the
// resource base URL, e.g. https://myresource.openai.azure.com.
func NewAzureAdapter(cfg Config) *AzureAdapter {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	return &AzureAdapter{config: cfg}
}

// Name returns the provider name.
func (a *AzureAdapter) Name() string { return ProviderAzure }

// Build constructs the Azure OpenAI HTTP request. The deployment defaults
// to the requested model name when not configured explicitly.
func (a *AzureAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	jsonBody, err := buildChatBody(req, false)
	if err != nil {
		return nil, err
	}

	deployment := a.config.Deployment
	if deployment == "" {
		deployment = req.Model
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.config.Endpoint, url.PathEscape(deployment), url.QueryEscape(a.config.APIVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Parse extracts normalized content from an Azure OpenAI response.
func (a *AzureAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	return parseChatResponse(ProviderAzure, httpResp)
}
