// Package providers implements the HTTP adapters for supported LLM
// backends: the OpenAI chat completions API and its Azure OpenAI gateway
// variant. Adapters translate the normalized transport request into
// provider wire format and parse responses into typed results or errors.
package providers

import (
	"fmt"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

// Supported provider identifiers. These match configuration keys and the
// Request.Provider field.
const (
	ProviderOpenAI = "openai" // direct OpenAI API
	ProviderAzure  = "azure"  // Azure OpenAI enterprise gateway
)

// Config holds provider-specific connection settings. Credentials are
// resolved by the calling shell; the core never reads environment variables.
type Config struct {
	Endpoint   string            // Base URL, defaulted per provider when empty
	APIKey     string            // Bearer token or api-key value
	APIVersion string            // Azure api-version query parameter
	Deployment string            // Azure deployment name, defaults to the model
	Headers    map[string]string // Extra headers applied to every request
}

// NewRouter creates a router over the configured provider adapters.
// Unknown provider names are rejected at construction time.
func NewRouter(configs map[string]Config) (transport.Router, error) {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))

	for name, cfg := range configs {
		switch name {
		case ProviderOpenAI:
			adapters[name] = NewOpenAIAdapter(cfg)
		case ProviderAzure:
			adapters[name] = NewAzureAdapter(cfg)
		default:
			return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, name)
		}
	}

	return &router{adapters: adapters}, nil
}

type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick selects the adapter for the given provider name.
func (r *router) Pick(provider string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}
