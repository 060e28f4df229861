// Package llm provides a resilient HTTP client facade over the supported
// LLM providers. The client assembles the transport middleware chain and
// exposes a single Generate call used by the QA pipeline.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ahrav/go-ctxqa/internal/llm/providers"
	"github.com/ahrav/go-ctxqa/internal/llm/transport"
)

// Re-exported transport types so callers outside the llm tree don't import
// the transport package directly.
type (
	// Request is a normalized generation request.
	Request = transport.Request
	// Response is a normalized generation response.
	Response = transport.Response
)

// HTTP client defaults.
const (
	DefaultHTTPTimeout  = 30 * time.Second
	defaultMaxIdleConns = 100
	defaultIdleTimeout  = 90 * time.Second
)

// Config holds client construction settings. Credentials and endpoints are
// resolved by the calling shell.
type Config struct {
	// Provider selects the default provider for requests that leave
	// Request.Provider empty. Defaults to "openai".
	Provider string

	// Providers maps provider names to their connection settings.
	Providers map[string]providers.Config

	// HTTPTimeout bounds each provider round trip when the request carries
	// no explicit timeout.
	HTTPTimeout time.Duration

	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

// Client executes generation requests through the middleware chain.
type Client struct {
	handler  transport.Handler
	provider string
	timeout  time.Duration
}

// NewClient builds a client from configuration: provider router, core HTTP
// handler, and the logging middleware outermost.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = providers.ProviderOpenAI
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if _, ok := cfg.Providers[cfg.Provider]; !ok {
		return nil, fmt.Errorf("default provider %q not configured", cfg.Provider)
	}

	router, err := providers.NewRouter(cfg.Providers)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.HTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    defaultMaxIdleConns,
				IdleConnTimeout: defaultIdleTimeout,
			},
		}
	}

	handler := transport.Chain(
		transport.NewHTTPHandler(httpClient, router),
		NewLoggingMiddleware(nil),
	)

	return &Client{
		handler:  handler,
		provider: cfg.Provider,
		timeout:  cfg.HTTPTimeout,
	}, nil
}

// Generate executes one generation request. Missing provider and timeout
// fields are filled from the client defaults.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req.Provider == "" {
		req.Provider = c.provider
	}
	if req.Timeout <= 0 {
		req.Timeout = c.timeout
	}
	return c.handler.Handle(ctx, req)
}
