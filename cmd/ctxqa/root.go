package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/llm/providers"
)

// Exit codes per the error taxonomy.
const (
	exitOK             = 0
	exitFailure        = 1
	exitValidation     = 2
	exitRateLimited    = 3
	exitRetryExhausted = 4
)

var rootFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:           "ctxqa",
	Short:         "Answer questions from a supplied context passage",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; real deployments use the environment.
		_ = godotenv.Load()
		setupLogging(rootFlags.logLevel, rootFlags.logFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logFormat, "log-format", "text", "log format (text, json)")
}

// Execute runs the CLI and maps the error taxonomy to exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	return exitOK
}

func exitCodeFor(err error) int {
	var validationErr *llmerrors.ValidationError
	if errors.As(err, &validationErr) {
		return exitValidation
	}
	var rateLimitErr *llmerrors.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return exitRateLimited
	}
	var exhaustedErr *llmerrors.RetryExhaustedError
	if errors.As(err, &exhaustedErr) {
		return exitRetryExhausted
	}
	return exitFailure
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// shellConfig is the YAML file layout consumed by both subcommands.
type shellConfig struct {
	Provider string `yaml:"provider"` // "openai" (default) or "azure"

	Listen string `yaml:"listen"` // serve address, default :8080

	RateLimit struct {
		MaxRequests int           `yaml:"max_requests"`
		Window      time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Redis struct {
		Addr     string `yaml:"addr"` // enables the distributed limiter when set
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold"`
}

func loadShellConfig(path string) (shellConfig, error) {
	var cfg shellConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// apiKeyPattern bounds the characters accepted in API keys.
var apiKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// resolveProviders validates credentials from the environment and builds
// the provider configuration map. The core pipeline never reads env vars;
// this shell owns credential resolution.
func resolveProviders(provider string) (string, map[string]providers.Config, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	azureKey := os.Getenv("AZURE_OPENAI_API_KEY")

	if openaiKey == "" && azureKey == "" {
		return "", nil, fmt.Errorf("no API key found: set OPENAI_API_KEY or AZURE_OPENAI_API_KEY")
	}

	configs := make(map[string]providers.Config)

	if openaiKey != "" {
		if err := checkAPIKey("OPENAI_API_KEY", openaiKey); err != nil {
			return "", nil, err
		}
		configs[providers.ProviderOpenAI] = providers.Config{APIKey: openaiKey}
	}

	if azureKey != "" {
		if err := checkAPIKey("AZURE_OPENAI_API_KEY", azureKey); err != nil {
			return "", nil, err
		}
		endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return "", nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT must be set when using Azure OpenAI")
		}
		configs[providers.ProviderAzure] = providers.Config{
			APIKey:     azureKey,
			Endpoint:   endpoint,
			APIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		}
	}

	if provider == "" {
		provider = providers.ProviderOpenAI
		if openaiKey == "" {
			provider = providers.ProviderAzure
		}
	}
	if _, ok := configs[provider]; !ok {
		return "", nil, fmt.Errorf("provider %q selected but its credentials are not set", provider)
	}

	return provider, configs, nil
}

func checkAPIKey(name, value string) error {
	if len(value) < 10 {
		return fmt.Errorf("%s appears to be invalid (too short)", name)
	}
	if !apiKeyPattern.MatchString(value) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}
