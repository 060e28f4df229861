package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ctxqa/internal/llm"
	"github.com/ahrav/go-ctxqa/internal/llm/ratelimit"
	"github.com/ahrav/go-ctxqa/internal/qa"
)

var askFlags struct {
	contextText string
	contextFile string
	model       string
	temperature float64
	maxContext  int
	identifier  string
	noRateLimit bool
	noRetry     bool
	timeout     time.Duration
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the given context",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askFlags.contextText, "context", "c", "", "context passage to answer from")
	askCmd.Flags().StringVar(&askFlags.contextFile, "context-file", "", "file containing the context passage")
	askCmd.Flags().StringVarP(&askFlags.model, "model", "m", qa.DefaultModel, "model identifier")
	askCmd.Flags().Float64VarP(&askFlags.temperature, "temperature", "t", qa.DefaultTemperature, "sampling temperature")
	askCmd.Flags().IntVar(&askFlags.maxContext, "max-context-chars", qa.DefaultMaxContextChars, "max context characters sent to the model")
	askCmd.Flags().StringVar(&askFlags.identifier, "identifier", qa.DefaultRateIdentifier, "rate limit identifier")
	askCmd.Flags().BoolVar(&askFlags.noRateLimit, "no-rate-limit", false, "disable rate limiting")
	askCmd.Flags().BoolVar(&askFlags.noRetry, "no-retry", false, "disable retries, call the model exactly once")
	askCmd.Flags().DurationVar(&askFlags.timeout, "timeout", 0, "per-call LLM timeout (0 = client default)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	contextText := askFlags.contextText
	if askFlags.contextFile != "" {
		data, err := os.ReadFile(askFlags.contextFile)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		contextText = string(data)
	}

	shell, err := loadShellConfig(rootFlags.configFile)
	if err != nil {
		return err
	}

	service, err := buildService(shell, nil)
	if err != nil {
		return err
	}

	cfg := qa.DefaultConfig()
	cfg.Model = askFlags.model
	cfg.Temperature = askFlags.temperature
	cfg.MaxContextChars = askFlags.maxContext
	cfg.RateLimitIdentifier = askFlags.identifier
	cfg.EnableRateLimiting = !askFlags.noRateLimit
	cfg.EnableRetry = !askFlags.noRetry
	cfg.Timeout = askFlags.timeout

	answer, err := service.AnswerQuestion(cmd.Context(), question, contextText, &cfg)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

// buildService assembles the pipeline from shell configuration: provider
// client from environment credentials, local limiter (optionally stacked
// with the Redis-backed distributed limiter), and optional metrics.
func buildService(shell shellConfig, metrics *qa.Metrics) (*qa.Service, error) {
	provider, providerConfigs, err := resolveProviders(shell.Provider)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.Config{
		Provider:  provider,
		Providers: providerConfigs,
	})
	if err != nil {
		return nil, err
	}

	local := ratelimit.New(shell.RateLimit.MaxRequests, shell.RateLimit.Window)
	var admitter ratelimit.Admitter = local
	if shell.Redis.Addr != "" {
		global := ratelimit.NewGlobalLimiter(nil,
			shell.Redis.Addr, shell.Redis.Password, shell.Redis.DB,
			shell.RateLimit.MaxRequests, shell.RateLimit.Window)
		admitter = ratelimit.Combine(local, global)
	}

	opts := []qa.Option{
		qa.WithLimiter(admitter),
		qa.WithSlowRequestThreshold(shell.SlowRequestThreshold),
	}
	if metrics != nil {
		opts = append(opts, qa.WithMetrics(metrics))
	}

	return qa.NewService(client, opts...), nil
}
