package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
	"github.com/ahrav/go-ctxqa/internal/qa"
)

const (
	defaultListenAddr     = ":8080"
	serverReadTimeout     = 15 * time.Second
	serverWriteTimeout    = 2 * time.Minute // answers wait on LLM retries
	serverShutdownTimeout = 10 * time.Second
	maxRequestBodyBytes   = 1 << 20
)

var serveFlags struct {
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the question answering HTTP API",
	Long: `Run the question answering HTTP API.

Endpoints:
  POST /answer   {"question": "...", "context": "...", "config": {...}}
  GET  /healthz  liveness probe
  GET  /metrics  Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	shell, err := loadShellConfig(rootFlags.configFile)
	if err != nil {
		return err
	}

	listen := shell.Listen
	if serveFlags.listen != "" {
		listen = serveFlags.listen
	}
	if listen == "" {
		listen = defaultListenAddr
	}

	registry := prometheus.NewRegistry()
	metrics := qa.NewMetrics(registry)

	service, err := buildService(shell, metrics)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("POST /answer", answerHandler(service))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         listen,
		Handler:      mux,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// answerRequest is the POST /answer body. Config overrides are optional;
// omitted fields keep pipeline defaults.
type answerRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	Config   *struct {
		Model           *string  `json:"model"`
		Temperature     *float64 `json:"temperature"`
		MaxContextChars *int     `json:"max_context_chars"`
		Identifier      *string  `json:"rate_limit_identifier"`
	} `json:"config"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func answerHandler(service *qa.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "invalid request body", Type: "validation_error",
			})
			return
		}

		cfg := qa.DefaultConfig()
		if req.Config != nil {
			if req.Config.Model != nil {
				cfg.Model = *req.Config.Model
			}
			if req.Config.Temperature != nil {
				cfg.Temperature = *req.Config.Temperature
			}
			if req.Config.MaxContextChars != nil {
				cfg.MaxContextChars = *req.Config.MaxContextChars
			}
			if req.Config.Identifier != nil {
				cfg.RateLimitIdentifier = *req.Config.Identifier
			}
		}

		answer, err := service.AnswerQuestion(r.Context(), req.Question, req.Context, &cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
	})
}

// writeError maps the error taxonomy to HTTP statuses: 400 for validation,
// 429 with Retry-After for throttling, 503 for exhausted retries, 500
// otherwise.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *llmerrors.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: validationErr.Error(), Type: "validation_error",
		})
		return
	}

	var rateLimitErr *llmerrors.RateLimitError
	if errors.As(err, &rateLimitErr) {
		seconds := int(rateLimitErr.RetryAfter.Seconds() + 0.999)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: rateLimitErr.Error(), Type: "rate_limited",
		})
		return
	}

	var exhaustedErr *llmerrors.RetryExhaustedError
	if errors.As(err, &exhaustedErr) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: exhaustedErr.Error(), Type: "retry_exhausted",
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "internal error", Type: "internal",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
