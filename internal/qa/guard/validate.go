// Package guard enforces the security boundary around the QA pipeline:
// static validation of inputs and configuration before any cost is
// incurred, and sanitization of model output before it reaches callers.
package guard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
)

// Input length limits, in characters.
const (
	MaxQuestionChars = 1000
	MaxContextChars  = 50000
)

// Config value ranges.
const (
	MinTemperature      = 0.0
	MaxTemperature      = 2.0
	MinContextCharLimit = 500
	MaxContextCharLimit = 50000
)

// blockedPatterns reject injection attempts in the combined input.
// (?is) makes matching case-insensitive and lets patterns span newlines,
// since injected content is frequently multi-line.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`), // inline event handlers
	regexp.MustCompile(`(?is)ignore\s+(previous|above|all)\s+(instructions|prompts?)`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)assistant\s*:\s*`),
	regexp.MustCompile(`(?i)###\s*(instruction|system)`),
}

// allowedModels is the closed set of model identifiers the pipeline will
// send upstream.
var allowedModels = map[string]bool{
	"gpt-3.5-turbo":       true,
	"gpt-3.5-turbo-16k":   true,
	"gpt-4":               true,
	"gpt-4-32k":           true,
	"gpt-4-turbo-preview": true,
	"gpt-4o":              true,
	"gpt-4o-mini":         true,
}

// AllowedModels returns the model allow-list, sorted for stable messages.
func AllowedModels() []string {
	models := make([]string, 0, len(allowedModels))
	for m := range allowedModels {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// ValidateInput rejects questions and contexts that are empty, oversized,
// or contain blocked content patterns. Returns *llmerrors.ValidationError.
func ValidateInput(question, context string) error {
	if strings.TrimSpace(question) == "" {
		return llmerrors.NewValidationError("question", "question must not be empty")
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionChars {
		return llmerrors.NewValidationError("question",
			fmt.Sprintf("question exceeds maximum length of %d characters (got %d)", MaxQuestionChars, n))
	}
	if strings.TrimSpace(context) == "" {
		return llmerrors.NewValidationError("context", "context must not be empty")
	}
	if n := utf8.RuneCountInString(context); n > MaxContextChars {
		return llmerrors.NewValidationError("context",
			fmt.Sprintf("context exceeds maximum length of %d characters (got %d)", MaxContextChars, n))
	}

	combined := strings.ToLower(question + " " + context)
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(combined) {
			return llmerrors.NewValidationError("input", "input contains blocked content patterns")
		}
	}
	return nil
}

// ValidateConfig rejects configurations outside static constraints: model
// allow-list, temperature range, and context size bounds. Returns
// *llmerrors.ValidationError.
func ValidateConfig(model string, temperature float64, maxContextChars int) error {
	if !allowedModels[model] {
		return &llmerrors.ValidationError{
			Field:   "model",
			Value:   model,
			Message: fmt.Sprintf("model %q is not in the allowed set %v", model, AllowedModels()),
		}
	}
	if temperature < MinTemperature || temperature > MaxTemperature {
		return &llmerrors.ValidationError{
			Field:   "temperature",
			Value:   temperature,
			Message: fmt.Sprintf("temperature must be in [%g, %g], got %g", MinTemperature, MaxTemperature, temperature),
		}
	}
	if maxContextChars < MinContextCharLimit || maxContextChars > MaxContextCharLimit {
		return &llmerrors.ValidationError{
			Field:   "max_context_chars",
			Value:   maxContextChars,
			Message: fmt.Sprintf("max_context_chars must be in [%d, %d], got %d",
				MinContextCharLimit, MaxContextCharLimit, maxContextChars),
		}
	}
	return nil
}
