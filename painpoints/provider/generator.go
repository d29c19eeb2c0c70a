// Package provider wraps the LLM backends used for schema-constrained generation.
//
// A Generator takes instructions, a prompt and a target Schema and returns the raw model text.
// Callers turn that text into a typed value with Schema.Decode, which is the single place where
// model output is validated.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is one schema-constrained generation call.
type Request struct {
	// Instructions is the system/developer prompt.
	Instructions string
	// Prompt is the user turn.
	Prompt string
	// Schema constrains the output. Required.
	Schema *Schema
	// MaxOutputTokens caps the response size (0 uses the backend default).
	MaxOutputTokens int64
}

// Generator is the external structured-generation capability.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Options configures a Generator built by New.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the backend endpoint (tests, proxies).
	BaseURL string
}

// New builds the Generator for opts.Provider.
func New(ctx context.Context, opts Options) (Generator, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("provider: model is empty")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("provider: api key is empty")
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderGemini, "":
		return NewGemini(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("provider: unsupported provider %q", opts.Provider)
	}
}

// IsRateLimitError reports whether err looks like a provider-side throttling response.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "resource_exhausted")
}

func validateRequest(req Request) error {
	if req.Schema == nil {
		return errors.New("provider: request schema is nil")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("provider: request prompt is empty")
	}
	return nil
}
