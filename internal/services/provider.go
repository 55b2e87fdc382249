package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// ProviderOptions selects and configures a narrator provider.
type ProviderOptions struct {
	Provider string // anthropic, openai, ollama, gemini or mock
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// Narrator is the Generator built for a provider, with its health check
// and cleanup.
type Narrator struct {
	Generator Generator
	Provider  string
	closeFn   func() error
}

// Ping checks the provider when it supports it.
func (n *Narrator) Ping(ctx context.Context) error {
	if p, ok := n.Generator.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases provider resources.
func (n *Narrator) Close() error {
	if n.closeFn == nil {
		return nil
	}
	return n.closeFn()
}

// NewNarrator builds the generator stack for opts: provider, structured
// validation, and metrics when metrics is non-nil. The mock provider
// skips validation and answers locally.
func NewNarrator(ctx context.Context, opts ProviderOptions, validator *narrative.Validator, metrics *GeneratorMetrics, logger *slog.Logger) (*Narrator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))

	var (
		llm     LLMService
		closeFn func() error
	)
	switch provider {
	case "anthropic":
		llm = NewAnthropicService(opts.APIKey, opts.Model, logger).WithBaseURL(opts.BaseURL)
	case "openai":
		llm = NewOpenAIService(opts.APIKey, opts.Model, opts.BaseURL, logger)
	case "ollama":
		svc, err := NewOllamaService(opts.BaseURL, opts.Model, logger)
		if err != nil {
			return nil, err
		}
		llm = svc
	case "gemini":
		svc, err := NewGeminiService(ctx, opts.APIKey, opts.Model, logger)
		if err != nil {
			return nil, err
		}
		llm = svc
		closeFn = svc.Close
	case "mock":
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", opts.Provider)
	}

	var gen Generator
	if llm != nil {
		gen = NewStructuredGenerator(llm, validator, opts.Timeout, logger)
	} else {
		gen = NewMockGenerator()
	}
	if metrics != nil {
		gen = NewInstrumentedGenerator(gen, provider, metrics)
	}

	logger.Info("Narrator provider configured", "provider", provider, "model", opts.Model)
	return &Narrator{Generator: gen, Provider: provider, closeFn: closeFn}, nil
}
