package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/narrative"
	"github.com/jwebster45206/adventure-console/pkg/state"
)

// GenerationRequest is everything the narrator sees for one turn.
type GenerationRequest struct {
	Command      string
	History      []chat.ChatMessage
	Player       state.PlayerState
	SystemPrompt string
}

// Generator produces a validated narrator turn or a *GenerationError.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error)
}

// LLMService defines the interface for a chat-completion provider that
// returns raw model text.
type LLMService interface {
	// Complete sends messages and returns the model's reply text
	Complete(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Name identifies the provider in logs and metrics
	Name() string
}

// Pinger is implemented by services that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StructuredGenerator turns an LLMService into a Generator: it builds the
// prompt, calls the provider, and validates what comes back.
type StructuredGenerator struct {
	llm       LLMService
	validator *narrative.Validator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewStructuredGenerator creates a generator. A zero timeout leaves
// deadlines to the caller's context.
func NewStructuredGenerator(llm LLMService, validator *narrative.Validator, timeout time.Duration, logger *slog.Logger) *StructuredGenerator {
	return &StructuredGenerator{
		llm:       llm,
		validator: validator,
		timeout:   timeout,
		logger:    logger,
	}
}

func (g *StructuredGenerator) Generate(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := BuildMessages(req, g.validator.VisualCues(), g.validator.SoundCues())

	start := time.Now()
	text, err := g.llm.Complete(ctx, messages)
	if err != nil {
		gerr := Classify(err)
		g.logger.Warn("Narrator call failed",
			"provider", g.llm.Name(),
			"kind", gerr.Kind,
			"duration", time.Since(start),
			"error", err)
		return nil, gerr
	}

	resp, err := g.validator.Parse([]byte(text))
	if err != nil {
		g.logger.Warn("Narrator returned an invalid response",
			"provider", g.llm.Name(),
			"error", err,
			"response_length", len(text))
		return nil, &GenerationError{
			Kind:    KindValidation,
			Message: "narrator response failed validation",
			Err:     err,
		}
	}

	g.logger.Debug("Narrator call succeeded",
		"provider", g.llm.Name(),
		"duration", time.Since(start),
		"visual_cue", resp.VisualCue,
		"sound_cue", resp.SoundCue)
	return resp, nil
}

// Ping checks the underlying provider when it supports it.
func (g *StructuredGenerator) Ping(ctx context.Context) error {
	if p, ok := g.llm.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
