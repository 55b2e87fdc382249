package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/jwebster45206/adventure-console/pkg/chat"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaService implements LLMService for a self-hosted Ollama server
type OllamaService struct {
	client    *api.Client
	modelName string
	logger    *slog.Logger
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL string, modelName string, logger *slog.Logger) (*OllamaService, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return &OllamaService{
		client: api.NewClient(u, &http.Client{
			Timeout:   120 * time.Second,
			Transport: &statusTransport{next: http.DefaultTransport},
		}),
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *OllamaService) Name() string {
	return "ollama"
}

// Ping checks that the Ollama server is up.
func (s *OllamaService) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// Complete sends a non-streaming chat request constrained to JSON output.
func (s *OllamaService) Complete(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    s.modelName,
		Messages: make([]api.Message, 0, len(messages)),
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, api.Message{Role: msg.Role, Content: msg.Content})
	}

	var out strings.Builder
	err := s.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		if resp.Done {
			s.logger.Debug("Ollama response received",
				"model", resp.Model,
				"done_reason", resp.DoneReason)
		}
		return nil
	})
	if err != nil {
		return "", classifyOllamaError(err)
	}
	return out.String(), nil
}

// statusTransport turns non-2xx replies into *StatusError. The ollama
// client decodes {"error": ...} bodies into plain errors and drops the
// status code, which is what classification needs.
type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func classifyOllamaError(err error) error {
	var httpErr *StatusError
	if errors.As(err, &httpErr) {
		return &GenerationError{
			Kind:    KindForStatus(httpErr.StatusCode),
			Message: fmt.Sprintf("narrator returned status %d", httpErr.StatusCode),
			Err:     err,
		}
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &GenerationError{
			Kind:    KindForStatus(statusErr.StatusCode),
			Message: fmt.Sprintf("narrator returned status %d", statusErr.StatusCode),
			Err:     err,
		}
	}
	return err
}
