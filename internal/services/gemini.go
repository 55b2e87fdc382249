package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jwebster45206/adventure-console/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *GeminiService) Name() string {
	return "gemini"
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Complete runs a chat session with the history preloaded and sends the
// final user message.
func (s *GeminiService) Complete(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	systemPrompt, conversation := splitSystemMessages(messages)
	if len(conversation) == 0 {
		return "", errors.New("no user message to send")
	}

	model := s.client.GenerativeModel(s.modelName)
	model.ResponseMIMEType = "application/json"
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	cs := model.StartChat()
	cs.History = toGeminiHistory(conversation[:len(conversation)-1])

	last := conversation[len(conversation)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := geminiText(resp)
	s.logger.Debug("Gemini response received", "model", s.modelName, "length", len(text))
	return text, nil
}

func toGeminiHistory(messages []chat.ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return history
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &GenerationError{
			Kind:    KindForStatus(apiErr.Code),
			Message: fmt.Sprintf("narrator returned status %d", apiErr.Code),
			Err:     err,
		}
	}
	return err
}
