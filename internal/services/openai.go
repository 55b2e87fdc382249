package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/adventure-console/pkg/chat"
)

const DefaultOpenAITemperature = 0.8

// OpenAIService implements LLMService for OpenAI and any API compatible
// with its chat completions endpoint.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

// NewOpenAIService creates a service. An empty baseURL uses OpenAI itself.
func NewOpenAIService(apiKey, modelName, baseURL string, logger *slog.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		logger:    logger,
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

// Complete requests a JSON-object chat completion.
func (s *OpenAIService) Complete(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.modelName,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: DefaultOpenAITemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindValidation, Message: "completion had no choices"}
	}

	s.logger.Debug("OpenAI response received",
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GenerationError{
			Kind:    KindForStatus(apiErr.HTTPStatusCode),
			Message: fmt.Sprintf("narrator returned status %d", apiErr.HTTPStatusCode),
			Err:     err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &GenerationError{
			Kind:    KindForStatus(reqErr.HTTPStatusCode),
			Message: fmt.Sprintf("narrator returned status %d", reqErr.HTTPStatusCode),
			Err:     err,
		}
	}
	return err
}
