package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

func TestClassify(t *testing.T) {
	existing := &GenerationError{Kind: KindAuth, Message: "already classified"}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "already classified", err: fmt.Errorf("wrapped: %w", existing), want: KindAuth},
		{name: "validation", err: &narrative.ValidationError{Problems: []string{"narrative is required"}}, want: KindValidation},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: KindNetwork},
		{name: "canceled", err: context.Canceled, want: KindNetwork},
		{name: "dial failure", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, want: KindNetwork},
		{name: "status 401", err: &StatusError{StatusCode: 401}, want: KindAuth},
		{name: "status 403", err: &StatusError{StatusCode: 403}, want: KindAuth},
		{name: "status 429", err: &StatusError{StatusCode: 429}, want: KindRateLimit},
		{name: "status 504", err: &StatusError{StatusCode: 504}, want: KindNetwork},
		{name: "status 500", err: &StatusError{StatusCode: 500}, want: KindUnknown},
		{name: "anything else", err: errors.New("boom"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got == nil {
				t.Fatal("Expected a classified error")
			}
			if got.Kind != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, got.Kind)
			}
			if !errors.Is(got, tt.err) && got != existing {
				t.Error("Expected the original error to be wrapped")
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestClassifyProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "openai api error", err: classifyOpenAIError(&openai.APIError{HTTPStatusCode: 429, Message: "slow"}), want: KindRateLimit},
		{name: "openai request error", err: classifyOpenAIError(&openai.RequestError{HTTPStatusCode: 401, Err: errors.New("x")}), want: KindAuth},
		{name: "ollama status", err: classifyOllamaError(api.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}), want: KindNetwork},
		{name: "gemini api error", err: classifyGeminiError(&googleapi.Error{Code: 403, Message: "denied"}), want: KindAuth},
		{name: "gemini other", err: classifyGeminiError(errors.New("weird")), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err).Kind; got != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGenerationError_Error(t *testing.T) {
	err := &GenerationError{Kind: KindNetwork, Message: "narrator unreachable", Err: errors.New("dial tcp")}
	if err.Error() != "network: narrator unreachable: dial tcp" {
		t.Errorf("Unexpected error string %q", err.Error())
	}
	bare := &GenerationError{Kind: KindUnknown, Message: "panic"}
	if bare.Error() != "unknown: panic" {
		t.Errorf("Unexpected error string %q", bare.Error())
	}
}
