package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-console/pkg/chat"
)

func TestToGeminiHistory(t *testing.T) {
	history := toGeminiHistory([]chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "start"},
		{Role: chat.ChatRoleAgent, Content: "You wake."},
	})
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("You wake."), history[1].Parts[0])
}

func TestGeminiText(t *testing.T) {
	assert.Equal(t, "", geminiText(nil))
	assert.Equal(t, "", geminiText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"narrative":`), genai.Text(`"x"}`)}},
		}},
	}
	assert.Equal(t, `{"narrative":"x"}`, geminiText(resp))
}
