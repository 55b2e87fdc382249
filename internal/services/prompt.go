package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

const responseInstructions = `Reply with exactly one JSON object and no other text, in this shape:
{"narrative": string, "visualCue": string, "soundCue": string, "stateDelta": {"healthChange": integer, "addItem": string, "removeItem": string}}

Rules:
- "narrative" is the story text shown to the player. It must not be empty.
- "visualCue" must be one of: %s. Use "none" unless a picture truly helps.
- "soundCue" must be one of: %s. Use "none" unless a sound truly helps.
- "stateDelta" is always present. Omit any of its fields that do not change.
- "healthChange" is a whole number: negative for harm, positive for healing.
- "addItem" is an item the player gains; "removeItem" is an item the player loses or uses up. Use the exact item names from the inventory.`

// BuildMessages assembles the full prompt for one turn: world system prompt,
// response contract, current player state, trimmed history, and the command.
func BuildMessages(req GenerationRequest, visuals []narrative.VisualCue, sounds []narrative.SoundCue) []chat.ChatMessage {
	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: req.SystemPrompt},
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(responseInstructions, quoteAll(visuals), quoteAll(sounds))},
		{Role: chat.ChatRoleSystem, Content: playerStatePrompt(req)},
	}
	messages = append(messages, chat.Window(req.History, chat.HistoryLimit)...)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: req.Command})
	return messages
}

func playerStatePrompt(req GenerationRequest) string {
	ps := struct {
		Health    int      `json:"health"`
		Inventory []string `json:"inventory"`
	}{
		Health:    req.Player.Health,
		Inventory: req.Player.Inventory,
	}
	if ps.Inventory == nil {
		ps.Inventory = []string{}
	}
	data, _ := json.Marshal(ps)
	return "Current player state: " + string(data)
}

func quoteAll[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(quoted, ", ")
}

// splitSystemMessages extracts and combines all system messages into a
// single system prompt and returns the remaining messages.
func splitSystemMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var rest []chat.ChatMessage
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	return strings.Join(systemParts, "\n\n"), rest
}
