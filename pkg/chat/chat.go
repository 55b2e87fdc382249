package chat

import (
	"fmt"
	"strings"
)

// CommandRequest represents a player command sent to the adventure-console api.
type CommandRequest struct {
	Command string `json:"command"`
}

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instructions
)

// HistoryLimit is the number of messages (five command/narrative pairs)
// sent to the narrator as conversation memory.
const HistoryLimit = 10

// ChatMessage represents a single message in the conversation memory
// sent to the narrator model.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func (cr *CommandRequest) Validate() error {
	if strings.TrimSpace(cr.Command) == "" {
		return fmt.Errorf("command cannot be empty")
	}
	return nil
}

// Exchange returns the user/assistant pair recorded after a successful
// round-trip.
func Exchange(command, narrative string) []ChatMessage {
	return []ChatMessage{
		{Role: ChatRoleUser, Content: command},
		{Role: ChatRoleAgent, Content: narrative},
	}
}

// Window returns a copy of the most recent limit messages of history.
// A leading assistant message is dropped so the window never starts
// halfway through an exchange.
func Window(history []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(history) == 0 {
		return []ChatMessage{}
	}
	start := 0
	if len(history) > limit {
		start = len(history) - limit
	}
	if history[start].Role == ChatRoleAgent {
		start++
	}
	out := make([]ChatMessage, len(history)-start)
	copy(out, history[start:])
	return out
}
