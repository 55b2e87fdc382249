package game

import (
	"strings"

	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/pkg/state"
)

const gameOverMessage = "Your strength gives out and the world fades to black. THE END. Reset to begin a new adventure."

// FailureMessage is the in-fiction notice shown for a failed narrator turn.
func FailureMessage(kind services.ErrorKind) string {
	switch kind {
	case services.KindNetwork:
		return "The narrator's voice is lost in the static. The connection faltered; try your action again."
	case services.KindRateLimit:
		return "The narrator pauses to catch their breath. Too many requests; wait a moment, then try again."
	case services.KindAuth:
		return "The narrator does not recognise your credentials. Check the API key configuration."
	case services.KindValidation:
		return "The narrator's words came out garbled. Try your action again."
	default:
		return "Something strange disturbs the story. Try your action again."
	}
}

func inventoryMessage(ps state.PlayerState) string {
	if len(ps.Inventory) == 0 {
		return "You are carrying nothing."
	}
	return "You are carrying: " + strings.Join(ps.Inventory, ", ")
}

func statusMessage(ps state.PlayerState) string {
	return ps.Summary()
}
