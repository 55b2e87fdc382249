package state

import (
	"fmt"
	"slices"
	"strings"
)

const (
	MaxHealth = 100
	MinHealth = 0
)

// PlayerState is the player's health, inventory, and game-over flag.
type PlayerState struct {
	Health     int      `json:"health"`
	Inventory  []string `json:"inventory"`
	IsGameOver bool     `json:"isGameOver"`
}

// NewPlayerState returns the state every session starts from.
func NewPlayerState() PlayerState {
	return PlayerState{
		Health:    MaxHealth,
		Inventory: make([]string, 0),
	}
}

// Clone returns a deep copy of ps.
func (ps PlayerState) Clone() PlayerState {
	inv := make([]string, len(ps.Inventory))
	copy(inv, ps.Inventory)
	ps.Inventory = inv
	return ps
}

// HasItem reports whether item is held. Matching is exact.
func (ps PlayerState) HasItem(item string) bool {
	return slices.Contains(ps.Inventory, item)
}

// Summary renders the state as the short status line shown to the player.
func (ps PlayerState) Summary() string {
	inv := "nothing"
	if len(ps.Inventory) > 0 {
		inv = strings.Join(ps.Inventory, ", ")
	}
	return fmt.Sprintf("Health: %d/%d | Carrying: %s", ps.Health, MaxHealth, inv)
}
