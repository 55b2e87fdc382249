package state

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// Changes records what a delta actually did, which can be less than
// what it asked for.
type Changes struct {
	HealthBefore int
	HealthAfter  int
	Added        string // empty when the item was already held or none was requested
	Removed      string // empty when the item was not held or none was requested
	BecameOver   bool
}

// HealthChanged reports whether the clamped health differs from before.
func (c Changes) HealthChanged() bool {
	return c.HealthBefore != c.HealthAfter
}

// DeltaWorker applies a narrator's StateDelta to a PlayerState.
type DeltaWorker struct {
	logger *slog.Logger
}

// NewDeltaWorker creates a delta worker. A nil logger discards output.
func NewDeltaWorker(logger *slog.Logger) *DeltaWorker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeltaWorker{logger: logger}
}

// Apply returns the state that results from applying delta to ps. ps is
// not modified. Rules, in order: health is clamped to [MinHealth,
// MaxHealth], an item is added only if not already held, every copy of a
// removed item is dropped, and the game is over once health reaches zero.
func (dw *DeltaWorker) Apply(ps PlayerState, delta narrative.StateDelta) (PlayerState, Changes) {
	next := ps.Clone()
	changes := Changes{HealthBefore: ps.Health}

	if delta.HealthChange != nil {
		next.Health = clampHealth(ps.Health, *delta.HealthChange)
	}
	changes.HealthAfter = next.Health

	if delta.AddItem != "" && !next.HasItem(delta.AddItem) {
		next.Inventory = append(next.Inventory, delta.AddItem)
		changes.Added = delta.AddItem
	}

	if delta.RemoveItem != "" && next.HasItem(delta.RemoveItem) {
		next.Inventory = slices.DeleteFunc(next.Inventory, func(item string) bool {
			return item == delta.RemoveItem
		})
		changes.Removed = delta.RemoveItem
	}

	next.IsGameOver = next.Health <= MinHealth
	changes.BecameOver = next.IsGameOver && !ps.IsGameOver

	dw.logger.Debug("Applied state delta",
		"health_before", changes.HealthBefore,
		"health_after", changes.HealthAfter,
		"added", changes.Added,
		"removed", changes.Removed,
		"game_over", next.IsGameOver)

	return next, changes
}

// clampHealth adds change to health without overflowing int.
func clampHealth(health, change int) int {
	if health > MaxHealth {
		health = MaxHealth
	}
	if health < MinHealth {
		health = MinHealth
	}
	if change > MaxHealth-health {
		return MaxHealth
	}
	if change < MinHealth-health {
		return MinHealth
	}
	return health + change
}
