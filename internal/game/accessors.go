package game

import (
	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/state"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

// Snapshot returns a consistent copy of the session.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Session:     o.session,
		Phase:       o.phaseLocked(),
		World:       o.world,
		Player:      o.player.Clone(),
		Entries:     o.log.Entries(),
		Processing:  o.processing,
		Typing:      o.typing,
		Preferences: o.prefs,
	}
}

func (o *Orchestrator) Player() state.PlayerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player.Clone()
}

func (o *Orchestrator) Entries() []storylog.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.Entries()
}

// EntriesSince returns the entries appended after the entry with id, or
// every entry when id is unknown (for example after a reset).
func (o *Orchestrator) EntriesSince(id string) []storylog.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.Since(id)
}

// LatestAnimated returns the newest narrator or art entry.
func (o *Orchestrator) LatestAnimated() (storylog.Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.LatestAnimated()
}

// LatestNarration returns the newest narrator entry.
func (o *Orchestrator) LatestNarration() (storylog.Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.log.LatestOfKind(storylog.KindNarrator)
}

// History returns a copy of the conversation memory.
func (o *Orchestrator) History() []chat.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]chat.ChatMessage, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

func (o *Orchestrator) Typing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.typing
}

// Session returns the current session token.
func (o *Orchestrator) Session() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phaseLocked()
}

func (o *Orchestrator) World() world.World {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.world
}

// Worlds returns the pack the orchestrator selects worlds from.
func (o *Orchestrator) Worlds() *world.Pack {
	return o.worlds
}

func (o *Orchestrator) Preferences() Preferences {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prefs
}

// SetTyping records whether the presentation layer is animating text.
func (o *Orchestrator) SetTyping(typing bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typing = typing
}

// SetMuted toggles sound cue playback.
func (o *Orchestrator) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prefs.Muted = muted
}

// SetTextSpeed changes the typewriter speed preference.
func (o *Orchestrator) SetTextSpeed(speed typewriter.Speed) error {
	parsed, err := typewriter.ParseSpeed(string(speed))
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prefs.TextSpeed = parsed
	return nil
}

func (o *Orchestrator) phaseLocked() Phase {
	switch {
	case o.player.IsGameOver:
		return PhaseGameOver
	case o.processing && len(o.history) == 0:
		return PhaseInitializing
	case o.processing:
		return PhaseProcessing
	case len(o.history) == 0:
		return PhaseUninitialized
	default:
		return PhasePlaying
	}
}
