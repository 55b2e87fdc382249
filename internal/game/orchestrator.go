// Package game holds the session-guarded orchestrator that sequences
// narrator round-trips against player state and the story log.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/narrative"
	"github.com/jwebster45206/adventure-console/pkg/state"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
	"github.com/jwebster45206/adventure-console/pkg/textfilter"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

var (
	ErrProcessing   = errors.New("a command is already being processed")
	ErrGameOver     = errors.New("the game is over")
	ErrEmptyCommand = errors.New("command is empty")
)

// SoundPlayer plays a sound cue. Play must not block.
type SoundPlayer interface {
	Play(cue narrative.SoundCue)
}

// ArtLookup resolves a visual cue to ASCII art, or "" for none.
type ArtLookup interface {
	ArtFor(cue narrative.VisualCue) string
}

// Phase is where the current play-through stands.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitializing  Phase = "initializing"
	PhasePlaying       Phase = "playing"
	PhaseProcessing    Phase = "processing"
	PhaseGameOver      Phase = "game_over"
)

// Preferences are player settings that survive a reset.
type Preferences struct {
	Muted     bool             `json:"muted"`
	TextSpeed typewriter.Speed `json:"textSpeed"`
	World     string           `json:"world"`
}

// Options configures an Orchestrator. Generator and Worlds are required.
type Options struct {
	Generator   services.Generator
	Worlds      *world.Pack
	Art         ArtLookup // defaults to Worlds
	Sound       SoundPlayer
	Publisher   Publisher
	Preferences Preferences
	Logger      *slog.Logger
}

// Snapshot is a consistent copy of everything the presentation layer reads.
type Snapshot struct {
	Session     uint64            `json:"session"`
	Phase       Phase             `json:"phase"`
	World       world.World       `json:"world"`
	Player      state.PlayerState `json:"player"`
	Entries     []storylog.Entry  `json:"entries"`
	Processing  bool              `json:"processing"`
	Typing      bool              `json:"typing"`
	Preferences Preferences       `json:"preferences"`
}

// Orchestrator is the single writer of player state, conversation history,
// and the story log. Every narrator round-trip captures the session token
// when it starts and commits only if the token is unchanged when it
// returns; a reset or world change bumps the token and so orphans whatever
// is in flight. The mutex guards memory only and is never held across a
// generator call.
type Orchestrator struct {
	mu sync.Mutex

	generator services.Generator
	worlds    *world.Pack
	art       ArtLookup
	validator *narrative.Validator
	deltas    *state.DeltaWorker
	filter    *textfilter.Filter
	sound     SoundPlayer
	publisher Publisher
	logger    *slog.Logger

	session    uint64
	world      world.World
	prefs      Preferences
	player     state.PlayerState
	history    []chat.ChatMessage
	log        *storylog.Log
	processing bool
	typing     bool
	pending    []Event
}

// New creates an orchestrator in the uninitialized phase. Call Initialize
// to request the opening narration.
func New(opts Options) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Worlds == nil {
		return nil, errors.New("world pack is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	prefs := opts.Preferences
	current := opts.Worlds.Initial()
	if prefs.World != "" {
		w, err := opts.Worlds.World(prefs.World)
		if err != nil {
			return nil, err
		}
		current = w
	}
	prefs.World = current.Key
	if prefs.TextSpeed == "" {
		prefs.TextSpeed = typewriter.SpeedNormal
	}

	art := opts.Art
	if art == nil {
		art = opts.Worlds
	}

	return &Orchestrator{
		generator: opts.Generator,
		worlds:    opts.Worlds,
		art:       art,
		validator: opts.Worlds.NewValidator(),
		deltas:    state.NewDeltaWorker(logger),
		filter:    textfilter.NewProfanityFilter(),
		sound:     opts.Sound,
		publisher: opts.Publisher,
		logger:    logger,
		session:   1,
		world:     current,
		prefs:     prefs,
		player:    state.NewPlayerState(),
		history:   make([]chat.ChatMessage, 0),
		log:       storylog.New(),
	}, nil
}

// Initialize requests the opening narration for the current world. It is
// a no-op once history exists or while a round-trip is in flight, so
// duplicate boot calls are harmless. It blocks until the narrator replies.
func (o *Orchestrator) Initialize(ctx context.Context) {
	o.mu.Lock()
	if len(o.history) > 0 || o.processing {
		o.mu.Unlock()
		return
	}
	token := o.session
	o.setProcessingLocked(true)
	req := services.GenerationRequest{
		Command:      o.world.OpeningCommand,
		History:      []chat.ChatMessage{},
		Player:       state.NewPlayerState(),
		SystemPrompt: o.world.SystemPrompt,
	}
	worldKey := o.world.Key
	events := o.takeEventsLocked()
	o.mu.Unlock()

	o.logger.Info("Initializing session", "session", token, "world", worldKey)
	o.publish(ctx, events)
	o.roundTrip(ctx, token, req)
}

// SubmitCommand handles one line of player input. Local commands are
// answered immediately; anything else is echoed to the log and sent to the
// narrator. It returns ErrProcessing, ErrGameOver, or ErrEmptyCommand when
// the input is ignored. Narrator failures are reported in the log, not
// returned.
func (o *Orchestrator) SubmitCommand(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return ErrProcessing
	}
	if o.player.IsGameOver {
		o.mu.Unlock()
		return ErrGameOver
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		o.mu.Unlock()
		return ErrEmptyCommand
	}

	if reply, ok := o.localReplyLocked(normalized); ok {
		o.appendLocked(storylog.KindSystem, reply)
		events := o.takeEventsLocked()
		o.mu.Unlock()
		o.publish(ctx, events)
		return nil
	}

	o.appendLocked(storylog.KindPlayer, text)
	token := o.session
	o.setProcessingLocked(true)
	req := services.GenerationRequest{
		Command:      text,
		History:      chat.Window(o.history, chat.HistoryLimit),
		Player:       o.player.Clone(),
		SystemPrompt: o.world.SystemPrompt,
	}
	events := o.takeEventsLocked()
	o.mu.Unlock()

	o.publish(ctx, events)
	o.roundTrip(ctx, token, req)
	return nil
}

// ResetGame starts a fresh play-through in the current world, keeping
// preferences, then requests the opening narration.
func (o *Orchestrator) ResetGame(ctx context.Context) {
	o.restart(ctx, nil)
}

// ChangeWorld switches to the world with key and starts a fresh
// play-through there. An unknown key changes nothing.
func (o *Orchestrator) ChangeWorld(ctx context.Context, key string) error {
	w, err := o.worlds.World(key)
	if err != nil {
		return err
	}
	o.restart(ctx, &w)
	return nil
}

func (o *Orchestrator) restart(ctx context.Context, next *world.World) {
	o.mu.Lock()
	o.session++
	if next != nil {
		o.world = *next
		o.prefs.World = next.Key
	}
	o.player = state.NewPlayerState()
	o.history = make([]chat.ChatMessage, 0)
	o.log.Clear()
	o.processing = false
	o.typing = false
	o.pending = append(o.pending, Event{Type: EventSessionReset, Session: o.session, World: o.world.Key})
	token := o.session
	worldKey := o.world.Key
	events := o.takeEventsLocked()
	o.mu.Unlock()

	o.logger.Info("Session reset", "session", token, "world", worldKey)
	o.publish(ctx, events)
	o.Initialize(ctx)
}

// roundTrip calls the narrator outside the lock and commits the outcome
// only if token is still current.
func (o *Orchestrator) roundTrip(ctx context.Context, token uint64, req services.GenerationRequest) {
	resp, gerr := o.generate(ctx, req)

	o.mu.Lock()
	if o.session != token {
		current := o.session
		o.mu.Unlock()
		o.logger.Info("Discarding stale narrator result",
			"session", token,
			"current_session", current,
			"failed", gerr != nil)
		return
	}

	cue := narrative.SoundNone
	if gerr != nil {
		o.logger.Warn("Narrator turn failed",
			"session", token,
			"kind", gerr.Kind,
			"error", gerr)
		o.appendLocked(storylog.KindSystem, FailureMessage(gerr.Kind))
		o.pending = append(o.pending, Event{Type: EventGenerationFailed, Session: token, Kind: gerr.Kind})
	} else {
		cue = o.commitLocked(req.Command, resp)
	}
	o.setProcessingLocked(false)
	muted := o.prefs.Muted
	events := o.takeEventsLocked()
	o.mu.Unlock()

	o.publish(ctx, events)
	if cue != narrative.SoundNone && !muted && o.sound != nil {
		o.sound.Play(cue)
	}
}

// commitLocked applies a validated narrator turn and returns the sound cue
// to play.
func (o *Orchestrator) commitLocked(command string, resp *narrative.StructuredResponse) narrative.SoundCue {
	next, changes := o.deltas.Apply(o.player, resp.StateDelta)

	text := resp.Narrative
	if textfilter.ShouldFilterContent(o.world.Rating) {
		text = o.filter.Clean(text)
	}

	o.appendLocked(storylog.KindNarrator, text)
	if art := o.art.ArtFor(resp.VisualCue); art != "" {
		o.appendLocked(storylog.KindArt, art)
	}
	if changes.Added != "" {
		o.appendLocked(storylog.KindSystem, "Added to inventory: "+changes.Added)
	}
	if changes.Removed != "" {
		o.appendLocked(storylog.KindSystem, "Removed from inventory: "+changes.Removed)
	}
	if changes.BecameOver {
		o.appendLocked(storylog.KindSystem, gameOverMessage)
	}

	o.player = next
	o.history = append(o.history, chat.Exchange(command, text)...)

	player := next.Clone()
	o.pending = append(o.pending, Event{Type: EventPlayerUpdated, Session: o.session, Player: &player})
	return resp.SoundCue
}

// generate calls the narrator and normalises every failure, including a
// panic, into a *services.GenerationError.
func (o *Orchestrator) generate(ctx context.Context, req services.GenerationRequest) (resp *narrative.StructuredResponse, gerr *services.GenerationError) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Narrator call panicked", "panic", r)
			resp = nil
			gerr = &services.GenerationError{
				Kind:    services.KindUnknown,
				Message: fmt.Sprintf("narrator panicked: %v", r),
			}
		}
	}()

	out, err := o.generator.Generate(ctx, req)
	if err != nil {
		return nil, services.Classify(err)
	}
	if out == nil {
		return nil, &services.GenerationError{Kind: services.KindValidation, Message: "narrator returned no response"}
	}
	if err := o.validator.Validate(*out); err != nil {
		return nil, services.Classify(err)
	}
	return out, nil
}

func (o *Orchestrator) localReplyLocked(command string) (string, bool) {
	switch command {
	case "help", "?":
		return o.world.HelpText, true
	case "inventory", "inv", "i":
		return inventoryMessage(o.player), true
	case "status":
		return statusMessage(o.player), true
	default:
		return "", false
	}
}

func (o *Orchestrator) appendLocked(kind storylog.Kind, content string) storylog.Entry {
	e := o.log.Append(kind, content)
	o.pending = append(o.pending, Event{Type: EventEntryAppended, Session: o.session, Entry: &e})
	return e
}

func (o *Orchestrator) setProcessingLocked(v bool) {
	if o.processing == v {
		return
	}
	o.processing = v
	o.pending = append(o.pending, Event{Type: EventProcessingChanged, Session: o.session, Processing: &v})
}

func (o *Orchestrator) takeEventsLocked() []Event {
	events := o.pending
	o.pending = nil
	return events
}

func (o *Orchestrator) publish(ctx context.Context, events []Event) {
	if o.publisher == nil || len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		if err := o.publisher.Publish(ctx, ev); err != nil {
			o.logger.Warn("Failed to publish event", "type", ev.Type, "session", ev.Session, "error", err)
		}
	}
}
