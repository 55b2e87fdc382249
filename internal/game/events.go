package game

import (
	"context"
	"errors"

	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/pkg/state"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
)

// EventType names something observable that happened to the session.
type EventType string

const (
	EventSessionReset      EventType = "session.reset"
	EventEntryAppended     EventType = "entry.appended"
	EventPlayerUpdated     EventType = "player.updated"
	EventGenerationFailed  EventType = "generation.failed"
	EventProcessingChanged EventType = "processing.changed"
)

// Event is published after the orchestrator commits a change.
type Event struct {
	Type       EventType          `json:"type"`
	Session    uint64             `json:"session"`
	Entry      *storylog.Entry    `json:"entry,omitempty"`
	Player     *state.PlayerState `json:"player,omitempty"`
	World      string             `json:"world,omitempty"`
	Kind       services.ErrorKind `json:"kind,omitempty"`
	Processing *bool              `json:"processing,omitempty"`
}

// Publisher receives session events. Publish is called without the
// orchestrator's lock held, in commit order for a single operation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiPublisher fans each event out to every publisher and joins their
// errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
