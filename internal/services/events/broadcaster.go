package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-console/internal/game"
)

// Channel is the Redis Pub/Sub channel session events are published on.
const Channel = "adventure-events"

// Broadcaster publishes session events to Redis Pub/Sub for SSE
// distribution. It implements game.Publisher.
type Broadcaster struct {
	redisClient *redis.Client
	channel     string
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{
		redisClient: redisClient,
		channel:     Channel,
		logger:      logger,
	}
}

// Channel returns the channel events are published to.
func (b *Broadcaster) Channel() string {
	return b.channel
}

// Publish marshals ev and publishes it to the events channel.
func (b *Broadcaster) Publish(ctx context.Context, ev game.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", ev.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", b.channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", b.channel,
		"event_type", ev.Type,
		"session", ev.Session,
	)
	return nil
}

// Subscribe opens a subscription to the events channel. The caller must
// close the returned PubSub.
func (b *Broadcaster) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	sub := b.redisClient.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	return sub, nil
}

// Decode parses a published payload back into an event.
func Decode(payload string) (game.Event, error) {
	var ev game.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return game.Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return ev, nil
}
