package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultFeedChannel is the Redis channel used when none is configured.
const DefaultFeedChannel = "projectsync:changes"

// RedisFeedConfig holds configuration for RedisFeed.
type RedisFeedConfig struct {
	Channel    string
	Origin     string
	BufferSize int
	Logger     *slog.Logger
}

// DefaultRedisFeedConfig returns sensible defaults.
func DefaultRedisFeedConfig() RedisFeedConfig {
	return RedisFeedConfig{
		Channel:    DefaultFeedChannel,
		BufferSize: 256,
	}
}

// RedisFeed carries committed changes between processes that share one
// backend. Local changes are published with this node's origin id; changes
// from other nodes are replayed into the local Hub so their live queries
// re-run. A node ignores its own echoes.
type RedisFeed struct {
	client   redis.UniversalClient
	hub      *Hub
	channel  string
	origin   string
	outgoing chan Change
	logger   *slog.Logger
}

// NewRedisFeed creates a feed. Call Run to start relaying.
func NewRedisFeed(client redis.UniversalClient, hub *Hub, cfg RedisFeedConfig) *RedisFeed {
	if cfg.Channel == "" {
		cfg.Channel = DefaultFeedChannel
	}
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisFeed{
		client:   client,
		hub:      hub,
		channel:  cfg.Channel,
		origin:   cfg.Origin,
		outgoing: make(chan Change, cfg.BufferSize),
		logger:   cfg.Logger,
	}
}

// Origin returns the id stamped on changes published by this node.
func (f *RedisFeed) Origin() string { return f.origin }

// Run relays changes in both directions until ctx is cancelled.
func (f *RedisFeed) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	stop := f.hub.Listen(AllCollections, f.enqueue)
	defer stop()

	f.logger.Info("change feed started", "channel", f.channel, "origin", f.origin)
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("change feed stopped", "channel", f.channel)
			return nil
		case c := <-f.outgoing:
			payload, err := f.encode(c)
			if err != nil {
				f.logger.Error("failed to encode change", "error", err)
				continue
			}
			if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
				f.logger.Warn("failed to publish change", "collection", c.Collection, "id", c.ID, "error", err)
			}
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", f.channel)
			}
			f.relay(msg.Payload)
		}
	}
}

// enqueue queues locally-originated changes for publishing. It runs on the
// Hub's publishing goroutine, so a full buffer drops rather than blocks.
func (f *RedisFeed) enqueue(c Change) {
	if c.Origin != "" {
		return
	}
	select {
	case f.outgoing <- c:
	default:
		f.logger.Warn("change feed buffer full, dropping change", "collection", c.Collection, "id", c.ID)
	}
}

func (f *RedisFeed) encode(c Change) ([]byte, error) {
	c.Origin = f.origin
	return json.Marshal(c)
}

// relay replays a peer's change into the local hub.
func (f *RedisFeed) relay(payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		f.logger.Warn("ignoring malformed change", "error", err)
		return
	}
	if c.Origin == "" || c.Origin == f.origin || c.Collection == "" {
		return
	}
	f.hub.Publish(c)
}
