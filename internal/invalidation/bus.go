// Package invalidation fans identity-cache invalidation signals out to every
// running instance over Redis pub/sub. Without Redis it degrades to
// invalidating the local cache only.
package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tapday/pkg/requestcontext"
)

// Target is the local cache an invalidation signal applies to.
type Target interface {
	Invalidate(ctx context.Context) error
}

// Message is the payload published on the channel.
type Message struct {
	Origin    string    `json:"origin"`
	RequestID string    `json:"request_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Bus publishes invalidations and applies those published by other instances.
type Bus struct {
	client  redis.UniversalClient
	channel string
	origin  string
	local   Target
	logger  *slog.Logger
}

// New creates a bus. client may be nil, in which case only local is invalidated.
func New(client redis.UniversalClient, channel string, local Target, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  logger,
	}
}

// Invalidate marks the local cache stale and tells every other instance to
// do the same.
func (b *Bus) Invalidate(ctx context.Context) error {
	if err := b.local.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate local cache: %w", err)
	}
	if b.client == nil {
		return nil
	}

	payload, err := json.Marshal(Message{
		Origin:    b.origin,
		RequestID: requestcontext.RequestID(ctx),
		SentAt:    requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Run applies remote invalidations until ctx is cancelled. ready, when
// non-nil, is closed once the subscription is confirmed.
func (b *Bus) Run(ctx context.Context, ready chan<- struct{}) error {
	if b.client == nil {
		if ready != nil {
			close(ready)
		}
		<-ctx.Done()
		return nil
	}

	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	b.logger.InfoContext(ctx, "listening for identity cache invalidations", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.apply(ctx, msg.Payload)
		}
	}
}

func (b *Bus) apply(ctx context.Context, payload string) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.logger.WarnContext(ctx, "ignoring malformed invalidation", "error", err)
		return
	}
	if m.Origin == b.origin {
		return
	}
	if err := b.local.Invalidate(ctx); err != nil {
		b.logger.WarnContext(ctx, "remote invalidation failed",
			"request_id", m.RequestID,
			"error", err,
		)
		return
	}
	b.logger.DebugContext(ctx, "applied remote invalidation",
		"request_id", m.RequestID,
		"origin", m.Origin,
	)
}
