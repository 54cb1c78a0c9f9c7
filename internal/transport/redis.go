package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces published channels.
const DefaultRedisPrefix = "sanitizr:"

// RedisBroadcaster publishes payloads with Redis PUBLISH so every instance
// behind a load balancer can reach its own websocket clients.
type RedisBroadcaster struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisBroadcaster wraps client. An empty prefix becomes DefaultRedisPrefix.
func NewRedisBroadcaster(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisBroadcaster {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroadcaster{client: client, prefix: prefix, logger: logger}
}

// Emit implements Broadcaster. Returns ErrNoSubscribers when no Redis client
// is subscribed to the channel.
func (b *RedisBroadcaster) Emit(ctx context.Context, channel string, payload []byte) error {
	n, err := b.client.Publish(ctx, b.prefix+channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	if n == 0 {
		return ErrNoSubscribers
	}
	return nil
}

// Relay subscribes to every prefixed channel and forwards each message to
// target until ctx is cancelled. Forwarding errors other than
// ErrNoSubscribers are logged.
func (b *RedisBroadcaster) Relay(ctx context.Context, target Broadcaster) error {
	sub := b.client.PSubscribe(ctx, b.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", b.prefix, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			channel := strings.TrimPrefix(msg.Channel, b.prefix)
			err := target.Emit(ctx, channel, []byte(msg.Payload))
			if err != nil && !errors.Is(err, ErrNoSubscribers) {
				b.logger.Warn("relay failed", "channel", channel, "error", err)
			}
		}
	}
}
