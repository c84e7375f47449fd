package relay

import (
	"context"
	"fmt"
	"strings"

	"food-delivery/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub is the slice of the redis client the bridge needs
type RedisPubSub interface {
	PublishRelay(ctx context.Context, topic string, payload []byte) error
	SubscribeRelay(ctx context.Context) *redis.PubSub
}

// RedisBridge fans messages out across instances: Publish goes through
// Redis, and Run delivers whatever arrives from Redis into the local hub.
type RedisBridge struct {
	hub    *Hub
	redis  RedisPubSub
	prefix string
	logger *zap.Logger
}

// NewRedisBridge creates a bridge in front of hub. prefix is the channel
// prefix the redis client adds to topics.
func NewRedisBridge(hub *Hub, rdb RedisPubSub, prefix string) *RedisBridge {
	return &RedisBridge{
		hub:    hub,
		redis:  rdb,
		prefix: prefix,
		logger: util.GetLogger(),
	}
}

// Publish sends msg to every instance, this one included
func (b *RedisBridge) Publish(ctx context.Context, topic Topic, msg Outbound) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.MessageType(), err)
	}
	if err := b.redis.PublishRelay(ctx, string(topic), data); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	util.RelayMessagesPublished.WithLabelValues(msg.MessageType()).Inc()
	return nil
}

// Run blocks delivering Redis messages into the hub until ctx is done.
// ready, if not nil, is closed once the subscription is active.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.redis.SubscribeRelay(ctx)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to relay channels: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	b.logger.Info("Relay bridge started")
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Relay bridge stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic := Topic(strings.TrimPrefix(msg.Channel, b.prefix))
			b.hub.Deliver(topic, []byte(msg.Payload))
		}
	}
}
