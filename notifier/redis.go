package notifier

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisBridge fans events out across service instances through a Redis
// pub/sub channel. Publishing goes to Redis only; a subscription goroutine
// delivers every message, including this instance's own, into the local
// hub, so each connected subscriber still sees an event at most once.
type RedisBridge struct {
	client  *redis.Client
	channel string
	local   *Hub
	logger  *zap.Logger
	pubsub  *redis.PubSub
}

type bridgeEnvelope struct {
	OrderID string          `json:"orderId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func NewRedisBridge(client *redis.Client, channel string, local *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
	}
}

// Start begins relaying channel messages into the local hub. It returns
// after the subscription is established.
func (b *RedisBridge) Start(ctx context.Context) error {
	b.pubsub = b.client.Subscribe(ctx, b.channel)
	// Receive forces the SUBSCRIBE round-trip so Start fails fast on a
	// dead Redis instead of silently dropping events.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return err
	}

	go func() {
		for msg := range b.pubsub.Channel() {
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("malformed bridge message", zap.Error(err))
				continue
			}
			b.local.Publish(env.OrderID, env.Event, env.Payload)
		}
	}()
	return nil
}

// Publish relays the event to every instance via Redis.
func (b *RedisBridge) Publish(orderID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("encoding bridge payload", zap.String("event", event), zap.Error(err))
		return
	}
	data, err := json.Marshal(bridgeEnvelope{OrderID: orderID, Event: event, Payload: raw})
	if err != nil {
		b.logger.Error("encoding bridge envelope", zap.String("event", event), zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, data).Err(); err != nil {
		b.logger.Warn("redis publish failed", zap.String("event", event), zap.Error(err))
	}
}

func (b *RedisBridge) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
