package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaPublisher emits order lifecycle events to a Kafka topic, keyed by
// order id so one order's events stay in partition order. Consumers are
// downstream systems (fulfillment, analytics); the storefront path never
// depends on Kafka being up.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

type kafkaEnvelope struct {
	Event     string    `json:"event"`
	OrderID   string    `json:"order_id"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(orderID, event string, payload any) {
	value, err := json.Marshal(kafkaEnvelope{
		Event:     event,
		OrderID:   orderID,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("encoding kafka event", zap.String("event", event), zap.Error(err))
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(orderID),
		Value: value,
	}
	p.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("kafka produce failed",
				zap.String("event", event),
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	})
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
