package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a topic keyed by order reference, so every event of
// one order lands on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zerolog.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *zerolog.Logger) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.Retry.Max = 10
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Timeout = 10 * time.Second
	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(p, cfg.Topic, logger), nil
}

func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string, logger *zerolog.Logger) *KafkaPublisher {
	l := logger.With().Str("component", "KafkaPublisher").Str("topic", topic).Logger()
	return &KafkaPublisher{producer: p, topic: topic, log: &l}
}

func (k *KafkaPublisher) PublishOrderEvent(ctx context.Context, e adapter.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.Reference),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		k.log.Error().Err(err).Str("order_ref", e.Reference).Str("type", e.Type).Msg("publish order event")
		return err
	}
	k.log.Debug().Int32("partition", partition).Int64("offset", offset).Str("type", e.Type).Msg("order event published")
	return nil
}

func (k *KafkaPublisher) Close() error { return k.producer.Close() }

var _ adapter.EventPublisher = NoopPublisher{}

// NoopPublisher drops events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, adapter.OrderEvent) error { return nil }
