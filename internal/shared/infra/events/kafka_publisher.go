package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

const EventTypeHeader = "event-type"

// MessageWriter es la parte de *kafka.Writer que usa el publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica eventos como JSON. La clave sale de sharedBus.Keyer (orden por
// agregado). El topic es el que recibe PublishTo; si viene vacío, el de sharedBus.Topicer o
// el topic por defecto.
type KafkaPublisher struct {
	writer       MessageWriter
	defaultTopic string
	log          *zap.Logger
}

func NewKafkaPublisher(writer MessageWriter, defaultTopic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, defaultTopic: defaultTopic, log: log}
}

// NewKafkaWriter crea un writer sin topic fijo: cada mensaje lleva el suyo.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event any) error {
	return p.PublishTo(ctx, "", event)
}

func (p *KafkaPublisher) PublishTo(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.defaultTopic,
		Value: data,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(sharedDomain.EventName(event))},
		},
	}
	if keyer, ok := event.(sharedBus.Keyer); ok {
		msg.Key = []byte(keyer.PartitionKey())
	}
	switch t, ok := event.(sharedBus.Topicer); {
	case topic != "":
		msg.Topic = topic
	case ok && t.Topic() != "":
		msg.Topic = t.Topic()
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("topic", msg.Topic), zap.Error(err))
		return err
	}

	p.log.Debug("Event published successfully",
		zap.String("topic", msg.Topic),
		zap.String("event_type", sharedDomain.EventName(event)),
	)
	return nil
}

// Verificación estática
var _ sharedBus.TopicPublisher = (*KafkaPublisher)(nil)
