package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

// Message es un evento tal como llega a un consumidor, venga de Kafka o del bus en memoria.
type Message struct {
	EventType string
	Key       string
	Value     []byte
}

// NewMessage serializa un evento igual que KafkaPublisher.
func NewMessage(event any) (Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}
	msg := Message{EventType: sharedDomain.EventName(event), Value: data}
	if keyer, ok := event.(sharedBus.Keyer); ok {
		msg.Key = keyer.PartitionKey()
	}
	return msg, nil
}

func fromKafka(m kafka.Message) Message {
	msg := Message{Key: string(m.Key), Value: m.Value}
	for _, h := range m.Headers {
		if h.Key == EventTypeHeader {
			msg.EventType = string(h.Value)
		}
	}
	return msg
}

// MessageHandler define la interfaz que debe cumplir cualquier consumidor de eventos.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// MessageReader es la parte de *kafka.Reader que usa el adaptador.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ConsumerAdapter lee de Kafka y entrega cada mensaje al handler.
type ConsumerAdapter struct {
	reader  MessageReader
	handler MessageHandler
	log     *zap.Logger
}

func NewConsumerAdapter(reader MessageReader, handler MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{reader: reader, handler: handler, log: log}
}

// NewKafkaReader crea un reader con consumer group, así los offsets se confirman solos.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}

// Run consume hasta que ctx se cancela.
func (c *ConsumerAdapter) Run(ctx context.Context) {
	c.log.Info("🎧 Iniciando consumidor de Kafka...")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			// Si el contexto se cancela, el error es normal y salimos limpiamente.
			if ctx.Err() != nil {
				c.log.Info("Consumidor de Kafka detenido.")
				return
			}
			c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
			continue
		}
		c.handler.HandleMessage(ctx, fromKafka(msg))
	}
}

// Start lanza Run en una goroutine.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	go c.Run(ctx)
}

// ConsumeChan entrega al handler los mensajes de un suscriptor del bus en memoria hasta que
// ctx se cancela o el canal se cierra.
func ConsumeChan(ctx context.Context, ch <-chan Message, handler MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handler.HandleMessage(ctx, msg)
		}
	}
}
