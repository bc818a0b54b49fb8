package bus

import "context"

// Keyer lo implementan los eventos que eligen su clave de partición (normalmente el id
// del agregado, para conservar el orden por agregado).
type Keyer interface {
	PartitionKey() string
}

// Topicer lo implementan los eventos que fijan su topic de destino.
type Topicer interface {
	Topic() string
}

// La semántica de topic/nombre y formato del payload la decides en los adapters.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// TopicPublisher lo implementan los publishers que aceptan el topic de fuera, como hace el
// relayer con el topic del registro de eventos. Un topic vacío equivale a Publish.
type TopicPublisher interface {
	EventPublisher
	PublishTo(ctx context.Context, topic string, event any) error
}
