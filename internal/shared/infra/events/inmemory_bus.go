package events

import (
	"context"
	"sync"

	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

// InMemoryEventBus reparte cada evento, serializado a JSON, entre sus suscriptores. Un
// suscriptor con el buffer lleno pierde el mensaje; el bus nunca bloquea al publicador.
type InMemoryEventBus struct {
	subscribers []chan Message
	mu          sync.RWMutex
	closed      bool
	topic       string
}

var _ sharedBus.EventPublisher = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus crea un bus de eventos para un topic específico.
func NewInMemoryEventBus(topic string) *InMemoryEventBus {
	return &InMemoryEventBus{topic: topic}
}

func (b *InMemoryEventBus) Topic() string {
	return b.topic
}

// Publish envía un evento a todos los suscriptores de este bus.
func (b *InMemoryEventBus) Publish(ctx context.Context, event any) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

// Subscribe suscribe un nuevo oyente a este bus.
func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close cierra los canales de los suscriptores. Publicar después no hace nada.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
