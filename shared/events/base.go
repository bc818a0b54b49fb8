package events

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// EventMetadata indica a qué tipo Go se decodifica un evento y en qué topic lo publica el
// relayer cuando el publisher acepta topics (bus.TopicPublisher).
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}

// Registry indexa EventMetadata por nombre de evento ("task.created").
type Registry map[string]EventMetadata

// Decode convierte un payload genérico (bytes JSON leídos del outbox, un map, o el propio
// evento) en un puntero al tipo registrado para eventType.
func (r Registry) Decode(eventType string, payload any) (any, EventMetadata, error) {
	meta, ok := r[eventType]
	if !ok {
		return nil, EventMetadata{}, fmt.Errorf("unknown event type %q", eventType)
	}

	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	case string:
		raw = []byte(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, meta, fmt.Errorf("encode payload of %q: %w", eventType, err)
		}
		raw = b
	}

	target := reflect.New(meta.Type).Interface()
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, meta, fmt.Errorf("decode payload of %q: %w", eventType, err)
	}
	return target, meta, nil
}
