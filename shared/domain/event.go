package domain

import (
	"reflect"
	"strings"
)

// Named lo implementan los eventos que declaran su propio nombre ("task.created").
type Named interface {
	EventName() string
}

// EventName devuelve el nombre de un evento: el de EventName() si lo declara, si no el
// nombre de su tipo Go sin puntero ni paquete ("TaskCreated").
func EventName(event any) string {
	if n, ok := event.(Named); ok {
		return n.EventName()
	}
	if event == nil {
		return ""
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	s := t.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}
