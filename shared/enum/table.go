package enum

import (
	"fmt"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// Entry describe un valor de la enumeración.
type Entry struct {
	Name        string
	Description string
}

// Table es el mapeo estático valor → nombre/descripción de una enumeración. Se declara una
// vez junto al tipo:
//
//	var statusTable = enum.NewTable(map[Status]enum.Entry{
//		StatusPending: {Name: "Pending", Description: "Awaiting work"},
//	})
type Table[T comparable] struct {
	entries map[T]Entry
	byName  map[string]T
	order   []T
}

// NewTable construye la tabla. Values respeta order si se pasa; si no, el orden no está
// garantizado.
func NewTable[T comparable](entries map[T]Entry, order ...T) *Table[T] {
	t := &Table[T]{
		entries: make(map[T]Entry, len(entries)),
		byName:  make(map[string]T, len(entries)),
	}
	for v, e := range entries {
		t.entries[v] = e
		t.byName[e.Name] = v
	}
	for _, v := range order {
		if _, ok := entries[v]; ok {
			t.order = append(t.order, v)
		}
	}
	if len(t.order) == 0 {
		for v := range entries {
			t.order = append(t.order, v)
		}
	}
	return t
}

// Name devuelve el nombre registrado o fmt.Sprint(v) si no hay entrada.
func (t *Table[T]) Name(v T) string {
	if e, ok := t.entries[v]; ok && e.Name != "" {
		return e.Name
	}
	return fmt.Sprint(v)
}

// Description devuelve la descripción registrada; si no existe, el nombre.
func (t *Table[T]) Description(v T) string {
	if e, ok := t.entries[v]; ok && e.Description != "" {
		return e.Description
	}
	return t.Name(v)
}

// Parse resuelve un nombre. Un nombre desconocido devuelve ErrInvalidArgument.
func (t *Table[T]) Parse(name string) (T, error) {
	if err := guard.HasKey(t.byName, name, "name"); err != nil {
		var zero T
		return zero, err
	}
	return t.byName[name], nil
}

// Values devuelve los valores registrados.
func (t *Table[T]) Values() []T {
	out := make([]T, len(t.order))
	copy(out, t.order)
	return out
}
