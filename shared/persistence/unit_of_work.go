// Package persistence conecta el buffer de eventos de un agregado con la transacción que
// lo guarda: el estado, las filas de outbox y la nueva versión se confirman juntos o no
// se confirma nada.
package persistence

import (
	"context"
	"time"

	"github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// Aggregate es lo que Commit necesita de un agregado. Lo cumple cualquier tipo que embeba
// domain.AggregateRoot.
type Aggregate interface {
	DomainEvents() []any
	ClearDomainEvents()
	Version() int
	SetVersion(v int) error
}

// TxFunc guarda el agregado y sus eventos dentro de una transacción. Debe fallar con
// domain.ErrConcurrencyConflict si la versión almacenada no es expectedVersion.
type TxFunc func(ctx context.Context, expectedVersion int, events []any) error

// Commit ejecuta fn con una copia de los eventos pendientes y la versión actual. Si fn
// termina bien, la versión pasa a expectedVersion+1 y el buffer se vacía. Si falla, el
// agregado queda intacto y un reintento vuelve a emitir los mismos eventos.
func Commit(ctx context.Context, agg Aggregate, fn TxFunc) error {
	if _, err := guard.NotNil(agg, "agg"); err != nil {
		return err
	}
	if _, err := guard.NotNil(fn, "fn"); err != nil {
		return err
	}

	expected := agg.Version()
	events := agg.DomainEvents()

	if err := fn(ctx, expected, events); err != nil {
		return err
	}

	if err := agg.SetVersion(expected + 1); err != nil {
		return err
	}
	agg.ClearDomainEvents()
	return nil
}

// OutboxRecords convierte los eventos de un agregado en filas de outbox, en el mismo orden.
func OutboxRecords(aggregateType string, aggregateID any, events []any, now time.Time) []domain.OutboxEvent {
	records := make([]domain.OutboxEvent, 0, len(events))
	for _, evt := range events {
		records = append(records, domain.NewOutboxEvent(aggregateType, aggregateID, evt, now))
	}
	return records
}
