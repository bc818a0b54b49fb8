package domain

import (
	"math"
	"time"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// AggregateRoot es la frontera de consistencia de un grupo de objetos. Además de la
// identidad guarda una versión para concurrencia optimista, los datos de auditoría y el
// buffer de eventos de dominio pendientes de despachar.
//
// Go no tiene visibilidad "protected": RecordEvent, SetVersion, MarkCreated y MarkUpdated
// son exportados para que los tipos que embeben AggregateRoot puedan llamarlos desde otro
// paquete, pero sólo deben usarlos los métodos de negocio del propio agregado (y, para la
// versión, la capa de persistencia). Desde fuera el buffer sólo se lee o se vacía entero.
//
// No es seguro para uso concurrente: un agregado tiene un único escritor por unidad de trabajo.
type AggregateRoot[ID comparable] struct {
	Entity[ID]

	version   int
	createdOn time.Time
	createdBy string
	updatedOn time.Time
	events    []any
}

// NewAggregateRoot crea la base de un agregado nuevo, aún sin persistir (versión 0).
func NewAggregateRoot[ID comparable](id ID, createdOn time.Time, createdBy string) AggregateRoot[ID] {
	return AggregateRoot[ID]{
		Entity:    NewEntity(id),
		createdOn: createdOn,
		createdBy: createdBy,
	}
}

// ---------------- Eventos de dominio ----------------

// RecordEvent añade un evento al final del buffer. Un evento nil se rechaza con
// ErrInvalidArgument y el buffer queda intacto.
func (a *AggregateRoot[ID]) RecordEvent(event any) error {
	if _, err := guard.NotNil(event, "event"); err != nil {
		return err
	}
	a.events = append(a.events, event)
	return nil
}

// DomainEvents devuelve una copia de los eventos pendientes en orden de registro.
// Modificar el slice devuelto no afecta al agregado.
func (a *AggregateRoot[ID]) DomainEvents() []any {
	out := make([]any, len(a.events))
	copy(out, a.events)
	return out
}

// HasDomainEvents informa si hay eventos pendientes.
func (a *AggregateRoot[ID]) HasDomainEvents() bool {
	return len(a.events) > 0
}

// ClearDomainEvents vacía el buffer. Vaciar un buffer vacío no hace nada.
func (a *AggregateRoot[ID]) ClearDomainEvents() {
	a.events = nil
}

// PullDomainEvents devuelve los eventos pendientes y vacía el buffer.
func (a *AggregateRoot[ID]) PullDomainEvents() []any {
	out := a.DomainEvents()
	a.ClearDomainEvents()
	return out
}

// ---------------- Versión y auditoría ----------------

// Version es el contador de concurrencia optimista. 0 significa que el agregado aún no
// se ha persistido.
func (a *AggregateRoot[ID]) Version() int {
	return a.version
}

// IsPersisted informa si la capa de persistencia ya asignó una versión.
func (a *AggregateRoot[ID]) IsPersisted() bool {
	return a.version > 0
}

// SetVersion guarda la versión que escribe la capa de persistencia tras un commit.
// El kernel no valida la monotonía: eso es responsabilidad del repositorio.
func (a *AggregateRoot[ID]) SetVersion(v int) error {
	if _, err := guard.InRange(v, 0, math.MaxInt, "version"); err != nil {
		return err
	}
	a.version = v
	return nil
}

// CreatedOn es el instante de creación.
func (a *AggregateRoot[ID]) CreatedOn() time.Time {
	return a.createdOn
}

// CreatedBy es el usuario (o token) que creó el agregado; "" si no se conoce.
func (a *AggregateRoot[ID]) CreatedBy() string {
	return a.createdBy
}

// UpdatedOn devuelve el instante de la última modificación, si la hubo.
func (a *AggregateRoot[ID]) UpdatedOn() (time.Time, bool) {
	return a.updatedOn, !a.updatedOn.IsZero()
}

// MarkCreated fija los datos de creación.
func (a *AggregateRoot[ID]) MarkCreated(at time.Time, by string) {
	a.createdOn = at
	a.createdBy = by
}

// MarkUpdated fija el instante de la última modificación.
func (a *AggregateRoot[ID]) MarkUpdated(at time.Time) {
	a.updatedOn = at
}
