package domain

import (
	"fmt"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// Entity es la base de cualquier objeto cuya igualdad depende de su identidad y no de sus
// atributos. Se embebe por valor en el tipo concreto:
//
//	type Invoice struct {
//		domain.Entity[int64]
//		Total int64
//	}
//
// La identidad sólo se fija al construir (NewEntity) o, una única vez, con AssignID.
//
// Dos entidades del mismo tipo con la identidad aún en su valor cero son iguales entre sí;
// usa IsTransient antes de meter entidades recién creadas en un mapa o un set.
type Entity[ID comparable] struct {
	id ID
}

// NewEntity crea la base con su identidad.
func NewEntity[ID comparable](id ID) Entity[ID] {
	return Entity[ID]{id: id}
}

// ID devuelve la identidad.
func (e Entity[ID]) ID() ID {
	return e.id
}

// AssignID fija una identidad diferida, por ejemplo la clave devuelta por un INSERT.
// Repetir la misma identidad no hace nada; cambiarla por otra es un error.
func (e *Entity[ID]) AssignID(id ID) error {
	if _, err := guard.NotZero(id, "id"); err != nil {
		return err
	}
	if e.IsTransient() || sameID(e.id, id) {
		e.id = id
		return nil
	}
	return &guard.ArgumentError{
		Param:  "id",
		Caller: "AssignID",
		Reason: fmt.Sprintf("identity already assigned: %v", e.id),
	}
}

// IsTransient informa si la identidad todavía es el valor cero de ID.
func (e Entity[ID]) IsTransient() bool {
	var zero ID
	return e.id == zero
}
