package domain

import (
	"fmt"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// ---------------- Operadores ----------------

type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "<>"
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
)

// Valid informa si el operador es uno de los soportados por los adaptadores.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike:
		return true
	}
	return false
}

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado
type Criterion struct {
	Field string
	Op    Operator
	Value any
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales
type Criteria interface {
	ToConditions() []Criterion
}

// IDCriteria filtra por la identidad del agregado.
type IDCriteria[ID comparable] struct {
	ID ID
}

func (c IDCriteria[ID]) ToConditions() []Criterion {
	return []Criterion{{Field: "id", Op: OpEq, Value: c.ID}}
}

// ---------------- Composite Criteria ----------------

// CompositeCriteria agrupa criterios bajo un operador lógico. ToConditions aplana el árbol
// (lectura AND); los adaptadores que soportan OR recorren Criterias directamente.
type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		if crit == nil {
			continue
		}
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: criterias}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: criterias}
}

// ---------------- Campos permitidos ----------------

// FieldSet traduce los campos lógicos de un criterio a columnas o claves de almacenamiento.
// Cualquier campo fuera del conjunto se rechaza, así que nunca llega texto libre a una
// consulta.
type FieldSet map[string]string

// Resolve devuelve la columna del campo lógico.
func (s FieldSet) Resolve(field string) (string, error) {
	if err := guard.HasKey(s, field, "field", guard.WithMessage(fmt.Sprintf("unsupported field %q", field))); err != nil {
		return "", err
	}
	return s[field], nil
}

// Check valida campo y operador de cada condición.
func (s FieldSet) Check(conds []Criterion) error {
	for _, c := range conds {
		if _, err := s.Resolve(c.Field); err != nil {
			return err
		}
		if !c.Op.Valid() {
			return fmt.Errorf("unsupported operator %q: %w", c.Op, ErrInvalidArgument)
		}
	}
	return nil
}
