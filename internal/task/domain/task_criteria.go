package domain

import (
	"time"

	"github.com/google/uuid"

	shared "github.com/jamaynor/maynor-kernel/shared/domain"
)

// TaskFields son los campos lógicos por los que se puede filtrar u ordenar, con su columna.
var TaskFields = shared.FieldSet{
	"id":          "id",
	"title":       "title",
	"description": "description",
	"status":      "status",
	"assignee_id": "assignee_id",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

// DefaultSortField se usa cuando el cliente no pide orden.
const DefaultSortField = "created_at"

// StatusCriteria busca tareas por su estado (pending, completed, etc.).
type StatusCriteria struct {
	Status TaskStatus
}

func (c StatusCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: "status", Op: shared.OpEq, Value: string(c.Status)},
	}
}

// AssigneeIDCriteria busca tareas asignadas a un usuario específico.
type AssigneeIDCriteria struct {
	ID uuid.UUID
}

func (c AssigneeIDCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: "assignee_id", Op: shared.OpEq, Value: c.ID},
	}
}

// TitleLikeCriteria busca tareas cuyo título contenga un texto, sin distinguir mayúsculas.
type TitleLikeCriteria struct {
	Title string
}

func (c TitleLikeCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: "title", Op: shared.OpILike, Value: "%" + c.Title + "%"},
	}
}

// CreatedAtRangeCriteria busca tareas creadas en un rango de fechas.
// Usamos punteros para que los filtros de fecha de inicio y fin sean opcionales.
type CreatedAtRangeCriteria struct {
	Start *time.Time
	End   *time.Time
}

func (c CreatedAtRangeCriteria) ToConditions() []shared.Criterion {
	var conds []shared.Criterion
	if c.Start != nil {
		conds = append(conds, shared.Criterion{Field: "created_at", Op: shared.OpGte, Value: *c.Start})
	}
	if c.End != nil {
		conds = append(conds, shared.Criterion{Field: "created_at", Op: shared.OpLte, Value: *c.End})
	}
	return conds
}
