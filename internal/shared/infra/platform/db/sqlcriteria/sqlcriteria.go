// Package sqlcriteria traduce criterios neutrales del dominio a fragmentos SQL con
// parámetros. Sólo acepta campos de la FieldSet del agregado; el texto del cliente nunca
// se concatena en la consulta.
package sqlcriteria

import (
	"fmt"
	"strings"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
	"github.com/jamaynor/maynor-kernel/shared/utils"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) operator(op sharedDomain.Operator) string {
	// LIKE en SQLite ya ignora mayúsculas para ASCII
	if op == sharedDomain.OpILike && d == SQLite {
		return string(sharedDomain.OpLike)
	}
	return string(op)
}

// Builder acumula argumentos para que la numeración de placeholders sea continua.
type Builder struct {
	dialect Dialect
	fields  sharedDomain.FieldSet
	args    []any
}

func NewBuilder(d Dialect, fields sharedDomain.FieldSet) *Builder {
	return &Builder{dialect: d, fields: fields}
}

// Args devuelve los argumentos acumulados en orden.
func (b *Builder) Args() []any {
	return b.args
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.placeholder(len(b.args))
}

// Where devuelve la condición (sin "WHERE") o "" si no hay criterios.
func (b *Builder) Where(criteria sharedDomain.Criteria) (string, error) {
	if criteria == nil {
		return "", nil
	}

	if c, ok := criteria.(sharedDomain.CompositeCriteria); ok {
		var parts []string
		for _, child := range c.Criterias {
			part, err := b.Where(child)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		op := utils.Ternary(c.Operator == sharedDomain.OpOr, " OR ", " AND ")
		return group(parts, op), nil
	}

	conds := criteria.ToConditions()
	if err := b.fields.Check(conds); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		col, _ := b.fields.Resolve(c.Field)
		parts = append(parts, fmt.Sprintf("%s %s %s", col, b.dialect.operator(c.Op), b.bind(c.Value)))
	}
	return group(parts, " AND "), nil
}

func group(parts []string, sep string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// OrderBy devuelve "ORDER BY col DIR". El id desempata para que la paginación sea estable.
func (b *Builder) OrderBy(sort sharedQuery.Sort) (string, error) {
	col, err := b.fields.Resolve(sort.Field)
	if err != nil {
		return "", err
	}
	dir := utils.Ternary(sort.Desc, "DESC", "ASC")
	if col == "id" {
		return fmt.Sprintf("ORDER BY id %s", dir), nil
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", col, dir, dir), nil
}

// Limit devuelve "LIMIT x OFFSET y" para OffsetPagination y "" para cualquier otra cosa.
func (b *Builder) Limit(pagination sharedQuery.Pagination) string {
	p, ok := pagination.(sharedQuery.OffsetPagination)
	if !ok {
		return ""
	}
	p = p.Normalize()
	return fmt.Sprintf("LIMIT %s OFFSET %s", b.bind(p.Limit), b.bind(p.Offset))
}

// Select compone la consulta completa de listado.
func (b *Builder) Select(base string, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) (string, error) {
	where, err := b.Where(criteria)
	if err != nil {
		return "", err
	}
	orderBy, err := b.OrderBy(sort)
	if err != nil {
		return "", err
	}

	query := base
	if where != "" {
		query += " WHERE " + where
	}
	query += " " + orderBy
	if limit := b.Limit(pagination); limit != "" {
		query += " " + limit
	}
	return query, nil
}
