package domain

import (
	"errors"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// ---------- Errores del kernel ----------
var (
	// ErrInvalidArgument se devuelve cuando falta un valor requerido (p. ej. un evento nil).
	ErrInvalidArgument = guard.ErrInvalidArgument

	// ErrConcurrencyConflict lo devuelven los repositorios cuando la versión esperada
	// del agregado ya no coincide con la almacenada.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrNotFound es la base de los "no encontrado" de cada contexto.
	ErrNotFound = errors.New("not found")
)
