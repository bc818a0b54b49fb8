package utils

import (
	"context"
	"errors"
	"time"

	"github.com/jamaynor/maynor-kernel/shared/domain"
)

// Retry ejecuta una función con reintentos configurables. Los errores de programación
// (argumentos inválidos) y los "no encontrado" no se reintentan: no son transitorios.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			// espera antes del siguiente intento
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidArgument) && !errors.Is(err, domain.ErrNotFound)
}

// Ternary es un operador ternario genérico
func Ternary[T any](condition bool, ifTrue, ifFalse T) T {
	if condition {
		return ifTrue
	}
	return ifFalse
}
