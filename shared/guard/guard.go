// Package guard reúne las cláusulas de guarda que usa el kernel para rechazar argumentos
// inválidos antes de tocar el estado de un agregado.
//
//	evt, err := guard.NotNil(evt, "event")
//	if err != nil {
//		return err
//	}
package guard

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// ErrInvalidArgument es el error centinela de todas las guardas.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError describe qué argumento falló, en qué función y por qué.
type ArgumentError struct {
	Param  string
	Caller string
	Reason string
}

func (e *ArgumentError) Error() string {
	return e.Reason
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// Option ajusta el error que devuelve una guarda.
type Option func(*ArgumentError)

// WithMessage reemplaza el mensaje por defecto. Un mensaje en blanco se ignora.
func WithMessage(msg string) Option {
	return func(e *ArgumentError) {
		if strings.TrimSpace(msg) != "" {
			e.Reason = msg
		}
	}
}

// callerName devuelve el nombre corto de la función que invocó a la guarda.
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func fail(param, defaultReason string, opts []Option) error {
	e := &ArgumentError{Param: param, Caller: callerName(3)}
	e.Reason = fmt.Sprintf("%s failed because %s", e.Caller, defaultReason)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsNil informa si v es nil, incluidos los punteros, mapas, slices, funciones, canales
// e interfaces nil con tipo.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// NotNil falla si v es nil.
func NotNil[T any](v T, param string, opts ...Option) (T, error) {
	if IsNil(v) {
		return v, fail(param, fmt.Sprintf("the argument %q was nil", param), opts)
	}
	return v, nil
}

// NotEmpty falla si s es la cadena vacía.
func NotEmpty(s, param string, opts ...Option) (string, error) {
	if s == "" {
		return s, fail(param, fmt.Sprintf("the input %q was empty", param), opts)
	}
	return s, nil
}

// NotWhiteSpace falla si s está vacía o sólo contiene espacios.
func NotWhiteSpace(s, param string, opts ...Option) (string, error) {
	if strings.TrimSpace(s) == "" {
		return s, fail(param, fmt.Sprintf("the input %q was empty or whitespace", param), opts)
	}
	return s, nil
}

// NotEmptySlice falla si el slice es nil o no tiene elementos.
func NotEmptySlice[T any](s []T, param string, opts ...Option) ([]T, error) {
	if len(s) == 0 {
		return s, fail(param, fmt.Sprintf("the %T %q was nil or empty", s, param), opts)
	}
	return s, nil
}

// InRange falla si v queda fuera de [lo, hi].
func InRange[T cmp.Ordered](v, lo, hi T, param string, opts ...Option) (T, error) {
	if cmp.Less(v, lo) || cmp.Less(hi, v) {
		return v, fail(param, fmt.Sprintf("%q=%v is outside [%v, %v]", param, v, lo, hi), opts)
	}
	return v, nil
}

// NotZero falla si v es el valor cero de su tipo.
func NotZero[T comparable](v T, param string, opts ...Option) (T, error) {
	var zero T
	if v == zero {
		return v, fail(param, fmt.Sprintf("the value of %T %q cannot be the zero value", v, param), opts)
	}
	return v, nil
}

// HasKey falla si el mapa no contiene key.
func HasKey[K comparable, V any](m map[K]V, key K, param string, opts ...Option) error {
	if _, ok := m[key]; !ok {
		return fail(param, fmt.Sprintf("the map %q did not have an item with the key '%v'", param, key), opts)
	}
	return nil
}

// True falla si cond es falsa.
func True(cond bool, msg string) error {
	if !cond {
		return fail("", "the condition was false", []Option{WithMessage(msg)})
	}
	return nil
}

// False falla si cond es verdadera.
func False(cond bool, msg string) error {
	if cond {
		return fail("", "the condition was true", []Option{WithMessage(msg)})
	}
	return nil
}

// Check evalúa el predicado y falla si devuelve false.
func Check(test func() bool, msg string) error {
	if test == nil || !test() {
		return fail("", "the check did not pass", []Option{WithMessage(msg)})
	}
	return nil
}
