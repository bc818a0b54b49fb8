// Package enum agrupa utilidades para enumeraciones: operaciones de bits sobre flags y
// tablas estáticas de nombre/descripción. No usa reflexión.
package enum

import "golang.org/x/exp/constraints"

// Flag es cualquier enumeración respaldada por un entero.
type Flag interface {
	constraints.Integer
}

// Is informa si v vale exactamente flag.
func Is[T Flag](v, flag T) bool {
	return v == flag
}

// Has informa si todos los bits de flag están activos en v.
func Has[T Flag](v, flag T) bool {
	return v&flag == flag
}

// Add activa los bits de flag en v.
func Add[T Flag](v, flag T) T {
	return v | flag
}

// Remove desactiva los bits de flag en v.
func Remove[T Flag](v, flag T) T {
	return v &^ flag
}
