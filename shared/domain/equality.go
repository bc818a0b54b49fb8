package domain

import (
	"encoding/binary"
	"hash/maphash"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/jamaynor/maynor-kernel/shared/guard"
)

// Identifiable es cualquier valor con identidad. Todo tipo que embeba Entity o
// AggregateRoot lo cumple.
type Identifiable[ID comparable] interface {
	ID() ID
}

// idSeed fija el hash de identidades durante la vida del proceso.
var idSeed = maphash.MakeSeed()

// Equal compara dos entidades por tipo exacto e identidad. Ningún otro campo participa.
// Dos nil son iguales; un nil y un no nil no lo son. Una identidad que no admite ==
// (p. ej. un slice dentro de un ID any) nunca es igual a nada.
func Equal[ID comparable](a, b Identifiable[ID]) bool {
	aNil, bNil := guard.IsNil(a), guard.IsNil(b)
	if aNil || bNil {
		return aNil && bNil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return sameID(a.ID(), b.ID())
}

func sameID[ID comparable](x, y ID) bool {
	if !comparableID(x) || !comparableID(y) {
		return false
	}
	return x == y
}

// comparableID informa si id se puede comparar con == sin pánico. Sólo falla para
// identidades de interfaz que guardan slices, mapas o funciones.
func comparableID(id any) bool {
	v := reflect.ValueOf(id)
	return !v.IsValid() || v.Comparable()
}

// NotEqual es !Equal.
func NotEqual[ID comparable](a, b Identifiable[ID]) bool {
	return !Equal(a, b)
}

// Equals es la versión abierta de Equal: other puede ser cualquier valor. Pensado para que
// el tipo concreto exponga su propio método:
//
//	func (t *Task) Equals(other any) bool { return domain.Equals[uuid.UUID](t, other) }
func Equals[ID comparable](a Identifiable[ID], other any) bool {
	if guard.IsNil(a) || guard.IsNil(other) {
		return false
	}
	b, ok := other.(Identifiable[ID])
	if !ok {
		return false
	}
	return Equal(a, b)
}

// Hash calcula un hash coherente con Equal a partir del nombre del tipo exacto y de la
// identidad. Los campos mutables (versión, auditoría, eventos) nunca entran en el cálculo,
// así que el hash no cambia mientras la entidad vive dentro de un mapa. La identidad se
// resume con maphash.Comparable, que respeta == (+0.0 y -0.0 dan el mismo hash); por eso el
// valor sólo es estable dentro del proceso.
func Hash[ID comparable](a Identifiable[ID]) uint64 {
	if guard.IsNil(a) {
		return 0
	}
	d := xxhash.New()
	_, _ = d.WriteString(reflect.TypeOf(a).String())
	_, _ = d.WriteString("\x00")
	if id := a.ID(); comparableID(id) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], maphash.Comparable(idSeed, id))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Key es una clave de mapa con la misma semántica que Equal.
type Key[ID comparable] struct {
	Type reflect.Type
	ID   ID
}

// KeyOf construye la clave de identidad de a. Devuelve false para nil y para identidades
// que no admiten ==, que no pueden usarse como clave de mapa.
func KeyOf[ID comparable](a Identifiable[ID]) (Key[ID], bool) {
	if guard.IsNil(a) {
		return Key[ID]{}, false
	}
	id := a.ID()
	if !comparableID(id) {
		return Key[ID]{}, false
	}
	return Key[ID]{Type: reflect.TypeOf(a), ID: id}, true
}
