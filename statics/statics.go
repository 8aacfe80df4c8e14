// Package statics implements the process-wide static-field store (spec
// §4.3): a single table shared by every frame, keyed by the declaring
// type's full name and the field's name, with a type-appropriate zero
// value synthesised the first time a field is read before anything has
// written to it.
package statics

import "github.com/clrlite/clrlite/value"

type key struct {
	typeName  string
	fieldName string
}

// Store is the static-field table. Create one with New: the zero value has
// no map, and its first Load or Set panics.
type Store struct {
	fields map[key]value.Value
}

// New returns an empty Store.
func New() *Store {
	return &Store{fields: make(map[key]value.Value)}
}

// Load reads a static field, returning the kind-appropriate default per
// spec §4.3 if nothing has been stored yet.
func (s *Store) Load(typeName, fieldName string, defaultKind value.Kind) value.Value {
	k := key{typeName, fieldName}
	if v, ok := s.fields[k]; ok {
		return v
	}
	def := value.Default(defaultKind)
	s.fields[k] = def
	return def
}

// Set writes a static field, creating its slot if this is the first
// write.
func (s *Store) Set(typeName, fieldName string, v value.Value) {
	s.fields[key{typeName, fieldName}] = v
}

// Has reports whether a slot for (typeName, fieldName) has ever been
// touched by Load or Set, for diagnostics.
func (s *Store) Has(typeName, fieldName string) bool {
	_, ok := s.fields[key{typeName, fieldName}]
	return ok
}

// Snapshot returns a read-only copy of every touched static field, keyed
// by "TypeName.FieldName", for diagnostics.
func (s *Store) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(s.fields))
	for k, v := range s.fields {
		out[k.typeName+"."+k.fieldName] = v
	}
	return out
}
