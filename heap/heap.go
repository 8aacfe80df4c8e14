// Package heap implements the engine's object and array stores (spec §3.2,
// §4.2): two append-only vectors addressed by a stable integer handle.
// Neither store reclaims memory — the engine is short-lived and garbage
// collection is a non-goal — so handles are never reused and a Value holding
// one is always safe to dereference.
package heap

import (
	"fmt"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/value"
)

// FieldInfo describes one instance field for the purpose of allocating an
// object with type-appropriate zero values.
type FieldInfo struct {
	Name string
	Kind value.Kind
}

// TypeDescriptor is the subset of metadata.Type the heap needs to allocate an
// object: its identity (for Value.Type()) and its field layout.
type TypeDescriptor interface {
	value.TypeDescriptor
	InstanceFields() []FieldInfo
}

// Object is a single heap-allocated instance: a declared type plus a
// name-to-Value field map. Field entries are created at construction with a
// type-appropriate zero per spec §3.2 (Int->0, Float->0.0, Boolean->false,
// any reference->Null).
type Object struct {
	Type   TypeDescriptor
	Fields map[string]value.Value
}

// Array is a single heap-allocated array: a dense Value sequence, initialised
// to Null.
type Array struct {
	Elements []value.Value
}

// Store owns the object and array vectors. It is not safe for concurrent
// use; per spec §5 the engine is single-threaded, so no locking is added.
type Store struct {
	objects []*Object
	arrays  []*Array
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// AllocObject allocates a new object of the given type, with every
// instance field set to its kind-appropriate default, and returns its
// handle. The caller populates fields via a .ctor call.
func (s *Store) AllocObject(typ TypeDescriptor) int {
	obj := &Object{Type: typ, Fields: make(map[string]value.Value)}
	for _, f := range typ.InstanceFields() {
		obj.Fields[f.Name] = value.Default(f.Kind)
	}
	s.objects = append(s.objects, obj)
	return len(s.objects) - 1
}

// AllocArray allocates a new array of the given length, every slot
// initialised to Null, and returns its handle.
func (s *Store) AllocArray(length int) int {
	elems := make([]value.Value, length)
	for i := range elems {
		elems[i] = value.NullValue
	}
	s.arrays = append(s.arrays, &Array{Elements: elems})
	return len(s.arrays) - 1
}

func (s *Store) object(handle int) (*Object, error) {
	if handle < 0 || handle >= len(s.objects) {
		return nil, clrerror.New(clrerror.Internal, "invalid object handle %d", handle)
	}
	return s.objects[handle], nil
}

func (s *Store) array(handle int) (*Array, error) {
	if handle < 0 || handle >= len(s.arrays) {
		return nil, clrerror.New(clrerror.Internal, "invalid array handle %d", handle)
	}
	return s.arrays[handle], nil
}

// ObjectType returns the declared type of the object at handle.
func (s *Store) ObjectType(handle int) (TypeDescriptor, error) {
	obj, err := s.object(handle)
	if err != nil {
		return nil, err
	}
	return obj.Type, nil
}

// LoadField reads an instance field by name. A missing field is a fatal
// runtime error per spec §4.2.
func (s *Store) LoadField(handle int, field string) (value.Value, error) {
	obj, err := s.object(handle)
	if err != nil {
		return value.NoneValue, err
	}
	v, ok := obj.Fields[field]
	if !ok {
		return value.NoneValue, clrerror.New(clrerror.Internal, "missing field %q on %s", field, obj.Type.FullName())
	}
	return v, nil
}

// StoreField writes an instance field by name.
func (s *Store) StoreField(handle int, field string, v value.Value) error {
	obj, err := s.object(handle)
	if err != nil {
		return err
	}
	if _, ok := obj.Fields[field]; !ok {
		return clrerror.New(clrerror.Internal, "missing field %q on %s", field, obj.Type.FullName())
	}
	obj.Fields[field] = v
	return nil
}

// ArrayLength returns the element count of the array at handle.
func (s *Store) ArrayLength(handle int) (int, error) {
	arr, err := s.array(handle)
	if err != nil {
		return 0, err
	}
	return len(arr.Elements), nil
}

// GetElement reads an array element by index. Out-of-range indices are
// fatal, per spec §4.2.
func (s *Store) GetElement(handle, index int) (value.Value, error) {
	arr, err := s.array(handle)
	if err != nil {
		return value.NoneValue, err
	}
	if index < 0 || index >= len(arr.Elements) {
		return value.NoneValue, clrerror.New(clrerror.IndexOutOfRange, "index %d out of range for array of length %d", index, len(arr.Elements))
	}
	return arr.Elements[index], nil
}

// SetElement writes an array element by index.
func (s *Store) SetElement(handle, index int, v value.Value) error {
	arr, err := s.array(handle)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(arr.Elements) {
		return clrerror.New(clrerror.IndexOutOfRange, "index %d out of range for array of length %d", index, len(arr.Elements))
	}
	arr.Elements[index] = v
	return nil
}

// Objects returns a read-only snapshot of every allocated object, for
// diagnostics.
func (s *Store) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Arrays returns a read-only snapshot of every allocated array.
func (s *Store) Arrays() []*Array {
	out := make([]*Array, len(s.arrays))
	copy(out, s.arrays)
	return out
}

// String renders an object reference for diagnostics.
func (o *Object) String() string {
	return fmt.Sprintf("%s{%d fields}", o.Type.FullName(), len(o.Fields))
}
