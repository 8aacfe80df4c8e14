// Package value implements the tagged Value union carried on evaluation
// stacks, in locals, in arguments, and in heap fields (spec §3.1). Every
// runtime value the interpreter touches is a Value; there is no boxed
// interface{} payload anywhere in the hot path, following the teacher's
// preference for closed, struct-tagged data over open interfaces.
package value

import "fmt"

// Kind identifies which variant of the tagged union a Value holds.
type Kind uint8

const (
	None Kind = iota
	Null
	Int32
	Int64
	Float32
	Float64
	Boolean
	String
	Array
	Object
	ObjectRef
	MethodPtr
	IntPtr
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case Null:
		return "Null"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Boolean:
		return "Boolean"
	case String:
		return "String"
	case Array:
		return "Array"
	case Object:
		return "Object"
	case ObjectRef:
		return "ObjectRef"
	case MethodPtr:
		return "MethodPtr"
	case IntPtr:
		return "IntPtr"
	default:
		return "?"
	}
}

// TypeDescriptor is the subset of metadata.Type the value package needs,
// kept local to avoid an import cycle between value and metadata (metadata
// descriptors carry default Values for fields, which in turn need to refer
// back to a type only by this narrow interface).
type TypeDescriptor interface {
	FullName() string
}

// MethodDescriptor is the subset of metadata.Method a MethodPtr carries,
// kept local for the same reason as TypeDescriptor.
type MethodDescriptor interface {
	FullName() string
}

// Value is a tagged union over the kinds in spec §3.1. Object/Array carry
// stable integer handles into the heap store, never raw pointers, so copying
// a Value never duplicates the underlying heap entity.
type Value struct {
	Kind Kind

	i    int64
	f64  float64
	s    string
	typ  TypeDescriptor
	meth MethodDescriptor
}

// NoneValue is the zero Value, used for uninitialised slots.
var NoneValue = Value{Kind: None}

// NullValue is the distinguished null reference, shared and comparing equal
// only to itself.
var NullValue = Value{Kind: Null}

func NewInt32(v int32) Value    { return Value{Kind: Int32, i: int64(v)} }
func NewInt64(v int64) Value    { return Value{Kind: Int64, i: v} }
func NewFloat32(v float32) Value { return Value{Kind: Float32, f64: float64(v)} }
func NewFloat64(v float64) Value { return Value{Kind: Float64, f64: v} }
func NewString(v string) Value  { return Value{Kind: String, s: v} }

// NewBoolean yields an Int32-backed Boolean Value; the engine otherwise
// treats Boolean exactly like Int32 for arithmetic and branching purposes,
// since CIL itself does not distinguish them on the evaluation stack.
func NewBoolean(v bool) Value {
	if v {
		return Value{Kind: Boolean, i: 1}
	}
	return Value{Kind: Boolean, i: 0}
}

// NewArray wraps a handle into the array store.
func NewArray(handle int) Value { return Value{Kind: Array, i: int64(handle)} }

// NewObject wraps a handle into the object store, plus the object's declared
// type descriptor (carried here so callers that only have a Value can still
// answer "what type is this" without a heap lookup).
func NewObject(handle int, typ TypeDescriptor) Value {
	return Value{Kind: Object, i: int64(handle), typ: typ}
}

// NewObjectRef wraps a bare type descriptor with no backing instance, used
// for reflection tokens (ldtoken on a type reference).
func NewObjectRef(typ TypeDescriptor) Value {
	return Value{Kind: ObjectRef, typ: typ}
}

// NewMethodPtr wraps a method descriptor (ldftn, delegate targets).
func NewMethodPtr(m MethodDescriptor) Value {
	return Value{Kind: MethodPtr, meth: m}
}

// NewIntPtr wraps an untyped pointer-sized integer.
func NewIntPtr(v int64) Value { return Value{Kind: IntPtr, i: v} }

func (v Value) Int32() int32     { return int32(v.i) }
func (v Value) Int64() int64     { return v.i }
func (v Value) Float32() float32 { return float32(v.f64) }
func (v Value) Float64() float64 { return v.f64 }
func (v Value) Str() string      { return v.s }
func (v Value) Bool() bool       { return v.i != 0 }
func (v Value) Handle() int      { return int(v.i) }
func (v Value) Type() TypeDescriptor      { return v.typ }
func (v Value) Method() MethodDescriptor  { return v.meth }

// IsReference reports whether the Value's kind is a heap- or null-backed
// reference type, as opposed to a primitive carried by value.
func (v Value) IsReference() bool {
	switch v.Kind {
	case Null, Array, Object, ObjectRef, String:
		return true
	default:
		return false
	}
}

// Truthy implements the branch-opcode truthiness rule from spec §4.1: any
// non-zero integer or non-Null reference is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Null, None:
		return false
	case Int32, Int64, Boolean, IntPtr:
		return v.i != 0
	case Float32, Float64:
		return v.f64 != 0
	default:
		// String, Array, Object, ObjectRef, MethodPtr: any reference other
		// than Null is truthy.
		return true
	}
}

// Default returns the zero-value for a primitive Kind, per spec §3.2's field
// and static-store initialisation rule (Int->0, Float->0.0, Boolean->false,
// any reference->Null).
func Default(k Kind) Value {
	switch k {
	case Int32:
		return NewInt32(0)
	case Int64:
		return NewInt64(0)
	case Float32:
		return NewFloat32(0)
	case Float64:
		return NewFloat64(0)
	case Boolean:
		return NewBoolean(false)
	case String, Array, Object, ObjectRef, MethodPtr, IntPtr:
		return NullValue
	default:
		return NullValue
	}
}

func (v Value) String() string {
	switch v.Kind {
	case None:
		return "<none>"
	case Null:
		return "<null>"
	case Int32:
		return fmt.Sprintf("%d", v.Int32())
	case Int64:
		return fmt.Sprintf("%d", v.Int64())
	case Float32:
		return fmt.Sprintf("%g", v.Float32())
	case Float64:
		return fmt.Sprintf("%g", v.Float64())
	case Boolean:
		return fmt.Sprintf("%t", v.Bool())
	case String:
		return v.s
	case Array, Object:
		return fmt.Sprintf("%s#%d", v.Kind, v.Handle())
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
