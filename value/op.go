package value

import (
	"math"

	"github.com/clrlite/clrlite/clrerror"
)

// OpKind selects the arithmetic or comparison operator for Op.
type OpKind uint8

const (
	Add OpKind = iota
	Sub
	Mul
	Div
	Rem
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

// promote computes the numeric Kind two operands should be evaluated in, per
// spec §4.1: same-kind operands stay in that kind; Int32+Float32 promotes to
// Float32; Int32+Int64 promotes to Int64; Float32+Float64 promotes to
// Float64. Any other combination involving Int64/Float64 widens to the wider
// kind, following the same "widen, never narrow" rule.
func promote(a, b Kind) Kind {
	if a == Boolean {
		a = Int32
	}
	if b == Boolean {
		b = Int32
	}
	if a == b {
		return a
	}
	rank := func(k Kind) int {
		switch k {
		case Int32:
			return 0
		case Int64:
			return 1
		case Float32:
			return 2
		case Float64:
			return 3
		default:
			return -1
		}
	}
	ra, rb := rank(a), rank(b)
	if ra < 0 || rb < 0 {
		return a
	}
	if ra > rb {
		return a
	}
	return b
}

func isNumeric(k Kind) bool {
	switch k {
	case Int32, Int64, Float32, Float64, Boolean:
		return true
	default:
		return false
	}
}

// Op implements arithmetic (Add, Sub, Mul, Div, Rem) and comparison (Eq, Ne,
// Lt, Le, Gt, Ge) between two Values per spec §4.1. Comparisons always yield
// an Int32 0/1. Integer division or remainder by zero fails with an
// ArithmeticError; floating-point division by zero follows IEEE-754 (±Inf or
// NaN) without error.
func Op(a, b Value, op OpKind) (Value, error) {
	if !isNumeric(a.Kind) || !isNumeric(b.Kind) {
		return NoneValue, clrerror.New(clrerror.Internal, "Op: non-numeric operand kinds %s, %s", a.Kind, b.Kind)
	}

	switch op {
	case Eq, Ne, Lt, Le, Gt, Ge:
		return compare(a, b, op)
	default:
		return arithmetic(a, b, op)
	}
}

func arithmetic(a, b Value, op OpKind) (Value, error) {
	switch promote(a.Kind, b.Kind) {
	case Int32:
		x, y := a.Int32(), b.Int32()
		switch op {
		case Add:
			return NewInt32(x + y), nil
		case Sub:
			return NewInt32(x - y), nil
		case Mul:
			return NewInt32(x * y), nil
		case Div:
			if y == 0 {
				return NoneValue, clrerror.New(clrerror.Arithmetic, "division by zero")
			}
			return NewInt32(x / y), nil
		case Rem:
			if y == 0 {
				return NoneValue, clrerror.New(clrerror.Arithmetic, "division by zero")
			}
			return NewInt32(x % y), nil
		}
	case Int64:
		x, y := asInt64(a), asInt64(b)
		switch op {
		case Add:
			return NewInt64(x + y), nil
		case Sub:
			return NewInt64(x - y), nil
		case Mul:
			return NewInt64(x * y), nil
		case Div:
			if y == 0 {
				return NoneValue, clrerror.New(clrerror.Arithmetic, "division by zero")
			}
			return NewInt64(x / y), nil
		case Rem:
			if y == 0 {
				return NoneValue, clrerror.New(clrerror.Arithmetic, "division by zero")
			}
			return NewInt64(x % y), nil
		}
	case Float32:
		x, y := asFloat64(a), asFloat64(b)
		switch op {
		case Add:
			return NewFloat32(float32(x + y)), nil
		case Sub:
			return NewFloat32(float32(x - y)), nil
		case Mul:
			return NewFloat32(float32(x * y)), nil
		case Div:
			return NewFloat32(float32(x / y)), nil
		case Rem:
			return NewFloat32(float32(math.Mod(x, y))), nil
		}
	case Float64:
		x, y := asFloat64(a), asFloat64(b)
		switch op {
		case Add:
			return NewFloat64(x + y), nil
		case Sub:
			return NewFloat64(x - y), nil
		case Mul:
			return NewFloat64(x * y), nil
		case Div:
			return NewFloat64(x / y), nil
		case Rem:
			return NewFloat64(math.Mod(x, y)), nil
		}
	}
	return NoneValue, clrerror.New(clrerror.Internal, "Op: unsupported operator %d", op)
}

func compare(a, b Value, op OpKind) (Value, error) {
	var lt, eq bool
	switch promote(a.Kind, b.Kind) {
	case Int32:
		x, y := a.Int32(), b.Int32()
		lt, eq = x < y, x == y
	case Int64:
		x, y := asInt64(a), asInt64(b)
		lt, eq = x < y, x == y
	case Float32, Float64:
		x, y := asFloat64(a), asFloat64(b)
		lt, eq = x < y, x == y
	default:
		return NoneValue, clrerror.New(clrerror.Internal, "compare: unsupported kinds %s, %s", a.Kind, b.Kind)
	}

	var result bool
	switch op {
	case Eq:
		result = eq
	case Ne:
		result = !eq
	case Lt:
		result = lt
	case Le:
		result = lt || eq
	case Gt:
		result = !lt && !eq
	case Ge:
		result = !lt
	}
	if result {
		return NewInt32(1), nil
	}
	return NewInt32(0), nil
}

// CompareUnsigned implements the `.un` comparison family (cgt.un, clt.un,
// ble.un, ...) as a true unsigned comparison, per the redesign decision in
// DESIGN.md §9: the Int32/Int64 payload is reinterpreted as uint32/uint64
// rather than compared as signed.
func CompareUnsigned(a, b Value, op OpKind) (Value, error) {
	var lt, eq bool
	switch promote(a.Kind, b.Kind) {
	case Int32:
		x, y := uint32(a.Int32()), uint32(b.Int32())
		lt, eq = x < y, x == y
	case Int64:
		x, y := uint64(asInt64(a)), uint64(asInt64(b))
		lt, eq = x < y, x == y
	default:
		return NoneValue, clrerror.New(clrerror.Internal, "CompareUnsigned: unsupported kinds %s, %s", a.Kind, b.Kind)
	}

	var result bool
	switch op {
	case Eq:
		result = eq
	case Ne:
		result = !eq
	case Lt:
		result = lt
	case Le:
		result = lt || eq
	case Gt:
		result = !lt && !eq
	case Ge:
		result = !lt
	}
	return NewBoolean(result), nil
}

// Neg implements the unary `neg` opcode.
func Neg(a Value) (Value, error) {
	switch a.Kind {
	case Int32:
		return NewInt32(-a.Int32()), nil
	case Int64:
		return NewInt64(-asInt64(a)), nil
	case Float32:
		return NewFloat32(-a.Float32()), nil
	case Float64:
		return NewFloat64(-a.Float64()), nil
	default:
		return NoneValue, clrerror.New(clrerror.Internal, "neg: unsupported kind %s", a.Kind)
	}
}

func asInt64(v Value) int64 {
	switch v.Kind {
	case Int32:
		return int64(v.Int32())
	case Int64:
		return v.Int64()
	case Float32, Float64:
		return int64(v.Float64())
	default:
		return v.i
	}
}

func asFloat64(v Value) float64 {
	switch v.Kind {
	case Int32:
		return float64(v.Int32())
	case Int64:
		return float64(v.Int64())
	case Float32, Float64:
		return v.Float64()
	default:
		return 0
	}
}
