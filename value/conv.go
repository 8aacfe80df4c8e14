package value

import "github.com/clrlite/clrlite/clrerror"

// ConvKind selects the target kind for Convert, covering the non-overflow-
// checked conv.* set from DESIGN.md §9 point 2 (extended beyond the spec's
// minimal i4/i8/r4 trio to the full primitive-width list).
type ConvKind uint8

const (
	ConvI4 ConvKind = iota
	ConvI8
	ConvR4
	ConvR8
	ConvU4
	ConvU8
	ConvI1
	ConvU1
	ConvI2
	ConvU2
)

// Convert implements the conv.* opcode group: widening is lossless,
// narrowing wraps modulo-2ⁿ, and float-to-int truncates toward zero.
func Convert(v Value, to ConvKind) (Value, error) {
	if !isNumeric(v.Kind) {
		return NoneValue, clrerror.New(clrerror.Internal, "conv: non-numeric operand kind %s", v.Kind)
	}

	switch to {
	case ConvI4:
		return NewInt32(int32(asInt64(v))), nil
	case ConvI8:
		return NewInt64(asInt64(v)), nil
	case ConvR4:
		return NewFloat32(float32(asFloat64(v))), nil
	case ConvR8:
		return NewFloat64(asFloat64(v)), nil
	case ConvU4:
		return NewInt32(int32(uint32(asInt64(v)))), nil
	case ConvU8:
		return NewInt64(int64(uint64(asInt64(v)))), nil
	case ConvI1:
		return NewInt32(int32(int8(asInt64(v)))), nil
	case ConvU1:
		return NewInt32(int32(uint8(asInt64(v)))), nil
	case ConvI2:
		return NewInt32(int32(int16(asInt64(v)))), nil
	case ConvU2:
		return NewInt32(int32(uint16(asInt64(v)))), nil
	default:
		return NoneValue, clrerror.New(clrerror.Internal, "conv: unsupported target kind %d", to)
	}
}
