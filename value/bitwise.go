package value

import "github.com/clrlite/clrlite/clrerror"

// And, Or, Xor, Not, Shl, and Shr implement the bitwise and shift opcode
// group from spec §4.5, which requires both operands be Int32.

func requireInt32(v Value, op string) (int32, error) {
	if v.Kind != Int32 {
		return 0, clrerror.New(clrerror.Internal, "%s: operand must be Int32, got %s", op, v.Kind)
	}
	return v.Int32(), nil
}

func And(a, b Value) (Value, error) {
	x, err := requireInt32(a, "and")
	if err != nil {
		return NoneValue, err
	}
	y, err := requireInt32(b, "and")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(x & y), nil
}

func Or(a, b Value) (Value, error) {
	x, err := requireInt32(a, "or")
	if err != nil {
		return NoneValue, err
	}
	y, err := requireInt32(b, "or")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(x | y), nil
}

func Xor(a, b Value) (Value, error) {
	x, err := requireInt32(a, "xor")
	if err != nil {
		return NoneValue, err
	}
	y, err := requireInt32(b, "xor")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(x ^ y), nil
}

func Not(a Value) (Value, error) {
	x, err := requireInt32(a, "not")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(^x), nil
}

func Shl(a, b Value) (Value, error) {
	x, err := requireInt32(a, "shl")
	if err != nil {
		return NoneValue, err
	}
	n, err := requireInt32(b, "shl")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(x << uint32(n&31)), nil
}

func Shr(a, b Value) (Value, error) {
	x, err := requireInt32(a, "shr")
	if err != nil {
		return NoneValue, err
	}
	n, err := requireInt32(b, "shr")
	if err != nil {
		return NoneValue, err
	}
	return NewInt32(x >> uint32(n&31)), nil
}
