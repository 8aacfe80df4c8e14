package value_test

import (
	"math"
	"testing"

	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Numeric promotion: Op(Int32, Float32, Add) and Op(Float32, Int32, Add) both
// yield a Float32 within 1 ULP of float(a)+b, per spec §8.
func TestNumericPromotion(t *testing.T) {
	a := value.NewInt32(3)
	b := value.NewFloat32(2.5)

	got1, err := value.Op(a, b, value.Add)
	require.NoError(t, err)
	got2, err := value.Op(b, a, value.Add)
	require.NoError(t, err)

	assert.Equal(t, value.Float32, got1.Kind)
	assert.Equal(t, value.Float32, got2.Kind)
	assert.InDelta(t, float64(float32(3)+float32(2.5)), float64(got1.Float32()), 1e-6)
	assert.InDelta(t, float64(float32(3)+float32(2.5)), float64(got2.Float32()), 1e-6)
}

func TestOpPromotionInt32Int64(t *testing.T) {
	got, err := value.Op(value.NewInt32(5), value.NewInt64(10), value.Add)
	require.NoError(t, err)
	assert.Equal(t, value.Int64, got.Kind)
	assert.EqualValues(t, 15, got.Int64())
}

func TestIntegerDivisionByZeroFails(t *testing.T) {
	_, err := value.Op(value.NewInt32(1), value.NewInt32(0), value.Div)
	require.Error(t, err)
}

func TestFloatDivisionByZeroYieldsInf(t *testing.T) {
	got, err := value.Op(value.NewFloat64(1), value.NewFloat64(0), value.Div)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Float64(), 1))
}

func TestComparisons(t *testing.T) {
	got, err := value.Op(value.NewInt32(3), value.NewInt32(4), value.Lt)
	require.NoError(t, err)
	assert.True(t, got.Truthy())

	got, err = value.Op(value.NewInt32(4), value.NewInt32(4), value.Eq)
	require.NoError(t, err)
	assert.True(t, got.Truthy())
}

func TestCompareUnsigned(t *testing.T) {
	// -1 as an unsigned Int32 is the largest possible value, so it compares
	// greater than 1 under CompareUnsigned but less than 1 under signed Lt.
	neg1 := value.NewInt32(-1)
	one := value.NewInt32(1)

	signed, err := value.Op(neg1, one, value.Lt)
	require.NoError(t, err)
	assert.True(t, signed.Truthy())

	unsigned, err := value.CompareUnsigned(neg1, one, value.Gt)
	require.NoError(t, err)
	assert.True(t, unsigned.Truthy())
}

func TestTruthy(t *testing.T) {
	assert.False(t, value.NullValue.Truthy())
	assert.False(t, value.NewInt32(0).Truthy())
	assert.True(t, value.NewInt32(1).Truthy())
	assert.True(t, value.NewString("").Truthy())
}

func TestDefault(t *testing.T) {
	assert.Equal(t, int32(0), value.Default(value.Int32).Int32())
	assert.Equal(t, value.NullValue, value.Default(value.String))
	assert.False(t, value.Default(value.Boolean).Bool())
}

func TestConvert(t *testing.T) {
	v, err := value.Convert(value.NewInt32(-1), value.ConvU1)
	require.NoError(t, err)
	assert.EqualValues(t, 255, v.Int32())

	v, err = value.Convert(value.NewFloat64(3.9), value.ConvI4)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.Int32())
}

func TestBitwiseRequiresInt32(t *testing.T) {
	_, err := value.And(value.NewFloat32(1), value.NewInt32(1))
	require.Error(t, err)

	got, err := value.Shl(value.NewInt32(1), value.NewInt32(4))
	require.NoError(t, err)
	assert.EqualValues(t, 16, got.Int32())
}
