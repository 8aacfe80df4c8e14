package heap_test

import (
	"testing"

	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeType struct {
	name   string
	fields []heap.FieldInfo
}

func (f fakeType) FullName() string              { return f.name }
func (f fakeType) InstanceFields() []heap.FieldInfo { return f.fields }

var pointType = fakeType{
	name: "Point",
	fields: []heap.FieldInfo{
		{Name: "X", Kind: value.Int32},
		{Name: "Y", Kind: value.Int32},
		{Name: "Label", Kind: value.String},
	},
}

// Heap monotonicity: handles issued by the object and array stores are
// strictly increasing, and no two allocations of the same store share a
// handle, per spec §8.
func TestHeapMonotonicity(t *testing.T) {
	s := heap.New()

	h1 := s.AllocObject(pointType)
	h2 := s.AllocObject(pointType)
	h3 := s.AllocObject(pointType)
	assert.True(t, h1 < h2 && h2 < h3)

	a1 := s.AllocArray(3)
	a2 := s.AllocArray(5)
	assert.True(t, a1 < a2)
}

func TestAllocObjectDefaults(t *testing.T) {
	s := heap.New()
	h := s.AllocObject(pointType)

	x, err := s.LoadField(h, "X")
	require.NoError(t, err)
	assert.EqualValues(t, 0, x.Int32())

	label, err := s.LoadField(h, "Label")
	require.NoError(t, err)
	assert.Equal(t, value.NullValue, label)
}

func TestStoreAndLoadField(t *testing.T) {
	s := heap.New()
	h := s.AllocObject(pointType)

	require.NoError(t, s.StoreField(h, "X", value.NewInt32(42)))
	got, err := s.LoadField(h, "X")
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.Int32())
}

func TestLoadMissingFieldFails(t *testing.T) {
	s := heap.New()
	h := s.AllocObject(pointType)

	_, err := s.LoadField(h, "Z")
	require.Error(t, err)
}

func TestArrayBoundsChecked(t *testing.T) {
	s := heap.New()
	h := s.AllocArray(2)

	require.NoError(t, s.SetElement(h, 0, value.NewInt32(7)))
	got, err := s.GetElement(h, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.Int32())

	_, err = s.GetElement(h, 2)
	require.Error(t, err)
	err = s.SetElement(h, -1, value.NewInt32(0))
	require.Error(t, err)
}

func TestArrayDefaultsToNull(t *testing.T) {
	s := heap.New()
	h := s.AllocArray(3)

	for i := 0; i < 3; i++ {
		got, err := s.GetElement(h, i)
		require.NoError(t, err)
		assert.Equal(t, value.NullValue, got)
	}
}

func TestDiagnosticSnapshots(t *testing.T) {
	s := heap.New()
	s.AllocObject(pointType)
	s.AllocArray(4)

	assert.Len(t, s.Objects(), 1)
	assert.Len(t, s.Arrays(), 1)
}
