package statics_test

import (
	"testing"

	"github.com/clrlite/clrlite/statics"
	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
)

// Static-field determinism: a field that has never been written reads as
// the kind-appropriate default every time, and that default is stable
// across repeated reads, per spec §8.
func TestStaticFieldDeterminism(t *testing.T) {
	s := statics.New()

	first := s.Load("Counter", "Total", value.Int32)
	second := s.Load("Counter", "Total", value.Int32)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 0, first.Int32())
}

func TestStaticFieldSetThenLoad(t *testing.T) {
	s := statics.New()

	s.Set("Counter", "Total", value.NewInt32(7))
	got := s.Load("Counter", "Total", value.Int32)
	assert.EqualValues(t, 7, got.Int32())
}

func TestStaticFieldsAreIsolatedByTypeName(t *testing.T) {
	s := statics.New()

	s.Set("A", "X", value.NewInt32(1))
	s.Set("B", "X", value.NewInt32(2))

	assert.EqualValues(t, 1, s.Load("A", "X", value.Int32).Int32())
	assert.EqualValues(t, 2, s.Load("B", "X", value.Int32).Int32())
}

func TestHasReflectsTouchedFields(t *testing.T) {
	s := statics.New()
	assert.False(t, s.Has("A", "X"))
	s.Load("A", "X", value.Int32)
	assert.True(t, s.Has("A", "X"))
}

func TestSnapshot(t *testing.T) {
	s := statics.New()
	s.Set("A", "X", value.NewInt32(1))

	snap := s.Snapshot()
	assert.Equal(t, int32(1), snap["A.X"].Int32())
}
