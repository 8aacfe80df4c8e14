package metadata_test

import (
	"testing"

	"github.com/clrlite/clrlite/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSyntheticHasConsoleWriteLine(t *testing.T) {
	asm := metadata.BuildSynthetic()

	console, ok := asm.TypeByFullName("System.Console")
	require.True(t, ok)

	m := console.MethodByName("WriteLine")
	require.NotNil(t, m)
	assert.True(t, m.IsInternalCall)
	assert.EqualValues(t, 0, m.RVA)
	assert.Equal(t, "WriteLine", m.CanonicalInternalName())
}

func TestBuildSyntheticExceptionHasMessageField(t *testing.T) {
	asm := metadata.BuildSynthetic()

	exc, ok := asm.TypeByFullName("System.Exception")
	require.True(t, ok)
	require.Len(t, exc.Fields, 1)
	assert.Equal(t, "_message", exc.Fields[0].Name)
}

func TestMethodBodyOfInternalCallIsEmpty(t *testing.T) {
	asm := metadata.BuildSynthetic()
	str, _ := asm.TypeByFullName("System.String")
	m := str.MethodByName("ToUpper")

	body, err := m.Body()
	require.NoError(t, err)
	assert.Empty(t, body.Instructions)
}
