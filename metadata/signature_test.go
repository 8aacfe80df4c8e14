package metadata_test

import (
	"testing"

	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
)

// A static method taking (int32, string) and returning int32:
// [DEFAULT][paramCount=2][I4 ret][I4][STRING]
func TestParseMethodSignatureStatic(t *testing.T) {
	blob := []byte{0x00, 0x02, 0x08, 0x08, 0x0e}
	sig := metadata.ParseMethodSignature(blob)

	assert.False(t, sig.HasThis)
	assert.Equal(t, value.Int32, sig.Return.Kind)
	assert.Len(t, sig.Params, 2)
	assert.Equal(t, value.Int32, sig.Params[0].Kind)
	assert.Equal(t, value.String, sig.Params[1].Kind)
}

// An instance (HASTHIS) method taking no parameters and returning void.
func TestParseMethodSignatureInstanceVoid(t *testing.T) {
	blob := []byte{0x20, 0x00, 0x01}
	sig := metadata.ParseMethodSignature(blob)

	assert.True(t, sig.HasThis)
	assert.Equal(t, value.None, sig.Return.Kind)
	assert.Empty(t, sig.Params)
}

func TestParseFieldSignatureString(t *testing.T) {
	blob := []byte{0x06, 0x0e}
	sig := metadata.ParseFieldSignature(blob)
	assert.Equal(t, value.String, sig.Kind)
}

func TestParseFieldSignatureSZArrayOfInt(t *testing.T) {
	blob := []byte{0x06, 0x1d, 0x08}
	sig := metadata.ParseFieldSignature(blob)
	assert.Equal(t, value.Array, sig.Kind)
}
