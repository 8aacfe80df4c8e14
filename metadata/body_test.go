package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Branch targeting: a br.s encodes a signed 1-byte offset relative to the
// byte position immediately after the instruction, per spec §8.
func TestDecodeInstructionsBranchTarget(t *testing.T) {
	// nop(0x00); br.s +1 (0x2B,0x01) skipping the following nop; nop; ret.
	code := []byte{0x00, 0x2B, 0x01, 0x00, 0x2A}
	instrs, posIndex := decodeInstructions(code)

	require.Len(t, instrs, 4)
	br := instrs[1]
	assert.Equal(t, "br.s", br.Opcode)
	assert.Equal(t, 1, br.Position)
	assert.Equal(t, 2, br.Length)

	target := br.Position + br.Length + int(br.IntOp)
	assert.Equal(t, 4, target)
	assert.Equal(t, 3, posIndex[target])
	assert.Equal(t, "ret", instrs[posIndex[target]].Opcode)
}

func TestDecodeInstructionsConstantLoads(t *testing.T) {
	// ldc.i4.5; ldc.i4.s -10; ldc.r4 1.5f; ldstr token 0x70000001
	code := []byte{
		0x1B,
		0x1F, 0xF6, // -10 as int8
		0x22, 0x00, 0x00, 0xC0, 0x3F, // 1.5f little-endian
		0x72, 0x01, 0x00, 0x00, 0x70,
	}
	instrs, _ := decodeInstructions(code)
	require.Len(t, instrs, 4)

	assert.Equal(t, "ldc.i4.5", instrs[0].Opcode)
	assert.Equal(t, "ldc.i4.s", instrs[1].Opcode)
	assert.EqualValues(t, -10, instrs[1].IntOp)
	assert.Equal(t, "ldc.r4", instrs[2].Opcode)
	assert.InDelta(t, 1.5, instrs[2].FloatOp, 1e-6)
	assert.Equal(t, "ldstr", instrs[3].Opcode)
	assert.EqualValues(t, 0x70000001, instrs[3].Token)
}

func TestDecodeInstructionsTwoBytePrefix(t *testing.T) {
	code := []byte{0xFE, 0x01, 0xFE, 0x04}
	instrs, _ := decodeInstructions(code)
	require.Len(t, instrs, 2)
	assert.Equal(t, "ceq", instrs[0].Opcode)
	assert.Equal(t, "clt", instrs[1].Opcode)
}

func TestReadCompressedInteger(t *testing.T) {
	v, n := readCompressed([]byte{0x03})
	assert.EqualValues(t, 3, v)
	assert.Equal(t, 1, n)

	v, n = readCompressed([]byte{0x80 | 0x01, 0x2c})
	assert.EqualValues(t, 0x012c, v)
	assert.Equal(t, 2, n)
}
