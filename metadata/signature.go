package metadata

import "github.com/clrlite/clrlite/value"

// Element-type tags from ECMA-335 §II.23.1.16, the subset this engine
// needs to turn a signature blob into value.Kind tags.
const (
	elemVoid       = 0x01
	elemBoolean    = 0x02
	elemChar       = 0x03
	elemI1         = 0x04
	elemU1         = 0x05
	elemI2         = 0x06
	elemU2         = 0x07
	elemI4         = 0x08
	elemU4         = 0x09
	elemI8         = 0x0a
	elemU8         = 0x0b
	elemR4         = 0x0c
	elemR8         = 0x0d
	elemString     = 0x0e
	elemPtr        = 0x0f
	elemByRef      = 0x10
	elemValueType  = 0x11
	elemClass      = 0x12
	elemArray      = 0x14
	elemI          = 0x18
	elemU          = 0x19
	elemFnPtr      = 0x1b
	elemObject     = 0x1c
	elemSZArray    = 0x1d
	elemCModReqd   = 0x1f
	elemCModOpt    = 0x20
	elemSentinel   = 0x41
	elemPinned     = 0x45
	sigHasThis     = 0x20
	sigExplicit    = 0x40
	sigCallConvMsk = 0x0f
)

// ParamSig is one parameter or return slot of a decoded signature.
type ParamSig struct {
	Kind      value.Kind
	TypeToken uint32 // raw TypeDefOrRef coded index, for Object/Array element kinds; 0 otherwise
}

// MethodSig is a decoded method signature blob (spec §3.3's "signature
// producing parameter kinds/return kind/hasThis").
type MethodSig struct {
	HasThis      bool
	ExplicitThis bool
	Params       []ParamSig
	Return       ParamSig // Kind == None marks void
}

// ParseMethodSignature decodes a MethodDef/MemberRef signature blob.
func ParseMethodSignature(blob []byte) MethodSig {
	var sig MethodSig
	if len(blob) == 0 {
		return sig
	}
	flags := blob[0]
	sig.HasThis = flags&sigHasThis != 0
	sig.ExplicitThis = flags&sigExplicit != 0
	rest := blob[1:]

	paramCount, n := readCompressed(rest)
	rest = rest[n:]

	sig.Return, rest = parseType(rest)
	sig.Params = make([]ParamSig, 0, paramCount)
	for i := uint32(0); i < paramCount && len(rest) > 0; i++ {
		var p ParamSig
		p, rest = parseType(rest)
		sig.Params = append(sig.Params, p)
	}
	return sig
}

// ParseFieldSignature decodes a Field table signature blob (leading FIELD
// tag 0x06 followed by a single type).
func ParseFieldSignature(blob []byte) ParamSig {
	if len(blob) == 0 {
		return ParamSig{}
	}
	rest := blob
	if rest[0] == 0x06 {
		rest = rest[1:]
	}
	p, _ := parseType(rest)
	return p
}

// parseType consumes one type off the front of a signature blob, skipping
// custom modifiers and BYREF/PINNED markers the core has no use for, and
// returns the remaining bytes.
func parseType(b []byte) (ParamSig, []byte) {
	for len(b) > 0 {
		switch b[0] {
		case elemCModReqd, elemCModOpt:
			// followed by a compressed TypeDefOrRef token; skip it.
			b = b[1:]
			_, n := readCompressed(b)
			b = b[n:]
			continue
		case elemByRef, elemPinned, elemSentinel:
			b = b[1:]
			continue
		}
		break
	}
	if len(b) == 0 {
		return ParamSig{Kind: value.None}, b
	}

	tag := b[0]
	b = b[1:]
	switch tag {
	case elemVoid:
		return ParamSig{Kind: value.None}, b
	case elemBoolean:
		return ParamSig{Kind: value.Boolean}, b
	case elemChar, elemI1, elemU1, elemI2, elemU2, elemI4, elemU4:
		return ParamSig{Kind: value.Int32}, b
	case elemI8, elemU8:
		return ParamSig{Kind: value.Int64}, b
	case elemR4:
		return ParamSig{Kind: value.Float32}, b
	case elemR8:
		return ParamSig{Kind: value.Float64}, b
	case elemString:
		return ParamSig{Kind: value.String}, b
	case elemI, elemU, elemPtr, elemFnPtr:
		return ParamSig{Kind: value.IntPtr}, b
	case elemObject:
		return ParamSig{Kind: value.Object}, b
	case elemValueType, elemClass:
		token, n := readCompressed(b)
		b = b[n:]
		return ParamSig{Kind: value.Object, TypeToken: token}, b
	case elemSZArray:
		// element type follows; the engine does not track element kind
		// separately from the array handle (spec §3.1), so just skip it.
		_, b = parseType(b)
		return ParamSig{Kind: value.Array}, b
	case elemArray:
		// SZARRAY-like, plus ArrayShape; the supported programs only ever
		// emit single-dimensional arrays, so this is treated the same.
		_, b = parseType(b)
		return ParamSig{Kind: value.Array}, b
	default:
		return ParamSig{Kind: value.Object}, b
	}
}
