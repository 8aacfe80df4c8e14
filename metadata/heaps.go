// Package metadata turns the raw ECMA-335 tables the pe package decodes
// into the read-only descriptors the interpreter core consumes: types,
// methods, fields, signatures, and a decoded instruction stream per method
// body (spec §3.3). Everything here is "consumed, not implemented" from the
// core's point of view — resolve, interp, and internalcalls only ever see
// the descriptor types in this package, never a raw pe.File table row.
package metadata

import (
	"encoding/binary"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/pe"
)

// stringAt reads a null-terminated UTF-8 string from the #Strings heap at
// the given byte offset.
func stringAt(f *pe.File, offset uint32) string {
	heap := f.CLR.MetadataStreams["#Strings"]
	if heap == nil || int(offset) >= len(heap) {
		return ""
	}
	end := offset
	for int(end) < len(heap) && heap[end] != 0 {
		end++
	}
	return string(heap[offset:end])
}

// userStringAt reads a length-prefixed UTF-16LE string literal from the #US
// heap, as used by ldstr operands.
func userStringAt(f *pe.File, offset uint32) string {
	heap := f.CLR.MetadataStreams["#US"]
	if heap == nil || int(offset) >= len(heap) {
		return ""
	}
	length, n := readCompressed(heap[offset:])
	if length == 0 {
		return ""
	}
	start := int(offset) + n
	// The final byte is a trailing marker (bit 0 set if the string contains
	// non-ASCII content), not part of the UTF-16 payload.
	payloadLen := int(length) - 1
	if payloadLen < 0 || start+payloadLen > len(heap) {
		return ""
	}
	units := make([]uint16, payloadLen/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(heap[start+2*i:])
	}
	return string(utf16Decode(units))
}

func utf16Decode(units []uint16) []rune {
	var out []rune
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(units) {
			lo := rune(units[i+1])
			if lo >= 0xDC00 && lo <= 0xDFFF {
				r = ((r - 0xD800) << 10) + (lo - 0xDC00) + 0x10000
				i++
			}
		}
		out = append(out, r)
	}
	return out
}

// blobAt reads a length-prefixed blob from the #Blob heap, returning the
// blob payload (length prefix stripped).
func blobAt(f *pe.File, offset uint32) []byte {
	heap := f.CLR.MetadataStreams["#Blob"]
	if heap == nil || int(offset) >= len(heap) {
		return nil
	}
	length, n := readCompressed(heap[offset:])
	start := int(offset) + n
	end := start + int(length)
	if end > len(heap) {
		return nil
	}
	return heap[start:end]
}

// readCompressed decodes an ECMA-335 §II.23.2 compressed unsigned integer,
// returning its value and the number of bytes it occupied.
func readCompressed(b []byte) (uint32, int) {
	if len(b) == 0 {
		return 0, 0
	}
	first := b[0]
	switch {
	case first&0x80 == 0:
		return uint32(first), 1
	case first&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 1
		}
		return uint32(first&0x3F)<<8 | uint32(b[1]), 2
	default:
		if len(b) < 4 {
			return 0, 1
		}
		return uint32(first&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4
	}
}

var errHeapBounds = clrerror.New(clrerror.Internal, "metadata: heap read out of bounds")
