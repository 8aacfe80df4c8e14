// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// ImageDOSHeader is the handful of MS-DOS stub fields this engine actually
// uses. Every PE file still carries the full legacy DOS header left over
// from 16-bit Windows, but a CIL interpreter never runs the stub and never
// reports it back to a caller: only the magic number (confirming this is an
// MZ-shaped file at all) and e_lfanew (the file offset of the real NT
// headers) are load-bearing here.
type ImageDOSHeader struct {
	// Magic number.
	Magic uint16 `json:"magic"`

	// AddressOfNewEXEHeader is e_lfanew: the file offset of the NT headers.
	AddressOfNewEXEHeader uint32 `json:"address_of_new_exe_header"`
}

// dosHeaderELfanewOffset is the fixed byte offset of e_lfanew within the DOS
// header, true regardless of the legacy fields in between that this engine
// never reads.
const dosHeaderELfanewOffset = 0x3c

// ParseDOSHeader reads the two DOS-header fields this engine needs straight
// off their fixed offsets, rather than mirroring the full stub layout field
// by field: nothing downstream asks for BytesOnLastPageOfFile, checksum,
// overlay number, or any of the other legacy fields a real MS-DOS loader
// would have cared about.
func (pe *File) ParseDOSHeader() (err error) {
	magic, err := pe.ReadUint16(0)
	if err != nil {
		return err
	}
	pe.DOSHeader.Magic = magic

	// It can be ZM on an (non-PE) EXE.
	// These executables still work under XP via ntvdm.
	if pe.DOSHeader.Magic != ImageDOSSignature &&
		pe.DOSHeader.Magic != ImageDOSZMSignature {
		return ErrDOSMagicNotFound
	}

	elfanew, err := pe.ReadUint32(dosHeaderELfanewOffset)
	if err != nil {
		return err
	}
	pe.DOSHeader.AddressOfNewEXEHeader = elfanew

	// `e_lfanew` is the only required element (besides the signature) of the
	// DOS header to turn the EXE into a PE. It is a relative offset to the
	// NT Headers. It can't be null (signatures would overlap).
	// Can be 4 at minimum.
	if pe.DOSHeader.AddressOfNewEXEHeader < 4 ||
		pe.DOSHeader.AddressOfNewEXEHeader > pe.size {
		return ErrInvalidElfanewValue
	}

	// tiny pe has a e_lfanew of 4, which means the NT Headers is overlapping
	// the DOS Header.
	if pe.DOSHeader.AddressOfNewEXEHeader <= dosHeaderELfanewOffset {
		pe.Anomalies = append(pe.Anomalies, AnoPEHeaderOverlapDOSHeader)
	}

	pe.HasDOSHdr = true
	return nil
}
