// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

// The retrieval pack this engine was built from does not carry binary PE/CLI
// fixtures (mscorlib.dll, putty.exe, ...), so the header- and table-decoding
// logic below is exercised directly against hand-built values instead of a
// full New/Parse round trip against a file on disk. End-to-end coverage of
// assembly loading lives in the loader and engine packages, which build their
// fixtures as in-memory metadata rather than real PE binaries.

func TestIsDLLAndIsEXE(t *testing.T) {
	tests := []struct {
		name    string
		chars   uint16
		wantDLL bool
		wantEXE bool
	}{
		{"dll", ImageFileDLL | ImageFileExecutableImage, true, false},
		{"exe", ImageFileExecutableImage, false, true},
		{"neither", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{}
			f.NtHeader.FileHeader.Characteristics = ImageFileHeaderCharacteristicsType(tt.chars)

			if got := f.IsDLL(); got != tt.wantDLL {
				t.Errorf("IsDLL() = %v, want %v", got, tt.wantDLL)
			}
			if got := f.IsEXE(); got != tt.wantEXE {
				t.Errorf("IsEXE() = %v, want %v", got, tt.wantEXE)
			}
		})
	}
}

func TestMetadataTableIndexToString(t *testing.T) {
	tests := []struct {
		idx  int
		name string
	}{
		{Module, "Module"},
		{TypeDef, "TypeDef"},
		{MethodDef, "Method"},
		{AssemblyRef, "AssemblyRef"},
		{GenericParamConstraint, "GenericParamConstraint"},
		{-1, ""},
	}

	for _, tt := range tests {
		if got := MetadataTableIndexToString(tt.idx); got != tt.name {
			t.Errorf("MetadataTableIndexToString(%d) = %q, want %q", tt.idx, got, tt.name)
		}
	}
}

func TestGetMetadataStreamIndexSize(t *testing.T) {
	f := &File{}

	// Heaps bit vector with bit 0 set: #Strings indexes are 4 bytes wide,
	// #GUID and #Blob remain 2 bytes wide.
	f.CLR.MetadataTablesStreamHeader.Heaps = 0x1

	if got := f.GetMetadataStreamIndexSize(StringStream); got != 4 {
		t.Errorf("GetMetadataStreamIndexSize(StringStream) = %d, want 4", got)
	}
	if got := f.GetMetadataStreamIndexSize(GUIDStream); got != 2 {
		t.Errorf("GetMetadataStreamIndexSize(GUIDStream) = %d, want 2", got)
	}
	if got := f.GetMetadataStreamIndexSize(BlobStream); got != 2 {
		t.Errorf("GetMetadataStreamIndexSize(BlobStream) = %d, want 2", got)
	}
}

func TestGetCodedIndexSize(t *testing.T) {
	f := &File{
		CLR: CLRData{
			MetadataTables: map[int]*MetadataTable{
				TypeDef: {CountCols: 10},
				TypeRef: {CountCols: 5},
			},
		},
	}

	// idxTypeDefOrRef has 2 tag bits and covers TypeDef/TypeRef/TypeSpec; the
	// largest row count (10) fits comfortably under the 16-bit threshold, so
	// the coded index stays 2 bytes wide.
	if got := f.getCodedIndexSize(uint32(idxTypeDefOrRef.tagbits), idxTypeDefOrRef.idx...); got != 2 {
		t.Errorf("getCodedIndexSize(idxTypeDefOrRef) = %d, want 2", got)
	}

	// Pushing TypeDef's row count past the 2-tag-bit 16-bit boundary widens
	// the coded index to 4 bytes.
	f.CLR.MetadataTables[TypeDef].CountCols = 1 << 15
	if got := f.getCodedIndexSize(uint32(idxTypeDefOrRef.tagbits), idxTypeDefOrRef.idx...); got != 4 {
		t.Errorf("getCodedIndexSize(idxTypeDefOrRef) with large table = %d, want 4", got)
	}
}

func TestIsBitSet(t *testing.T) {
	var mask uint64 = 0b1010
	if !IsBitSet(mask, 1) {
		t.Error("IsBitSet(0b1010, 1) = false, want true")
	}
	if IsBitSet(mask, 0) {
		t.Error("IsBitSet(0b1010, 0) = true, want false")
	}
	if !IsBitSet(mask, 3) {
		t.Error("IsBitSet(0b1010, 3) = false, want true")
	}
}
