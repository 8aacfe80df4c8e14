package pe

// ECMA-335 §II.24.2.6 coded indices pack a small table tag into the low bits
// of an index and pick 2 or 4 bytes for the whole value depending on whether
// the largest referenced table's row count still fits under the 16-bit
// index ceiling once the tag bits are carved out. Every metadata table row
// in dotnet_metadata_tables.go that points at "one of several other tables"
// (a MemberRefParent, a CustomAttributeType, ...) is encoded this way, so
// getCodedIndexSize/readFromMetadataStream below are load-bearing for nearly
// every parseMetadata*Table function in this package, not just the ones this
// engine's token resolver (metadata/token.go) ends up reading back.

const (
	// idxStringStream/idxGUIDStream/idxBlobStream are sentinel table indices
	// used only as codedidx.idx[0], offset past the real table index range
	// so they never collide with an actual ECMA-335 table number; they tell
	// getCodedIndexSize to size against a heap stream instead of a table.
	idxStringStream = iota + 100
	idxGUIDStream
	idxBlobStream
)

// codedidx describes one ECMA-335 coded index kind: how many low bits
// select the target table (tagbits) and which table indices it can select
// among (idx), used to compute how wide the index is for a given assembly.
type codedidx struct {
	tagbits uint8
	idx     []int
}

// Named per §II.24.2.6's coded index catalogue. Only a handful of these
// (idxTypeDefOrRef, idxMemberRefParent, idxResolutionScope,
// idxField/idxMethodDef/idxParam, idxString/idxBlob) are reached by the
// table rows this engine's
// metadata package actually reads back (TypeDef, TypeRef, Field, MethodDef,
// MemberRef, AssemblyRef); the rest stay defined because the tables that use
// them (Property, Event, DeclSecurity, ExportedType, GenericParam, ...)
// still get decoded by parseCLRHeaderDirectory to keep the metadata stream
// walk's offsets correct for the tables after them.
var (
	idxTypeDefOrRef        = codedidx{tagbits: 2, idx: []int{TypeDef, TypeRef, TypeSpec}}
	idxResolutionScope     = codedidx{tagbits: 2, idx: []int{Module, ModuleRef, AssemblyRef, TypeRef}}
	idxMemberRefParent     = codedidx{tagbits: 3, idx: []int{TypeDef, TypeRef, ModuleRef, MethodDef, TypeSpec}}
	idxHasConstant         = codedidx{tagbits: 2, idx: []int{Field, Param, Property}}
	idxHasCustomAttributes = codedidx{tagbits: 5, idx: []int{Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef, Module, Property, Event, StandAloneSig, ModuleRef, TypeSpec, Assembly, AssemblyRef, FileMD, ExportedType, ManifestResource}}
	idxCustomAttributeType = codedidx{tagbits: 3, idx: []int{MethodDef, MemberRef}}
	idxHasFieldMarshall    = codedidx{tagbits: 1, idx: []int{Field, Param}}
	idxHasDeclSecurity     = codedidx{tagbits: 2, idx: []int{TypeDef, MethodDef, Assembly}}
	idxHasSemantics        = codedidx{tagbits: 1, idx: []int{Event, Property}}
	idxMethodDefOrRef      = codedidx{tagbits: 1, idx: []int{MethodDef, MemberRef}}
	idxMemberForwarded     = codedidx{tagbits: 1, idx: []int{Field, MethodDef}}
	idxImplementation      = codedidx{tagbits: 2, idx: []int{AssemblyRef, ExportedType}}
	idxTypeOrMethodDef     = codedidx{tagbits: 1, idx: []int{TypeDef, MethodDef}}

	idxField        = codedidx{tagbits: 0, idx: []int{Field}}
	idxMethodDef    = codedidx{tagbits: 0, idx: []int{MethodDef}}
	idxParam        = codedidx{tagbits: 0, idx: []int{Param}}
	idxTypeDef      = codedidx{tagbits: 0, idx: []int{TypeDef}}
	idxEvent        = codedidx{tagbits: 0, idx: []int{Event}}
	idxProperty     = codedidx{tagbits: 0, idx: []int{Property}}
	idxModuleRef    = codedidx{tagbits: 0, idx: []int{ModuleRef}}
	idxGenericParam = codedidx{tagbits: 0, idx: []int{GenericParam}}

	idxString = codedidx{tagbits: 0, idx: []int{idxStringStream}}
	idxBlob   = codedidx{tagbits: 0, idx: []int{idxBlobStream}}
	idxGUID   = codedidx{tagbits: 0, idx: []int{idxGUIDStream}}
)

// getCodedIndexSize returns 2 or 4 depending on whether the largest row
// count among the tables cidx can reference still fits in the bits left
// over after tagbits are carved out of a 16-bit index.
func (pe *File) getCodedIndexSize(tagbits uint32, idx ...int) uint32 {
	// special case String/GUID/Blob streams
	switch idx[0] {
	case int(idxStringStream):
		return uint32(pe.GetMetadataStreamIndexSize(StringStream))
	case int(idxGUIDStream):
		return uint32(pe.GetMetadataStreamIndexSize(GUIDStream))
	case int(idxBlobStream):
		return uint32(pe.GetMetadataStreamIndexSize(BlobStream))
	}

	// now deal with coded indices or single table
	var maxIndex16 uint32 = 1 << (16 - tagbits)
	var maxColumnCount uint32
	for _, tblidx := range idx {
		tbl, ok := pe.CLR.MetadataTables[tblidx]
		if ok {
			if tbl.CountCols > maxColumnCount {
				maxColumnCount = tbl.CountCols
			}
		}
	}
	if maxColumnCount > maxIndex16 {
		return 4
	}
	return 2
}

func (pe *File) readFromMetadataStream(cidx codedidx, off uint32, out *uint32) (uint32, error) {
	indexSize := pe.getCodedIndexSize(uint32(cidx.tagbits), cidx.idx...)
	var data uint32
	var err error
	switch indexSize {
	case 2:
		d, err := pe.ReadUint16(off)
		if err != nil {
			return 0, err
		}
		data = uint32(d)
	case 4:
		data, err = pe.ReadUint32(off)
		if err != nil {
			return 0, err
		}
	}

	*out = data
	return uint32(indexSize), nil
}
