package metadata

import (
	"github.com/clrlite/clrlite/pe"
)

// Assembly is the owning collection of every type, method, and field
// decoded from one loaded module (or, for mscorlib, synthesised directly;
// spec §4.7 / SPEC_FULL.md §4.7). Types is ordered exactly as the TypeDef
// table declares them, which loader.go relies on when running .cctors "in
// load order".
type Assembly struct {
	Name string
	file *pe.File // nil for the synthetic built-in assembly

	Types        []*Type
	AssemblyRefs []string // simple names this assembly references, for the loader's transitive walk

	byFullName map[string]*Type
}

// TypeByFullName looks up a type by "Namespace.Name" (or bare "Name" for
// the global namespace).
func (a *Assembly) TypeByFullName(name string) (*Type, bool) {
	t, ok := a.byFullName[name]
	return t, ok
}

// File returns the backing pe.File this assembly was built from, or nil
// for the synthesised mscorlib, which has none. The engine uses this to
// read the COR20 header's entry-point token; nothing in package metadata
// itself needs the file again once Build has run.
func (a *Assembly) File() *pe.File {
	return a.file
}

// MethodByRVA linearly scans every type's methods for one whose RVA
// matches; used by the resolver's step 1 (spec §4.4). Resolution is
// expected to be rare enough (once per unique call site, cached by the
// resolver's hash index) that this does not need its own index.
func (a *Assembly) MethodByRVA(rva uint32) *Method {
	if rva == 0 {
		return nil
	}
	for _, t := range a.Types {
		for _, m := range t.Methods {
			if m.RVA == rva {
				return m
			}
		}
	}
	return nil
}

// Build decodes every TypeDef, Field, and MethodDef row in f's metadata
// tables into an Assembly's type graph. f must already have had
// Parse/ParseDataDirectories run so f.CLR is populated.
func Build(f *pe.File, name string) (*Assembly, error) {
	asm := &Assembly{Name: name, file: f, byFullName: make(map[string]*Type)}

	typeDefs, _ := tableRows[pe.TypeDefTableRow](f, pe.TypeDef)
	fields, _ := tableRows[pe.FieldTableRow](f, pe.Field)
	methods, _ := tableRows[pe.MethodDefTableRow](f, pe.MethodDef)
	asmRefs, _ := tableRows[pe.AssemblyRefTableRow](f, pe.AssemblyRef)

	for _, row := range asmRefs {
		asm.AssemblyRefs = append(asm.AssemblyRefs, stringAt(f, row.Name))
	}

	for i, row := range typeDefs {
		t := &Type{
			Namespace:   stringAt(f, row.TypeNamespace),
			Name:        stringAt(f, row.TypeName),
			IsInterface: row.Flags&0x00000020 != 0, // tdInterface
			Assembly:    asm,
			extends:     row.Extends,
		}

		fieldEnd := len(fields)
		methodEnd := len(methods)
		if i+1 < len(typeDefs) {
			fieldEnd = int(typeDefs[i+1].FieldList) - 1
			methodEnd = int(typeDefs[i+1].MethodList) - 1
		}
		for fi := int(row.FieldList) - 1; fi >= 0 && fi < fieldEnd && fi < len(fields); fi++ {
			fr := fields[fi]
			sig := ParseFieldSignature(blobAt(f, fr.Signature))
			t.Fields = append(t.Fields, &Field{
				Name:          stringAt(f, fr.Name),
				DeclaringType: t,
				Kind:          sig.Kind,
				IsStatic:      fr.Flags&0x0010 != 0, // fdStatic
			})
		}
		for mi := int(row.MethodList) - 1; mi >= 0 && mi < methodEnd && mi < len(methods); mi++ {
			mr := methods[mi]
			implCodeType := mr.ImplFlags & 0x0003
			m := &Method{
				Name:                   stringAt(f, mr.Name),
				DeclaringType:          t,
				Sig:                    ParseMethodSignature(blobAt(f, mr.Signature)),
				RVA:                    mr.RVA,
				IsStatic:               mr.Flags&0x0010 != 0, // mdStatic
				IsInternalCall:         mr.ImplFlags&0x1000 != 0,
				IsImplementedByRuntime: implCodeType == 0x0003, // miRuntime
				asm:                    asm,
			}
			t.Methods = append(t.Methods, m)
		}

		asm.Types = append(asm.Types, t)
		asm.byFullName[t.FullName()] = t
	}

	return asm, nil
}

// tableRows fetches a parsed table's Content as the concrete row slice
// type the corresponding parseMetadata*Table function produced, per
// pe.MetadataTable's "Content abstracts the type each table is pointing
// to" contract. Returns nil, false if the table is absent (not every
// assembly populates every table).
func tableRows[T any](f *pe.File, tableIndex int) ([]T, bool) {
	if f == nil {
		return nil, false
	}
	tbl, ok := f.CLR.MetadataTables[tableIndex]
	if !ok || tbl == nil {
		return nil, false
	}
	rows, ok := tbl.Content.([]T)
	return rows, ok
}
