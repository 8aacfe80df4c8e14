package metadata

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/pe"
)

var errUnknownToken = clrerror.New(clrerror.Internal, "metadata: unresolvable token")

// CallSite is the symbolic description of a call/callvirt/newobj operand,
// decoded from its metadata token (spec §4.4's resolver input): a
// namespace, simple class name, method name, and signature, plus the RVA
// if the token already names a concrete local method.
type CallSite struct {
	Namespace  string
	ClassName  string
	MethodName string
	Signature  MethodSig
	RVA        uint32  // non-zero when the token already identifies a concrete MethodDef
	Method     *Method // set when RVA-based or direct resolution already found the target
}

// memberRefParent mirrors pe's unexported MemberRefParent coded index:
// tag 0 TypeDef, 1 TypeRef, 2 ModuleRef, 3 MethodDef, 4 TypeSpec.
const (
	memberRefParentTagBits = 3
)

var memberRefParentTables = []int{pe.TypeDef, pe.TypeRef, pe.ModuleRef, pe.MethodDef, pe.TypeSpec}

func decodeCoded(raw uint32, tagBits uint, tables []int) (table int, rid uint32) {
	mask := uint32(1)<<tagBits - 1
	tag := raw & mask
	rid = raw >> tagBits
	if int(tag) < len(tables) {
		table = tables[tag]
	} else {
		table = -1
	}
	return
}

// ResolveToken decodes a call-instruction metadata token into a CallSite.
// Tokens naming a MethodDef in this same assembly resolve directly to a
// concrete *Method (CallSite.Method set, RVA carried through); MemberRef
// tokens (the common case for calls into another assembly, including
// mscorlib) decode into the symbolic (namespace, class, method, signature)
// tuple the resolver's step 3 searches on.
func (a *Assembly) ResolveToken(token uint32) (CallSite, error) {
	table := int(token >> 24)
	rid := token & 0x00FFFFFF

	switch table {
	case pe.MethodDef:
		m := a.methodByRID(rid)
		if m == nil {
			return CallSite{}, errUnknownToken
		}
		return CallSite{
			Namespace:  m.DeclaringType.Namespace,
			ClassName:  m.DeclaringType.Name,
			MethodName: m.Name,
			Signature:  m.Sig,
			RVA:        m.RVA,
			Method:     m,
		}, nil

	case pe.MemberRef:
		rows, ok := tableRows[pe.MemberRefTableRow](a.file, pe.MemberRef)
		if !ok || rid == 0 || int(rid) > len(rows) {
			return CallSite{}, errUnknownToken
		}
		row := rows[rid-1]
		ns, cls := a.resolveMemberRefParent(row.Class)
		return CallSite{
			Namespace:  ns,
			ClassName:  cls,
			MethodName: stringAt(a.file, row.Name),
			Signature:  ParseMethodSignature(blobAt(a.file, row.Signature)),
		}, nil

	default:
		return CallSite{}, errUnknownToken
	}
}

// userStringTableTag is the pseudo-table byte ECMA-335 reserves for
// tokens naming an offset into the #US (user string) heap, as emitted by
// ldstr.
const userStringTableTag = 0x70

// ResolveUserString decodes an ldstr operand token into its literal text.
func (a *Assembly) ResolveUserString(token uint32) (string, error) {
	if int(token>>24) != userStringTableTag {
		return "", errUnknownToken
	}
	return userStringAt(a.file, token&0x00FFFFFF), nil
}

// ResolveTypeToken decodes a TypeDef or TypeRef metadata token (as used by
// newarr, box, ldtoken, initobj) into a namespace/name pair. Any other token,
// including a TypeSpec, yields two empty strings.
func (a *Assembly) ResolveTypeToken(token uint32) (namespace, name string) {
	table := int(token >> 24)
	rid := token & 0x00FFFFFF

	switch table {
	case pe.TypeDef:
		if t := a.typeByRID(rid); t != nil {
			return t.Namespace, t.Name
		}
	case pe.TypeRef:
		rows, ok := tableRows[pe.TypeRefTableRow](a.file, pe.TypeRef)
		if ok && rid > 0 && int(rid) <= len(rows) {
			row := rows[rid-1]
			return stringAt(a.file, row.TypeNamespace), stringAt(a.file, row.TypeName)
		}
	}
	return "", ""
}

// ResolveFieldToken decodes an ldfld/stfld/ldsfld/stsfld metadata token into
// a Field descriptor. A FieldDef token resolves directly; a MemberRef token
// (a field declared in another assembly) resolves by walking to the
// referenced type, falling back to a symbolic descriptor built from the
// MemberRef's own signature if that type cannot be found locally (the
// common case for a field declared on a type this assembly only refers to
// by name).
func (a *Assembly) ResolveFieldToken(token uint32) (*Field, error) {
	table := int(token >> 24)
	rid := token & 0x00FFFFFF

	switch table {
	case pe.Field:
		f := a.fieldByRID(rid)
		if f == nil {
			return nil, errUnknownToken
		}
		return f, nil

	case pe.MemberRef:
		rows, ok := tableRows[pe.MemberRefTableRow](a.file, pe.MemberRef)
		if !ok || rid == 0 || int(rid) > len(rows) {
			return nil, errUnknownToken
		}
		row := rows[rid-1]
		ns, cls := a.resolveMemberRefParent(row.Class)
		name := stringAt(a.file, row.Name)
		full := cls
		if ns != "" {
			full = ns + "." + cls
		}
		if t, ok := a.byFullName[full]; ok {
			if fld := t.FieldByName(name); fld != nil {
				return fld, nil
			}
		}
		sig := ParseFieldSignature(blobAt(a.file, row.Signature))
		return &Field{Name: name, Kind: sig.Kind, DeclaringType: &Type{Namespace: ns, Name: cls}}, nil

	default:
		return nil, errUnknownToken
	}
}

// fieldByRID returns the field whose 1-based Field table row index is rid.
func (a *Assembly) fieldByRID(rid uint32) *Field {
	if rid == 0 {
		return nil
	}
	i := uint32(1)
	for _, t := range a.Types {
		for _, f := range t.Fields {
			if i == rid {
				return f
			}
			i++
		}
	}
	return nil
}

func (a *Assembly) resolveMemberRefParent(raw uint32) (namespace, class string) {
	table, rid := decodeCoded(raw, memberRefParentTagBits, memberRefParentTables)
	switch table {
	case pe.TypeDef:
		if t := a.typeByRID(rid); t != nil {
			return t.Namespace, t.Name
		}
	case pe.TypeRef:
		rows, ok := tableRows[pe.TypeRefTableRow](a.file, pe.TypeRef)
		if ok && rid > 0 && int(rid) <= len(rows) {
			row := rows[rid-1]
			return stringAt(a.file, row.TypeNamespace), stringAt(a.file, row.TypeName)
		}
	}
	return "", ""
}

// methodByRID returns the method whose 1-based MethodDef table row index
// is rid, in table declaration order (TypeDef rows are walked in order, so
// this matches the MethodList slicing Build used).
func (a *Assembly) methodByRID(rid uint32) *Method {
	if a.file == nil || rid == 0 {
		return nil
	}
	i := uint32(1)
	for _, t := range a.Types {
		for _, m := range t.Methods {
			if i == rid {
				return m
			}
			i++
		}
	}
	return nil
}

// typeByRID returns the type whose 1-based TypeDef table row index is rid.
func (a *Assembly) typeByRID(rid uint32) *Type {
	if rid == 0 || int(rid) > len(a.Types) {
		return nil
	}
	return a.Types[rid-1]
}
