package metadata

import (
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/value"
)

// Type is the external, immutable type descriptor the core consumes (spec
// §3.3): namespace, simple name, is-interface flag, ordered field and
// method lists, and the owning assembly. Two descriptors naming the same
// underlying type are always the same *Type pointer (built once per
// assembly), so the resolver's identity comparisons hold.
type Type struct {
	Namespace   string
	Name        string
	IsInterface bool
	Fields      []*Field
	Methods     []*Method
	Assembly    *Assembly

	extends      uint32 // raw TypeDefOrRef coded index, for future base-type walks
	baseTypeName string // simple name of the base type; no code in this package sets or reads it
}

// FullName returns "Namespace.Name", or just "Name" for the global
// namespace, satisfying value.TypeDescriptor and heap.TypeDescriptor.
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// InstanceFields satisfies heap.TypeDescriptor: the non-static fields this
// type declares, in declaration order.
func (t *Type) InstanceFields() []heap.FieldInfo {
	out := make([]heap.FieldInfo, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.IsStatic {
			continue
		}
		out = append(out, heap.FieldInfo{Name: f.Name, Kind: f.Kind})
	}
	return out
}

// MethodByName returns the first method of the given name declared
// directly on this type, or nil.
func (t *Type) MethodByName(name string) *Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FieldByName returns the field of the given name declared directly on
// this type, or nil.
func (t *Type) FieldByName(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field is the external field descriptor (spec §3.3): name, declaring
// type, and a kind tag derived from its signature.
type Field struct {
	Name          string
	DeclaringType *Type
	Kind          value.Kind
	IsStatic      bool
}

// Method is the external method descriptor (spec §3.3): name, declaring
// type, signature, RVA (0 = extern), and the three dispatch flags the
// interpreter core branches on.
type Method struct {
	Name          string
	DeclaringType *Type
	Sig           MethodSig
	RVA           uint32

	IsStatic               bool
	IsInternalCall         bool
	IsImplementedByRuntime bool

	asm        *Assembly
	body       *Body
	bodyErr    error
	bodyLoaded bool
}

// FullName satisfies value.MethodDescriptor.
func (m *Method) FullName() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return m.DeclaringType.FullName() + "." + m.Name
}

// ParameterCount is the declared parameter count (the receiver, if any, is
// not counted: spec §4.4 keeps hasThis separate from parameterCount).
func (m *Method) ParameterCount() int { return len(m.Sig.Params) }

// HasThis reports whether the method's signature carries an implicit
// receiver.
func (m *Method) HasThis() bool { return m.Sig.HasThis }

// ReturnsValue reports whether the method's signature declares a non-void
// return.
func (m *Method) ReturnsValue() bool { return m.Sig.Return.Kind != value.None }

// Body lazily decodes and caches the method's IL instruction stream. A
// method with RVA 0 (extern / internal call) has no body and this returns
// a zero Body with a nil error.
func (m *Method) Body() (Body, error) {
	if m.bodyLoaded {
		return *m.body, m.bodyErr
	}
	m.bodyLoaded = true
	if m.RVA == 0 || m.asm == nil || m.asm.file == nil {
		m.body = &Body{}
		return *m.body, nil
	}
	b, err := decodeBody(m.asm.file, m.RVA)
	m.body = &b
	m.bodyErr = err
	return b, err
}

// CanonicalInternalName computes the canonical registry key for an
// internal or runtime-implemented method, per spec §4.5: for
// isImplementedByRuntime, "DeclaringType.Replace('.','_').MethodName_impl";
// otherwise just the bare method name.
func (m *Method) CanonicalInternalName() string {
	if m.IsImplementedByRuntime {
		declaring := ""
		if m.DeclaringType != nil {
			declaring = m.DeclaringType.FullName()
		}
		replaced := make([]byte, len(declaring))
		for i := 0; i < len(declaring); i++ {
			if declaring[i] == '.' {
				replaced[i] = '_'
			} else {
				replaced[i] = declaring[i]
			}
		}
		return string(replaced) + "." + m.Name + "_impl"
	}
	return m.Name
}
