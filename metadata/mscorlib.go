package metadata

import "github.com/clrlite/clrlite/value"

// BuildSynthetic returns the built-in "mscorlib" assembly: a small,
// hand-authored type graph covering the base-library surface the engine
// re-implements (SPEC_FULL.md §4.7). It carries no pe.File — every method
// on it has RVA 0 and is routed to internalcalls by name, never
// interpreted as a body.
func BuildSynthetic() *Assembly {
	asm := &Assembly{Name: "mscorlib", byFullName: make(map[string]*Type)}

	object := newType(asm, "System", "Object")
	object.Methods = []*Method{
		internalMethod(object, "ToString", false, nil, value.String),
		internalMethod(object, ".ctor", false, nil, value.None),
		internalMethod(object, "GetType", false, nil, value.Object),
		internalMethod(object, "Equals", false, []value.Kind{value.Object}, value.Boolean),
	}

	str := newType(asm, "System", "String")
	str.Methods = []*Method{
		internalMethod(str, "Concat", true, []value.Kind{value.String, value.String}, value.String),
		internalMethod(str, "Substring", false, []value.Kind{value.Int32, value.Int32}, value.String),
		internalMethod(str, "ToUpper", false, nil, value.String),
		internalMethod(str, "ToLower", false, nil, value.String),
		internalMethod(str, "get_Length", false, nil, value.Int32),
		internalMethod(str, "Equals", false, []value.Kind{value.Object}, value.Boolean),
		internalMethod(str, "IndexOf", false, []value.Kind{value.String}, value.Int32),
		internalMethod(str, "ToString", false, nil, value.String),
	}

	i32 := newType(asm, "System", "Int32")
	i32.Methods = []*Method{
		internalMethod(i32, "Parse", true, []value.Kind{value.String}, value.Int32),
		internalMethod(i32, "ToString", false, nil, value.String),
	}

	console := newType(asm, "System", "Console")
	console.Methods = []*Method{
		internalMethod(console, "WriteLine", true, []value.Kind{value.String}, value.None),
		internalMethod(console, "Write", true, []value.Kind{value.String}, value.None),
		internalMethod(console, "ReadLine", true, nil, value.String),
	}

	array := newType(asm, "System", "Array")
	array.Methods = []*Method{
		internalMethod(array, "get_Length", false, nil, value.Int32),
	}

	exception := newType(asm, "System", "Exception")
	exception.Fields = []*Field{{Name: "_message", DeclaringType: exception, Kind: value.String}}
	exception.Methods = []*Method{
		internalMethod(exception, ".ctor", false, []value.Kind{value.String}, value.None),
		internalMethod(exception, "get_Message", false, nil, value.String),
	}

	typ := newType(asm, "System", "Type")
	typ.Fields = []*Field{
		{Name: "_name", DeclaringType: typ, Kind: value.String},
		{Name: "_namespace", DeclaringType: typ, Kind: value.String},
	}
	typ.Methods = []*Method{
		internalMethod(typ, "get_Name", false, nil, value.String),
		internalMethod(typ, "get_Namespace", false, nil, value.String),
	}

	runtimeTypeHandle := newType(asm, "System", "RuntimeTypeHandle")
	runtimeTypeHandle.Fields = []*Field{
		{Name: "_name", DeclaringType: runtimeTypeHandle, Kind: value.String},
		{Name: "_namespace", DeclaringType: runtimeTypeHandle, Kind: value.String},
	}

	intPtr := newType(asm, "System", "IntPtr")
	intPtr.Fields = []*Field{{Name: "PtrToMethod", DeclaringType: intPtr, Kind: value.MethodPtr}}

	boolean := newType(asm, "System", "Boolean")
	boolean.Methods = []*Method{internalMethod(boolean, "ToString", false, nil, value.String)}

	asm.Types = []*Type{object, str, i32, console, array, exception, typ, runtimeTypeHandle, intPtr, boolean}
	for _, t := range asm.Types {
		asm.byFullName[t.FullName()] = t
	}
	return asm
}

func newType(asm *Assembly, ns, name string) *Type {
	return &Type{Namespace: ns, Name: name, Assembly: asm}
}

func internalMethod(t *Type, name string, static bool, paramKinds []value.Kind, ret value.Kind) *Method {
	params := make([]ParamSig, len(paramKinds))
	for i, k := range paramKinds {
		params[i] = ParamSig{Kind: k}
	}
	return &Method{
		Name:          name,
		DeclaringType: t,
		Sig: MethodSig{
			HasThis: !static,
			Params:  params,
			Return:  ParamSig{Kind: ret},
		},
		RVA:            0,
		IsStatic:       static,
		IsInternalCall: true,
	}
}
