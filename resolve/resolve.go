// Package resolve implements the method resolver (spec §4.4): turning a
// call site's symbolic (namespace, class, method, signature, RVA) tuple
// into a concrete *metadata.Method, plus the positional parameter-slicing
// rule every call/callvirt/newobj site uses to pull its arguments off the
// caller's evaluation stack.
package resolve

import (
	"strings"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
	"github.com/samber/lo"
)

// Resolver holds the hash index (DESIGN.md §9) built lazily, once per
// assembly, the first time that assembly is searched by name.
type Resolver struct {
	assemblies []*metadata.Assembly
	indexes    map[*metadata.Assembly]map[string]*metadata.Method
}

// New returns a Resolver over the given set of loaded assemblies (mscorlib
// first, per the loader's convention).
func New(assemblies ...*metadata.Assembly) *Resolver {
	return &Resolver{assemblies: assemblies, indexes: make(map[*metadata.Assembly]map[string]*metadata.Method)}
}

// AddAssembly registers a newly loaded assembly so later resolutions can
// see it.
func (r *Resolver) AddAssembly(a *metadata.Assembly) {
	r.assemblies = append(r.assemblies, a)
}

// FindType looks up a type by namespace and simple name across every loaded
// assembly, in load order (mscorlib first). Used by newobj to turn a call
// site's symbolic class name into the descriptor the heap needs to
// allocate an instance.
func (r *Resolver) FindType(namespace, class string) (*metadata.Type, bool) {
	full := class
	if namespace != "" {
		full = namespace + "." + class
	}
	for _, asm := range r.assemblies {
		if t, ok := asm.TypeByFullName(full); ok {
			return t, true
		}
	}
	return nil, false
}

// Options carries the dispatch-kind flags and, for a virtual call, the
// receiver's declared (runtime) type for step 4's interface/override
// redirect.
type Options struct {
	Virtual       bool
	IsConstructor bool
	ReceiverType  *metadata.Type
}

// Resolve implements the spec §4.4 resolution order. The boolean result is
// true when the call site is the recognised System.Object..ctor no-op
// sentinel (step 2); callers should skip invoking a method entirely in
// that case.
func (r *Resolver) Resolve(site metadata.CallSite, opts Options) (*metadata.Method, bool, error) {
	// Step 1: the token already named a concrete method (MethodDef token in
	// the declaring assembly) or an RVA match was supplied directly.
	if site.Method != nil {
		return r.redirectVirtual(site.Method, opts), false, nil
	}
	if site.RVA != 0 {
		if m := r.findByRVA(site); m != nil {
			return r.redirectVirtual(m, opts), false, nil
		}
	}

	// Step 2: System.Object..ctor is a recognised no-op.
	if site.Namespace == "System" && site.ClassName == "Object" && site.MethodName == ".ctor" {
		return nil, true, nil
	}

	// Step 3: search loaded assemblies by (name, namespace, simple name,
	// signature).
	if m := r.findByName(site); m != nil {
		return r.redirectVirtual(m, opts), false, nil
	}

	fq := site.Namespace + "." + site.ClassName + "." + site.MethodName
	return nil, false, clrerror.New(clrerror.MethodNotFound, "%s%s", fq, signatureSuffix(site.Signature))
}

func signatureSuffix(sig metadata.MethodSig) string {
	parts := lo.Map(sig.Params, func(p metadata.ParamSig, _ int) string {
		return p.Kind.String()
	})
	return "(" + strings.Join(parts, ", ") + ")"
}

func (r *Resolver) findByRVA(site metadata.CallSite) *metadata.Method {
	for _, asm := range r.assemblies {
		if m := asm.MethodByRVA(site.RVA); m != nil {
			if m.Name == site.MethodName && m.DeclaringType.FullName() == site.Namespace+"."+site.ClassName {
				return m
			}
		}
	}
	return nil
}

func (r *Resolver) findByName(site metadata.CallSite) *metadata.Method {
	want := site.Namespace + "." + site.ClassName + "." + site.MethodName
	for _, asm := range r.assemblies {
		idx := r.indexFor(asm)
		m, ok := idx[want]
		if !ok {
			continue
		}
		if sameShape(m.Sig, site.Signature) {
			return m
		}
		if m.DeclaringType != nil {
			for _, cand := range m.DeclaringType.Methods {
				if cand.Name == m.Name && sameShape(cand.Sig, site.Signature) {
					return cand
				}
			}
		}
	}
	return nil
}

// indexFor builds (once) and caches a name->method hash index for an
// assembly, per DESIGN.md §9's "back it with a hash index built once per
// assembly" decision. Overloaded names collide on purpose: the index keeps
// the first method of each name, and findByName disambiguates by parameter
// count (sameShape), scanning that method's declaring type for the other
// overloads when the indexed one does not match.
func (r *Resolver) indexFor(asm *metadata.Assembly) map[string]*metadata.Method {
	if idx, ok := r.indexes[asm]; ok {
		return idx
	}
	idx := make(map[string]*metadata.Method)
	for _, t := range asm.Types {
		for _, m := range t.Methods {
			key := t.FullName() + "." + m.Name
			if _, exists := idx[key]; !exists {
				idx[key] = m
			}
		}
	}
	r.indexes[asm] = idx
	return idx
}

func sameShape(a, b metadata.MethodSig) bool {
	return len(a.Params) == len(b.Params)
}

// redirectVirtual implements step 4: for a virtual call whose receiver's
// declared type is known, rescan that type for a method of the same name
// and prefer it over the statically resolved target. This also handles
// the Animal/Dog override case: any callvirt is a candidate for redirect,
// not only interface dispatch, since the spec's receiver-type rescan is
// the only dynamic-dispatch mechanism the engine has.
func (r *Resolver) redirectVirtual(m *metadata.Method, opts Options) *metadata.Method {
	if !opts.Virtual || opts.ReceiverType == nil {
		return m
	}
	if override := opts.ReceiverType.MethodByName(m.Name); override != nil {
		return override
	}
	return m
}

// SliceArgs implements the positional parameter-slicing rule (spec §4.4 /
// Open Question 4): the top len(m.Sig.Params) values on the stack are the
// parameters in declaration order, and if the method hasThis, is not a
// constructor, and is not static, the slot immediately below them is the
// receiver. Returns the remaining stack (with the receiver and parameters
// removed) plus the extracted receiver (value.NoneValue if hasReceiver is
// false) and parameters.
func SliceArgs(stack []value.Value, m *metadata.Method, isCtor bool) (remaining []value.Value, receiver value.Value, hasReceiver bool, params []value.Value) {
	n := len(m.Sig.Params)
	if n > len(stack) {
		n = len(stack)
	}
	split := len(stack) - n
	params = append(params, stack[split:]...)
	remaining = stack[:split]

	hasReceiver = m.Sig.HasThis && !isCtor && !m.IsStatic
	if hasReceiver && len(remaining) > 0 {
		receiver = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	} else {
		receiver = value.NoneValue
		hasReceiver = false
	}
	return remaining, receiver, hasReceiver, params
}
