package interp

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/value"
)

// slicingShape returns a method descriptor good enough for
// resolve.SliceArgs's parameter-count and hasThis questions: the resolved
// target itself when the token named one directly, otherwise a throwaway
// descriptor built from the call site's own signature (the common case for
// a MemberRef into another assembly, including mscorlib).
func slicingShape(site metadata.CallSite) *metadata.Method {
	if site.Method != nil {
		return site.Method
	}
	return &metadata.Method{Sig: site.Signature, IsStatic: !site.Signature.HasThis}
}

// doCall implements `call` (isVirtual=false) and `callvirt` (isVirtual=true)
// per spec §4.4/§4.5: resolve the token's call site against the caller's
// own assembly, slice the operand stack for the receiver (if any) and
// parameters, resolve the target method, invoke it, and push a return
// value if the signature declares one.
func (in *Interpreter) doCall(f *frame, token uint32, isVirtual bool) error {
	asm := f.method.DeclaringType.Assembly
	site, err := asm.ResolveToken(token)
	if err != nil {
		return err
	}

	remaining, receiver, hasReceiver, params := resolve.SliceArgs(f.stack, slicingShape(site), false)
	f.stack = remaining

	opts := resolve.Options{Virtual: isVirtual}
	if hasReceiver && receiver.Type() != nil {
		if rt, ok := receiver.Type().(*metadata.Type); ok {
			opts.ReceiverType = rt
		}
	}

	m, noop, err := in.Resolver.Resolve(site, opts)
	if err != nil {
		return err
	}
	if noop {
		return nil
	}

	result, err := in.Invoke(m, params, receiver, hasReceiver)
	if err != nil {
		return err
	}
	if m.ReturnsValue() {
		f.push(result)
	}
	return nil
}

// doNewobj implements `newobj` per spec §4.5: allocate a fresh object of
// the constructor's declaring type, slice the constructor's own parameters
// (never a receiver: newobj supplies the instance itself, per DESIGN.md's
// Open Question 4 note), run the constructor, and push the new object.
func (in *Interpreter) doNewobj(f *frame, token uint32) error {
	asm := f.method.DeclaringType.Assembly
	site, err := asm.ResolveToken(token)
	if err != nil {
		return err
	}

	var typ *metadata.Type
	if site.Method != nil && site.Method.DeclaringType != nil {
		typ = site.Method.DeclaringType
	} else if t, ok := in.Resolver.FindType(site.Namespace, site.ClassName); ok {
		typ = t
	} else {
		return clrerror.New(clrerror.Internal, "newobj: unresolvable type %s.%s", site.Namespace, site.ClassName)
	}

	handle := in.Heap.AllocObject(typ)
	receiver := value.NewObject(handle, typ)

	remaining, _, _, params := resolve.SliceArgs(f.stack, slicingShape(site), true)
	f.stack = remaining

	m, noop, err := in.Resolver.Resolve(site, resolve.Options{IsConstructor: true})
	if err != nil {
		return err
	}
	if !noop {
		if _, err := in.Invoke(m, params, receiver, true); err != nil {
			return err
		}
	}

	f.push(receiver)
	return nil
}
