// Package interp implements the interpreter core (spec §4.5): per-method
// frames, the evaluation stack, opcode dispatch, branching, calls, and
// returns. It is the largest single component of the engine, the way it is
// in spec.md's own component budget.
package interp

import (
	"sync/atomic"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/internalcalls"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/statics"
	"github.com/clrlite/clrlite/value"
)

// Interpreter owns the process-wide stores and the cooperative-cancellation
// flag (spec §5): an external caller may clear Running between opcodes.
type Interpreter struct {
	Heap      *heap.Store
	Statics   *statics.Store
	Resolver  *resolve.Resolver
	Internals *internalcalls.Registry
	Running   atomic.Bool

	ModuleName string
	callStack  []string
}

// New returns an Interpreter wired to the given stores, with Running already
// set so a fresh run proceeds until something stops it.
func New(h *heap.Store, s *statics.Store, r *resolve.Resolver, ic *internalcalls.Registry, moduleName string) *Interpreter {
	in := &Interpreter{Heap: h, Statics: s, Resolver: r, Internals: ic, ModuleName: moduleName}
	in.Running.Store(true)
	return in
}

// thrown is a managed exception raised by the `throw` opcode, distinct from
// an engine-level clrerror.Error: it carries the thrown object itself so an
// enclosing catch region (Open Question 3) can inspect its declared type.
type thrown struct {
	obj     value.Value
	message string
}

func (t *thrown) Error() string { return t.message }

// Invoke calls a resolved method descriptor. A nil method is the resolver's
// System.Object..ctor no-op sentinel (spec §4.4 step 2). Internal and
// runtime-implemented methods are routed to the registry rather than
// interpreted; the receiver, when present, is prepended to the parameter
// slice handed to the callback, so callbacks see a single ordered argument
// list regardless of dispatch kind.
func (in *Interpreter) Invoke(m *metadata.Method, args []value.Value, receiver value.Value, hasReceiver bool) (value.Value, error) {
	if m == nil {
		return value.NoneValue, nil
	}
	if m.IsInternalCall || m.IsImplementedByRuntime {
		params := args
		if hasReceiver {
			params = append([]value.Value{receiver}, args...)
		}
		return in.Internals.Invoke(m.CanonicalInternalName(), params, m)
	}
	return in.run(m, args, receiver, hasReceiver)
}

// run executes a method's decoded body to completion, returning the value
// left on the stack by `ret` (value.NoneValue for a void method).
func (in *Interpreter) run(m *metadata.Method, args []value.Value, receiver value.Value, hasReceiver bool) (value.Value, error) {
	body, err := m.Body()
	if err != nil {
		return value.NoneValue, err
	}

	f := newFrame(m, body, args, receiver, hasReceiver)

	in.callStack = append(in.callStack, m.FullName())
	defer func() { in.callStack = in.callStack[:len(in.callStack)-1] }()

	return in.runFrame(f)
}

// runFrame drives the fetch-decode-execute loop over an already-built
// frame until `ret` produces a value or an error propagates. Split out from
// run so tests can drive a hand-assembled frame/body pair without going
// through Method.Body()'s RVA-backed lazy decode.
func (in *Interpreter) runFrame(f *frame) (value.Value, error) {
	idx := 0
	for idx < len(f.body.Instructions) {
		if !in.Running.Load() {
			return value.NullValue, nil
		}

		instr := f.body.Instructions[idx]
		next, done, retVal, err := in.step(f, instr, idx)
		if err != nil {
			if th, ok := err.(*thrown); ok {
				if handlerIdx, ok := in.findHandler(f, instr.Position, th); ok {
					f.stack = f.stack[:0]
					f.push(th.obj)
					idx = handlerIdx
					continue
				}
				clrErr := clrerror.New(clrerror.Internal, "unhandled exception: %s", th.message)
				clrErr.StackTrace = append([]string{}, in.callStack...)
				in.Running.Store(false)
				return value.NoneValue, clrErr
			}
			if clrErr, ok := err.(*clrerror.Error); ok && clrErr.StackTrace == nil {
				clrErr.StackTrace = append([]string{}, in.callStack...)
			}
			in.Running.Store(false)
			return value.NoneValue, err
		}
		if done {
			return retVal, nil
		}
		idx = next
	}
	return value.NoneValue, nil
}

// findHandler implements the Open Question 3 minimal try/catch support: the
// innermost catch region whose try range encloses the throwing instruction
// and whose catch type matches the thrown object's declared type (by full
// name, resolved through the throwing method's own assembly) gets control.
// Finally/fault regions are never run: they are skipped here on the
// exception path, `leave` branches straight to its target, and
// `endfinally` is a no-op.
func (in *Interpreter) findHandler(f *frame, throwPos int, th *thrown) (int, bool) {
	if f.method.DeclaringType == nil || f.method.DeclaringType.Assembly == nil {
		return 0, false
	}
	asm := f.method.DeclaringType.Assembly
	for _, r := range f.body.Regions {
		if r.IsFinally || r.IsFault || r.IsFilter {
			continue
		}
		if throwPos < r.TryOffset || throwPos >= r.TryOffset+r.TryLength {
			continue
		}
		if r.CatchTypeToken == 0 {
			continue
		}
		ns, name := asm.ResolveTypeToken(r.CatchTypeToken)
		full := name
		if ns != "" {
			full = ns + "." + name
		}
		if full != "" && th.obj.Type() != nil && th.obj.Type().FullName() != full {
			continue
		}
		if idx, ok := f.body.PositionIndex[r.HandlerOffset]; ok {
			return idx, true
		}
	}
	return 0, false
}
