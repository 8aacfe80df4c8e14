// Package engine is the top-level facade (spec §4.1/§5): constructed with
// an already-parsed main assembly and a search directory, it owns the
// resolver and interpreter, loads referenced assemblies and runs static
// constructors, resolves the entry point, and drives it to completion or
// to a reported fatal error.
package engine

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/internalcalls"
	"github.com/clrlite/clrlite/interp"
	"github.com/clrlite/clrlite/loader"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/statics"
	"github.com/clrlite/clrlite/value"
	"go.uber.org/zap"
)

// Options configures an Engine, following the same plain-struct,
// logger-with-nop-default convention as pe.Options and loader.Options.
type Options struct {
	// SearchDir is where the loader looks for assemblies the main one
	// references transitively.
	SearchDir string

	// VerifySignatures is passed through to the loader.
	VerifySignatures bool

	Logger *zap.SugaredLogger
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

// Engine is a single run of one main assembly: one heap, one static-field
// store, one resolver, one interpreter.
type Engine struct {
	opts   Options
	Interp *interp.Interpreter
	main   *metadata.Assembly
	loader *loader.Loader
}

// New wires a fresh Engine around an already-parsed main assembly (spec
// §4.1's "construct with parsed main assembly, search-dir"). Nothing is
// registered or initialized until Start.
func New(main *metadata.Assembly, opts Options) *Engine {
	h := heap.New()
	s := statics.New()
	r := resolve.New()
	ic := internalcalls.NewRegistry(h)
	in := interp.New(h, s, r, ic, main.Name)
	ld := loader.New(r, loader.Options{
		SearchDir:        opts.SearchDir,
		VerifySignatures: opts.VerifySignatures,
		Logger:           opts.logger(),
	})
	return &Engine{opts: opts, Interp: in, main: main, loader: ld}
}

// Start runs every loaded assembly's static constructors (mscorlib first,
// then main, then main's transitive AssemblyRefs found under SearchDir),
// then invokes the entry point named by the main assembly's COR20 header.
// args is packaged as a managed String[] only if the entry point declares
// a parameter; a parameterless Main is invoked with none. A fatal failure
// is returned as a *clrerror.Error; the caller (cmd/clrlite) renders its
// Banner and chooses the process exit code, per spec §6.
func (e *Engine) Start(args []string) error {
	if err := e.loader.Load(e.main, e.Interp); err != nil {
		return err
	}

	entry, err := e.resolveEntryPoint(e.main)
	if err != nil {
		return err
	}

	argv := e.buildArgs(entry, args)

	_, err = e.Interp.Invoke(entry, argv, value.NoneValue, false)
	return err
}

// buildArgs packages the process args as a single String[] argument when
// the entry point takes one, or returns no arguments for a parameterless
// Main, per spec §4.1.
func (e *Engine) buildArgs(entry *metadata.Method, args []string) []value.Value {
	if entry.ParameterCount() == 0 {
		return nil
	}
	handle := e.Interp.Heap.AllocArray(len(args))
	for i, a := range args {
		_ = e.Interp.Heap.SetElement(handle, i, value.NewString(a))
	}
	return []value.Value{value.NewArray(handle)}
}

// RunMethodInDLL resolves a named method on a named type in any loaded
// assembly (the first match in load order, via Resolver.FindType) and
// invokes it with no arguments and no receiver; the method's static flag
// is not checked (spec
// §4.1's alternate invocation form, mirroring the .NET hosting API of the
// same name).
func (e *Engine) RunMethodInDLL(namespace, typeName, methodName string) error {
	t, ok := e.Interp.Resolver.FindType(namespace, typeName)
	if !ok {
		return clrerror.New(clrerror.MethodNotFound, "type %s.%s not found", namespace, typeName)
	}
	m := t.MethodByName(methodName)
	if m == nil {
		return clrerror.New(clrerror.MethodNotFound, "%s.%s.%s not found", namespace, typeName, methodName)
	}
	_, err := e.Interp.Invoke(m, nil, value.NoneValue, false)
	return err
}

// resolveEntryPoint decodes the COR20 header's EntryPointRVAorToken, which
// names a MethodDef token directly (spec §4.1): no symbolic lookup needed,
// ResolveToken's MethodDef branch already carries the concrete *Method.
func (e *Engine) resolveEntryPoint(main *metadata.Assembly) (*metadata.Method, error) {
	token := mainCOR20Token(main)
	if token == 0 {
		return nil, clrerror.New(clrerror.EntryPointNotFound, "assembly carries no managed entry point token")
	}
	site, err := main.ResolveToken(token)
	if err != nil {
		return nil, clrerror.New(clrerror.EntryPointNotFound, "could not resolve entry point token 0x%08x: %v", token, err)
	}
	if site.Method == nil {
		return nil, clrerror.New(clrerror.EntryPointNotFound, "entry point token 0x%08x did not resolve to a MethodDef", token)
	}
	return site.Method, nil
}

// mainCOR20Token reads the EntryPointRVAorToken straight off the main
// assembly's backing pe.File. A synthetic (file-less) assembly, which only
// mscorlib ever is, never reaches here as the main assembly.
func mainCOR20Token(main *metadata.Assembly) uint32 {
	f := main.File()
	if f == nil {
		return 0
	}
	return f.CLR.CLRHeader.EntryPointRVAorToken
}
