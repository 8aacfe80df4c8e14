package loader

import (
	"testing"

	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/internalcalls"
	"github.com/clrlite/clrlite/interp"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/statics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(mscorlib *metadata.Assembly) *interp.Interpreter {
	h := heap.New()
	r := resolve.New(mscorlib)
	ic := internalcalls.NewRegistry(h)
	return interp.New(h, statics.New(), r, ic, "test.exe")
}

// mscorlib's synthetic types declare no .cctor, so runCctors over it must be
// a no-op rather than erroring on a missing body.
func TestRunCctorsSkipsTypesWithoutOne(t *testing.T) {
	mscorlib := metadata.BuildSynthetic()
	r := resolve.New()
	l := New(r, Options{})
	in := newTestInterpreter(mscorlib)

	err := l.runCctors(mscorlib, in)
	require.NoError(t, err)
}

// A referenced assembly absent from SearchDir is skipped, not fatal: the
// loader logs and continues rather than failing the whole load.
func TestLoadReferencesSkipsMissingAssembly(t *testing.T) {
	mscorlib := metadata.BuildSynthetic()
	r := resolve.New()
	l := New(r, Options{SearchDir: t.TempDir()})
	in := newTestInterpreter(mscorlib)

	main := &metadata.Assembly{Name: "Main", AssemblyRefs: []string{"SomeLibraryThatDoesNotExist"}}
	err := l.loadReferences(main, l.opts.logger(), in)
	assert.NoError(t, err)
	assert.False(t, l.loaded["somelibrarythatdoesnotexist"])
}

// Loading the same reference name twice (e.g. two types in the main
// assembly both referencing it) must only be attempted once.
func TestLoadReferencesDeduplicatesByName(t *testing.T) {
	r := resolve.New()
	l := New(r, Options{SearchDir: t.TempDir()})
	in := newTestInterpreter(metadata.BuildSynthetic())

	main := &metadata.Assembly{Name: "Main", AssemblyRefs: []string{"mscorlib", "mscorlib"}}
	l.loaded["mscorlib"] = true

	err := l.loadReferences(main, l.opts.logger(), in)
	require.NoError(t, err)
}
