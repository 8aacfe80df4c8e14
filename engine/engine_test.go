package engine

import (
	"testing"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A synthetic assembly (no backing pe.File) has no COR20 header to read an
// entry-point token from; resolveEntryPoint must report that as
// EntryPointNotFound rather than panicking on the nil file.
func TestResolveEntryPointOnSyntheticAssemblyFails(t *testing.T) {
	main := metadata.BuildSynthetic()
	e := New(main, Options{})

	_, err := e.resolveEntryPoint(main)
	require.Error(t, err)
	clrErr, ok := err.(*clrerror.Error)
	require.True(t, ok)
	assert.Equal(t, clrerror.EntryPointNotFound, clrErr.Kind)
}

func TestRunMethodInDLLInvokesResolvedStaticMethod(t *testing.T) {
	main := metadata.BuildSynthetic()
	e := New(main, Options{})
	require.NoError(t, e.loader.Load(main, e.Interp))

	err := e.RunMethodInDLL("System", "Console", "WriteLine")
	require.NoError(t, err)
}

func TestRunMethodInDLLUnknownTypeFails(t *testing.T) {
	main := metadata.BuildSynthetic()
	e := New(main, Options{})
	require.NoError(t, e.loader.Load(main, e.Interp))

	err := e.RunMethodInDLL("System", "NoSuchType", "Foo")
	require.Error(t, err)
	clrErr, ok := err.(*clrerror.Error)
	require.True(t, ok)
	assert.Equal(t, clrerror.MethodNotFound, clrErr.Kind)
}

func TestStartRunsEntryPointlessAssemblyFails(t *testing.T) {
	main := metadata.BuildSynthetic()
	e := New(main, Options{})

	err := e.Start(nil)
	require.Error(t, err)
}
