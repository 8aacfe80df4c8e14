package resolve_test

import (
	"testing"

	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveObjectCtorIsNoOp(t *testing.T) {
	r := resolve.New(metadata.BuildSynthetic())
	site := metadata.CallSite{Namespace: "System", ClassName: "Object", MethodName: ".ctor"}

	m, noop, err := r.Resolve(site, resolve.Options{IsConstructor: true})
	require.NoError(t, err)
	assert.True(t, noop)
	assert.Nil(t, m)
}

func TestResolveByNameFindsConsoleWriteLine(t *testing.T) {
	r := resolve.New(metadata.BuildSynthetic())
	site := metadata.CallSite{
		Namespace:  "System",
		ClassName:  "Console",
		MethodName: "WriteLine",
		Signature:  metadata.MethodSig{Params: []metadata.ParamSig{{Kind: value.String}}},
	}

	m, noop, err := r.Resolve(site, resolve.Options{})
	require.NoError(t, err)
	assert.False(t, noop)
	require.NotNil(t, m)
	assert.Equal(t, "WriteLine", m.Name)
}

func TestResolveUnknownMethodFails(t *testing.T) {
	r := resolve.New(metadata.BuildSynthetic())
	site := metadata.CallSite{Namespace: "System", ClassName: "Console", MethodName: "Beep"}

	_, _, err := r.Resolve(site, resolve.Options{})
	require.Error(t, err)
}

func TestResolveVirtualRedirectsToOverride(t *testing.T) {
	asm := &metadata.Assembly{Name: "prog"}
	animal := &metadata.Type{Namespace: "", Name: "Animal"}
	dog := &metadata.Type{Namespace: "", Name: "Dog"}
	speakOnAnimal := &metadata.Method{Name: "Speak", DeclaringType: animal, Sig: metadata.MethodSig{HasThis: true}}
	speakOnDog := &metadata.Method{Name: "Speak", DeclaringType: dog, Sig: metadata.MethodSig{HasThis: true}}
	animal.Methods = []*metadata.Method{speakOnAnimal}
	dog.Methods = []*metadata.Method{speakOnDog}
	asm.Types = []*metadata.Type{animal, dog}

	r := resolve.New(asm)
	site := metadata.CallSite{Method: speakOnAnimal}

	m, noop, err := r.Resolve(site, resolve.Options{Virtual: true, ReceiverType: dog})
	require.NoError(t, err)
	assert.False(t, noop)
	assert.Same(t, speakOnDog, m)
}

func TestSliceArgsStaticNoThis(t *testing.T) {
	m := &metadata.Method{IsStatic: true, Sig: metadata.MethodSig{HasThis: false, Params: []metadata.ParamSig{{Kind: value.Int32}}}}
	stack := []value.Value{value.NewInt32(7), value.NewInt32(42)}

	remaining, receiver, hasReceiver, params := resolve.SliceArgs(stack, m, false)
	assert.False(t, hasReceiver)
	assert.Equal(t, value.NoneValue, receiver)
	require.Len(t, params, 1)
	assert.EqualValues(t, 42, params[0].Int32())
	require.Len(t, remaining, 1)
	assert.EqualValues(t, 7, remaining[0].Int32())
}

func TestSliceArgsInstanceWithReceiver(t *testing.T) {
	m := &metadata.Method{Sig: metadata.MethodSig{HasThis: true, Params: []metadata.ParamSig{{Kind: value.Int32}}}}
	recv := value.NewObject(0, nil)
	stack := []value.Value{recv, value.NewInt32(99)}

	remaining, receiver, hasReceiver, params := resolve.SliceArgs(stack, m, false)
	assert.True(t, hasReceiver)
	assert.Equal(t, recv, receiver)
	require.Len(t, params, 1)
	assert.EqualValues(t, 99, params[0].Int32())
	assert.Empty(t, remaining)
}
