package internalcalls_test

import (
	"testing"

	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/internalcalls"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnregisteredNameFails(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	_, err := r.Invoke("Beep", nil, &metadata.Method{})
	require.Error(t, err)
}

func TestConsoleWriteLineIsVoid(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("WriteLine", []value.Value{value.NewString("hi")}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, value.NoneValue, result)
}

func TestStringConcat(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("Concat", []value.Value{value.NewString("foo"), value.NewString("bar")}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, "foobar", result.Str())
}

func TestStringSubstring(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("Substring", []value.Value{value.NewString("hello world"), value.NewInt32(6)}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, "world", result.Str())
}

func TestStringSubstringWithLength(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("Substring", []value.Value{value.NewString("hello world"), value.NewInt32(0), value.NewInt32(5)}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Str())
}

func TestStringCaseConversion(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	up, err := r.Invoke("ToUpper", []value.Value{value.NewString("abc")}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, "ABC", up.Str())

	down, err := r.Invoke("ToLower", []value.Value{value.NewString("ABC")}, &metadata.Method{})
	require.NoError(t, err)
	assert.Equal(t, "abc", down.Str())
}

func TestStringGetLength(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("get_Length", []value.Value{value.NewString("hello")}, &metadata.Method{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, result.Int32())
}

func TestArrayGetLength(t *testing.T) {
	h := heap.New()
	handle := h.AllocArray(3)
	r := internalcalls.NewRegistry(h)
	result, err := r.Invoke("get_Length", []value.Value{value.NewArray(handle)}, &metadata.Method{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Int32())
}

func TestStringIndexOf(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("IndexOf", []value.Value{value.NewString("hello world"), value.NewString("world")}, &metadata.Method{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, result.Int32())
}

func TestStringEquals(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("Equals", []value.Value{value.NewString("a"), value.NewString("a")}, &metadata.Method{})
	require.NoError(t, err)
	assert.True(t, result.Bool())
}

func TestInt32Parse(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	result, err := r.Invoke("Parse", []value.Value{value.NewString("42")}, &metadata.Method{})
	require.NoError(t, err)
	assert.EqualValues(t, 42, result.Int32())
}

func TestInt32ParseInvalid(t *testing.T) {
	r := internalcalls.NewRegistry(heap.New())
	_, err := r.Invoke("Parse", []value.Value{value.NewString("not a number")}, &metadata.Method{})
	require.Error(t, err)
}

func TestObjectCtorIsNoOp(t *testing.T) {
	h := heap.New()
	asm := metadata.BuildSynthetic()
	objType, ok := asm.TypeByFullName("System.Object")
	require.True(t, ok)
	handle := h.AllocObject(objType)
	r := internalcalls.NewRegistry(h)

	result, err := r.Invoke(".ctor", []value.Value{value.NewObject(handle, objType)}, objType.MethodByName(".ctor"))
	require.NoError(t, err)
	assert.Equal(t, value.NoneValue, result)
}

func TestExceptionCtorStoresMessageAndGetMessageReadsIt(t *testing.T) {
	h := heap.New()
	asm := metadata.BuildSynthetic()
	excType, ok := asm.TypeByFullName("System.Exception")
	require.True(t, ok)
	handle := h.AllocObject(excType)
	r := internalcalls.NewRegistry(h)

	ctor := excType.MethodByName(".ctor")
	_, err := r.Invoke(".ctor", []value.Value{value.NewObject(handle, excType), value.NewString("boom")}, ctor)
	require.NoError(t, err)

	msg, err := r.Invoke("get_Message", []value.Value{value.NewObject(handle, excType)}, excType.MethodByName("get_Message"))
	require.NoError(t, err)
	assert.Equal(t, "boom", msg.Str())
}

func TestGetTypeBoxesNameAndNamespace(t *testing.T) {
	h := heap.New()
	asm := metadata.BuildSynthetic()
	strType, ok := asm.TypeByFullName("System.String")
	require.True(t, ok)
	r := internalcalls.NewRegistry(h)

	result, err := r.Invoke("GetType", []value.Value{value.NewObject(0, strType)}, strType.MethodByName("ToString"))
	require.NoError(t, err)
	require.Equal(t, value.Object, result.Kind)

	name, err := r.Invoke("get_Name", []value.Value{result}, nil)
	require.NoError(t, err)
	assert.Equal(t, "String", name.Str())

	namespace, err := r.Invoke("get_Namespace", []value.Value{result}, nil)
	require.NoError(t, err)
	assert.Equal(t, "System", namespace.Str())
}
