// Package internalcalls implements the internal-method registry (spec
// §4.6): a process-wide table mapping a canonical method name to a
// host-implemented callback, plus the base mscorlib surface the
// synthetic assembly in metadata.BuildSynthetic declares methods for.
package internalcalls

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// Callback implements one internal method. It receives the parameter
// slice in left-to-right order and the resolved method descriptor (so one
// callback can serve several overloads by inspecting parameter count/kind
// if needed), and returns the method's result (value.NoneValue for void).
// A callback must not retain the parameter slice beyond its own call.
type Callback func(params []value.Value, m *metadata.Method) (value.Value, error)

// Registry is the engine-wide internal-method table.
type Registry struct {
	callbacks map[string]Callback
}

// NewRegistry returns a Registry with the full base-library surface from
// spec §4.6 / SPEC_FULL.md §4.6 already registered, bound to the given
// heap store.
func NewRegistry(h *heap.Store) *Registry {
	r := &Registry{callbacks: make(map[string]Callback)}
	registerConsole(r)
	registerString(r, h)
	registerInt32(r)
	registerObject(r, h)
	registerArray(r, h)
	registerException(r, h)
	registerType(r, h)
	return r
}

// Register binds a canonical name to a callback, per spec §4.6's
// registration API. A later registration of the same name replaces the
// earlier one.
func (r *Registry) Register(canonicalName string, cb Callback) {
	r.callbacks[canonicalName] = cb
}

// Invoke looks up and calls the callback for a canonical name. An
// unresolved name is fatal (spec §4.5: "unresolved internal-method names
// are fatal").
func (r *Registry) Invoke(canonicalName string, params []value.Value, m *metadata.Method) (value.Value, error) {
	cb, ok := r.callbacks[canonicalName]
	if !ok {
		return value.NoneValue, clrerror.New(clrerror.Internal, "unresolved internal method %q", canonicalName)
	}
	return cb(params, m)
}
