package internalcalls

import (
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// registerException binds System.Exception's Message accessor. Its
// constructor is handled by the shared ".ctor" callback in object.go, which
// recognises System.Exception by declaring type and stores the message
// argument.
func registerException(r *Registry, h *heap.Store) {
	r.Register("get_Message", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return h.LoadField(params[0].Handle(), "_message")
	})
}
