package internalcalls

import (
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// registerArray binds System.Array's get_Length, reading the element count
// straight out of the heap's array store. String.get_Length shares this
// same canonical name (spec §4.5's canonical-name rule carries no
// per-type qualifier for internal calls), so this callback dispatches on
// the receiver's own Kind rather than assuming an array handle.
func registerArray(r *Registry, h *heap.Store) {
	r.Register("get_Length", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		if params[0].Kind == value.String {
			return value.NewInt32(int32(len(params[0].Str()))), nil
		}
		n, err := h.ArrayLength(params[0].Handle())
		if err != nil {
			return value.NoneValue, err
		}
		return value.NewInt32(int32(n)), nil
	})
}
