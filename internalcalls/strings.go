package internalcalls

import (
	"strings"

	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// registerString binds the System.String surface used by the targeted
// programs: concatenation, substring, case conversion, length, IndexOf, and
// the shared Equals/ToString callbacks also used by System.Object. String
// values carry their payload inline, so these callbacks do not touch the
// heap store; it is accepted for signature symmetry with the other
// register* functions.
func registerString(r *Registry, _ *heap.Store) {
	r.Register("Concat", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		var b strings.Builder
		for _, p := range params {
			b.WriteString(p.String())
		}
		return value.NewString(b.String()), nil
	})

	r.Register("Substring", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		s := params[0].Str()
		start := int(params[1].Int32())
		if start < 0 || start > len(s) {
			start = len(s)
		}
		if len(params) >= 3 {
			length := int(params[2].Int32())
			end := start + length
			if end > len(s) {
				end = len(s)
			}
			return value.NewString(s[start:end]), nil
		}
		return value.NewString(s[start:]), nil
	})

	r.Register("ToUpper", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return value.NewString(strings.ToUpper(params[0].Str())), nil
	})

	r.Register("ToLower", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return value.NewString(strings.ToLower(params[0].Str())), nil
	})

	r.Register("IndexOf", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return value.NewInt32(int32(strings.Index(params[0].Str(), params[1].Str()))), nil
	})

	// Equals serves both String.Equals and Object.Equals, since both
	// internal methods register under the same bare canonical name (spec
	// §4.5's canonical-name rule has no per-type qualification for internal
	// calls in this minimal library).
	r.Register("Equals", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		a, b := params[0], params[1]
		if a.Kind == value.String && b.Kind == value.String {
			return value.NewBoolean(a.Str() == b.Str()), nil
		}
		if a.Kind == value.Object && b.Kind == value.Object {
			return value.NewBoolean(a.Handle() == b.Handle()), nil
		}
		return value.NewBoolean(a == b), nil
	})

	// ToString serves String.ToString, Object.ToString, Int32.ToString and
	// Boolean.ToString alike, dispatching on the receiver's own Kind.
	r.Register("ToString", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		if len(params) == 0 {
			return value.NewString(""), nil
		}
		return value.NewString(params[0].String()), nil
	})
}
