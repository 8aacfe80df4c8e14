package internalcalls

import (
	"strconv"
	"strings"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// registerInt32 binds System.Int32's Parse. Int32's, Boolean's and Object's
// ToString share the single "ToString" registration in strings.go, since
// the canonical name carries no type qualifier.
func registerInt32(r *Registry) {
	r.Register("Parse", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(params[0].Str()), 10, 32)
		if err != nil {
			return value.NoneValue, clrerror.New(clrerror.Internal, "Int32.Parse: %v", err)
		}
		return value.NewInt32(int32(n)), nil
	})
}
