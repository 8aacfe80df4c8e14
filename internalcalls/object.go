package internalcalls

import (
	"github.com/clrlite/clrlite/heap"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// registerObject binds the bare ".ctor" canonical name shared by every
// internal-call constructor (spec §4.5's canonical-name rule carries no
// per-type qualifier). System.Object's own constructor is a no-op: field
// defaults are already applied at allocation time (spec §3.2). Types that
// declare their own constructor parameters, such as System.Exception's
// message argument, are recognised by declaring type and handled inline
// rather than through a second registry entry, since both would collide on
// the same canonical name.
func registerObject(r *Registry, h *heap.Store) {
	r.Register(".ctor", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		if m.DeclaringType != nil && m.DeclaringType.FullName() == "System.Exception" && len(params) > 1 {
			return value.NoneValue, h.StoreField(params[0].Handle(), "_message", value.NewString(params[1].String()))
		}
		return value.NoneValue, nil
	})

	r.Register("GetType", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		receiver := params[0]
		var name, namespace string
		if receiver.Type() != nil {
			namespace, name = splitFullName(receiver.Type().FullName())
		}
		typeDesc, ok := m.DeclaringType.Assembly.TypeByFullName("System.Type")
		if !ok {
			return value.NewString(namespace + "." + name), nil
		}
		handle := h.AllocObject(typeDesc)
		if err := h.StoreField(handle, "_name", value.NewString(name)); err != nil {
			return value.NoneValue, err
		}
		if err := h.StoreField(handle, "_namespace", value.NewString(namespace)); err != nil {
			return value.NoneValue, err
		}
		return value.NewObject(handle, typeDesc), nil
	})
}

func splitFullName(full string) (namespace, name string) {
	lastDot := -1
	for i := 0; i < len(full); i++ {
		if full[i] == '.' {
			lastDot = i
		}
	}
	if lastDot < 0 {
		return "", full
	}
	return full[:lastDot], full[lastDot+1:]
}

// registerType binds System.Type's get_Name and get_Namespace, reading the
// fields GetType populated.
func registerType(r *Registry, h *heap.Store) {
	r.Register("get_Name", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return h.LoadField(params[0].Handle(), "_name")
	})
	r.Register("get_Namespace", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		return h.LoadField(params[0].Handle(), "_namespace")
	})
}
