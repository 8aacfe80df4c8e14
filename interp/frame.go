package interp

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// localSlotCount is the fixed local-slot capacity every frame allocates,
// per spec §3.4 ("256 is sufficient for the test corpus").
const localSlotCount = 256

// frame is the per-call container from spec §3.4: the method descriptor,
// positional parameters, a fixed local-slot array, and a private
// evaluation stack. No frame observes another frame's stack.
type frame struct {
	method      *metadata.Method
	body        metadata.Body
	args        []value.Value
	receiver    value.Value
	hasReceiver bool
	locals      [localSlotCount]value.Value
	stack       []value.Value
}

func newFrame(m *metadata.Method, body metadata.Body, args []value.Value, receiver value.Value, hasReceiver bool) *frame {
	f := &frame{method: m, body: body, args: args, receiver: receiver, hasReceiver: hasReceiver}
	for i := range f.locals {
		f.locals[i] = value.NoneValue
	}
	return f
}

func (f *frame) push(v value.Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (value.Value, error) {
	if len(f.stack) == 0 {
		return value.NoneValue, clrerror.New(clrerror.Internal, "stack underflow in %s", f.method.FullName())
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) peek() (value.Value, error) {
	if len(f.stack) == 0 {
		return value.NoneValue, clrerror.New(clrerror.Internal, "stack underflow in %s", f.method.FullName())
	}
	return f.stack[len(f.stack)-1], nil
}

func (f *frame) arg(i int) (value.Value, error) {
	if f.hasReceiver {
		if i == 0 {
			return f.receiver, nil
		}
		i--
	}
	if i < 0 || i >= len(f.args) {
		return value.NoneValue, clrerror.New(clrerror.Internal, "argument index %d out of range in %s", i, f.method.FullName())
	}
	return f.args[i], nil
}

func (f *frame) setArg(i int, v value.Value) error {
	if f.hasReceiver {
		if i == 0 {
			return clrerror.New(clrerror.Internal, "cannot overwrite receiver slot in %s", f.method.FullName())
		}
		i--
	}
	if i < 0 || i >= len(f.args) {
		return clrerror.New(clrerror.Internal, "argument index %d out of range in %s", i, f.method.FullName())
	}
	f.args[i] = v
	return nil
}

func (f *frame) local(i int) (value.Value, error) {
	if i < 0 || i >= len(f.locals) {
		return value.NoneValue, clrerror.New(clrerror.Internal, "local index %d out of range in %s", i, f.method.FullName())
	}
	return f.locals[i], nil
}

func (f *frame) setLocal(i int, v value.Value) error {
	if i < 0 || i >= len(f.locals) {
		return clrerror.New(clrerror.Internal, "local index %d out of range in %s", i, f.method.FullName())
	}
	f.locals[i] = v
	return nil
}
