package interp

import (
	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

// step executes one decoded instruction against the frame's evaluation
// stack, per the opcode contracts in spec §4.5. It returns the index of the
// next instruction to execute, whether the method returned (with its
// value), and any error. A non-branching, non-returning instruction simply
// advances idx+1.
func (in *Interpreter) step(f *frame, instr metadata.Instruction, idx int) (next int, done bool, retVal value.Value, err error) {
	asm := f.method.DeclaringType.Assembly

	switch instr.Opcode {
	case "nop":
		// no-op

	case "dup":
		v, err := f.peek()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(v)

	case "pop":
		if _, err := f.pop(); err != nil {
			return 0, false, value.NoneValue, err
		}

	case "ldnull":
		f.push(value.NullValue)

	case "ldc.i4.m1":
		f.push(value.NewInt32(-1))
	case "ldc.i4.0":
		f.push(value.NewInt32(0))
	case "ldc.i4.1":
		f.push(value.NewInt32(1))
	case "ldc.i4.2":
		f.push(value.NewInt32(2))
	case "ldc.i4.3":
		f.push(value.NewInt32(3))
	case "ldc.i4.4":
		f.push(value.NewInt32(4))
	case "ldc.i4.5":
		f.push(value.NewInt32(5))
	case "ldc.i4.6":
		f.push(value.NewInt32(6))
	case "ldc.i4.7":
		f.push(value.NewInt32(7))
	case "ldc.i4.8":
		f.push(value.NewInt32(8))
	case "ldc.i4.s", "ldc.i4":
		f.push(value.NewInt32(int32(instr.IntOp)))
	case "ldc.i8":
		f.push(value.NewInt64(instr.IntOp))
	case "ldc.r4":
		f.push(value.NewFloat32(float32(instr.FloatOp)))
	case "ldc.r8":
		f.push(value.NewFloat64(instr.FloatOp))

	case "ldstr":
		s, err := asm.ResolveUserString(instr.Token)
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(value.NewString(s))

	// Locals.
	case "ldloc.0":
		return in.pushLocal(f, 0, idx)
	case "ldloc.1":
		return in.pushLocal(f, 1, idx)
	case "ldloc.2":
		return in.pushLocal(f, 2, idx)
	case "ldloc.3":
		return in.pushLocal(f, 3, idx)
	case "ldloc.s", "ldloc":
		return in.pushLocal(f, int(instr.IntOp), idx)
	case "ldloca.s", "ldloca":
		v, err := f.local(int(instr.IntOp))
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		if v.Kind == value.None {
			v = value.NullValue
			if err := f.setLocal(int(instr.IntOp), v); err != nil {
				return 0, false, value.NoneValue, err
			}
		}
		f.push(v)
	case "stloc.0":
		return in.popLocal(f, 0, idx)
	case "stloc.1":
		return in.popLocal(f, 1, idx)
	case "stloc.2":
		return in.popLocal(f, 2, idx)
	case "stloc.3":
		return in.popLocal(f, 3, idx)
	case "stloc.s", "stloc":
		return in.popLocal(f, int(instr.IntOp), idx)

	// Arguments.
	case "ldarg.0":
		return in.pushArg(f, 0, idx)
	case "ldarg.1":
		return in.pushArg(f, 1, idx)
	case "ldarg.2":
		return in.pushArg(f, 2, idx)
	case "ldarg.3":
		return in.pushArg(f, 3, idx)
	case "ldarg.s", "ldarg":
		return in.pushArg(f, int(instr.IntOp), idx)
	case "ldarga.s", "ldarga":
		v, err := f.arg(int(instr.IntOp))
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(v)
	case "starg.s", "starg":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		if err := f.setArg(int(instr.IntOp), v); err != nil {
			return 0, false, value.NoneValue, err
		}

	// Arithmetic & bitwise.
	case "add", "sub", "mul", "div", "rem":
		return in.binaryArith(f, instr.Opcode, idx)
	case "neg":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		r, err := value.Neg(v)
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(r)
	case "and":
		return in.binaryBitwise(f, value.And, idx)
	case "or":
		return in.binaryBitwise(f, value.Or, idx)
	case "xor":
		return in.binaryBitwise(f, value.Xor, idx)
	case "shl":
		return in.binaryBitwise(f, value.Shl, idx)
	case "shr":
		return in.binaryBitwise(f, value.Shr, idx)
	case "not":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		r, err := value.Not(v)
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(r)

	// Comparisons.
	case "ceq":
		return in.compare(f, value.Eq, false, idx)
	case "cgt":
		return in.compare(f, value.Gt, false, idx)
	case "cgt.un":
		return in.compare(f, value.Gt, true, idx)
	case "clt":
		return in.compare(f, value.Lt, false, idx)
	case "clt.un":
		return in.compare(f, value.Lt, true, idx)

	// Conversions.
	case "conv.i1":
		return in.convert(f, value.ConvI1, idx)
	case "conv.i2":
		return in.convert(f, value.ConvI2, idx)
	case "conv.i4":
		return in.convert(f, value.ConvI4, idx)
	case "conv.i8":
		return in.convert(f, value.ConvI8, idx)
	case "conv.r4":
		return in.convert(f, value.ConvR4, idx)
	case "conv.r8":
		return in.convert(f, value.ConvR8, idx)
	case "conv.u1":
		return in.convert(f, value.ConvU1, idx)
	case "conv.u2":
		return in.convert(f, value.ConvU2, idx)
	case "conv.u4":
		return in.convert(f, value.ConvU4, idx)
	case "conv.u8":
		return in.convert(f, value.ConvU8, idx)

	// Branches.
	case "br", "br.s":
		return in.branch(f, instr, idx)
	case "brtrue", "brtrue.s":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		if v.Truthy() {
			return in.branch(f, instr, idx)
		}
	case "brfalse", "brfalse.s":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		if !v.Truthy() {
			return in.branch(f, instr, idx)
		}
	case "beq", "beq.s":
		return in.compareBranch(f, instr, value.Eq, false, idx)
	case "bge", "bge.s":
		return in.compareBranch(f, instr, value.Ge, false, idx)
	case "bgt", "bgt.s":
		return in.compareBranch(f, instr, value.Gt, false, idx)
	case "ble", "ble.s":
		return in.compareBranch(f, instr, value.Le, false, idx)
	case "blt", "blt.s":
		return in.compareBranch(f, instr, value.Lt, false, idx)
	case "bne.un", "bne.un.s":
		return in.compareBranch(f, instr, value.Ne, true, idx)

	case "leave", "leave.s":
		f.stack = f.stack[:0]
		return in.branch(f, instr, idx)
	case "endfinally":
		// nothing here invokes finally regions (leave branches past them),
		// so endfinally is a no-op that continues to the next instruction.

	// Fields.
	case "ldfld":
		return in.loadField(f, instr, idx)
	case "stfld":
		return in.storeField(f, instr, idx)
	case "ldsfld":
		return in.loadStaticField(f, instr, idx)
	case "stsfld":
		return in.storeStaticField(f, instr, idx)

	// Arrays.
	case "newarr":
		return in.newArray(f, idx)
	case "ldlen":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		n, err := in.Heap.ArrayLength(v.Handle())
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(value.NewInt32(int32(n)))
	case "ldelem.i4", "ldelem.u1", "ldelem.ref":
		return in.loadElement(f, idx)
	case "stelem.i4", "stelem.ref":
		return in.storeElement(f, idx)

	// Calls.
	case "call":
		if err := in.doCall(f, instr.Token, false); err != nil {
			return 0, false, value.NoneValue, err
		}
	case "callvirt":
		if err := in.doCall(f, instr.Token, true); err != nil {
			return 0, false, value.NoneValue, err
		}
	case "newobj":
		if err := in.doNewobj(f, instr.Token); err != nil {
			return 0, false, value.NoneValue, err
		}
	case "ret":
		if f.method.ReturnsValue() {
			v, err := f.pop()
			if err != nil {
				return 0, false, value.NoneValue, err
			}
			return 0, true, v, nil
		}
		return 0, true, value.NoneValue, nil
	case "ldftn":
		methodSite, err := asm.ResolveToken(instr.Token)
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		intPtrType, ok := in.Resolver.FindType("System", "IntPtr")
		if !ok {
			return 0, false, value.NoneValue, clrerror.New(clrerror.Internal, "ldftn: System.IntPtr is not registered")
		}
		handle := in.Heap.AllocObject(intPtrType)
		if err := in.Heap.StoreField(handle, "PtrToMethod", value.NewMethodPtr(methodSite.Method)); err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(value.NewObject(handle, intPtrType))

	// Reflection.
	case "ldtoken":
		return in.loadToken(f, instr, idx)

	// Exception unwind (minimal).
	case "throw":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		msg := ""
		if v.Kind == value.Object {
			if m, err := in.Heap.LoadField(v.Handle(), "_message"); err == nil {
				msg = m.String()
			}
		}
		return 0, false, value.NoneValue, &thrown{obj: v, message: msg}

	// Other.
	case "initobj":
		if _, err := f.pop(); err != nil {
			return 0, false, value.NoneValue, err
		}
		f.push(value.NullValue)
	case "box":
		// value and reference kinds share the Value tagging; box is a
		// recognised no-op.
	case "ldobj":
		if len(f.stack) == 0 {
			return 0, false, value.NoneValue, clrerror.New(clrerror.Internal, "ldobj: empty stack in %s", f.method.FullName())
		}
		f.push(f.stack[0])
	case "stind.i", "stind.i4":
		v, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		ptr, err := f.pop()
		if err != nil {
			return 0, false, value.NoneValue, err
		}
		_ = ptr
		f.push(v)

	default:
		return 0, false, value.NoneValue, clrerror.New(clrerror.Internal, "unsupported opcode %q in %s", instr.Opcode, f.method.FullName())
	}

	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) pushLocal(f *frame, i, idx int) (int, bool, value.Value, error) {
	v, err := f.local(i)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(v)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) popLocal(f *frame, i, idx int) (int, bool, value.Value, error) {
	v, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	if err := f.setLocal(i, v); err != nil {
		return 0, false, value.NoneValue, err
	}
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) pushArg(f *frame, i, idx int) (int, bool, value.Value, error) {
	v, err := f.arg(i)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(v)
	return idx + 1, false, value.NoneValue, nil
}

// binaryArith pops the right then left operand (rightmost on top of stack
// per spec §4.1) and pushes the arithmetic result.
func (in *Interpreter) binaryArith(f *frame, opcode string, idx int) (int, bool, value.Value, error) {
	right, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	left, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	var op value.OpKind
	switch opcode {
	case "add":
		op = value.Add
	case "sub":
		op = value.Sub
	case "mul":
		op = value.Mul
	case "div":
		op = value.Div
	case "rem":
		op = value.Rem
	}
	r, err := value.Op(left, right, op)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(r)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) binaryBitwise(f *frame, fn func(a, b value.Value) (value.Value, error), idx int) (int, bool, value.Value, error) {
	right, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	left, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	r, err := fn(left, right)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(r)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) compare(f *frame, op value.OpKind, unsigned bool, idx int) (int, bool, value.Value, error) {
	right, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	left, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	var r value.Value
	if unsigned {
		r, err = value.CompareUnsigned(left, right, op)
	} else {
		r, err = value.Op(left, right, op)
	}
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(value.NewInt32(r.Int32()))
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) convert(f *frame, to value.ConvKind, idx int) (int, bool, value.Value, error) {
	v, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	r, err := value.Convert(v, to)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(r)
	return idx + 1, false, value.NoneValue, nil
}

// branch resolves a br/brtrue/brfalse/leave target: the byte offset of the
// next instruction is instr.Position + instr.Length + operand, mapped
// through the method body's byte-position-to-index table.
func (in *Interpreter) branch(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	target := instr.Position + instr.Length + int(instr.IntOp)
	next, ok := f.body.PositionIndex[target]
	if !ok {
		return 0, false, value.NoneValue, clrerror.New(clrerror.Internal, "branch target %d not an instruction boundary in %s", target, f.method.FullName())
	}
	return next, false, value.NoneValue, nil
}

func (in *Interpreter) compareBranch(f *frame, instr metadata.Instruction, op value.OpKind, unsigned bool, idx int) (int, bool, value.Value, error) {
	right, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	left, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	var r value.Value
	if unsigned {
		r, err = value.CompareUnsigned(left, right, op)
	} else {
		r, err = value.Op(left, right, op)
	}
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	if r.Truthy() {
		return in.branch(f, instr, idx)
	}
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) loadField(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	asm := f.method.DeclaringType.Assembly
	fld, err := asm.ResolveFieldToken(instr.Token)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	obj, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	if obj.Kind == value.Null {
		return 0, false, value.NoneValue, clrerror.New(clrerror.NullReference, "ldfld %s on a null reference", fld.Name)
	}
	v, err := in.Heap.LoadField(obj.Handle(), fld.Name)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(v)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) storeField(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	asm := f.method.DeclaringType.Assembly
	fld, err := asm.ResolveFieldToken(instr.Token)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	v, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	obj, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	if obj.Kind == value.Null {
		return 0, false, value.NoneValue, clrerror.New(clrerror.NullReference, "stfld %s on a null reference", fld.Name)
	}
	if err := in.Heap.StoreField(obj.Handle(), fld.Name, v); err != nil {
		return 0, false, value.NoneValue, err
	}
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) loadStaticField(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	asm := f.method.DeclaringType.Assembly
	fld, err := asm.ResolveFieldToken(instr.Token)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	typeName := ""
	if fld.DeclaringType != nil {
		typeName = fld.DeclaringType.FullName()
	}
	f.push(in.Statics.Load(typeName, fld.Name, fld.Kind))
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) storeStaticField(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	asm := f.method.DeclaringType.Assembly
	fld, err := asm.ResolveFieldToken(instr.Token)
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	v, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	typeName := ""
	if fld.DeclaringType != nil {
		typeName = fld.DeclaringType.FullName()
	}
	in.Statics.Set(typeName, fld.Name, v)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) newArray(f *frame, idx int) (int, bool, value.Value, error) {
	length, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	handle := in.Heap.AllocArray(int(length.Int32()))
	f.push(value.NewArray(handle))
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) loadElement(f *frame, idx int) (int, bool, value.Value, error) {
	index, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	arr, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	v, err := in.Heap.GetElement(arr.Handle(), int(index.Int32()))
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(v)
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) storeElement(f *frame, idx int) (int, bool, value.Value, error) {
	v, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	index, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	arr, err := f.pop()
	if err != nil {
		return 0, false, value.NoneValue, err
	}
	if err := in.Heap.SetElement(arr.Handle(), int(index.Int32()), v); err != nil {
		return 0, false, value.NoneValue, err
	}
	return idx + 1, false, value.NoneValue, nil
}

func (in *Interpreter) loadToken(f *frame, instr metadata.Instruction, idx int) (int, bool, value.Value, error) {
	asm := f.method.DeclaringType.Assembly
	namespace, name := asm.ResolveTypeToken(instr.Token)

	handleType, ok := in.Resolver.FindType("System", "RuntimeTypeHandle")
	if !ok {
		return 0, false, value.NoneValue, clrerror.New(clrerror.Internal, "ldtoken: System.RuntimeTypeHandle is not registered")
	}
	handle := in.Heap.AllocObject(handleType)
	if err := in.Heap.StoreField(handle, "_name", value.NewString(name)); err != nil {
		return 0, false, value.NoneValue, err
	}
	if err := in.Heap.StoreField(handle, "_namespace", value.NewString(namespace)); err != nil {
		return 0, false, value.NoneValue, err
	}
	f.push(value.NewObject(handle, handleType))
	return idx + 1, false, value.NoneValue, nil
}
