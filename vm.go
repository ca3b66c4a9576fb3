package fluence

import (
	"fmt"
)

// tryEntry is one entry of the VM's cross-frame exception-handler
// stack: which frame owns the handler and where its catch body starts.
// Exceptions raised several calls deep unwind frames until they find
// the matching entry (§4.9).
type tryEntry struct {
	Frame     *CallFrame
	CatchAddr int
}

// VM is Fluence's register-based bytecode interpreter (component I):
// one active call-frame chain, a global register bank, a cross-frame
// try/catch stack, and a cooperative instruction budget so a host can
// time-slice execution instead of blocking a goroutine per script
// (§4.6, §5, §9). Grounded on `vm.go`'s own `Machine` dispatch-loop
// shape (fetch/decode/execute over a flat instruction slice, one
// `backtrack`-style unwind path) generalized from a PEG matcher's
// single stack to register file + call stack + try stack.
type VM struct {
	Prog    *Program
	Globals []RuntimeValue
	Pools   *Pools
	Cfg     Config

	// GlobalsLocked is the writability cache backing `solid` globals
	// (§3, §4.4), parallel to Globals: GlobalsLocked[i] flips true once
	// global i receives the defining store of a solid declaration.
	GlobalsLocked []bool

	frame    *CallFrame
	tryStack []tryEntry

	stopped  bool
	halted   bool
	instrRun int64

	Intrinsics *IntrinsicSet
	Cache      *InlineCache
}

// NewVM builds a VM ready to run `prog` from its first instruction.
func NewVM(prog *Program, cfg Config) *VM {
	vm := &VM{
		Prog:          prog,
		Globals:       make([]RuntimeValue, prog.NumGlobals),
		GlobalsLocked: make([]bool, prog.NumGlobals),
		Pools:         NewPools(),
		Cfg:           cfg,
		Intrinsics:    NewIntrinsicSet(cfg),
		Cache:         NewInlineCache(),
	}
	vm.frame = vm.Pools.GetFrame(prog, prog.NumRegs, nil, -1, -1)
	return vm
}

// Stop requests cooperative suspension: the dispatch loop checks this
// flag between instructions and returns control to the host at the
// next opportunity (§4.6, §5's `stop()`).
func (vm *VM) Stop() { vm.stopped = true }

func (vm *VM) Done() bool { return vm.halted }

// getReg/setReg resolve a possibly-global-tagged operand against
// either the current frame or the VM's global bank (§3's addressing
// invariant, implemented via emitter.go's globalBit tag).
func (vm *VM) getReg(r int) RuntimeValue {
	if isGlobalReg(r) {
		return vm.Globals[decReg(r)]
	}
	return vm.frame.Get(r)
}

func (vm *VM) setReg(r int, v RuntimeValue) {
	if isGlobalReg(r) {
		vm.Globals[decReg(r)] = v
	} else {
		vm.frame.Set(r, v)
	}
}

// isLocked/lockSlot implement the writability cache (§3, §4.4): a
// `solid` declaration's defining store emits OpLockSlot right after its
// OpMove, flipping the slot from writable to locked; any later store to
// the same slot — a plain OpMove re-assignment, or a write-through-ref
// the emitter couldn't see coming — must raise CannotAssignSolid.
func (vm *VM) isLocked(r int) bool {
	if isGlobalReg(r) {
		return vm.GlobalsLocked[decReg(r)]
	}
	return vm.frame.IsLocked(r)
}

func (vm *VM) lockSlot(r int) {
	if isGlobalReg(r) {
		vm.GlobalsLocked[decReg(r)] = true
		return
	}
	vm.frame.Lock(r)
}

// RunFor executes up to `budget` instructions (or until halt/stop/
// error), returning whether the program has finished. A host loop
// calls this repeatedly — e.g. once per scheduler tick — to cooperate
// with other work instead of blocking (§4.6, §5).
func (vm *VM) RunFor(budget int) (bool, error) {
	vm.stopped = false
	for i := 0; i < budget; i++ {
		if vm.halted {
			return true, nil
		}
		if vm.stopped {
			return false, nil
		}
		if err := vm.step(); err != nil {
			return true, err
		}
	}
	return vm.halted, nil
}

// RunUntilDone drives the VM to completion, ignoring the cooperative
// budget — the host-facing equivalent of letting `run_for` run forever
// (§4.6).
func (vm *VM) RunUntilDone() error {
	for !vm.halted {
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) currentSpan() Span {
	if vm.frame.PC < len(vm.Prog.Code) {
		return vm.Prog.Code[vm.frame.PC].Span
	}
	return Span{}
}

// step fetches, decodes, and executes exactly one instruction.
func (vm *VM) step() error {
	vm.instrRun++
	f := vm.frame
	if f.PC >= len(vm.Prog.Code) {
		vm.halted = true
		return nil
	}
	ins := vm.Prog.Code[f.PC]
	addr := f.PC
	f.PC++

	if vm.Cfg.GetBool(CfgTrace, false) {
		fmt.Fprintf(vm.Intrinsics.Errors, "%4d  %s\n", addr, ins.Op.String())
	}

	if vm.Cache.tryCached(vm, addr, ins) {
		return nil
	}

	switch ins.Op {
	case OpNop, SectionGlobal:
		// no-op

	case OpLoadConst:
		c := vm.Prog.Constants[ins.B]
		vm.setReg(ins.A, vm.constantToRV(c))
	case OpLoadNil:
		vm.setReg(ins.A, Nil)
	case OpLoadBool:
		vm.setReg(ins.A, BoolRV(ins.B != 0))
	case OpMove:
		if vm.isLocked(ins.A) {
			return vm.dispatchError(CannotAssignSolidError{Span: ins.Span})
		}
		vm.setReg(ins.A, vm.getReg(ins.B))
	case OpLockSlot:
		vm.lockSlot(ins.A)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
		res, err := vm.arith(ins.Op, vm.getReg(ins.B), vm.getReg(ins.C), ins.Span)
		if err != nil {
			return vm.dispatchError(err)
		}
		vm.setReg(ins.A, res)
		vm.maybeSpecialize(addr, ins)
	case OpNeg:
		v := vm.getReg(ins.B)
		switch v.Tag {
		case RVInt:
			vm.setReg(ins.A, IntRV(-v.I))
		case RVLong:
			vm.setReg(ins.A, LongRV(-v.I))
		case RVDouble:
			vm.setReg(ins.A, DoubleRV(-v.F))
		case RVFloat:
			vm.setReg(ins.A, FloatRV(-v.F))
		default:
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot negate %s", v.TypeName()))
		}

	case OpBAnd:
		vm.setReg(ins.A, IntRV(vm.getReg(ins.B).I&vm.getReg(ins.C).I))
	case OpBOr:
		vm.setReg(ins.A, IntRV(vm.getReg(ins.B).I|vm.getReg(ins.C).I))
	case OpBXor:
		vm.setReg(ins.A, IntRV(vm.getReg(ins.B).I^vm.getReg(ins.C).I))
	case OpBNot:
		vm.setReg(ins.A, IntRV(^vm.getReg(ins.B).I))
	case OpShl:
		vm.setReg(ins.A, IntRV(vm.getReg(ins.B).I<<uint(vm.getReg(ins.C).I)))
	case OpShr:
		vm.setReg(ins.A, IntRV(vm.getReg(ins.B).I>>uint(vm.getReg(ins.C).I)))

	case OpNot:
		vm.setReg(ins.A, BoolRV(!vm.getReg(ins.B).Truthy()))
	case OpAnd:
		vm.setReg(ins.A, BoolRV(vm.getReg(ins.B).Truthy() && vm.getReg(ins.C).Truthy()))
	case OpOr:
		vm.setReg(ins.A, BoolRV(vm.getReg(ins.B).Truthy() || vm.getReg(ins.C).Truthy()))

	case OpEq:
		vm.setReg(ins.A, BoolRV(valuesEqual(vm.getReg(ins.B), vm.getReg(ins.C))))
		vm.maybeSpecialize(addr, ins)
	case OpNeq:
		vm.setReg(ins.A, BoolRV(!valuesEqual(vm.getReg(ins.B), vm.getReg(ins.C))))
		vm.maybeSpecialize(addr, ins)
	case OpLt, OpLe, OpGt, OpGe:
		r, err := vm.compare(ins.Op, vm.getReg(ins.B), vm.getReg(ins.C), ins.Span)
		if err != nil {
			return vm.dispatchError(err)
		}
		vm.setReg(ins.A, BoolRV(r))
		vm.maybeSpecialize(addr, ins)

	case OpInc:
		v := vm.getReg(ins.A)
		vm.setReg(ins.A, numericAdd1(v, 1))
	case OpDec:
		v := vm.getReg(ins.A)
		vm.setReg(ins.A, numericAdd1(v, -1))

	case OpJump:
		f.PC = ins.A
	case OpJumpIfFalse:
		if !vm.getReg(ins.B).Truthy() {
			f.PC = ins.A
		}
	case OpJumpIfTrue:
		if vm.getReg(ins.B).Truthy() {
			f.PC = ins.A
		}

	case OpCall:
		callee := vm.getReg(ins.B)
		if callee.Tag != RVFunction {
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot call a %s", callee.TypeName()))
		}
		return vm.invoke(callee.Obj.(*FunctionObject), ins.C, ins.D, ins.A, ins.Span)
	case OpCallNamed:
		name := vm.Prog.Constants[ins.B].Str
		return vm.invokeNamed(name, ins.C, ins.D, ins.A, ins.Span)
	case OpLoadFunc:
		name := vm.Prog.Constants[ins.B].Str
		desc, ok := vm.Prog.Funcs[mangledAnyArity(vm.Prog, name)]
		if !ok {
			return vm.dispatchError(rtErr(RTNameError, ins.Span, "undefined function %q", name))
		}
		vm.setReg(ins.A, FunctionRV(&FunctionObject{
			StartAddr: desc.StartAddr, NumParams: desc.NumParams, NumRegs: desc.NumRegs,
			ParamRefs: desc.ParamRefs, IsMethod: desc.IsMethod, Name: desc.Name,
		}))
	case OpReturn:
		return vm.doReturn(ins.A)
	case OpMakeLambda:
		vm.setReg(ins.A, FunctionRV(&FunctionObject{
			StartAddr: ins.B, NumParams: ins.C, NumRegs: ins.D, Name: "<lambda>",
		}))
	case OpCaptureInit:
		fv := vm.getReg(ins.A).Obj.(*FunctionObject)
		fv.Captured = make([]RuntimeValue, ins.C)
		for i := 0; i < ins.C; i++ {
			fv.Captured[i] = vm.getReg(ins.B + i)
		}

	case OpNewList:
		l := vm.Pools.GetList()
		for i := 0; i < ins.C; i++ {
			l.Elems = append(l.Elems, vm.getReg(ins.B+i))
		}
		vm.setReg(ins.A, ListRV(l))
	case OpNewStruct:
		name := vm.Prog.Constants[ins.B].Str
		inst := vm.Pools.GetInstance()
		inst.StructName = name
		vm.setReg(ins.A, InstanceRV(inst))
	case OpNewRange:
		start := vm.getReg(ins.B).I
		end := vm.getReg(ins.C).I
		r := &RangeObject{Start: start, End: end, Inclusive: ins.D != 0}
		vm.setReg(ins.A, RangeRV(r))
	case OpIndexGet:
		res, err := vm.indexGet(vm.getReg(ins.B), vm.getReg(ins.C), ins.Span)
		if err != nil {
			return vm.dispatchError(err)
		}
		vm.setReg(ins.A, res)
	case OpIndexSet:
		if err := vm.indexSet(vm.getReg(ins.A), vm.getReg(ins.B), vm.getReg(ins.C), ins.Span); err != nil {
			return vm.dispatchError(err)
		}
	case OpFieldGet:
		obj := vm.getReg(ins.B)
		name := vm.Prog.Constants[ins.C].Str
		if obj.Tag != RVInstance {
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot read field %q of %s", name, obj.TypeName()))
		}
		inst := obj.Obj.(*InstanceObject)
		v, ok := inst.Fields[name]
		if !ok {
			v = Nil
		}
		vm.setReg(ins.A, v)
	case OpFieldSet:
		obj := vm.getReg(ins.A)
		name := vm.Prog.Constants[ins.B].Str
		if obj.Tag != RVInstance {
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot set field %q of %s", name, obj.TypeName()))
		}
		inst := obj.Obj.(*InstanceObject)
		if _, exists := inst.Fields[name]; !exists {
			inst.FieldOrder = append(inst.FieldOrder, name)
		}
		inst.Fields[name] = vm.getReg(ins.C)
	case OpLen:
		v := vm.getReg(ins.B)
		switch v.Tag {
		case RVList:
			vm.setReg(ins.A, IntRV(int64(len(v.Obj.(*ListObject).Elems))))
		case RVString:
			vm.setReg(ins.A, IntRV(int64(len([]rune(v.Obj.(*StringObject).Data)))))
		default:
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "%s has no length", v.TypeName()))
		}
	case OpTypeIs:
		v := vm.getReg(ins.B)
		name := vm.Prog.Constants[ins.C].Str
		vm.setReg(ins.A, BoolRV(v.TypeName() == name))

	case OpIterInit:
		coll := vm.getReg(ins.B)
		it := vm.Pools.GetIterator()
		switch coll.Tag {
		case RVList:
			it.List = coll.Obj.(*ListObject)
		case RVRange:
			r := coll.Obj.(*RangeObject)
			it.isRange = true
			it.rangeCur = r.Start
			it.rangeEnd = r.End
			it.rangeIncl = r.Inclusive
		default:
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "%s is not iterable", coll.TypeName()))
		}
		vm.setReg(ins.A, IteratorRV(it))
	case OpIterNext:
		it := vm.getReg(ins.C).Obj.(*IteratorObject)
		v, more := it.Next()
		if more {
			vm.setReg(ins.B, v)
		}
		vm.setReg(ins.A, BoolRV(more))

	case OpTry:
		vm.tryStack = append(vm.tryStack, tryEntry{Frame: f, CatchAddr: ins.A})
	case OpPopTry:
		if len(vm.tryStack) > 0 {
			vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]
		}
	case OpThrow:
		return vm.raise(vm.getReg(ins.A), ins.Span)
	case OpReRaise:
		return vm.raise(f.Get(excSlot), ins.Span)

	case OpMakeRef:
		vm.setReg(ins.A, ReferenceRV(vm.Pools.GetRef(f, ins.B)))
	case OpDeref:
		ref := vm.getReg(ins.B)
		if ref.Tag != RVReference {
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot dereference a %s", ref.TypeName()))
		}
		vm.setReg(ins.A, ref.Obj.(*ReferenceValue).Get())
	case OpSetRef:
		ref := vm.getReg(ins.A)
		if ref.Tag != RVReference {
			return vm.dispatchError(rtErr(RTTypeError, ins.Span, "cannot write through a %s", ref.TypeName()))
		}
		rv := ref.Obj.(*ReferenceValue)
		if rv.Frame.Locked[rv.Reg] {
			return vm.dispatchError(CannotAssignSolidError{Span: ins.Span})
		}
		rv.Set(vm.getReg(ins.B))

	case OpConcat:
		s := ""
		for i := 0; i < ins.C; i++ {
			s += vm.getReg(ins.B + i).String()
		}
		vm.setReg(ins.A, StringRV(vm.Pools.GetString(s)))

	case OpPrint:
		fmt.Fprintln(vm.Intrinsics.Output, vm.getReg(ins.A).String())
	case OpHalt:
		vm.halted = true

	case OpAddConst:
		c := vm.Prog.Constants[ins.C]
		res, err := vm.arith(OpAdd, vm.getReg(ins.B), vm.constantToRV(c), ins.Span)
		if err != nil {
			return vm.dispatchError(err)
		}
		vm.setReg(ins.A, res)
	case OpIncJumpIfLt:
		f.Set(ins.B, numericAdd1(f.Get(ins.B), 1))
		if f.Get(ins.B).I < vm.getReg(ins.C).I {
			f.PC = ins.A
		}
	case OpJumpIfFalsePop:
		if !vm.getReg(ins.B).Truthy() {
			f.PC = ins.A
		}

	default:
		return vm.dispatchError(rtErr(RTTypeError, ins.Span, "unimplemented opcode %s", ins.Op))
	}
	return nil
}

func (vm *VM) constantToRV(c Constant) RuntimeValue {
	switch {
	case c.IsString:
		return StringRV(vm.Pools.GetString(c.Str))
	case c.IsDouble:
		return DoubleRV(c.FltVal)
	case c.IsFloat:
		return FloatRV(c.FltVal)
	default:
		return IntRV(c.IntVal)
	}
}

// mangledAnyArity resolves a bare function name to its mangled
// `name__arity` key when exactly one overload exists — OpLoadFunc has
// no argument count to disambiguate with, so first-class function
// values only support the common case of a single declared arity
// (documented simplification of §4.4's overload-by-arity rule).
func mangledAnyArity(p *Program, name string) string {
	for k, v := range p.Funcs {
		if v.Name == name || (len(k) > len(name) && k[:len(name)] == name && k[len(name)] == '_') {
			return k
		}
	}
	return name
}

// invoke dispatches a call to an already-resolved FunctionObject,
// binding parameters (and `ref` parameters, and a lambda's captured
// values) into a pooled frame per §4.8.
func (vm *VM) invoke(fn *FunctionObject, argBase, argCount, dstReg int, sp Span) error {
	if callDepth(vm.frame) > vm.Cfg.GetInt(CfgMaxCallDepth, 4096) {
		return vm.dispatchError(rtErr(RTStackOverflow, sp, "call stack exceeded max depth"))
	}
	caller := vm.frame
	nf := vm.Pools.GetFrame(vm.Prog, fn.NumRegs, caller, caller.PC, dstReg)

	selfOffset := 0
	if fn.IsMethod {
		if argCount > 0 {
			nf.Regs[0] = caller.Get(argBase)
		}
		selfOffset = 1
	}
	for i := 0; i < fn.NumParams; i++ {
		argIdx := i + selfOffset
		var v RuntimeValue
		if argIdx < argCount {
			v = caller.Get(argBase + argIdx)
		}
		destReg := i + selfOffset
		if i < len(fn.ParamRefs) && fn.ParamRefs[i] && argIdx < argCount {
			// v is already the *ReferenceValue OpMakeRef built over the
			// caller's own variable register at the call site (§4.8);
			// reusing it — instead of wrapping the caller's temporary
			// argument-block slot in a fresh reference — is what makes
			// writes through the parameter visible to the caller.
			if v.Tag == RVReference {
				nf.BindRef(destReg, v.Obj.(*ReferenceValue))
			} else {
				nf.BindRef(destReg, vm.Pools.GetRef(caller, argBase+argIdx))
			}
		} else {
			nf.Regs[destReg] = v
		}
	}
	for i, cv := range fn.Captured {
		idx := fn.NumParams + selfOffset + i
		if idx < len(nf.Regs) {
			nf.Regs[idx] = cv
		}
	}
	nf.PC = fn.StartAddr
	vm.frame = nf
	return nil
}

func callDepth(f *CallFrame) int {
	n := 0
	for f != nil {
		n++
		f = f.Caller
	}
	return n
}

// invokeNamed resolves a late-bound call by name (§4.4): first a
// declared user function/method of matching arity, falling back to the
// intrinsic surface (§6), gated by the configured allow/deny lists.
func (vm *VM) invokeNamed(name string, argBase, argCount, dstReg int, sp Span) error {
	mangled := MangledMethodName(name, argCount)
	if desc, ok := vm.Prog.Funcs[mangled]; ok {
		fn := &FunctionObject{
			StartAddr: desc.StartAddr, NumParams: desc.NumParams, NumRegs: desc.NumRegs,
			ParamRefs: desc.ParamRefs, IsMethod: desc.IsMethod, Name: desc.Name,
		}
		return vm.invoke(fn, argBase, argCount, dstReg, sp)
	}
	if !vm.Intrinsics.Allowed(name, vm.Cfg) {
		return vm.dispatchError(SecurityError{Name: name, Span: sp})
	}
	args := make([]RuntimeValue, argCount)
	for i := 0; i < argCount; i++ {
		args[i] = vm.frame.Get(argBase + i)
	}
	res, err := vm.Intrinsics.Call(name, args, sp)
	if err != nil {
		return vm.dispatchError(err)
	}
	vm.setReg(dstReg, res)
	return nil
}

// doReturn pops the current frame, propagating its return value into
// the caller's designated register, or finishes the whole run if this
// was the outermost frame.
func (vm *VM) doReturn(srcReg int) error {
	f := vm.frame
	var v RuntimeValue
	if srcReg >= 0 {
		v = f.Get(srcReg)
	}
	caller := f.Caller
	if caller == nil {
		vm.halted = true
		return nil
	}
	vm.Pools.PutFrame(f)
	vm.frame = caller
	caller.PC = f.RetAddr
	if f.RetReg >= 0 {
		vm.setRegOnFrame(caller, f.RetReg, v)
	}
	return nil
}

func (vm *VM) setRegOnFrame(f *CallFrame, r int, v RuntimeValue) {
	if isGlobalReg(r) {
		vm.Globals[decReg(r)] = v
	} else {
		f.Set(r, v)
	}
}

// raise implements §4.9's unwind: pop call frames until a frame with an
// active try entry is found, deposit the thrown value in its excSlot
// register, and resume at the catch address. An empty try stack means
// the exception is uncaught and becomes a host-visible RuntimeError.
func (vm *VM) raise(val RuntimeValue, sp Span) error {
	if len(vm.tryStack) == 0 {
		return vm.dispatchError(rtErr(RTUncaughtException, sp, "uncaught exception: %s", val.String()))
	}
	entry := vm.tryStack[len(vm.tryStack)-1]
	vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]
	for vm.frame != entry.Frame && vm.frame != nil {
		done := vm.frame
		vm.frame = done.Caller
		vm.Pools.PutFrame(done)
	}
	if vm.frame == nil {
		return vm.dispatchError(rtErr(RTUncaughtException, sp, "uncaught exception: %s", val.String()))
	}
	vm.frame.Set(excSlot, val)
	vm.frame.PC = entry.CatchAddr
	return nil
}

func (vm *VM) dispatchError(err error) error {
	if rt, ok := err.(RuntimeError); ok {
		switch rt.Kind {
		case RTTypeError, RTIndexError, RTDivideByZero:
			if len(vm.tryStack) > 0 {
				return vm.raise(ExceptionRV(&ExceptionObject{Kind: rt.Kind.String(), Message: rt.Msg, Span: rt.Span}), rt.Span)
			}
		}
		rt.Stack = vm.stackSpans()
		return rt
	}
	return err
}

func (vm *VM) stackSpans() []Span {
	var spans []Span
	for f := vm.frame; f != nil; f = f.Caller {
		if f.PC-1 >= 0 && f.PC-1 < len(vm.Prog.Code) {
			spans = append(spans, vm.Prog.Code[f.PC-1].Span)
		}
	}
	return spans
}
