package fluence

// CallFrame is one activation record: the register file for a single
// running Program (top-level module or a function/lambda body), the
// return address/register in the caller, and the set of registers
// holding `ref` parameters so writes through them are distinguishable
// from ordinary local writes (§4.8). Grounded on `vm_stack.go`'s
// single-slice tagged `frame` struct (the teacher shares one
// representation across its Backtracking/Call/Capture frame kinds);
// here a CallFrame only ever represents one kind of activation, so the
// discriminator collapses away and the struct is just the register
// file plus bookkeeping.
type CallFrame struct {
	Prog   *Program
	Regs   []RuntimeValue
	PC     int
	Caller *CallFrame
	RetAddr int
	RetReg  int

	// Locked is the per-register writability cache backing `solid`
	// (§3, §4.4): Locked[r] flips true on r's first store once the
	// emitter has marked that store as a solid declaration's defining
	// write (OpLockSlot), after which any further store to r must raise
	// CannotAssignSolid.
	Locked []bool

	// refParams maps a register index to the ReferenceValue backing
	// it, for parameters declared `ref` in this frame's Program. A
	// write to refParams[r] must go through Set, not Regs[r] directly.
	refParams map[int]*ReferenceValue
}

// NewCallFrame builds a fresh frame sharing `prog` (every function body
// lives inline in the one top-level Program — §1) but sized for this
// particular function/lambda's own register count, since each
// activation addresses its registers from 0 independently of where its
// code happens to sit in the shared instruction vector. `caller` is nil
// for the top-level frame.
func NewCallFrame(prog *Program, numRegs int, caller *CallFrame, retAddr, retReg int) *CallFrame {
	return &CallFrame{
		Prog:    prog,
		Regs:    make([]RuntimeValue, numRegs),
		Locked:  make([]bool, numRegs),
		Caller:  caller,
		RetAddr: retAddr,
		RetReg:  retReg,
	}
}

// Reset clears a frame for reuse from the frame pool (Design Note §9).
func (f *CallFrame) Reset(prog *Program, numRegs int, caller *CallFrame, retAddr, retReg int) {
	f.Prog = prog
	if cap(f.Regs) >= numRegs {
		f.Regs = f.Regs[:numRegs]
		for i := range f.Regs {
			f.Regs[i] = Nil
		}
	} else {
		f.Regs = make([]RuntimeValue, numRegs)
	}
	if cap(f.Locked) >= numRegs {
		f.Locked = f.Locked[:numRegs]
		for i := range f.Locked {
			f.Locked[i] = false
		}
	} else {
		f.Locked = make([]bool, numRegs)
	}
	f.PC = 0
	f.Caller = caller
	f.RetAddr = retAddr
	f.RetReg = retReg
	if f.refParams != nil {
		for k := range f.refParams {
			delete(f.refParams, k)
		}
	}
}

// BindRef installs a reference parameter: reads and writes of register
// `reg` in this frame are redirected to `ref`.
func (f *CallFrame) BindRef(reg int, ref *ReferenceValue) {
	if f.refParams == nil {
		f.refParams = make(map[int]*ReferenceValue)
	}
	f.refParams[reg] = ref
}

// Get reads register `reg`, following a ref-parameter indirection if
// one is bound there.
func (f *CallFrame) Get(reg int) RuntimeValue {
	if ref, ok := f.refParams[reg]; ok {
		return ref.Get()
	}
	return f.Regs[reg]
}

// Set writes register `reg`, propagating through a ref-parameter
// indirection if one is bound there.
func (f *CallFrame) Set(reg int, v RuntimeValue) {
	if ref, ok := f.refParams[reg]; ok {
		ref.Set(v)
		return
	}
	f.Regs[reg] = v
}

// IsLocked reports whether `reg` already received a solid slot's one
// permitted store — following a ref-parameter indirection to the
// caller's real register, so a write through `ref` to a solid variable
// the compiler couldn't see is still caught.
func (f *CallFrame) IsLocked(reg int) bool {
	if ref, ok := f.refParams[reg]; ok {
		return ref.Frame.Locked[ref.Reg]
	}
	return f.Locked[reg]
}

// Lock flips `reg`'s writability-cache bit, following the same
// ref-parameter indirection as IsLocked/Set.
func (f *CallFrame) Lock(reg int) {
	if ref, ok := f.refParams[reg]; ok {
		ref.Frame.Locked[ref.Reg] = true
		return
	}
	f.Locked[reg] = true
}
