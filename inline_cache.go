package fluence

// SpecializedHandler is a monomorphic fast path installed on one
// instruction address after its operand runtime types have been
// observed once (§4.7). It returns false if the types it was
// specialized for no longer hold — the VM then clears the cache entry
// for that address and falls back to the generic handler in vm.go's
// dispatch switch, which re-specializes on its next execution. This is
// the type-guard-and-clear strategy §4.7 explicitly requires rather
// than letting a stale specialization silently miscompute.
type SpecializedHandler func(vm *VM, ins Instruction) bool

// InlineCache holds one optional specialized handler per instruction
// address, keyed by address because a given instruction's operand
// *shape* (register vs. global vs. constant) never changes across
// executions even though the runtime *type* held in those operands can.
// Grounded on Design Note §9's explicit guidance ("function pointers
// plus a small captured-state record per instruction... a tagged union
// of capture shapes") — there is no teacher precedent for per-
// instruction specialization (the PEG VM has no numeric tower to
// specialize over), so this is built from the Design Note alone rather
// than adapted from existing code, using a plain map rather than a
// parallel slice since only a minority of instructions ever earn an
// entry.
type InlineCache struct {
	handlers map[int]SpecializedHandler
}

func NewInlineCache() *InlineCache {
	return &InlineCache{handlers: make(map[int]SpecializedHandler)}
}

// tryCached runs the address's specialized handler, if any, and clears
// it on a type-guard miss. Reports whether it handled the instruction.
func (c *InlineCache) tryCached(vm *VM, addr int, ins Instruction) bool {
	h, ok := c.handlers[addr]
	if !ok {
		return false
	}
	if h(vm, ins) {
		return true
	}
	delete(c.handlers, addr)
	return false
}

// specializeArith installs a monomorphic int-int fast path for an
// arithmetic opcode the first time both its operands are observed to be
// plain Ints — far and away the most common case in loop-heavy script
// code — skipping the numeric-tower widening `value_ops.go`'s generic
// `arith` always pays for.
func (c *InlineCache) specializeArith(addr int, op Opcode) {
	c.handlers[addr] = func(vm *VM, ins Instruction) bool {
		a, b := vm.getReg(ins.B), vm.getReg(ins.C)
		if a.Tag != RVInt || b.Tag != RVInt {
			return false
		}
		var r int64
		switch op {
		case OpAdd:
			r = a.I + b.I
		case OpSub:
			r = a.I - b.I
		case OpMul:
			r = a.I * b.I
		default:
			return false
		}
		vm.setReg(ins.A, IntRV(r))
		return true
	}
}

// specializeCompare installs a monomorphic int-int fast path for a
// comparison/equality opcode, mirroring specializeArith.
func (c *InlineCache) specializeCompare(addr int, op Opcode) {
	c.handlers[addr] = func(vm *VM, ins Instruction) bool {
		a, b := vm.getReg(ins.B), vm.getReg(ins.C)
		if a.Tag != RVInt || b.Tag != RVInt {
			return false
		}
		var r bool
		switch op {
		case OpEq:
			r = a.I == b.I
		case OpNeq:
			r = a.I != b.I
		case OpLt:
			r = a.I < b.I
		case OpLe:
			r = a.I <= b.I
		case OpGt:
			r = a.I > b.I
		case OpGe:
			r = a.I >= b.I
		default:
			return false
		}
		vm.setReg(ins.A, BoolRV(r))
		return true
	}
}

// maybeSpecialize installs a cache entry for `addr` the first time the
// generic handler at `step` executes an opcode §4.7 names as a
// specialization candidate. Scoped down to the arithmetic/comparison/
// equality tier: `GetElement`/`IterNext`/`CallFunction` specialization
// named in §4.7 would need per-call-site operand-kind bookkeeping the
// emitter doesn't currently track (which register slot is a constant
// vs. a variable vs. a global), so only the tier that specializes
// purely on *runtime* type — observable from the VM side alone, no
// emitter cooperation needed — is implemented; recorded in DESIGN.md.
func (vm *VM) maybeSpecialize(addr int, ins Instruction) {
	switch ins.Op {
	case OpAdd, OpSub, OpMul:
		vm.Cache.specializeArith(addr, ins.Op)
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		vm.Cache.specializeCompare(addr, ins.Op)
	}
}
