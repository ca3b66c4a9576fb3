package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newArithVM builds a minimal VM whose register file is big enough to
// exercise a single arithmetic/comparison instruction directly, without
// going through the emitter.
func newArithVM() *VM {
	prog := &Program{NumRegs: 3, NumGlobals: 0}
	return NewVM(prog, DefaultConfig())
}

func TestInlineCacheSpecializesAfterFirstHit(t *testing.T) {
	vm := newArithVM()
	ins := Instruction{Op: OpAdd, A: 0, B: 1, C: 2}
	vm.setReg(1, IntRV(2))
	vm.setReg(2, IntRV(3))

	// Before specialization the cache has nothing for this address.
	assert.False(t, vm.Cache.tryCached(vm, 10, ins))

	vm.maybeSpecialize(10, ins)
	assert.True(t, vm.Cache.tryCached(vm, 10, ins))
	assert.Equal(t, int64(5), vm.getReg(0).I)
}

func TestInlineCacheGuardClearsOnTypeMismatch(t *testing.T) {
	vm := newArithVM()
	ins := Instruction{Op: OpAdd, A: 0, B: 1, C: 2}
	vm.setReg(1, IntRV(2))
	vm.setReg(2, IntRV(3))
	vm.maybeSpecialize(10, ins)
	assert.True(t, vm.Cache.tryCached(vm, 10, ins))

	// Operand types change underneath the cached address (e.g. the same
	// bytecode address reached with a Double the second time through a
	// loop) — the guard must reject and clear the entry rather than
	// silently computing the wrong thing.
	vm.setReg(1, DoubleRV(2.5))
	vm.setReg(2, DoubleRV(1.0))
	assert.False(t, vm.Cache.tryCached(vm, 10, ins))
	_, stillCached := vm.Cache.handlers[10]
	assert.False(t, stillCached)
}

func TestInlineCacheComparisonSpecialization(t *testing.T) {
	vm := newArithVM()
	ins := Instruction{Op: OpLt, A: 0, B: 1, C: 2}
	vm.setReg(1, IntRV(1))
	vm.setReg(2, IntRV(2))
	vm.maybeSpecialize(20, ins)
	assert.True(t, vm.Cache.tryCached(vm, 20, ins))
	assert.True(t, vm.getReg(0).Truthy())
}

func TestInlineCacheIgnoresUnspecializableOpcodes(t *testing.T) {
	vm := newArithVM()
	ins := Instruction{Op: OpMove, A: 0, B: 1}
	vm.maybeSpecialize(30, ins)
	_, ok := vm.Cache.handlers[30]
	assert.False(t, ok)
}

func TestInlineCacheSeparateAddressesAreIndependent(t *testing.T) {
	vm := newArithVM()
	add := Instruction{Op: OpAdd, A: 0, B: 1, C: 2}
	vm.setReg(1, IntRV(10))
	vm.setReg(2, IntRV(4))
	vm.maybeSpecialize(1, add)

	eq := Instruction{Op: OpEq, A: 0, B: 1, C: 2}
	vm.maybeSpecialize(2, eq)

	assert.Len(t, vm.Cache.handlers, 2)
	assert.True(t, vm.Cache.tryCached(vm, 1, add))
	assert.Equal(t, int64(14), vm.getReg(0).I)
	assert.True(t, vm.Cache.tryCached(vm, 2, eq))
	assert.False(t, vm.getReg(0).Truthy())
}

func TestInlineCacheDoesNotChangeObservableSemantics(t *testing.T) {
	// End-to-end: a tight loop re-executes the same add/compare
	// addresses many times with stable Int operands, so the fast path
	// installs and stays hot — the printed result must match what the
	// generic dispatch alone would produce.
	src := `func Main() {
		total = 0;
		i = 0;
		while i < 100 {
			total = total + i;
			i = i + 1;
		}
		print(total);
	}`
	assert.Equal(t, "4950\n", runScript(t, src))
}
