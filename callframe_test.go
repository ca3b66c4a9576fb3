package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallFrameGetSetPlainRegisters(t *testing.T) {
	f := NewCallFrame(&Program{}, 3, nil, -1, -1)
	f.Set(0, IntRV(5))
	assert.Equal(t, int64(5), f.Get(0).I)
}

func TestCallFrameResetClearsRegistersAndRefs(t *testing.T) {
	f := NewCallFrame(&Program{}, 2, nil, -1, -1)
	f.Set(0, IntRV(1))
	other := NewCallFrame(&Program{}, 2, nil, -1, -1)
	f.BindRef(1, &ReferenceValue{Frame: other, Reg: 0})

	f.Reset(&Program{}, 2, nil, 10, 3)
	assert.Equal(t, Nil, f.Get(0))
	assert.Equal(t, 10, f.RetAddr)
	assert.Equal(t, 3, f.RetReg)
	_, hasRef := f.refParams[1]
	assert.False(t, hasRef, "Reset must clear bound ref parameters")
}

func TestCallFrameResetGrowsRegsWhenCapacityTooSmall(t *testing.T) {
	f := NewCallFrame(&Program{}, 2, nil, -1, -1)
	f.Reset(&Program{}, 8, nil, -1, -1)
	assert.Len(t, f.Regs, 8)
}

func TestCallFrameBindRefRedirectsGetAndSet(t *testing.T) {
	caller := NewCallFrame(&Program{}, 2, nil, -1, -1)
	caller.Set(0, IntRV(42))
	callee := NewCallFrame(&Program{}, 1, caller, -1, -1)
	callee.BindRef(0, &ReferenceValue{Frame: caller, Reg: 0})

	assert.Equal(t, int64(42), callee.Get(0).I)
	callee.Set(0, IntRV(99))
	assert.Equal(t, int64(99), caller.Get(0).I)
}
