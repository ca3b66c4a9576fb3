package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolsReuseFramesAfterPutFrame(t *testing.T) {
	p := NewPools()
	prog := &Program{}
	f1 := p.GetFrame(prog, 4, nil, -1, -1)
	f1.Regs[0] = IntRV(7)
	p.PutFrame(f1)

	f2 := p.GetFrame(prog, 4, nil, -1, -1)
	assert.Same(t, f1, f2, "a pooled frame should be reused rather than reallocated")
	assert.Equal(t, Nil, f2.Regs[0], "Reset must clear stale register values")
}

func TestPoolsGetFrameGrowsRegsWhenUndersized(t *testing.T) {
	p := NewPools()
	prog := &Program{}
	f := p.GetFrame(prog, 2, nil, -1, -1)
	p.PutFrame(f)

	f2 := p.GetFrame(prog, 10, nil, -1, -1)
	assert.Len(t, f2.Regs, 10)
}

func TestPoolsReuseListsAndResetElems(t *testing.T) {
	p := NewPools()
	l1 := p.GetList()
	l1.Elems = append(l1.Elems, IntRV(1), IntRV(2))
	p.PutList(l1)

	l2 := p.GetList()
	assert.Same(t, l1, l2)
	assert.Empty(t, l2.Elems)
}

func TestPoolsReuseStringsWithFreshData(t *testing.T) {
	p := NewPools()
	s1 := p.GetString("first")
	p.PutString(s1)

	s2 := p.GetString("second")
	assert.Same(t, s1, s2)
	assert.Equal(t, "second", s2.Data)
}

func TestPoolsReuseInstancesWithFreshFields(t *testing.T) {
	p := NewPools()
	i1 := p.GetInstance()
	i1.Fields["x"] = IntRV(1)
	i1.FieldOrder = append(i1.FieldOrder, "x")
	p.PutInstance(i1)

	i2 := p.GetInstance()
	assert.Same(t, i1, i2)
	assert.Empty(t, i2.Fields)
}

func TestPoolsReuseIterators(t *testing.T) {
	p := NewPools()
	it1 := p.GetIterator()
	it1.isRange = true
	it1.rangeCur = 5
	p.PutIterator(it1)

	it2 := p.GetIterator()
	assert.Same(t, it1, it2)
	assert.False(t, it2.isRange)
	assert.Equal(t, int64(0), it2.rangeCur)
}

func TestPoolsReuseExceptions(t *testing.T) {
	p := NewPools()
	e1 := p.GetException()
	p.PutException(e1)
	e2 := p.GetException()
	assert.Same(t, e1, e2)
}

func TestPoolsRefPointsAtRequestedFrameAndRegister(t *testing.T) {
	p := NewPools()
	frame := &CallFrame{Regs: []RuntimeValue{IntRV(1), IntRV(2)}}
	ref := p.GetRef(frame, 1)
	assert.Equal(t, int64(2), ref.Get().I)

	ref.Set(IntRV(99))
	assert.Equal(t, int64(99), frame.Regs[1].I)

	p.PutRef(ref)
	reused := p.GetRef(frame, 0)
	assert.Same(t, ref, reused)
	assert.Equal(t, 0, reused.Reg)
}
