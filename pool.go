package fluence

// Pools holds one free list per pooled heap/frame type the VM churns
// through on every call and every list/string operation. The VM is
// single-threaded per §5's cooperative scheduling model, so these are
// plain slice-backed free lists rather than sync.Pool — grounded on
// `vm_stack.go`'s own stack type, which is a plain growable slice with
// no locking, and on Design Note §9's explicit "fixed-type free lists
// with a reset trait" guidance over a concurrent-safe stdlib pool that
// would only pay for contention the VM never has.
type Pools struct {
	frames    []*CallFrame
	lists     []*ListObject
	strings   []*StringObject
	instances []*InstanceObject
	iterators []*IteratorObject
	exceptions []*ExceptionObject
	refs      []*ReferenceValue
}

func NewPools() *Pools { return &Pools{} }

func (p *Pools) GetFrame(prog *Program, numRegs int, caller *CallFrame, retAddr, retReg int) *CallFrame {
	if n := len(p.frames); n > 0 {
		f := p.frames[n-1]
		p.frames = p.frames[:n-1]
		f.Reset(prog, numRegs, caller, retAddr, retReg)
		return f
	}
	return NewCallFrame(prog, numRegs, caller, retAddr, retReg)
}

func (p *Pools) PutFrame(f *CallFrame) {
	p.frames = append(p.frames, f)
}

func (p *Pools) GetList() *ListObject {
	if n := len(p.lists); n > 0 {
		l := p.lists[n-1]
		p.lists = p.lists[:n-1]
		l.Reset()
		return l
	}
	return &ListObject{}
}

func (p *Pools) PutList(l *ListObject) { p.lists = append(p.lists, l) }

func (p *Pools) GetString(data string) *StringObject {
	if n := len(p.strings); n > 0 {
		s := p.strings[n-1]
		p.strings = p.strings[:n-1]
		s.Reset()
		s.Data = data
		return s
	}
	return &StringObject{Data: data}
}

func (p *Pools) PutString(s *StringObject) { p.strings = append(p.strings, s) }

func (p *Pools) GetInstance() *InstanceObject {
	if n := len(p.instances); n > 0 {
		i := p.instances[n-1]
		p.instances = p.instances[:n-1]
		i.Reset()
		i.Fields = make(map[string]RuntimeValue)
		return i
	}
	return &InstanceObject{Fields: make(map[string]RuntimeValue)}
}

func (p *Pools) PutInstance(i *InstanceObject) { p.instances = append(p.instances, i) }

func (p *Pools) GetIterator() *IteratorObject {
	if n := len(p.iterators); n > 0 {
		it := p.iterators[n-1]
		p.iterators = p.iterators[:n-1]
		it.Reset()
		return it
	}
	return &IteratorObject{}
}

func (p *Pools) PutIterator(it *IteratorObject) { p.iterators = append(p.iterators, it) }

func (p *Pools) GetException() *ExceptionObject {
	if n := len(p.exceptions); n > 0 {
		e := p.exceptions[n-1]
		p.exceptions = p.exceptions[:n-1]
		e.Reset()
		return e
	}
	return &ExceptionObject{}
}

func (p *Pools) PutException(e *ExceptionObject) { p.exceptions = append(p.exceptions, e) }

func (p *Pools) GetRef(frame *CallFrame, reg int) *ReferenceValue {
	if n := len(p.refs); n > 0 {
		r := p.refs[n-1]
		p.refs = p.refs[:n-1]
		r.Frame = frame
		r.Reg = reg
		return r
	}
	return &ReferenceValue{Frame: frame, Reg: reg}
}

func (p *Pools) PutRef(r *ReferenceValue) { p.refs = append(p.refs, r) }
