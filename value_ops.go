package fluence

// This file holds the numeric-tower and structural-equality rules
// shared by the VM's arithmetic/comparison opcodes (§3: "Int < Long <
// Double/Float widening, strings concatenate on +, lists don't").

// numericWiden decides the result tag for a binary arithmetic op: any
// floating operand widens the whole operation to floating point
// (Double wins over Float if both appear), otherwise Long wins over
// Int.
func numericWiden(a, b RuntimeValue) RVTag {
	if a.Tag == RVDouble || b.Tag == RVDouble {
		return RVDouble
	}
	if a.Tag == RVFloat || b.Tag == RVFloat {
		return RVFloat
	}
	if a.Tag == RVLong || b.Tag == RVLong {
		return RVLong
	}
	return RVInt
}

func makeNumeric(tag RVTag, f float64, i int64) RuntimeValue {
	switch tag {
	case RVDouble:
		return DoubleRV(f)
	case RVFloat:
		return FloatRV(f)
	case RVLong:
		return LongRV(i)
	default:
		return IntRV(i)
	}
}

// arith evaluates one of the six arithmetic opcodes, with `+` doubling
// as string concatenation when either side is a String (§3).
func (vm *VM) arith(op Opcode, a, b RuntimeValue, sp Span) (RuntimeValue, error) {
	if op == OpAdd && (a.Tag == RVString || b.Tag == RVString) {
		return StringRV(vm.Pools.GetString(a.String() + b.String())), nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Nil, rtErr(RTTypeError, sp, "unsupported operand types for arithmetic: %s and %s", a.TypeName(), b.TypeName())
	}
	tag := numericWiden(a, b)
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch op {
	case OpAdd:
		return makeNumeric(tag, af+bf, a.I+b.I), nil
	case OpSub:
		return makeNumeric(tag, af-bf, a.I-b.I), nil
	case OpMul:
		return makeNumeric(tag, af*bf, a.I*b.I), nil
	case OpDiv:
		if tag == RVInt || tag == RVLong {
			if b.I == 0 {
				return Nil, rtErr(RTDivideByZero, sp, "division by zero")
			}
			return makeNumeric(tag, af/bf, a.I/b.I), nil
		}
		return makeNumeric(tag, af/bf, 0), nil
	case OpMod:
		if b.I == 0 {
			return Nil, rtErr(RTDivideByZero, sp, "modulo by zero")
		}
		if tag == RVInt || tag == RVLong {
			return makeNumeric(tag, 0, a.I%b.I), nil
		}
		return makeNumeric(tag, floatMod(af, bf), 0), nil
	case OpPow:
		return makeNumeric(tag, floatPow(af, bf), intPow(a.I, b.I)), nil
	}
	return Nil, rtErr(RTTypeError, sp, "unreachable arithmetic opcode")
}

func floatMod(a, b float64) float64 {
	q := float64(int64(a / b))
	return a - q*b
}

func floatPow(base, exp float64) float64 {
	result := 1.0
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func numericAdd1(v RuntimeValue, delta int64) RuntimeValue {
	switch v.Tag {
	case RVDouble:
		return DoubleRV(v.F + float64(delta))
	case RVFloat:
		return FloatRV(v.F + float64(delta))
	case RVLong:
		return LongRV(v.I + delta)
	default:
		return IntRV(v.I + delta)
	}
}

// compare evaluates the four ordering opcodes. Numbers compare
// numerically (after widening), strings lexicographically; comparing
// any other pairing is a TypeError (§3, §7).
func (vm *VM) compare(op Opcode, a, b RuntimeValue, sp Span) (bool, error) {
	var c int
	switch {
	case a.IsNumeric() && b.IsNumeric():
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			c = -1
		case af > bf:
			c = 1
		default:
			c = 0
		}
	case a.Tag == RVString && b.Tag == RVString:
		as, bs := a.Obj.(*StringObject).Data, b.Obj.(*StringObject).Data
		switch {
		case as < bs:
			c = -1
		case as > bs:
			c = 1
		default:
			c = 0
		}
	default:
		return false, rtErr(RTTypeError, sp, "cannot compare %s and %s", a.TypeName(), b.TypeName())
	}
	switch op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return false, rtErr(RTTypeError, sp, "unreachable comparison opcode")
}

// valuesEqual implements `==`/`!=` structural equality (§3): numbers
// compare by widened value regardless of flavor, strings by content,
// lists element-wise, everything else by identity/tag.
func valuesEqual(a, b RuntimeValue) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case RVNil:
		return true
	case RVBool:
		return a.B == b.B
	case RVChar:
		return a.C == b.C
	case RVString:
		return a.Obj.(*StringObject).Data == b.Obj.(*StringObject).Data
	case RVList:
		al, bl := a.Obj.(*ListObject), b.Obj.(*ListObject)
		if len(al.Elems) != len(bl.Elems) {
			return false
		}
		for i := range al.Elems {
			if !valuesEqual(al.Elems[i], bl.Elems[i]) {
				return false
			}
		}
		return true
	case RVRange:
		ar, br := a.Obj.(*RangeObject), b.Obj.(*RangeObject)
		return *ar == *br
	case RVInstance:
		return a.Obj == b.Obj
	default:
		return a.Obj == b.Obj
	}
}

// indexGet implements `list[i]`/`string[i]`/range membership reads.
func (vm *VM) indexGet(obj, key RuntimeValue, sp Span) (RuntimeValue, error) {
	switch obj.Tag {
	case RVList:
		l := obj.Obj.(*ListObject)
		idx := key.I
		if idx < 0 || idx >= int64(len(l.Elems)) {
			return Nil, rtErr(RTIndexError, sp, "list index %d out of range (len %d)", idx, len(l.Elems))
		}
		return l.Elems[idx], nil
	case RVString:
		s := []rune(obj.Obj.(*StringObject).Data)
		idx := key.I
		if idx < 0 || idx >= int64(len(s)) {
			return Nil, rtErr(RTIndexError, sp, "string index %d out of range (len %d)", idx, len(s))
		}
		return CharRV(s[idx]), nil
	default:
		return Nil, rtErr(RTTypeError, sp, "%s is not indexable", obj.TypeName())
	}
}

// indexSet implements `list[i] = v`.
func (vm *VM) indexSet(obj, key, val RuntimeValue, sp Span) error {
	if obj.Tag != RVList {
		return rtErr(RTTypeError, sp, "%s does not support index assignment", obj.TypeName())
	}
	l := obj.Obj.(*ListObject)
	idx := key.I
	if idx < 0 || idx >= int64(len(l.Elems)) {
		return rtErr(RTIndexError, sp, "list index %d out of range (len %d)", idx, len(l.Elems))
	}
	l.Elems[idx] = val
	return nil
}
