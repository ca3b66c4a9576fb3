package fluence

import "fmt"

// RVTag discriminates the inline tagged union RuntimeValue uses to
// avoid heap-allocating numbers, booleans, and nil — the Design Note in
// §9 calls this out explicitly ("avoid per-value heap allocation for
// numbers, booleans, nil; reserve the heap for genuinely reference-typed
// data"). Everything reference-typed (strings, lists, ranges,
// iterators, struct instances, functions, exceptions, references) is
// held behind `Obj` instead.
type RVTag int

const (
	RVNil RVTag = iota
	RVBool
	RVInt
	RVLong
	RVDouble
	RVFloat
	RVChar
	RVString
	RVList
	RVRange
	RVIterator
	RVInstance
	RVFunction
	RVException
	RVReference
)

func (t RVTag) String() string {
	switch t {
	case RVNil:
		return "Nil"
	case RVBool:
		return "Bool"
	case RVInt:
		return "Int"
	case RVLong:
		return "Long"
	case RVDouble:
		return "Double"
	case RVFloat:
		return "Float"
	case RVChar:
		return "Char"
	case RVString:
		return "String"
	case RVList:
		return "List"
	case RVRange:
		return "Range"
	case RVIterator:
		return "Iterator"
	case RVInstance:
		return "Instance"
	case RVFunction:
		return "Function"
	case RVException:
		return "Exception"
	case RVReference:
		return "Reference"
	default:
		return "?"
	}
}

// RuntimeValue is the VM's universal register/stack slot. The numeric
// and nil/bool variants live entirely inline (I/F/C/B); every other
// variant stores a pointer to its heap object in Obj, with Tag saying
// which concrete type to assert it to.
type RuntimeValue struct {
	Tag RVTag
	I   int64
	F   float64
	C   rune
	B   bool
	Obj interface{}
}

var Nil = RuntimeValue{Tag: RVNil}

func IntRV(i int64) RuntimeValue    { return RuntimeValue{Tag: RVInt, I: i} }
func LongRV(i int64) RuntimeValue   { return RuntimeValue{Tag: RVLong, I: i} }
func DoubleRV(f float64) RuntimeValue { return RuntimeValue{Tag: RVDouble, F: f} }
func FloatRV(f float64) RuntimeValue  { return RuntimeValue{Tag: RVFloat, F: f} }
func BoolRV(b bool) RuntimeValue    { return RuntimeValue{Tag: RVBool, B: b} }
func CharRV(c rune) RuntimeValue    { return RuntimeValue{Tag: RVChar, C: c} }

func StringRV(s *StringObject) RuntimeValue { return RuntimeValue{Tag: RVString, Obj: s} }
func ListRV(l *ListObject) RuntimeValue     { return RuntimeValue{Tag: RVList, Obj: l} }
func RangeRV(r *RangeObject) RuntimeValue   { return RuntimeValue{Tag: RVRange, Obj: r} }
func IteratorRV(it *IteratorObject) RuntimeValue {
	return RuntimeValue{Tag: RVIterator, Obj: it}
}
func InstanceRV(i *InstanceObject) RuntimeValue { return RuntimeValue{Tag: RVInstance, Obj: i} }
func FunctionRV(f *FunctionObject) RuntimeValue { return RuntimeValue{Tag: RVFunction, Obj: f} }
func ExceptionRV(e *ExceptionObject) RuntimeValue {
	return RuntimeValue{Tag: RVException, Obj: e}
}
func ReferenceRV(r *ReferenceValue) RuntimeValue {
	return RuntimeValue{Tag: RVReference, Obj: r}
}

// IsNumeric reports whether the value is one of the four numeric
// flavors (§3).
func (v RuntimeValue) IsNumeric() bool {
	switch v.Tag {
	case RVInt, RVLong, RVDouble, RVFloat:
		return true
	default:
		return false
	}
}

// IsFloatingPoint reports whether the value's numeric storage is F
// rather than I.
func (v RuntimeValue) IsFloatingPoint() bool {
	return v.Tag == RVDouble || v.Tag == RVFloat
}

// AsFloat64 widens any numeric value to float64 for mixed arithmetic.
func (v RuntimeValue) AsFloat64() float64 {
	if v.IsFloatingPoint() {
		return v.F
	}
	return float64(v.I)
}

// Truthy implements Fluence's truthiness rule: nil and false are falsy,
// everything else (including 0 and the empty string) is truthy — the
// language has no numeric/string "falsy zero" coercion (§3).
func (v RuntimeValue) Truthy() bool {
	switch v.Tag {
	case RVNil:
		return false
	case RVBool:
		return v.B
	default:
		return true
	}
}

// TypeName returns the name the `type_of` intrinsic reports (§6).
func (v RuntimeValue) TypeName() string {
	switch v.Tag {
	case RVInt:
		return "Int"
	case RVLong:
		return "Long"
	case RVDouble:
		return "Double"
	case RVFloat:
		return "Float"
	case RVBool:
		return "Bool"
	case RVChar:
		return "Char"
	case RVNil:
		return "Nil"
	case RVString:
		return "String"
	case RVList:
		return "List"
	case RVRange:
		return "Range"
	case RVIterator:
		return "Iterator"
	case RVInstance:
		return v.Obj.(*InstanceObject).StructName
	case RVFunction:
		return "Function"
	case RVException:
		return v.Obj.(*ExceptionObject).Kind
	case RVReference:
		return "Reference"
	default:
		return "?"
	}
}

func (v RuntimeValue) String() string {
	switch v.Tag {
	case RVNil:
		return "nil"
	case RVBool:
		return fmt.Sprintf("%t", v.B)
	case RVInt, RVLong:
		return fmt.Sprintf("%d", v.I)
	case RVDouble, RVFloat:
		return fmt.Sprintf("%g", v.F)
	case RVChar:
		return string(v.C)
	case RVString:
		return v.Obj.(*StringObject).Data
	case RVList:
		return v.Obj.(*ListObject).String()
	case RVRange:
		return v.Obj.(*RangeObject).String()
	case RVIterator:
		return "<iterator>"
	case RVInstance:
		return v.Obj.(*InstanceObject).String()
	case RVFunction:
		return fmt.Sprintf("<function %s>", v.Obj.(*FunctionObject).Name)
	case RVException:
		return v.Obj.(*ExceptionObject).String()
	case RVReference:
		return "<reference>"
	default:
		return "?"
	}
}

// Resettable is implemented by pooled heap objects so pool.go can
// return them to a free list between calls without leaking stale state
// (Design Note §9: "fixed-type free lists with a reset trait").
type Resettable interface {
	Reset()
}

// StringObject is Fluence's heap string representation. Strings are
// immutable once constructed — operations that "modify" a string
// produce a new StringObject — but are still heap objects (rather than
// inline Go strings) so concatenation-heavy code can round-trip through
// the pool instead of growing garbage on every `+`.
type StringObject struct {
	Data string
}

func (s *StringObject) Reset() { s.Data = "" }

// ListObject is Fluence's only sequence container: a growable,
// index-addressable, heterogeneously-typed vector (§3).
type ListObject struct {
	Elems []RuntimeValue
}

func (l *ListObject) Reset() { l.Elems = l.Elems[:0] }

func (l *ListObject) String() string {
	s := "["
	for i, e := range l.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}

// RangeObject is a lazily-iterated `start..end` / `start..=end` span.
type RangeObject struct {
	Start, End int64
	Inclusive  bool
}

func (r *RangeObject) Reset() { *r = RangeObject{} }

func (r *RangeObject) String() string {
	if r.Inclusive {
		return fmt.Sprintf("%d..=%d", r.Start, r.End)
	}
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// IteratorObject drives `for x in collection` loops (§4.2). It closes
// over either a ListObject or a RangeObject and walks it one element at
// a time via OpIterNext.
type IteratorObject struct {
	List       *ListObject
	listIdx    int
	rangeCur   int64
	rangeEnd   int64
	rangeIncl  bool
	isRange    bool
	exhausted  bool
}

func NewListIterator(l *ListObject) *IteratorObject {
	return &IteratorObject{List: l}
}

func NewRangeIterator(r *RangeObject) *IteratorObject {
	return &IteratorObject{isRange: true, rangeCur: r.Start, rangeEnd: r.End, rangeIncl: r.Inclusive}
}

func (it *IteratorObject) Reset() { *it = IteratorObject{} }

// Next returns the next element and true, or the zero value and false
// once exhausted.
func (it *IteratorObject) Next() (RuntimeValue, bool) {
	if it.exhausted {
		return Nil, false
	}
	if it.isRange {
		if (it.rangeIncl && it.rangeCur > it.rangeEnd) || (!it.rangeIncl && it.rangeCur >= it.rangeEnd) {
			it.exhausted = true
			return Nil, false
		}
		v := it.rangeCur
		it.rangeCur++
		return IntRV(v), true
	}
	if it.listIdx >= len(it.List.Elems) {
		it.exhausted = true
		return Nil, false
	}
	v := it.List.Elems[it.listIdx]
	it.listIdx++
	return v, true
}

// InstanceObject is a struct instantiation: a named set of fields in
// declaration order, plus a link back to the declaring Symbol so method
// dispatch can find `impl` blocks (§4.4).
type InstanceObject struct {
	StructName string
	StructSym  *Symbol
	Fields     map[string]RuntimeValue
	FieldOrder []string
}

func (i *InstanceObject) Reset() {
	i.StructName = ""
	i.StructSym = nil
	for k := range i.Fields {
		delete(i.Fields, k)
	}
	i.FieldOrder = i.FieldOrder[:0]
}

func (i *InstanceObject) String() string {
	s := i.StructName + " { "
	for idx, f := range i.FieldOrder {
		if idx > 0 {
			s += ", "
		}
		s += f + ": " + i.Fields[f].String()
	}
	return s + " }"
}

// FunctionObject is a first-class function value: a starting address
// into the single shared Program (every function body is laid out
// inline behind a jump, not as a separate nested Program — §1's "no
// persisted AST, one flat instruction vector" carries over to function
// layout too) plus the closed-over register values a lambda captures
// from its enclosing frame at the point the lambda value was created
// (§9's decided capture-at-creation-time model). Top-level `func`
// declarations have an empty Captured slice.
type FunctionObject struct {
	StartAddr int
	NumParams int
	NumRegs   int
	ParamRefs []bool
	IsMethod  bool
	Name      string
	Captured  []RuntimeValue
}

func (f *FunctionObject) Reset() {
	*f = FunctionObject{}
}

// ExceptionObject is a thrown value: a category tag, a message, and an
// optional structured payload (§4.9, §7).
type ExceptionObject struct {
	Kind    string
	Message string
	Payload RuntimeValue
	Span    Span
}

func (e *ExceptionObject) Reset() { *e = ExceptionObject{} }

func (e *ExceptionObject) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExceptionObject) Error() string { return e.String() }

// ReferenceValue is the runtime counterpart of a `ref` parameter (§4.8):
// an indirection cell pointing at a caller's register rather than a
// copy of its value, so writes inside the callee are visible to the
// caller after return.
type ReferenceValue struct {
	Frame *CallFrame
	Reg   int
}

func (r *ReferenceValue) Reset() { r.Frame = nil; r.Reg = 0 }

func (r *ReferenceValue) Get() RuntimeValue { return r.Frame.Regs[r.Reg] }
func (r *ReferenceValue) Set(v RuntimeValue) { r.Frame.Regs[r.Reg] = v }
