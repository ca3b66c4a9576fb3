package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpsVM() *VM {
	return NewVM(&Program{NumRegs: 1}, DefaultConfig())
}

func TestArithNumericWidening(t *testing.T) {
	tests := []struct {
		Name     string
		A, B     RuntimeValue
		Op       Opcode
		WantTag  RVTag
		WantI    int64
		WantF    float64
	}{
		{"int + int stays int", IntRV(2), IntRV(3), OpAdd, RVInt, 5, 0},
		{"int + long widens to long", IntRV(2), LongRV(3), OpAdd, RVLong, 5, 0},
		{"int + double widens to double", IntRV(2), DoubleRV(1.5), OpAdd, RVDouble, 0, 3.5},
		{"double beats float", DoubleRV(1.0), FloatRV(2.0), OpMul, RVDouble, 0, 2.0},
		{"sub keeps widened tag", LongRV(10), IntRV(4), OpSub, RVLong, 6, 0},
	}
	vm := newOpsVM()
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			res, err := vm.arith(test.Op, test.A, test.B, Span{})
			require.NoError(t, err)
			assert.Equal(t, test.WantTag, res.Tag)
			if test.WantTag == RVInt || test.WantTag == RVLong {
				assert.Equal(t, test.WantI, res.I)
			} else {
				assert.InDelta(t, test.WantF, res.F, 1e-9)
			}
		})
	}
}

func TestArithStringConcatenation(t *testing.T) {
	vm := newOpsVM()
	res, err := vm.arith(OpAdd, StringRV(&StringObject{Data: "foo"}), StringRV(&StringObject{Data: "bar"}), Span{})
	require.NoError(t, err)
	assert.Equal(t, "foobar", res.Obj.(*StringObject).Data)

	res, err = vm.arith(OpAdd, StringRV(&StringObject{Data: "n="}), IntRV(3), Span{})
	require.NoError(t, err)
	assert.Equal(t, "n=3", res.Obj.(*StringObject).Data)
}

func TestArithRejectsNonNumericOperands(t *testing.T) {
	vm := newOpsVM()
	_, err := vm.arith(OpSub, BoolRV(true), IntRV(1), Span{})
	require.Error(t, err)
	var rt RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, RTTypeError, rt.Kind)
}

func TestArithDivideAndModuloByZero(t *testing.T) {
	vm := newOpsVM()
	_, err := vm.arith(OpDiv, IntRV(1), IntRV(0), Span{})
	require.Error(t, err)
	var rt RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, RTDivideByZero, rt.Kind)

	_, err = vm.arith(OpMod, IntRV(1), IntRV(0), Span{})
	require.Error(t, err)
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, RTDivideByZero, rt.Kind)
}

func TestArithPow(t *testing.T) {
	vm := newOpsVM()
	res, err := vm.arith(OpPow, IntRV(2), IntRV(10), Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(1024), res.I)

	res, err = vm.arith(OpPow, DoubleRV(2.0), IntRV(-1), Span{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.F, 1e-9)
}

func TestCompareOrdering(t *testing.T) {
	vm := newOpsVM()

	lt, err := vm.compare(OpLt, IntRV(1), DoubleRV(2.0), Span{})
	require.NoError(t, err)
	assert.True(t, lt)

	lt, err = vm.compare(OpLt, StringRV(&StringObject{Data: "apple"}), StringRV(&StringObject{Data: "banana"}), Span{})
	require.NoError(t, err)
	assert.True(t, lt)

	_, err = vm.compare(OpLt, BoolRV(true), IntRV(1), Span{})
	require.Error(t, err)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(IntRV(1), DoubleRV(1.0)))
	assert.True(t, valuesEqual(StringRV(&StringObject{Data: "x"}), StringRV(&StringObject{Data: "x"})))
	assert.False(t, valuesEqual(StringRV(&StringObject{Data: "x"}), StringRV(&StringObject{Data: "y"})))

	a := ListRV(&ListObject{Elems: []RuntimeValue{IntRV(1), IntRV(2)}})
	b := ListRV(&ListObject{Elems: []RuntimeValue{IntRV(1), IntRV(2)}})
	c := ListRV(&ListObject{Elems: []RuntimeValue{IntRV(1), IntRV(3)}})
	assert.True(t, valuesEqual(a, b))
	assert.False(t, valuesEqual(a, c))

	assert.True(t, valuesEqual(Nil, Nil))
	assert.False(t, valuesEqual(Nil, IntRV(0)))
}

func TestIndexGetAndSet(t *testing.T) {
	vm := newOpsVM()
	l := ListRV(&ListObject{Elems: []RuntimeValue{IntRV(10), IntRV(20), IntRV(30)}})

	v, err := vm.indexGet(l, IntRV(1), Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.I)

	_, err = vm.indexGet(l, IntRV(5), Span{})
	require.Error(t, err)
	var rt RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, RTIndexError, rt.Kind)

	require.NoError(t, vm.indexSet(l, IntRV(0), IntRV(99), Span{}))
	v, err = vm.indexGet(l, IntRV(0), Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(99), v.I)

	err = vm.indexSet(l, IntRV(99), IntRV(1), Span{})
	require.Error(t, err)
}

func TestIndexGetOnString(t *testing.T) {
	vm := newOpsVM()
	s := StringRV(&StringObject{Data: "hello"})
	v, err := vm.indexGet(s, IntRV(1), Span{})
	require.NoError(t, err)
	assert.Equal(t, 'e', v.C)
}
