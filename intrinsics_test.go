package fluence

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntrinsics(t *testing.T, cfg Config) *IntrinsicSet {
	t.Helper()
	s := NewIntrinsicSet(cfg)
	s.Output = &strings.Builder{}
	s.Errors = &strings.Builder{}
	return s
}

func bufReaderFromString(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestIntrinsicAllowDenyLists(t *testing.T) {
	tests := []struct {
		Name    string
		Cfg     Config
		Call    string
		Allowed bool
	}{
		{"no lists permits any known intrinsic", DefaultConfig(), "print", true},
		{"unknown name is never allowed", DefaultConfig(), "exec", false},
		{"denylist blocks a named intrinsic", DefaultConfig().SetStringList(CfgLibraryDenylist, []string{"print"}), "print", false},
		{"denylist leaves other intrinsics alone", DefaultConfig().SetStringList(CfgLibraryDenylist, []string{"print"}), "len", true},
		{"allowlist permits only its members", DefaultConfig().SetStringList(CfgLibraryAllowlist, []string{"len"}), "len", true},
		{"allowlist denies everything else, even without a denylist", DefaultConfig().SetStringList(CfgLibraryAllowlist, []string{"len"}), "print", false},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			s := newIntrinsics(t, test.Cfg)
			assert.Equal(t, test.Allowed, s.Allowed(test.Call, test.Cfg))
		})
	}
}

func TestIntrinsicLen(t *testing.T) {
	s := newIntrinsics(t, DefaultConfig())

	v, err := s.Call("len", []RuntimeValue{ListRV(&ListObject{Elems: []RuntimeValue{IntRV(1), IntRV(2)}})}, Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.I)

	v, err = s.Call("len", []RuntimeValue{StringRV(&StringObject{Data: "hello"})}, Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.I)

	_, err = s.Call("len", []RuntimeValue{IntRV(1)}, Span{})
	require.Error(t, err)
}

func TestIntrinsicTypeOf(t *testing.T) {
	s := newIntrinsics(t, DefaultConfig())
	v, err := s.Call("type_of", []RuntimeValue{IntRV(1)}, Span{})
	require.NoError(t, err)
	assert.Equal(t, "Int", v.Obj.(*StringObject).Data)
}

func TestIntrinsicInputInt(t *testing.T) {
	s := newIntrinsics(t, DefaultConfig())
	s.Input = bufReaderFromString("42\n")
	v, err := s.Call("input_int", nil, Span{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.I)
}

func TestIntrinsicInputIntRejectsNonInteger(t *testing.T) {
	s := newIntrinsics(t, DefaultConfig())
	s.Input = bufReaderFromString("not a number\n")
	_, err := s.Call("input_int", nil, Span{})
	require.Error(t, err)
}

func TestIntrinsicUnknownName(t *testing.T) {
	s := newIntrinsics(t, DefaultConfig())
	_, err := s.Call("does_not_exist", nil, Span{})
	require.Error(t, err)
}
