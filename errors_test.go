package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeErrorKindStrings(t *testing.T) {
	tests := []struct {
		Kind RuntimeErrorKind
		Want string
	}{
		{RTTypeError, "TypeError"},
		{RTNameError, "NameError"},
		{RTIndexError, "IndexError"},
		{RTArityError, "ArityError"},
		{RTDivideByZero, "DivideByZeroError"},
		{RTUncaughtException, "UncaughtException"},
		{RTStackOverflow, "StackOverflowError"},
		{RuntimeErrorKind(999), "RuntimeError"},
	}
	for _, test := range tests {
		assert.Equal(t, test.Want, test.Kind.String())
	}
}

func TestRtErrFormatsMessageAndSpan(t *testing.T) {
	sp := NewSpan(Location{Line: 0, Column: 0, File: "a.fl"}, Location{Line: 0, Column: 1, File: "a.fl"})
	err := rtErr(RTTypeError, sp, "cannot add %s and %s", "Int", "Bool")
	rt, ok := err.(RuntimeError)
	assert.True(t, ok)
	assert.Equal(t, RTTypeError, rt.Kind)
	assert.Equal(t, "cannot add Int and Bool", rt.Msg)
	assert.Contains(t, rt.Error(), "TypeError")
	assert.Contains(t, rt.Error(), "cannot add Int and Bool")
}

func TestParseErrFormatsMessageAndSpan(t *testing.T) {
	sp := NewSpan(Location{File: "a.fl"}, Location{File: "a.fl"})
	err := parseErr(sp, "expected %s, found %s", "RParen", "EOF")
	pe, ok := err.(ParseError)
	assert.True(t, ok)
	assert.Contains(t, pe.Error(), "expected RParen, found EOF")
}

func TestSecurityErrorMessage(t *testing.T) {
	err := SecurityError{Name: "print", Span: Span{}}
	assert.Contains(t, err.Error(), `"print"`)
	assert.Contains(t, err.Error(), "not permitted")
}
