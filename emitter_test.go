package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitProgramBasicShape(t *testing.T) {
	prog, err := EmitProgram(`func Main() { print(1); }`, "test.fl")
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Code)
	_, ok := prog.Funcs["Main__0"]
	assert.True(t, ok, "Main__0 must be registered so the epilogue can call it")
}

func TestEmitProgramEpilogueCallsMainAndHalts(t *testing.T) {
	prog, err := EmitProgram(`func Main() { print(1); }`, "test.fl")
	require.NoError(t, err)
	last := prog.Code[len(prog.Code)-1]
	assert.Equal(t, OpHalt, last.Op)
}

func TestEmitProgramFunctionOverloadsByArityGetDistinctEntries(t *testing.T) {
	prog, err := EmitProgram(`
	func greet() { print("hi"); }
	func greet(name) { print(name); }
	func Main() { greet(); }
	`, "test.fl")
	require.NoError(t, err)
	_, ok0 := prog.Funcs[MangledMethodName("greet", 0)]
	_, ok1 := prog.Funcs[MangledMethodName("greet", 1)]
	assert.True(t, ok0)
	assert.True(t, ok1)
}

func TestEmitProgramForwardCallResolves(t *testing.T) {
	// `helper` is declared after `Main` calls it — the prescan pass must
	// make this resolve without a two-pass AST walk.
	_, err := EmitProgram(`
	func Main() { helper(); }
	func helper() { print("ok"); }
	`, "test.fl")
	require.NoError(t, err)
}

func TestEmitProgramParseErrorOnMismatchedBrace(t *testing.T) {
	_, err := EmitProgram(`func Main() { print(1); `, "test.fl")
	require.Error(t, err)
	var pe ParseError
	require.ErrorAs(t, err, &pe)
}

func TestEmitProgramParseErrorOnBadExpression(t *testing.T) {
	_, err := EmitProgram(`func Main() { x = ; }`, "test.fl")
	require.Error(t, err)
}

func TestEmitProgramTopLevelAssignmentDeclaresGlobal(t *testing.T) {
	prog, err := EmitProgram(`count = 0; func Main() { print(count); }`, "test.fl")
	require.NoError(t, err)
	_, ok := prog.GlobalSyms["count"]
	assert.True(t, ok)
}

func TestEmitProgramGlobalRegistersAreTaggedDistinctFromLocals(t *testing.T) {
	prog, err := EmitProgram(`count = 0; func Main() { count = count + 1; }`, "test.fl")
	require.NoError(t, err)
	foundGlobalOperand := false
	for _, ins := range prog.Code {
		if isGlobalReg(ins.A) || isGlobalReg(ins.B) || isGlobalReg(ins.C) {
			foundGlobalOperand = true
			break
		}
	}
	assert.True(t, foundGlobalOperand, "top-level variable reads/writes inside Main must route through the global-tagged operand encoding")
}

func TestEmitProgramRangeIsAlwaysInclusive(t *testing.T) {
	prog, err := EmitProgram(`func Main() { for i in 1..3 { print(i); } }`, "test.fl")
	require.NoError(t, err)
	found := false
	for _, ins := range prog.Code {
		if ins.Op == OpNewRange {
			found = true
			assert.Equal(t, 1, ins.D, "Fluence ranges have no exclusive form")
		}
	}
	assert.True(t, found)
}
