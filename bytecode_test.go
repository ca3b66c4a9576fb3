package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "call_named", OpCallNamed.String())
	unknown := Opcode(9999)
	assert.Equal(t, "Opcode(9999)", unknown.String())
}

func TestProgramEmitReturnsAddress(t *testing.T) {
	p := NewProgram()
	a0 := p.Emit(OpNop, 0, 0, 0, Span{})
	a1 := p.Emit(OpHalt, 0, 0, 0, Span{})
	assert.Equal(t, 0, a0)
	assert.Equal(t, 1, a1)
	assert.Len(t, p.Code, 2)
}

func TestProgramEmit4SetsFourthOperand(t *testing.T) {
	p := NewProgram()
	addr := p.Emit4(OpCall, 1, 2, 3, 4, Span{})
	ins := p.Code[addr]
	assert.Equal(t, 1, ins.A)
	assert.Equal(t, 2, ins.B)
	assert.Equal(t, 3, ins.C)
	assert.Equal(t, 4, ins.D)
}

func TestProgramPatchRewritesJumpTarget(t *testing.T) {
	p := NewProgram()
	addr := p.Emit(OpJump, -1, 0, 0, Span{})
	p.Patch(addr, 42)
	assert.Equal(t, 42, p.Code[addr].A)
}

func TestProgramPatchBRewritesOperandB(t *testing.T) {
	p := NewProgram()
	addr := p.Emit(OpLoadConst, 0, -1, 0, Span{})
	p.PatchB(addr, 7)
	assert.Equal(t, 7, p.Code[addr].B)
}

func TestProgramAddConstantInternsStrings(t *testing.T) {
	p := NewProgram()
	a := p.AddConstant(Constant{IsString: true, Str: "hi"})
	b := p.AddConstant(Constant{IsString: true, Str: "hi"})
	c := p.AddConstant(Constant{IsString: true, Str: "bye"})
	assert.Equal(t, a, b, "identical string constants should be reused")
	assert.NotEqual(t, a, c)
	assert.Len(t, p.Constants, 2)
}

func TestProgramAddConstantDoesNotInternNumbers(t *testing.T) {
	p := NewProgram()
	a := p.AddConstant(Constant{IntVal: 1})
	b := p.AddConstant(Constant{IntVal: 1})
	assert.NotEqual(t, a, b, "only string constants are interned")
}

func TestProgramAddFunctionReturnsIndex(t *testing.T) {
	p := NewProgram()
	fn := NewProgram()
	idx := p.AddFunction(fn)
	assert.Equal(t, 0, idx)
	assert.Same(t, fn, p.Functions[0])
}
