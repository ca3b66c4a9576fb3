package fluence

import "fmt"

// Opcode enumerates every instruction Fluence's emitter can produce,
// covering the generic three-address tier, the optimizer-fused
// specializations, and the `SectionGlobal` marker that separates
// top-level initialization code from function bodies (§4.3). Grounded
// on `vm_program.go`'s `Program`/instruction-addressing shape and the
// `Opcode` enum + name-table pattern of
// `other_examples/0e80118c_funvibe-funxy__internal-vm-opcodes.go.go`.
type Opcode int

const (
	OpNop Opcode = iota

	// loads / moves
	OpLoadConst // dst, constIdx
	OpLoadNil   // dst
	OpLoadBool  // dst, bool(as A)
	OpMove      // dst, src
	OpLockSlot  // dst — flips dst's writability-cache bit from writable to locked (§3, §4.4's solid rule)

	// arithmetic (dst = a OP b)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg // dst = -a

	// bitwise
	OpBAnd
	OpBOr
	OpBXor
	OpBNot
	OpShl
	OpShr

	// logic
	OpNot
	OpAnd // short-circuit: handled via jumps, this is the non-short-circuit fallback
	OpOr

	// comparison (dst = bool)
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe

	// increment/decrement in place
	OpInc
	OpDec

	// control flow
	OpJump     // unconditional, target = A
	OpJumpIfFalse
	OpJumpIfTrue

	// calls
	OpCall      // dst, funcReg, argBase, argCount
	OpCallNamed // dst, constIdx(name), argBase, argCount — late-bound dispatch by name
	OpLoadFunc  // dst, constIdx(name) — loads a named function as a first-class value, no call
	OpReturn    // src (or -1 for bare return)
	OpMakeFunc  // dst, programIdx — builds a FunctionObject over a nested Program (unused by the emitter today: named functions dispatch through OpCallNamed/OpLoadFunc instead; kept for disassembler/VM symmetry)
	OpMakeLambda // dst, startAddr, numParams, numRegs — builds a FunctionObject over an inline jumped-over body in the *same* instruction stream, mirroring how named functions are laid out
	OpCaptureInit // dst(lambda reg), captureBase, captureCount — copies the calling frame's Regs[captureBase:captureBase+captureCount] into dst's FunctionObject.Captured (§9 capture-at-creation-time)

	// structured data
	OpNewList   // dst, elemBase, elemCount
	OpNewStruct // dst, constIdx(struct name)
	OpNewRange  // dst, startReg, endReg, inclusive(as D, via Emit4)
	OpIndexGet  // dst, obj, key
	OpIndexSet  // obj, key, val
	OpFieldGet  // dst, obj, constIdx(field)
	OpFieldSet  // obj, constIdx(field), val
	OpLen       // dst, obj
	OpTypeIs    // dst, obj, constIdx(typeName) — the `is` operator (§4.2)

	// iteration
	OpIterInit // dst, collection — dst becomes an iterator
	OpIterNext // dst(bool more), valReg, iterReg

	// exceptions
	OpTry       // pushes a try frame, catch target = A
	OpPopTry    // pops the current try frame
	OpThrow     // src
	OpReRaise   // re-throws the active exception in a catch block

	// references
	OpMakeRef  // dst, targetReg — wraps targetReg as a ReferenceValue
	OpDeref    // dst, refReg
	OpSetRef   // refReg, val — writes through a reference

	// interpolation
	OpConcat // dst, base, count — concatenates `count` registers starting at `base`

	// misc
	OpPrint  // src — intrinsic `print`
	OpHalt

	// optimizer-fused specializations (installed by the peephole pass,
	// §4.7 inline caching, and the Design Note's "specialized handler"
	// guidance): these collapse a (load-const, arith) or
	// (cmp, jump-if-false) pair into one dispatch.
	OpAddConst // dst = a + constant(B) — fuses OpLoadConst+OpAdd for the common int-literal RHS case
	OpIncJumpIfLt // fused loop-increment-and-test for `for i in range` / C-style counted loops
	OpJumpIfFalsePop // fused comparison + conditional jump, operand never materialized

	// SectionGlobal is a section-marker opcode for the end of top-level
	// module-initialization code. The emitter does not emit it.
	SectionGlobal
)

var opcodeNames = map[Opcode]string{
	OpNop: "nop", OpLoadConst: "load_const", OpLoadNil: "load_nil", OpLoadBool: "load_bool",
	OpMove: "move", OpLockSlot: "lock_slot", OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpPow: "pow", OpNeg: "neg", OpBAnd: "band", OpBOr: "bor", OpBXor: "bxor", OpBNot: "bnot",
	OpShl: "shl", OpShr: "shr", OpNot: "not", OpAnd: "and", OpOr: "or",
	OpEq: "eq", OpNeq: "neq", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpInc: "inc", OpDec: "dec", OpJump: "jump", OpJumpIfFalse: "jump_if_false",
	OpJumpIfTrue: "jump_if_true", OpCall: "call", OpCallNamed: "call_named",
	OpLoadFunc: "load_func",
	OpReturn: "return", OpMakeFunc: "make_func", OpMakeLambda: "make_lambda",
	OpCaptureInit: "capture_init",
	OpNewList: "new_list", OpNewStruct: "new_struct", OpNewRange: "new_range",
	OpIndexGet: "index_get", OpIndexSet: "index_set", OpFieldGet: "field_get",
	OpFieldSet: "field_set", OpLen: "len", OpTypeIs: "type_is", OpIterInit: "iter_init", OpIterNext: "iter_next",
	OpTry: "try", OpPopTry: "pop_try", OpThrow: "throw", OpReRaise: "reraise",
	OpMakeRef: "make_ref", OpDeref: "deref", OpSetRef: "set_ref",
	OpConcat: "concat", OpPrint: "print", OpHalt: "halt",
	OpAddConst: "add_const", OpIncJumpIfLt: "inc_jump_if_lt",
	OpJumpIfFalsePop: "jump_if_false_pop", SectionGlobal: "section_global",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Instruction is one three-address bytecode record: an opcode plus up
// to three operands (A, B, C — register indices, constant-pool
// indices, or jump targets depending on the opcode) and the source span
// it was emitted from, for runtime error reporting (§4.3, §7).
type Instruction struct {
	Op      Opcode
	A, B, C int
	D       int // fourth operand, used only by the handful of opcodes that need one (OpCall/OpCallNamed, OpNewRange, OpMakeLambda)
	Span    Span
}

// Constant is one entry of a Program's constant pool: string literals,
// boxed numeric literals too wide to fit in an operand, and struct/enum
// names referenced by OpNewStruct/OpFieldGet.
type Constant struct {
	Str      string
	IntVal   int64
	FltVal   float64
	IsFloat  bool
	IsDouble bool
	IsString bool
}

// Program is a fully emitted, backpatched unit of bytecode for a whole
// source file. Function and lambda bodies are laid out inline in the
// same Code slice, each behind a jump that skips over it.
// Grounded on `vm_program.go`'s `Program` type (code + label table),
// generalized from PEG-matcher code to three-address Fluence code.
type Program struct {
	Code      []Instruction
	Constants []Constant
	Functions []*Program // bodies added by AddFunction for OpMakeFunc's B operand; the emitter adds none
	NumParams int
	ParamRefs []bool // parallel to the first NumParams registers: true if passed `ref`
	NumRegs   int    // registers needed per call frame (locals + temporaries)
	Name      string // empty for the top-level program
	GlobalEnd int     // index of SectionGlobal, or len(Code) if none
	NumGlobals int    // count of distinct global slots allocated across the whole program
	Funcs     map[string]*FuncDesc // mangled name -> descriptor, for OpCallNamed's late-bound dispatch (§4.4)
	GlobalSyms map[string]*Symbol  // top-level variable name -> symbol, for the host API's set_global/get_global (§6)
}

// FuncDesc is everything the VM needs to invoke a named function or
// method laid out inline in the shared Program: where its code starts,
// how many parameters/registers it needs, and which parameters are
// `ref`.
type FuncDesc struct {
	Name      string
	StartAddr int
	NumParams int
	NumRegs   int
	ParamRefs []bool
	IsMethod  bool
}

func NewProgram() *Program {
	return &Program{}
}

// Emit appends one instruction and returns its address.
func (p *Program) Emit(op Opcode, a, b, c int, sp Span) int {
	p.Code = append(p.Code, Instruction{Op: op, A: a, B: b, C: c, Span: sp})
	return len(p.Code) - 1
}

// Emit4 appends an instruction that needs all four operands (the
// OpCall/OpCallNamed family: destination, callee, argument base
// register, argument count).
func (p *Program) Emit4(op Opcode, a, b, c, d int, sp Span) int {
	p.Code = append(p.Code, Instruction{Op: op, A: a, B: b, C: c, D: d, Span: sp})
	return len(p.Code) - 1
}

// Patch rewrites the A operand of an already-emitted instruction — used
// for backpatching forward jump targets once their destination address
// is known.
func (p *Program) Patch(addr, a int) {
	p.Code[addr].A = a
}

func (p *Program) PatchB(addr, b int) {
	p.Code[addr].B = b
}

// AddConstant interns `c` into the constant pool, reusing an existing
// identical entry for strings (a simple linear scan is fine: constant
// pools are small relative to program size).
func (p *Program) AddConstant(c Constant) int {
	if c.IsString {
		for i, existing := range p.Constants {
			if existing.IsString && existing.Str == c.Str {
				return i
			}
		}
	}
	p.Constants = append(p.Constants, c)
	return len(p.Constants) - 1
}

// AddFunction registers a nested function/lambda Program and returns
// its index for use as OpMakeFunc's B operand.
func (p *Program) AddFunction(fn *Program) int {
	p.Functions = append(p.Functions, fn)
	return len(p.Functions) - 1
}
