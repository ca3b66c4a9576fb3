package fluence

import (
	"fmt"
	"strings"

	"github.com/fluence-lang/fluence/ascii"
)

// Disassemble renders a compiled Program as human-readable, optionally
// colorized bytecode listing — one line per instruction, annotated with
// `SectionGlobal`/function-entry labels from Program.Funcs. Without a
// disassembler, the global-patch pass (§4.5) and any future
// specialized-handler installation (§4.7) are unobservable from outside
// package internals; grounded on the teacher's own `PrettyPrint`-family
// methods over `Program`/`Bytecode` via `tree_printer.go`'s indent/pad
// helpers and `ascii.Theme`-driven coloring, generalized from an AST/PEG
// printer to a flat three-address instruction listing.
func Disassemble(p *Program, theme ascii.Theme) string {
	var b strings.Builder
	labels := labelsFor(p)

	for addr, ins := range p.Code {
		if name, ok := labels[addr]; ok {
			b.WriteString(ascii.Color(theme.Label, "%s:\n", name))
		}
		if addr == p.GlobalEnd {
			b.WriteString(ascii.Color(theme.Comment, "; -- section_global end --\n"))
		}
		b.WriteString(fmt.Sprintf("%4d  ", addr))
		b.WriteString(ascii.Color(theme.Operator, "%-18s", ins.Op.String()))
		b.WriteString(formatOperands(p, ins, theme))
		b.WriteString("\n")
	}
	return b.String()
}

func labelsFor(p *Program) map[int]string {
	labels := make(map[int]string, len(p.Funcs))
	for name, fn := range p.Funcs {
		labels[fn.StartAddr] = name
	}
	return labels
}

func formatOperands(p *Program, ins Instruction, theme ascii.Theme) string {
	operand := func(v int) string { return ascii.Color(theme.Operand, "r%d", v) }
	switch ins.Op {
	case OpLoadConst, OpAddConst:
		return fmt.Sprintf("%s, %s", operand(ins.A), formatConstRef(p, constOperand(ins), theme))
	case OpLoadBool:
		return fmt.Sprintf("%s, %s", operand(ins.A), ascii.Color(theme.Literal, "%t", ins.B != 0))
	case OpLoadNil, OpLockSlot:
		return operand(ins.A)
	case OpJump, OpIncJumpIfLt, OpJumpIfFalsePop:
		return ascii.Color(theme.Span, "-> %d", ins.A)
	case OpJumpIfFalse, OpJumpIfTrue:
		return fmt.Sprintf("%s, %s", ascii.Color(theme.Span, "-> %d", ins.A), operand(ins.B))
	case OpCall:
		return fmt.Sprintf("%s, %s, base=%s, argc=%d", operand(ins.A), operand(ins.B), operand(ins.C), ins.D)
	case OpCallNamed:
		return fmt.Sprintf("%s, %s, base=%s, argc=%d", operand(ins.A), formatConstRef(p, ins.B, theme), operand(ins.C), ins.D)
	case OpLoadFunc, OpNewStruct:
		return fmt.Sprintf("%s, %s", operand(ins.A), formatConstRef(p, ins.B, theme))
	case OpFieldSet:
		return fmt.Sprintf("%s, %s, %s", operand(ins.A), formatConstRef(p, ins.B, theme), operand(ins.C))
	case OpFieldGet, OpTypeIs:
		return fmt.Sprintf("%s, %s, %s", operand(ins.A), operand(ins.B), formatConstRef(p, ins.C, theme))
	case OpMakeLambda:
		return fmt.Sprintf("%s, entry=%d, params=%d, regs=%d", operand(ins.A), ins.B, ins.C, ins.D)
	case OpReturn:
		if ins.A < 0 {
			return "(bare)"
		}
		return operand(ins.A)
	case OpTry:
		return ascii.Color(theme.Span, "catch -> %d", ins.A)
	case OpPopTry, OpHalt, OpNop, SectionGlobal:
		return ""
	default:
		parts := []string{operand(ins.A), operand(ins.B), operand(ins.C)}
		if ins.D != 0 {
			parts = append(parts, fmt.Sprintf("d=%d", ins.D))
		}
		return strings.Join(parts, ", ")
	}
}

func constOperand(ins Instruction) int { return ins.B }

func formatConstRef(p *Program, idx int, theme ascii.Theme) string {
	if idx < 0 || idx >= len(p.Constants) {
		return ascii.Color(theme.Muted, "const[%d]", idx)
	}
	c := p.Constants[idx]
	switch {
	case c.IsString:
		return ascii.Color(theme.Literal, "%q", c.Str)
	case c.IsDouble, c.IsFloat:
		return ascii.Color(theme.Literal, "%g", c.FltVal)
	default:
		return ascii.Color(theme.Literal, "%d", c.IntVal)
	}
}
