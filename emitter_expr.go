package fluence

import "fmt"

// opInfo is one entry of the Pratt precedence table from §4.2 ("low →
// high: assignment family; logical OR; logical AND; equality...
// power; unary; postfix; primary").  Assignment is handled outside this
// table, at statement level (see parseExprOrAssignStatement) rather
// than as a first-class expression form — a documented simplification,
// since Fluence programs in the scenarios never need `x = (y = 1)`.
type opInfo struct {
	prec       int
	rightAssoc bool
}

var binPrec = map[Kind]opInfo{
	PipePipe: {1, false}, KwOr: {1, false},
	AmpAmp: {2, false}, KwAnd: {2, false},
	EqEq: {3, false}, NotEq: {3, false},
	CollectiveEqual: {3, false}, CollectiveNotEqual: {3, false},
	GuardChain: {3, false}, OrGuardChain: {3, false},
	Less: {4, false}, LessEqual: {4, false}, Greater: {4, false}, GreaterEqual: {4, false},
	CollectiveLt: {4, false}, CollectiveLe: {4, false}, CollectiveGt: {4, false}, CollectiveGe: {4, false},
	CollectiveOrLt: {4, false}, CollectiveOrLe: {4, false}, CollectiveOrGt: {4, false}, CollectiveOrGe: {4, false},
	Pipe: {5, false}, OptionalPipe: {5, false}, GuardPipe: {5, false},
	ScanPipe: {5, false}, MapPipe: {5, false}, ReducerPipe: {5, false},
	PipeChar: {6, false},
	Caret:    {7, false},
	Amp:      {8, false},
	Shl:      {9, false}, Shr: {9, false},
	Plus: {10, false}, Minus: {10, false},
	Star: {11, false}, Slash: {11, false}, Percent: {11, false},
	Power: {12, true},
}

func isPipeKind(k Kind) bool {
	switch k {
	case Pipe, OptionalPipe, GuardPipe, ScanPipe, MapPipe, ReducerPipe:
		return true
	default:
		return false
	}
}

// lvalue is the compiler's description of an assignment target: a
// variable symbol, or an object (and index) already evaluated into
// objReg/idxReg when the target was parsed, plus a field name. Only
// the store itself is deferred to the assignment lowering (§4.2).
type lvalueTarget struct {
	kind      int // 0=var, 1=index, 2=field
	sym       *Symbol
	name      string
	objReg    int
	idxReg    int
	fieldName string
	span      Span
}

const (
	lvVar = iota
	lvIndex
	lvField
)

// parseExpressionToReg parses one full expression (no assignment) and
// returns the register holding its value.
func (e *Emitter) parseExpressionToReg() (int, error) {
	return e.parseTernary()
}

// parseTernary handles `cond ? then : else` and the Elvis form
// `a ?: b` (use `a` if truthy, else `b`) above the binary-operator
// climb (§4.2).
func (e *Emitter) parseTernary() (int, error) {
	cond, err := e.parseBinary(1)
	if err != nil {
		return 0, err
	}
	switch e.cur.Kind {
	case Question:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		result := e.allocReg()
		jf := e.prog.Emit(OpJumpIfFalse, -1, cond, 0, sp)
		thenReg, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(OpMove, result, thenReg, 0, sp)
		jend := e.prog.Emit(OpJump, -1, 0, 0, sp)
		e.prog.Patch(jf, len(e.prog.Code))
		if _, err := e.expect(Colon); err != nil {
			return 0, err
		}
		elseReg, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(OpMove, result, elseReg, 0, sp)
		e.prog.Patch(jend, len(e.prog.Code))
		return result, nil
	case TernaryAlt:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		result := e.allocReg()
		e.prog.Emit(OpMove, result, cond, 0, sp)
		jt := e.prog.Emit(OpJumpIfTrue, -1, cond, 0, sp)
		fallback, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(OpMove, result, fallback, 0, sp)
		e.prog.Patch(jt, len(e.prog.Code))
		return result, nil
	default:
		return cond, nil
	}
}

func (e *Emitter) parseBinary(minPrec int) (int, error) {
	left, err := e.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		if e.cur.Kind == RangeOp && minPrec <= 1 {
			sp := e.cur.Span
			if err := e.advance(); err != nil {
				return 0, err
			}
			endReg, err := e.parseUnary()
			if err != nil {
				return 0, err
			}
			dst := e.allocReg()
			// Fluence has a single range form and it is inclusive of both
			// ends (§3's Range{start_value, end_value}) — there is no
			// exclusive-range operator to distinguish it from.
			e.prog.Emit4(OpNewRange, dst, left, endReg, 1, sp)
			left = dst
			continue
		}
		info, ok := binPrec[e.cur.Kind]
		if !ok || info.prec < minPrec {
			return left, nil
		}
		opTok := e.cur
		if err := e.advance(); err != nil {
			return 0, err
		}
		if isPipeKind(opTok.Kind) {
			left, err = e.parsePipeRHS(left, opTok)
			if err != nil {
				return 0, err
			}
			continue
		}
		nextMin := info.prec + 1
		if info.rightAssoc {
			nextMin = info.prec
		}
		right, err := e.parseBinary(nextMin)
		if err != nil {
			return 0, err
		}
		left = e.emitBinaryOp(opTok, left, right)
	}
}

func (e *Emitter) emitBinaryOp(opTok Token, l, r int) int {
	dst := e.allocReg()
	op := OpAdd
	switch opTok.Kind {
	case Plus:
		op = OpAdd
	case Minus:
		op = OpSub
	case Star:
		op = OpMul
	case Slash:
		op = OpDiv
	case Percent:
		op = OpMod
	case Power:
		op = OpPow
	case Amp:
		op = OpBAnd
	case PipeChar:
		op = OpBOr
	case Caret:
		op = OpBXor
	case Shl:
		op = OpShl
	case Shr:
		op = OpShr
	case EqEq, CollectiveEqual, GuardChain, OrGuardChain:
		op = OpEq
	case NotEq, CollectiveNotEqual:
		op = OpNeq
	case Less, CollectiveLt, CollectiveOrLt:
		op = OpLt
	case LessEqual, CollectiveLe, CollectiveOrLe:
		op = OpLe
	case Greater, CollectiveGt, CollectiveOrGt:
		op = OpGt
	case GreaterEqual, CollectiveGe, CollectiveOrGe:
		op = OpGe
	case AmpAmp, KwAnd:
		op = OpAnd
	case PipePipe, KwOr:
		op = OpOr
	}
	e.prog.Emit(op, dst, l, r, opTok.Span)
	return dst
}

// parsePipeRHS lowers `lhs |> callee(args...)` (§4.2): `_` marks the
// insertion point; absent `_`, lhs is appended as the last argument
// unless callee takes zero args (the sequencer form, which just
// sequences evaluation and discards lhs). The richer `|>>`/`|>>=`/
// `|??`/`|~>` reducer/map/scan/guard semantics share this same
// placeholder-substitution lowering rather than synthesizing their own
// loops; they do not reduce, map, scan or guard.
func (e *Emitter) parsePipeRHS(lhsReg int, opTok Token) (int, error) {
	callee, err := e.expect(Ident)
	if err != nil {
		return 0, err
	}
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	var argRegs []int
	placeholderUsed := false
	for !e.at(RParen) {
		if e.at(Ident) && e.cur.Lexeme == "_" {
			if err := e.advance(); err != nil {
				return 0, err
			}
			argRegs = append(argRegs, lhsReg)
			placeholderUsed = true
		} else {
			r, err := e.parseExpressionToReg()
			if err != nil {
				return 0, err
			}
			argRegs = append(argRegs, r)
		}
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return 0, err
	}
	if !placeholderUsed && len(argRegs) > 0 {
		argRegs = append(argRegs, lhsReg)
	}
	return e.emitCallByName(callee.Lexeme, argRegs, opTok.Span)
}

// callsByName reports whether an identifier immediately followed by `(`
// should be dispatched by name (§4.4's late-bound `CallFunction`)
// rather than loaded into a register and called indirectly: either it
// is a declared top-level function (letting `invokeNamed`'s exact
// arity match pick the right overload, instead of `OpLoadFunc`'s
// first-match fallback — see DESIGN.md I.3) or it is not declared at
// all, which at statement scope almost always means one of the
// intrinsic names (§6) rather than a fresh global meant to hold a
// function value nobody ever assigned.
func (e *Emitter) callsByName(name string) bool {
	sym, ok := e.scope.Lookup(name)
	return !ok || sym.Kind == SymFunction
}

// parseNameCallSuffix parses a call's argument list and emits it as a
// direct by-name call (`OpCallNamed`), used for both declared functions
// and the intrinsic surface — both resolved at runtime by `invokeNamed`.
func (e *Emitter) parseNameCallSuffix(name string, sp Span) (int, error) {
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	var argRegs []int
	for !e.at(RParen) {
		r, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, r)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return 0, err
	}
	return e.emitCallByName(name, argRegs, sp)
}

func (e *Emitter) emitCallByName(name string, argRegs []int, sp Span) (int, error) {
	base := e.allocReg()
	for i, r := range argRegs {
		var dstr int
		if i == 0 {
			dstr = base
		} else {
			dstr = e.allocReg()
		}
		e.prog.Emit(OpMove, dstr, r, 0, sp)
	}
	dst := e.allocReg()
	constIdx := e.prog.AddConstant(Constant{Str: name, IsString: true})
	e.prog.Emit4(OpCallNamed, dst, constIdx, base, len(argRegs), sp)
	return dst, nil
}

func (e *Emitter) parseUnary() (int, error) {
	switch e.cur.Kind {
	case Minus:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		r, err := e.parseUnary()
		if err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpNeg, dst, r, 0, sp)
		return dst, nil
	case Bang:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		r, err := e.parseUnary()
		if err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpNot, dst, r, 0, sp)
		return dst, nil
	case Tilde:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		r, err := e.parseUnary()
		if err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpBNot, dst, r, 0, sp)
		return dst, nil
	case BoolFlip:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		r, err := e.parseUnary()
		if err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpNot, dst, r, 0, sp)
		return dst, nil
	case PlusPlus, MinusMinus:
		op := OpInc
		if e.cur.Kind == MinusMinus {
			op = OpDec
		}
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		reg, err := e.parseUnary()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(op, reg, 0, 0, sp)
		return reg, nil
	case KwRef:
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return 0, err
		}
		name, err := e.expect(Ident)
		if err != nil {
			return 0, err
		}
		targetReg, _, err := e.resolveIdentReg(name.Lexeme, name.Span)
		if err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpMakeRef, dst, targetReg, 0, sp)
		return dst, nil
	default:
		return e.parsePostfix()
	}
}

func (e *Emitter) parsePostfix() (int, error) {
	reg, err := e.parsePrimary()
	if err != nil {
		return 0, err
	}
	for {
		switch e.cur.Kind {
		case LParen:
			reg, err = e.parseCallSuffix(reg)
			if err != nil {
				return 0, err
			}
		case Dot:
			sp := e.cur.Span
			if err := e.advance(); err != nil {
				return 0, err
			}
			fn, err := e.expect(Ident)
			if err != nil {
				return 0, err
			}
			if e.at(LParen) {
				reg, err = e.parseMethodCallSuffix(reg, fn.Lexeme)
				if err != nil {
					return 0, err
				}
			} else {
				dst := e.allocReg()
				constIdx := e.prog.AddConstant(Constant{Str: fn.Lexeme, IsString: true})
				e.prog.Emit(OpFieldGet, dst, reg, constIdx, sp)
				reg = dst
			}
		case LBracket:
			sp := e.cur.Span
			if err := e.advance(); err != nil {
				return 0, err
			}
			idx, err := e.parseExpressionToReg()
			if err != nil {
				return 0, err
			}
			if _, err := e.expect(RBracket); err != nil {
				return 0, err
			}
			dst := e.allocReg()
			e.prog.Emit(OpIndexGet, dst, reg, idx, sp)
			reg = dst
		case KwIs:
			sp := e.cur.Span
			if err := e.advance(); err != nil {
				return 0, err
			}
			tn, err := e.expect(Ident)
			if err != nil {
				return 0, err
			}
			dst := e.allocReg()
			constIdx := e.prog.AddConstant(Constant{Str: tn.Lexeme, IsString: true})
			e.prog.Emit(OpTypeIs, dst, reg, constIdx, sp)
			reg = dst
		case PlusPlus, MinusMinus:
			op := OpInc
			if e.cur.Kind == MinusMinus {
				op = OpDec
			}
			sp := e.cur.Span
			if err := e.advance(); err != nil {
				return 0, err
			}
			before := e.allocReg()
			e.prog.Emit(OpMove, before, reg, 0, sp)
			e.prog.Emit(op, reg, 0, 0, sp)
			reg = before
		default:
			return reg, nil
		}
	}
}

func (e *Emitter) parseCallSuffix(calleeReg int) (int, error) {
	sp := e.cur.Span
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	var argRegs []int
	for !e.at(RParen) {
		r, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, r)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return 0, err
	}
	base := e.allocReg()
	for i, r := range argRegs {
		d := base
		if i > 0 {
			d = e.allocReg()
		}
		e.prog.Emit(OpMove, d, r, 0, sp)
	}
	dst := e.allocReg()
	e.prog.Emit4(OpCall, dst, calleeReg, base, len(argRegs), sp)
	return dst, nil
}

func (e *Emitter) parseMethodCallSuffix(recvReg int, method string) (int, error) {
	sp := e.cur.Span
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	argRegs := []int{recvReg}
	for !e.at(RParen) {
		r, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, r)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return 0, err
	}
	return e.emitCallByName(method, argRegs, sp)
}

// parsePrimary handles literals, identifiers, grouped/collective-
// comparison expressions, list literals, lambdas, and struct
// instantiation — the base case of the Pratt climb (§4.2's "primary").
func (e *Emitter) parsePrimary() (int, error) {
	tok := e.cur
	switch tok.Kind {
	case IntLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{IntVal: tok.IntVal}), 0, tok.Span)
		return dst, nil
	case LongLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{IntVal: tok.IntVal}), 0, tok.Span)
		return dst, nil
	case DoubleLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{FltVal: tok.FltVal, IsDouble: true}), 0, tok.Span)
		return dst, nil
	case FloatLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{FltVal: tok.FltVal, IsFloat: true}), 0, tok.Span)
		return dst, nil
	case CharLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{IntVal: tok.IntVal}), 0, tok.Span)
		return dst, nil
	case StringLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadConst, dst, e.prog.AddConstant(Constant{Str: tok.Lexeme, IsString: true}), 0, tok.Span)
		return dst, nil
	case BoolLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadBool, dst, int(tok.IntVal), 0, tok.Span)
		return dst, nil
	case NilLit:
		if err := e.advance(); err != nil {
			return 0, err
		}
		dst := e.allocReg()
		e.prog.Emit(OpLoadNil, dst, 0, 0, tok.Span)
		return dst, nil
	case KwSelf:
		if err := e.advance(); err != nil {
			return 0, err
		}
		return 0, nil // self is always register 0 (§3 invariant)
	case FStringFragment:
		return e.parseFString()
	case Ident:
		if err := e.advance(); err != nil {
			return 0, err
		}
		if e.at(LBrace) && e.identLooksLikeStructInit(tok.Lexeme) {
			return e.parseStructDirectInit(tok)
		}
		if e.at(LParen) && e.identLooksLikeStructInit(tok.Lexeme) {
			return e.parseStructPositionalInit(tok)
		}
		if e.at(LParen) && e.callsByName(tok.Lexeme) {
			return e.parseNameCallSuffix(tok.Lexeme, tok.Span)
		}
		reg, _, err := e.resolveIdentReg(tok.Lexeme, tok.Span)
		return reg, err
	case LParen:
		return e.parseParenOrCollective()
	case LBracket:
		return e.parseListLiteral()
	case KwFunc:
		return e.parseLambda()
	case Minus, Bang, Tilde, BoolFlip, PlusPlus, MinusMinus, KwRef:
		return e.parseUnary()
	case KwMatch:
		return e.parseMatchExpr()
	case KwSolid:
		return 0, parseErr(tok.Span, "`solid` is a statement, not an expression")
	default:
		return 0, parseErr(tok.Span, "unexpected token %s in expression", tok.Kind)
	}
}

func (e *Emitter) identLooksLikeStructInit(name string) bool {
	sym, ok := e.global.Lookup(name)
	return ok && sym.Kind == SymStruct
}

// parseParenOrCollective handles `(expr)` grouping and, when the
// parenthesized list has more than one comma-separated entry followed
// by a collective-comparison operator, the `(a, b, c <op| X)` form
// (§4.2's collective comparison lowering, S3).
func (e *Emitter) parseParenOrCollective() (int, error) {
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	var regs []int
	first, err := e.parseExpressionToReg()
	if err != nil {
		return 0, err
	}
	regs = append(regs, first)
	for e.at(Comma) {
		if err := e.advance(); err != nil {
			return 0, err
		}
		r, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		regs = append(regs, r)
	}
	if len(regs) > 1 {
		opTok := e.cur
		if !isCollectiveOp(opTok.Kind) {
			return 0, parseErr(opTok.Span, "expected collective comparison operator after comma list")
		}
		if err := e.advance(); err != nil {
			return 0, err
		}
		rhs, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		if _, err := e.expect(RParen); err != nil {
			return 0, err
		}
		return e.emitCollectiveComparison(regs, opTok, rhs), nil
	}
	_, err = e.expect(RParen)
	return first, err
}

func isCollectiveOp(k Kind) bool {
	switch k {
	case CollectiveEqual, CollectiveNotEqual, CollectiveLt, CollectiveLe, CollectiveGt, CollectiveGe,
		CollectiveOrEqual, CollectiveOrNotEqual, CollectiveOrLt, CollectiveOrLe, CollectiveOrGt, CollectiveOrGe,
		GuardChain, OrGuardChain:
		return true
	default:
		return false
	}
}

func isOrFamily(k Kind) bool {
	switch k {
	case CollectiveOrEqual, CollectiveOrNotEqual, CollectiveOrLt, CollectiveOrLe, CollectiveOrGt, CollectiveOrGe, OrGuardChain:
		return true
	default:
		return false
	}
}

// emitCollectiveComparison folds `(a OP X) AND (b OP X) AND (c OP X)`
// (or OR, for the OR-family operators) left to right, evaluating X
// once into a temp (§4.2).
func (e *Emitter) emitCollectiveComparison(lhsRegs []int, opTok Token, rhsReg int) int {
	fold := OpAnd
	if isOrFamily(opTok.Kind) {
		fold = OpOr
	}
	var acc int
	for i, lr := range lhsRegs {
		cmp := e.emitBinaryOp(opTok, lr, rhsReg)
		if i == 0 {
			acc = cmp
			continue
		}
		next := e.allocReg()
		e.prog.Emit(fold, next, acc, cmp, opTok.Span)
		acc = next
	}
	return acc
}

func (e *Emitter) parseListLiteral() (int, error) {
	sp := e.cur.Span
	if _, err := e.expect(LBracket); err != nil {
		return 0, err
	}
	var regs []int
	for !e.at(RBracket) {
		r, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		regs = append(regs, r)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RBracket); err != nil {
		return 0, err
	}
	base := e.allocReg()
	for i, r := range regs {
		d := base
		if i > 0 {
			d = e.allocReg()
		}
		e.prog.Emit(OpMove, d, r, 0, sp)
	}
	dst := e.allocReg()
	e.prog.Emit(OpNewList, dst, base, len(regs), sp)
	return dst, nil
}

// parseLambda handles `func (params) => expr` / `func (params) { ... }`
// anonymous function values (§3 Value.Lambda), lowered as an ordinary
// nested function body reachable only through the register that holds
// it. Free variables are captured by value when the lambda is created:
// their registers are copied into the lambda's captured values.
func (e *Emitter) parseLambda() (int, error) {
	sp := e.cur.Span
	if _, err := e.expect(KwFunc); err != nil {
		return 0, err
	}
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	var params []string
	for !e.at(RParen) {
		pn, err := e.expect(Ident)
		if err != nil {
			return 0, err
		}
		params = append(params, pn.Lexeme)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return 0, err
	}

	// Pre-scan the body's tokens (without committing to them) to find
	// which names it references that belong to the *enclosing* frame —
	// these become captures. Grounded on the same lookahead-without-
	// commitment idiom prescanGlobals uses for top-level forward
	// references, here applied to a single lambda body's span instead
	// of the whole file.
	bodySnap := e.lex.Snapshot()
	bodyStartTok := e.cur
	referenced, err := e.scanLambdaBodyIdents()
	if err != nil {
		return 0, err
	}
	e.lex.Restore(bodySnap)
	e.cur = bodyStartTok

	paramSet := make(map[string]bool, len(params))
	for _, p := range params {
		paramSet[p] = true
	}
	type capture struct {
		name       string
		sourceReg  int
	}
	var captures []capture
	seen := make(map[string]bool)
	for _, name := range referenced {
		if paramSet[name] || seen[name] {
			continue
		}
		sym, ok := e.scope.Lookup(name)
		if !ok || sym.Kind != SymVariable || sym.IsGlobal {
			continue
		}
		seen[name] = true
		captures = append(captures, capture{name: name, sourceReg: sym.Reg})
	}

	captureBase := 0
	if len(captures) > 0 {
		captureBase = e.allocReg()
		for i, c := range captures {
			d := captureBase
			if i > 0 {
				d = e.allocReg()
			}
			e.prog.Emit(OpMove, d, c.sourceReg, 0, sp)
		}
	}

	jOver := e.prog.Emit(OpJump, -1, 0, 0, sp)
	startAddr := len(e.prog.Code)

	prevScope := e.scope
	prevCounter := e.regCounter
	zero := 0
	e.scope = NewScope(nil) // lambda bodies resolve free variables through captures, not a live parent scope (§9)
	e.regCounter = &zero
	for _, p := range params {
		r := e.allocReg()
		e.scope.Declare(&Symbol{Name: p, Kind: SymVariable, Reg: r})
	}
	for _, c := range captures {
		r := e.allocReg()
		e.scope.Declare(&Symbol{Name: c.name, Kind: SymVariable, Reg: r})
	}
	e.scope.AddImport(e.global)
	if e.at(FatArrow) {
		if err := e.advance(); err != nil {
			return 0, err
		}
		retReg, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(OpReturn, retReg, 0, 0, sp)
	} else {
		if err := e.parseBodyOrBlock(); err != nil {
			return 0, err
		}
		e.prog.Emit(OpReturn, -1, 0, 0, sp)
	}
	numRegs := *e.regCounter
	if numRegs > e.prog.NumRegs {
		e.prog.NumRegs = numRegs
	}
	e.regCounter = prevCounter
	e.scope = prevScope
	e.prog.Patch(jOver, len(e.prog.Code))

	dst := e.allocReg()
	e.prog.Emit4(OpMakeLambda, dst, startAddr, len(params), numRegs, sp)
	if len(captures) > 0 {
		e.prog.Emit(OpCaptureInit, dst, captureBase, len(captures), sp)
	}
	return dst, nil
}

// scanLambdaBodyIdents walks the lambda body's tokens from the current
// lexer position (either a `=> expr` or a `{ ... }` block), collecting
// every identifier lexeme it sees, WITHOUT building any scope or
// emitting code — used only to decide which enclosing names need
// capturing before the body is parsed for real. This mutates e.lex/
// e.cur; callers must restore both from a snapshot taken beforehand.
func (e *Emitter) scanLambdaBodyIdents() ([]string, error) {
	var idents []string
	if e.at(FatArrow) {
		if err := e.advance(); err != nil {
			return nil, err
		}
		depth := 0
		for {
			if e.cur.Kind == Ident {
				idents = append(idents, e.cur.Lexeme)
			}
			switch e.cur.Kind {
			case LParen, LBracket, LBrace:
				depth++
			case RParen, RBracket, RBrace:
				depth--
			case Semicolon, EOF:
				if depth <= 0 {
					return idents, nil
				}
			}
			if err := e.advance(); err != nil {
				return nil, err
			}
		}
	}
	if !e.at(LBrace) {
		return idents, nil
	}
	depth := 0
	for {
		if e.cur.Kind == Ident {
			idents = append(idents, e.cur.Lexeme)
		}
		switch e.cur.Kind {
		case LBrace:
			depth++
		case RBrace:
			depth--
		case EOF:
			return idents, nil
		}
		if err := e.advance(); err != nil {
			return nil, err
		}
		if depth == 0 {
			return idents, nil
		}
	}
}

// parseStructDirectInit handles `S { field: value, ... }` (§4.2).
func (e *Emitter) parseStructDirectInit(nameTok Token) (int, error) {
	sp := nameTok.Span
	if _, err := e.expect(LBrace); err != nil {
		return 0, err
	}
	dst := e.allocReg()
	constIdx := e.prog.AddConstant(Constant{Str: nameTok.Lexeme, IsString: true})
	e.prog.Emit(OpNewStruct, dst, constIdx, 0, sp)
	for !e.at(RBrace) {
		fn, err := e.expect(Ident)
		if err != nil {
			return 0, err
		}
		if _, err := e.expect(Colon); err != nil {
			return 0, err
		}
		vr, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		fieldIdx := e.prog.AddConstant(Constant{Str: fn.Lexeme, IsString: true})
		e.prog.Emit(OpFieldSet, dst, fieldIdx, vr, fn.Span)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	_, err := e.expect(RBrace)
	return dst, err
}

// parseStructPositionalInit handles `S(v1, v2, ...)` (§4.2): arguments
// bind to fields in declaration order.
func (e *Emitter) parseStructPositionalInit(nameTok Token) (int, error) {
	sp := nameTok.Span
	if _, err := e.expect(LParen); err != nil {
		return 0, err
	}
	sym, _ := e.global.Lookup(nameTok.Lexeme)
	dst := e.allocReg()
	constIdx := e.prog.AddConstant(Constant{Str: nameTok.Lexeme, IsString: true})
	e.prog.Emit(OpNewStruct, dst, constIdx, 0, sp)
	i := 0
	for !e.at(RParen) {
		vr, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		fieldName := fmt.Sprintf("_%d", i)
		if sym != nil && i < len(sym.Fields) {
			fieldName = sym.Fields[i]
		}
		fieldIdx := e.prog.AddConstant(Constant{Str: fieldName, IsString: true})
		e.prog.Emit(OpFieldSet, dst, fieldIdx, vr, sp)
		i++
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
	}
	_, err := e.expect(RParen)
	return dst, err
}

// parseMatchExpr lowers `match value { pat -> expr; ...; rest -> expr; }`
// (§4.2, S5) to a cascade of equality tests and conditional jumps
// targeting one result temp.
func (e *Emitter) parseMatchExpr() (int, error) {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return 0, err
	}
	scrutinee, err := e.parseExpressionToReg()
	if err != nil {
		return 0, err
	}
	if _, err := e.expect(LBrace); err != nil {
		return 0, err
	}
	result := e.allocReg()
	var endJumps []int
	for !e.at(RBrace) {
		isRest := e.at(KwRest)
		var jf int
		hasGuard := !isRest
		if isRest {
			if err := e.advance(); err != nil {
				return 0, err
			}
		} else {
			prevScope := e.scope
			e.scope = NewScope(prevScope)
			e.scope.Declare(&Symbol{Name: "__scrutinee", Kind: SymVariable, Reg: scrutinee})
			condReg, err := e.parseMatchPattern(scrutinee)
			e.scope = prevScope
			if err != nil {
				return 0, err
			}
			jf = e.prog.Emit(OpJumpIfFalse, -1, condReg, 0, sp)
		}
		if _, err := e.expect(Arrow); err != nil {
			return 0, err
		}
		valReg, err := e.parseExpressionToReg()
		if err != nil {
			return 0, err
		}
		e.prog.Emit(OpMove, result, valReg, 0, sp)
		endJumps = append(endJumps, e.prog.Emit(OpJump, -1, 0, 0, sp))
		if hasGuard {
			e.prog.Patch(jf, len(e.prog.Code))
		}
		if e.at(Semicolon) {
			if err := e.advance(); err != nil {
				return 0, err
			}
		}
		if isRest {
			break
		}
	}
	for !e.at(RBrace) {
		if e.at(EOF) {
			return 0, parseErr(e.cur.Span, "unterminated match")
		}
		if err := e.advance(); err != nil {
			return 0, err
		}
	}
	if _, err := e.expect(RBrace); err != nil {
		return 0, err
	}
	for _, a := range endJumps {
		e.prog.Patch(a, len(e.prog.Code))
	}
	return result, nil
}

// parseMatchPattern parses one `match` case's pattern, which per §4.2
// is "a literal value, an enum member, or a boolean expression over the
// scrutinee" — `n < 0` reads `n` as an ordinary identifier bound to the
// scrutinee in the temporary pattern scope installed by the caller.
//
// A bare literal or enum-member pattern (`1 -> 1;`, `Color.Red -> ...`)
// is not itself a boolean — it must be lowered to an equality test
// against the scrutinee, not fed straight to `OpJumpIfFalse` on its own
// truthiness (a nonzero int literal is always truthy, so `1 -> 1;`
// would otherwise match unconditionally). Parse one primary unit first;
// if an operator follows, the pattern is a genuine boolean expression
// and already produces a real condition register, so re-parse it as
// such from the snapshot instead.
func (e *Emitter) parseMatchPattern(scrutinee int) (int, error) {
	snap := e.lex.Snapshot()
	startTok := e.cur
	sp := e.cur.Span
	patReg, err := e.parseUnary()
	if err != nil {
		return 0, err
	}
	if e.at(Arrow) {
		dst := e.allocReg()
		e.prog.Emit(OpEq, dst, scrutinee, patReg, sp)
		return dst, nil
	}
	e.lex.Restore(snap)
	e.cur = startTok
	return e.parseBinary(1)
}

// parseFString builds the concatenation sequence for `f"...{expr}..."`
// (§4.1, §4.2): the lexer hands back alternating fragment/expression
// tokens; the parser stitches them into a single ToString-concat chain.
func (e *Emitter) parseFString() (int, error) {
	var parts []int
	for {
		frag := e.cur
		if frag.Kind != FStringFragment {
			return 0, parseErr(frag.Span, "malformed f-string")
		}
		if err := e.advance(); err != nil {
			return 0, err
		}
		if frag.Lexeme != "" {
			r := e.allocReg()
			e.prog.Emit(OpLoadConst, r, e.prog.AddConstant(Constant{Str: frag.Lexeme, IsString: true}), 0, frag.Span)
			parts = append(parts, r)
		}
		if e.at(FStringExprEnd) || (len(parts) > 0 && !e.isFStringExprOngoing()) {
			break
		}
		if e.isFStringExprOngoing() {
			exprReg, err := e.parseExpressionToReg()
			if err != nil {
				return 0, err
			}
			parts = append(parts, exprReg)
			if e.at(FStringExprEnd) {
				if err := e.advance(); err != nil {
					return 0, err
				}
				continue
			}
		}
		if e.at(FStringFragment) {
			continue
		}
		break
	}
	base := e.allocReg()
	for i, r := range parts {
		d := base
		if i > 0 {
			d = e.allocReg()
		}
		e.prog.Emit(OpMove, d, r, 0, Span{})
	}
	dst := e.allocReg()
	e.prog.Emit(OpConcat, dst, base, len(parts), Span{})
	return dst, nil
}

func (e *Emitter) isFStringExprOngoing() bool {
	return !e.at(FStringFragment) && !e.at(FStringExprEnd) && !e.at(EOF)
}
