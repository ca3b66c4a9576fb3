package fluence

// parseLValueTarget parses one assignment target: a bare identifier, or
// an identifier followed by a single `.field` or `[index]` suffix
// (§4.2's l-value forms). Deeper chains (`a.b.c`, `a[i][j]`) are not
// targets in the scenarios this compiles and are left to general
// expression parsing.
func (e *Emitter) parseLValueTarget() (lvalueTarget, error) {
	name, err := e.expect(Ident)
	if err != nil {
		return lvalueTarget{}, err
	}
	if e.at(Dot) {
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return lvalueTarget{}, err
		}
		fn, err := e.expect(Ident)
		if err != nil {
			return lvalueTarget{}, err
		}
		objReg, _, err := e.resolveIdentReg(name.Lexeme, name.Span)
		if err != nil {
			return lvalueTarget{}, err
		}
		return lvalueTarget{kind: lvField, objReg: objReg, fieldName: fn.Lexeme, span: sp}, nil
	}
	if e.at(LBracket) {
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return lvalueTarget{}, err
		}
		idxReg, err := e.parseExpressionToReg()
		if err != nil {
			return lvalueTarget{}, err
		}
		if _, err := e.expect(RBracket); err != nil {
			return lvalueTarget{}, err
		}
		objReg, _, err := e.resolveIdentReg(name.Lexeme, name.Span)
		if err != nil {
			return lvalueTarget{}, err
		}
		return lvalueTarget{kind: lvIndex, objReg: objReg, idxReg: idxReg, span: sp}, nil
	}
	sym, ok := e.scope.Lookup(name.Lexeme)
	if !ok {
		sym = e.declareOrReuseVar(name.Lexeme)
	}
	return lvalueTarget{kind: lvVar, sym: sym, name: name.Lexeme, span: name.Span}, nil
}

func (e *Emitter) emitStoreLValue(t lvalueTarget, srcReg int, sp Span) {
	switch t.kind {
	case lvVar:
		e.storeVar(t.sym, srcReg, sp, false)
	case lvField:
		fieldIdx := e.prog.AddConstant(Constant{Str: t.fieldName, IsString: true})
		e.prog.Emit(OpFieldSet, t.objReg, fieldIdx, srcReg, sp)
	case lvIndex:
		e.prog.Emit(OpIndexSet, t.objReg, t.idxReg, srcReg, sp)
	}
}

func (e *Emitter) readLValue(t lvalueTarget, sp Span) int {
	switch t.kind {
	case lvField:
		dst := e.allocReg()
		fieldIdx := e.prog.AddConstant(Constant{Str: t.fieldName, IsString: true})
		e.prog.Emit(OpFieldGet, dst, t.objReg, fieldIdx, sp)
		return dst
	case lvIndex:
		dst := e.allocReg()
		e.prog.Emit(OpIndexGet, dst, t.objReg, t.idxReg, sp)
		return dst
	default:
		if t.sym.IsGlobal {
			if t.sym.Reg < 0 {
				t.sym.Reg = e.prog.NumGlobals
				e.prog.NumGlobals++
			}
			return encGlobal(t.sym.Reg)
		}
		return t.sym.Reg
	}
}

func compoundOp(k Kind) Opcode {
	switch k {
	case PlusAssign:
		return OpAdd
	case MinusAssign:
		return OpSub
	case StarAssign:
		return OpMul
	case SlashAssign:
		return OpDiv
	case ModAssign:
		return OpMod
	default:
		return OpNop
	}
}

func isCompoundAssign(k Kind) bool {
	switch k {
	case PlusAssign, MinusAssign, StarAssign, SlashAssign, ModAssign:
		return true
	default:
		return false
	}
}

func isChainAssignOp(k Kind) bool {
	switch k {
	case ChainAssignN, OptionalChainAssignN, UniqueChainAssignN, OptionalUniqueChainAssignN,
		RestAssign, SequentialRest, OptionalSequentialRest:
		return true
	default:
		return false
	}
}

// parseExprOrAssignStatement is the statement-level entry point for
// everything that isn't a keyword-led construct: plain expression
// statements (calls, mostly), simple/compound assignment, and the
// comma-separated chained-assignment families (§4.2, S2).
func (e *Emitter) parseExprOrAssignStatement() error {
	if e.at(Ident) {
		save := e.lex.Snapshot()
		saveTok := e.cur
		name := e.cur
		if err := e.advance(); err != nil {
			return err
		}
		if looksLikeLValueStart(e.cur.Kind) {
			e.lex.Restore(save)
			e.cur = saveTok
			target, err := e.parseLValueTarget()
			if err != nil {
				return err
			}
			return e.continueAssignStatement(target, name)
		}
		// Not an assignment target: rewind and fall through to a
		// general expression statement (function calls, bare
		// comparisons used for side effects, etc).
		e.lex.Restore(save)
		e.cur = saveTok
	}
	reg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	_ = reg
	return e.consumeStmtTerminator()
}

// looksLikeLValueStart reports whether the token immediately following
// a bare identifier is consistent with that identifier heading an
// assignment target list: `=`, a compound-assign operator, a chained-
// assign operator, `.ident` / `[expr]` (checked again inside
// parseLValueTarget), or a comma introducing more targets. Anything
// else (`(`,  a binary operator, end of statement) means it was just an
// expression.
func looksLikeLValueStart(k Kind) bool {
	if isCompoundAssign(k) || isChainAssignOp(k) || k == Assign || k == Comma {
		return true
	}
	return k == Dot || k == LBracket
}

// continueAssignStatement resumes parsing once the leading identifier
// has been confirmed (via lookahead) to start an assignment target; it
// reparses the target properly (fields/indices) then dispatches on
// the operator that follows.
func (e *Emitter) continueAssignStatement(first lvalueTarget, nameTok Token) error {
	targets := []lvalueTarget{first}
	for e.at(Comma) {
		if err := e.advance(); err != nil {
			return err
		}
		t, err := e.parseLValueTarget()
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	switch {
	case e.at(Assign):
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return err
		}
		if len(targets) != 1 {
			return parseErr(sp, "multiple assignment targets require a chained-assignment operator")
		}
		rhs, err := e.parseExpressionToReg()
		if err != nil {
			return err
		}
		e.emitStoreLValue(targets[0], rhs, sp)
		return e.consumeStmtTerminator()
	case isCompoundAssign(e.cur.Kind):
		if len(targets) != 1 {
			return parseErr(e.cur.Span, "compound assignment does not support multiple targets")
		}
		op := compoundOp(e.cur.Kind)
		sp := e.cur.Span
		if err := e.advance(); err != nil {
			return err
		}
		rhs, err := e.parseExpressionToReg()
		if err != nil {
			return err
		}
		cur := e.readLValue(targets[0], sp)
		dst := e.allocReg()
		e.prog.Emit(op, dst, cur, rhs, sp)
		e.emitStoreLValue(targets[0], dst, sp)
		return e.consumeStmtTerminator()
	case isChainAssignOp(e.cur.Kind):
		return e.parseChainAssignment(targets)
	default:
		return parseErr(e.cur.Span, "expected assignment operator, found %s", e.cur.Kind)
	}
}

type assignMode int

const (
	assignSimple assignMode = iota
	assignOptional
	assignUnique
	assignOptionalUnique
	assignSequential
	assignOptionalSequential
)

// emitAssignOne stores srcReg into t. When optional is set (the `?`
// reading of a chain-assign segment), the store is skipped if the
// source value is Nil.
func (e *Emitter) emitAssignOne(t lvalueTarget, srcReg int, optional bool) {
	if !optional {
		e.emitStoreLValue(t, srcReg, t.span)
		return
	}
	nilReg := e.allocReg()
	e.prog.Emit(OpLoadNil, nilReg, 0, 0, t.span)
	isNil := e.allocReg()
	e.prog.Emit(OpEq, isNil, srcReg, nilReg, t.span)
	skip := e.prog.Emit(OpJumpIfTrue, -1, isNil, 0, t.span)
	e.emitStoreLValue(t, srcReg, t.span)
	e.prog.Patch(skip, len(e.prog.Code))
}

// parseChainAssignment lowers the `<N|`/`<N?|`/`<N!|`/`<N!?|`/`<|`/
// `<~|`/`<~?|` family (§4.2, S2). The target list is consumed segment
// by segment, in source order, against the operator that introduces
// each segment:
//   - `<N|`/`<N?|`: the segment's one source expression is evaluated
//     once and shared by the next N targets (Token.N carries the count).
//   - `<N!|`/`<N!?|`: like the above, but every target after the first
//     re-runs the source expression fresh from its original tokens
//     (via the lexer's snapshot/restore) instead of reusing one
//     evaluated register — §9's warning to treat `!` as a distinct
//     lowering template, not a toggle, rather than folding it into the
//     plain form.
//   - `<|`/`<?|`: the segment's source is shared by every remaining
//     target (no N — "the rest").
//   - `<~|`/`<~?|`: a comma-separated list of sources, zipped 1:1 with
//     the remaining targets.
//
// `<N|`/`<N!|` are two distinct lowering templates; each is handled in
// its own branch below rather than by branching inside a shared loop
// body. "Optional" (`?`) variants skip a segment's assignment(s) via
// emitAssignOne's Nil check when the source value is Nil.
func (e *Emitter) parseChainAssignment(targets []lvalueTarget) error {
	ti := 0
	for ti < len(targets) {
		opTok := e.cur
		if !isChainAssignOp(opTok.Kind) {
			return parseErr(opTok.Span, "expected a chained-assignment operator, found %s", opTok.Kind)
		}
		var mode assignMode
		switch opTok.Kind {
		case ChainAssignN, RestAssign:
			mode = assignSimple
		case OptionalChainAssignN:
			mode = assignOptional
		case UniqueChainAssignN:
			mode = assignUnique
		case OptionalUniqueChainAssignN:
			mode = assignOptionalUnique
		case SequentialRest:
			mode = assignSequential
		case OptionalSequentialRest:
			mode = assignOptionalSequential
		}
		if err := e.advance(); err != nil {
			return err
		}

		if mode == assignSequential || mode == assignOptionalSequential {
			optional := mode == assignOptionalSequential
			for ti < len(targets) {
				srcReg, err := e.parseExpressionToReg()
				if err != nil {
					return err
				}
				e.emitAssignOne(targets[ti], srcReg, optional)
				ti++
				if !e.at(Comma) {
					break
				}
				if err := e.advance(); err != nil {
					return err
				}
			}
			continue
		}

		snap := e.lex.Snapshot()
		startTok := e.cur
		srcReg, err := e.parseExpressionToReg()
		if err != nil {
			return err
		}

		segN := len(targets) - ti // "<|"/"<?|": share with everything left
		if opTok.Kind == ChainAssignN || opTok.Kind == OptionalChainAssignN ||
			opTok.Kind == UniqueChainAssignN || opTok.Kind == OptionalUniqueChainAssignN {
			segN = opTok.N
			if segN > len(targets)-ti {
				segN = len(targets) - ti
			}
		}

		optional := mode == assignOptional || mode == assignOptionalUnique
		unique := mode == assignUnique || mode == assignOptionalUnique
		for k := 0; k < segN; k++ {
			reg := srcReg
			if unique && k > 0 {
				e.lex.Restore(snap)
				e.cur = startTok
				r, err := e.parseExpressionToReg()
				if err != nil {
					return err
				}
				reg = r
			}
			e.emitAssignOne(targets[ti], reg, optional)
			ti++
		}
	}
	return e.consumeStmtTerminator()
}
