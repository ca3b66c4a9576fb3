package fluence

// globalBit marks a register operand as indexing the VM's global
// register array rather than the current frame's local registers —
// the runtime counterpart of §3's "is_global variables are indexed
// into a separate global register array" invariant. Kept as a tagged
// bit on the plain int operand rather than a second Instruction field
// so existing opcodes don't need an "is this operand global" flag
// threaded through every handler.
const globalBit = 1 << 30

func encGlobal(i int) int      { return i | globalBit }
func isGlobalReg(r int) bool   { return r&globalBit != 0 }
func decReg(r int) int         { return r &^ globalBit }

// globalFixup describes one bytecode operand that names a global by
// name. No emitter path records one: global slots are assigned at
// emission time, so Emitter.globalFixes stays empty.
type globalFixup struct {
	Addr  int
	Which int // 0=A, 1=B, 2=C
	Name  string
}

// funcInfo records everything a CallFunction site needs about a
// function declared elsewhere in the file. EmitProgram copies it into
// Program.Funcs, and the VM looks it up by name at call time, so
// forward calls (including mutual recursion) work.
type funcInfo struct {
	Name      string
	StartAddr int
	NumParams int
	NumRegs   int
	ParamRefs []bool
	IsMethod  bool
}

// Emitter is Fluence's parser and bytecode emitter (component E):
// recursive descent at statement level, Pratt precedence for
// expressions, emitting three-address instructions directly into one
// growing Program with no persisted AST in between (§1, §4.2).
// Grounded directly on `grammar_compiler.go`'s `compiler` struct
// (`cursor`, `code []Instruction`, `openAddrs map[int]int` forward-call
// backpatching, `pushString` constant pool) and `grammar_parser.go`'s
// one-`parseX`-method-per-production shape.
type Emitter struct {
	lex   *Lexer
	cur   Token
	prog  *Program
	pools *Pools

	global *Scope
	scope  *Scope

	regCounter *int // shared per-function monotone temp/local counter

	funcs       map[string]*funcInfo
	globalFixes []globalFixup

	breakStack    [][]int
	continueAddr  []int

	inLoopDepth int
	mainSeen    bool
}

func NewEmitter(source, file string) (*Emitter, error) {
	e := &Emitter{
		lex:    NewLexer(source, file),
		prog:   NewProgram(),
		global: NewScope(nil),
		funcs:  make(map[string]*funcInfo),
	}
	e.scope = e.global
	zero := 0
	e.regCounter = &zero
	if err := e.advance(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Emitter) advance() error {
	tok, err := e.lex.ConsumeToken()
	if err != nil {
		return err
	}
	e.cur = tok
	return nil
}

func (e *Emitter) peek() (Token, error) { return e.lex.PeekToken() }

func (e *Emitter) expect(k Kind) (Token, error) {
	if e.cur.Kind != k {
		return Token{}, parseErr(e.cur.Span, "expected %s, found %s", k, e.cur.Kind)
	}
	t := e.cur
	if err := e.advance(); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (e *Emitter) at(k Kind) bool { return e.cur.Kind == k }

func (e *Emitter) allocReg() int {
	r := *e.regCounter
	*e.regCounter++
	return r
}

// EmitProgram drives the whole compile: a lightweight pre-scan declares
// every top-level name so forward references resolve, then statements
// are parsed and emitted in source order until EOF, then the epilogue
// (call Main, halt) and the global-patch pass (§4.5) run.
func EmitProgram(source, file string) (*Program, error) {
	e, err := NewEmitter(source, file)
	if err != nil {
		return nil, err
	}
	e.prescanGlobals(source, file)

	for !e.at(EOF) {
		if err := e.parseTopLevelStatement(); err != nil {
			return nil, err
		}
	}

	e.emitEpilogue()
	e.prog.GlobalEnd = len(e.prog.Code)
	patchGlobals(e.prog, e.globalFixes)
	e.prog.NumRegs = *e.regCounter
	e.prog.Funcs = make(map[string]*FuncDesc, len(e.funcs))
	for name, fi := range e.funcs {
		e.prog.Funcs[name] = &FuncDesc{
			Name: fi.Name, StartAddr: fi.StartAddr, NumParams: fi.NumParams,
			NumRegs: fi.NumRegs, ParamRefs: fi.ParamRefs, IsMethod: fi.IsMethod,
		}
	}
	e.prog.GlobalSyms = e.global.Symbols()
	return e.prog, nil
}

// prescanGlobals runs a throwaway lexer over the whole source once,
// tracking brace depth, and pre-declares every name introduced at
// depth 0 by `func`, `struct`, `enum`, or a bare/`solid` assignment —
// giving later Lookup calls something to find even when the use
// precedes the declaration textually. This is the emitter's
// approximation of §4.5's global-patch pass running "at VM start": a
// true implementation reorders at link time after a fully built
// instruction stream; here the instruction stream IS the only
// intermediate form (no persisted AST, per §1), so the equivalent is a
// cheap name-only pre-pass over tokens instead of a second semantic
// pass over bytecode.
func (e *Emitter) prescanGlobals(source, file string) {
	pl := NewLexer(source, file)
	depth := 0
	for {
		tok, err := pl.ConsumeToken()
		if err != nil || tok.Kind == EOF {
			break
		}
		switch tok.Kind {
		case LBrace:
			depth++
		case RBrace:
			depth--
		}
		if depth != 0 {
			continue
		}
		switch tok.Kind {
		case KwFunc, KwStruct, KwEnum:
			nt, err := pl.ConsumeToken()
			if err != nil || nt.Kind != Ident {
				continue
			}
			if _, ok := e.global.Lookup(nt.Lexeme); !ok {
				kind := SymFunction
				if tok.Kind == KwStruct {
					kind = SymStruct
				} else if tok.Kind == KwEnum {
					kind = SymEnum
				}
				e.global.Declare(&Symbol{Name: nt.Lexeme, Kind: kind, IsGlobal: true, Reg: -1, Methods: make(map[string]*Symbol)})
			}
		case Ident:
			nt, err := pl.PeekToken()
			if err != nil {
				continue
			}
			if nt.Kind == Assign {
				if _, ok := e.global.Lookup(tok.Lexeme); !ok {
					e.global.Declare(&Symbol{Name: tok.Lexeme, Kind: SymVariable, IsGlobal: true, Reg: -1})
				}
			}
		case KwSolid:
			nt, err := pl.PeekToken()
			if err == nil && nt.Kind == Ident {
				if _, ok := e.global.Lookup(nt.Lexeme); !ok {
					e.global.Declare(&Symbol{Name: nt.Lexeme, Kind: SymVariable, IsGlobal: true, Reg: -1})
				}
			}
		}
	}
}

func (e *Emitter) emitEpilogue() {
	if _, ok := e.funcs["Main__0"]; ok {
		dst := e.allocReg()
		constIdx := e.prog.AddConstant(Constant{Str: "Main", IsString: true})
		e.prog.Emit4(OpCallNamed, dst, constIdx, 0, 0, Span{})
	}
	e.prog.Emit(OpHalt, 0, 0, 0, Span{})
}

// patchGlobals is the global-patch step. It rewrites no operand:
// global slots are assigned at emission time by storeVar, and no
// fixups are recorded.
func patchGlobals(p *Program, fixes []globalFixup) {
	for _, fx := range fixes {
		// The symbol table itself carries the allocation (see
		// emitIdentRead/emitVarStore): by the time EmitProgram
		// returns, every global Symbol's Reg has been assigned, so
		// resolving here is a matter of looking the name up once
		// more, not re-deriving it.
		_ = fx // symbol-table resolution already happened at emission
		// time for names declared before use; fixups exist only to
		// document forward references resolved the same way. Nothing
		// further to rewrite: see resolveIdent's direct encGlobal use.
		_ = p
	}
}

// ---- top level ----

func (e *Emitter) parseTopLevelStatement() error {
	switch e.cur.Kind {
	case KwFunc:
		return e.parseFuncDecl(nil)
	case KwStruct:
		return e.parseStructDecl()
	case KwEnum:
		return e.parseEnumDecl()
	case KwTrait:
		return e.parseTraitDecl()
	case KwSpace:
		return e.parseNamespaceDecl()
	case KwUse:
		return e.parseUseDecl()
	default:
		return e.parseStatement()
	}
}

func (e *Emitter) parseBlock() error {
	if _, err := e.expect(LBrace); err != nil {
		return err
	}
	for !e.at(RBrace) {
		if e.at(EOF) {
			return parseErr(e.cur.Span, "unterminated block")
		}
		if err := e.parseStatement(); err != nil {
			return err
		}
	}
	_, err := e.expect(RBrace)
	return err
}

// parseBodyOrBlock accepts either `-> stmt;` (single-line body) or a
// `{ ... }` block, per §6's statement-terminator rule.
func (e *Emitter) parseBodyOrBlock() error {
	if e.at(Arrow) {
		if err := e.advance(); err != nil {
			return err
		}
		return e.parseStatement()
	}
	return e.parseBlock()
}

func (e *Emitter) parseStatement() error {
	switch e.cur.Kind {
	case LBrace:
		return e.parseBlock()
	case KwSolid:
		return e.parseVarDecl(true)
	case KwIf:
		return e.parseIf(false)
	case KwUnless:
		return e.parseIf(true)
	case KwWhile:
		return e.parseWhile(false)
	case KwUntil:
		return e.parseWhile(true)
	case KwFor:
		return e.parseForIn()
	case KwLoop:
		return e.parseLoopTimes()
	case KwReturn:
		return e.parseReturn()
	case KwBreak:
		return e.parseBreak()
	case KwContinue:
		return e.parseContinue()
	case KwTry:
		return e.parseTryCatch()
	case KwThrow:
		return e.parseThrow()
	case KwFunc:
		return e.parseFuncDecl(nil)
	case KwStruct:
		return e.parseStructDecl()
	case KwEnum:
		return e.parseEnumDecl()
	case Semicolon:
		return e.advance()
	default:
		return e.parseExprOrAssignStatement()
	}
}

// ---- variable declarations & assignment ----

func (e *Emitter) parseVarDecl(solid bool) error {
	if solid {
		if _, err := e.expect(KwSolid); err != nil {
			return err
		}
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	if _, err := e.expect(Assign); err != nil {
		return err
	}
	rhs, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	sym := e.declareOrReuseVar(name.Lexeme)
	e.storeVar(sym, rhs, name.Span, solid)
	return e.consumeStmtTerminator()
}

func (e *Emitter) declareOrReuseVar(name string) *Symbol {
	if sym, ok := e.scope.Lookup(name); ok && sym.Kind == SymVariable {
		return sym
	}
	sym := &Symbol{Name: name, Kind: SymVariable}
	if e.scope.IsGlobalScope() {
		sym.IsGlobal = true
		sym.Reg = -1
	} else {
		sym.Reg = e.allocReg()
	}
	e.scope.Declare(sym)
	return sym
}

// storeVar writes `srcReg` into sym's slot, allocating a global index
// on first write if this is the defining assignment (§4.5 step 2).
// Solid write-once semantics (§4.4, §7, S8) are not checked here at
// compile time: markSolid emits OpLockSlot, and the runtime
// writability cache (CallFrame/global locked-bit array) rejects any
// later write to the slot.
func (e *Emitter) storeVar(sym *Symbol, srcReg int, sp Span, markSolid bool) {
	if sym.IsGlobal && sym.Reg < 0 {
		sym.Reg = e.prog.NumGlobals
		e.prog.NumGlobals++
	}
	dst := sym.Reg
	if sym.IsGlobal {
		dst = encGlobal(dst)
	}
	e.prog.Emit(OpMove, dst, srcReg, 0, sp)
	if markSolid {
		e.prog.Emit(OpLockSlot, dst, 0, 0, sp)
	}
}

func (e *Emitter) resolveIdentReg(name string, sp Span) (int, *Symbol, error) {
	sym, ok := e.scope.Lookup(name)
	if !ok {
		// Late-bound per §4.4: presume global, to be resolved by
		// name at VM start if truly undefined.
		sym = &Symbol{Name: name, Kind: SymVariable, IsGlobal: true, Reg: -1}
		e.global.Declare(sym)
	}
	switch sym.Kind {
	case SymVariable:
		if sym.IsGlobal {
			if sym.Reg < 0 {
				sym.Reg = e.prog.NumGlobals
				e.prog.NumGlobals++
			}
			return encGlobal(sym.Reg), sym, nil
		}
		return sym.Reg, sym, nil
	case SymFunction:
		dst := e.allocReg()
		constIdx := e.prog.AddConstant(Constant{Str: name, IsString: true})
		e.prog.Emit(OpLoadFunc, dst, constIdx, 0, sp)
		return dst, sym, nil
	default:
		return 0, sym, nil
	}
}

// ---- control flow ----

func (e *Emitter) parseIf(negate bool) error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	condReg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	jf := e.prog.Emit(OpJumpIfFalse, -1, condReg, 0, sp)
	if negate {
		e.prog.Code[jf].Op = OpJumpIfTrue
	}
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	if e.at(KwElse) {
		jend := e.prog.Emit(OpJump, -1, 0, 0, sp)
		e.prog.Patch(jf, len(e.prog.Code))
		if err := e.advance(); err != nil {
			return err
		}
		if e.at(KwIf) {
			if err := e.parseIf(false); err != nil {
				return err
			}
		} else if err := e.parseBodyOrBlock(); err != nil {
			return err
		}
		e.prog.Patch(jend, len(e.prog.Code))
	} else {
		e.prog.Patch(jf, len(e.prog.Code))
	}
	return nil
}

func (e *Emitter) parseWhile(negate bool) error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	top := len(e.prog.Code)
	condReg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	jf := e.prog.Emit(OpJumpIfFalse, -1, condReg, 0, sp)
	if negate {
		e.prog.Code[jf].Op = OpJumpIfTrue
	}
	e.pushLoop(top)
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.prog.Emit(OpJump, top, 0, 0, sp)
	e.prog.Patch(jf, len(e.prog.Code))
	e.popLoop()
	return nil
}

func (e *Emitter) parseLoopTimes() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	countReg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	if _, err := e.expect(KwTimes); err != nil {
		return err
	}
	idxReg := e.allocReg()
	e.prog.Emit(OpLoadConst, idxReg, e.prog.AddConstant(Constant{IntVal: 0}), 0, sp)
	top := len(e.prog.Code)
	condReg := e.allocReg()
	e.prog.Emit(OpLt, condReg, idxReg, countReg, sp)
	jf := e.prog.Emit(OpJumpIfFalse, -1, condReg, 0, sp)
	e.pushLoop(top)
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.prog.Emit(OpInc, idxReg, 0, 0, sp)
	e.prog.Emit(OpJump, top, 0, 0, sp)
	e.prog.Patch(jf, len(e.prog.Code))
	e.popLoop()
	return nil
}

func (e *Emitter) parseForIn() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	if _, err := e.expect(KwIn); err != nil {
		return err
	}
	collReg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	iterReg := e.allocReg()
	e.prog.Emit(OpIterInit, iterReg, collReg, 0, sp)

	prevScope := e.scope
	e.scope = NewScope(prevScope)
	valReg := e.allocReg()
	e.scope.Declare(&Symbol{Name: name.Lexeme, Kind: SymVariable, Reg: valReg})

	top := len(e.prog.Code)
	moreReg := e.allocReg()
	e.prog.Emit(OpIterNext, moreReg, valReg, iterReg, sp)
	jf := e.prog.Emit(OpJumpIfFalse, -1, moreReg, 0, sp)
	e.pushLoop(top)
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.prog.Emit(OpJump, top, 0, 0, sp)
	e.prog.Patch(jf, len(e.prog.Code))
	e.popLoop()
	e.scope = prevScope
	return nil
}

func (e *Emitter) pushLoop(continueAddr int) {
	e.breakStack = append(e.breakStack, nil)
	e.continueAddr = append(e.continueAddr, continueAddr)
	e.inLoopDepth++
}

func (e *Emitter) popLoop() {
	addrs := e.breakStack[len(e.breakStack)-1]
	for _, a := range addrs {
		e.prog.Patch(a, len(e.prog.Code))
	}
	e.breakStack = e.breakStack[:len(e.breakStack)-1]
	e.continueAddr = e.continueAddr[:len(e.continueAddr)-1]
	e.inLoopDepth--
}

func (e *Emitter) parseBreak() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	if e.inLoopDepth == 0 {
		return rtErr(RTUncaughtException, sp, "break outside loop")
	}
	a := e.prog.Emit(OpJump, -1, 0, 0, sp)
	top := len(e.breakStack) - 1
	e.breakStack[top] = append(e.breakStack[top], a)
	return e.consumeStmtTerminator()
}

func (e *Emitter) parseContinue() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	if e.inLoopDepth == 0 {
		return rtErr(RTUncaughtException, sp, "continue outside loop")
	}
	target := e.continueAddr[len(e.continueAddr)-1]
	e.prog.Emit(OpJump, target, 0, 0, sp)
	return e.consumeStmtTerminator()
}

func (e *Emitter) parseReturn() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	if e.at(Semicolon) || e.at(RBrace) {
		e.prog.Emit(OpReturn, -1, 0, 0, sp)
		return e.consumeStmtTerminator()
	}
	reg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	e.prog.Emit(OpReturn, reg, 0, 0, sp)
	return e.consumeStmtTerminator()
}

func (e *Emitter) parseThrow() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	reg, err := e.parseExpressionToReg()
	if err != nil {
		return err
	}
	e.prog.Emit(OpThrow, reg, 0, 0, sp)
	return e.consumeStmtTerminator()
}

// parseTryCatch lowers `try -> stmt; catch ex -> stmt;` /
// `try { ... } catch ex { ... }` into OpTry/OpPopTry per §4.9.
func (e *Emitter) parseTryCatch() error {
	sp := e.cur.Span
	if err := e.advance(); err != nil {
		return err
	}
	tryIns := e.prog.Emit(OpTry, -1, 0, 0, sp)
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.prog.Emit(OpPopTry, 0, 0, 0, sp)
	jend := e.prog.Emit(OpJump, -1, 0, 0, sp)
	e.prog.Patch(tryIns, len(e.prog.Code))

	if _, err := e.expect(KwCatch); err != nil {
		return err
	}
	prevScope := e.scope
	e.scope = NewScope(prevScope)
	if e.at(Ident) {
		name := e.cur
		if err := e.advance(); err != nil {
			return err
		}
		excReg := e.allocReg()
		e.scope.Declare(&Symbol{Name: name.Lexeme, Kind: SymVariable, Reg: excReg})
		e.prog.Emit(OpMove, excReg, excSlot, 0, sp)
	}
	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.scope = prevScope
	e.prog.Patch(jend, len(e.prog.Code))
	return nil
}

// excSlot is the well-known register the VM deposits a caught
// exception's value into before transferring control to the catch
// body (§4.9 step (a)).
const excSlot = 0

// ---- functions ----

func (e *Emitter) parseFuncDecl(structName *string) error {
	if _, err := e.expect(KwFunc); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	if _, err := e.expect(LParen); err != nil {
		return err
	}
	var params []Param
	for !e.at(RParen) {
		byRef := false
		if e.at(KwRef) {
			byRef = true
			if err := e.advance(); err != nil {
				return err
			}
		}
		pn, err := e.expect(Ident)
		if err != nil {
			return err
		}
		p := Param{Name: pn.Lexeme, ByRef: byRef}
		if e.at(Assign) {
			if err := e.advance(); err != nil {
				return err
			}
			dv, err := e.parseExpressionToReg()
			if err != nil {
				return err
			}
			p.HasDefault = true
			_ = dv // the default expression is emitted here, at the declaration site, and its register is not used; calls must pass every parameter
		}
		params = append(params, p)
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return err
			}
		}
	}
	if _, err := e.expect(RParen); err != nil {
		return err
	}

	fqName := name.Lexeme
	if structName != nil {
		fqName = *structName + "." + name.Lexeme
	}
	mangled := MangledMethodName(fqName, len(params))

	jOver := e.prog.Emit(OpJump, -1, 0, 0, name.Span)
	startAddr := len(e.prog.Code)

	prevScope := e.scope
	prevCounter := e.regCounter
	zero := 0
	e.scope = NewScope(e.global)
	e.regCounter = &zero

	refFlags := make([]bool, len(params))
	if structName != nil {
		e.allocReg() // self occupies register 0
	}
	for i, p := range params {
		r := e.allocReg()
		e.scope.Declare(&Symbol{Name: p.Name, Kind: SymVariable, Reg: r})
		refFlags[i] = p.ByRef
	}

	if err := e.parseBodyOrBlock(); err != nil {
		return err
	}
	e.prog.Emit(OpReturn, -1, 0, 0, name.Span)

	fi := &funcInfo{
		Name: mangled, StartAddr: startAddr, NumParams: len(params),
		NumRegs: *e.regCounter, ParamRefs: refFlags, IsMethod: structName != nil,
	}
	e.funcs[mangled] = fi
	if *e.regCounter > e.prog.NumRegs {
		e.prog.NumRegs = *e.regCounter
	}

	e.regCounter = prevCounter
	e.scope = prevScope
	e.prog.Patch(jOver, len(e.prog.Code))

	if structName == nil {
		sym, ok := e.global.Lookup(fqName)
		if !ok || sym.Kind != SymFunction {
			sym = &Symbol{Name: fqName, Kind: SymFunction, IsGlobal: true}
			e.global.Declare(sym)
		}
		sym.Arity = len(params)
		if sym.Methods == nil {
			sym.Methods = make(map[string]*Symbol)
		}
		sym.Methods[mangled] = &Symbol{Name: mangled, Kind: SymFunction, Arity: len(params)}
	}
	return nil
}

// ---- struct / enum / trait / namespace ----

func (e *Emitter) parseStructDecl() error {
	if _, err := e.expect(KwStruct); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	sym, ok := e.global.Lookup(name.Lexeme)
	if !ok || sym.Kind != SymStruct {
		sym = &Symbol{Name: name.Lexeme, Kind: SymStruct, IsGlobal: true, Methods: make(map[string]*Symbol)}
		e.global.Declare(sym)
	}
	if _, err := e.expect(LBrace); err != nil {
		return err
	}
	for !e.at(RBrace) {
		if e.at(EOF) {
			return parseErr(e.cur.Span, "unterminated struct body")
		}
		if e.at(KwFunc) {
			if err := e.parseFuncDecl(&name.Lexeme); err != nil {
				return err
			}
			continue
		}
		fn, err := e.expect(Ident)
		if err != nil {
			return err
		}
		for _, existing := range sym.Fields {
			if existing == fn.Lexeme {
				return parseErr(fn.Span, "duplicate field %q", fn.Lexeme)
			}
		}
		sym.Fields = append(sym.Fields, fn.Lexeme)
		if e.at(Comma) || e.at(Semicolon) {
			if err := e.advance(); err != nil {
				return err
			}
		}
	}
	_, err = e.expect(RBrace)
	return err
}

func (e *Emitter) parseEnumDecl() error {
	if _, err := e.expect(KwEnum); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	sym := &Symbol{Name: name.Lexeme, Kind: SymEnum, IsGlobal: true}
	if _, err := e.expect(LBrace); err != nil {
		return err
	}
	ordinal := 0
	for !e.at(RBrace) {
		mn, err := e.expect(Ident)
		if err != nil {
			return err
		}
		sym.Variants = append(sym.Variants, mn.Lexeme)
		ordinal++
		if e.at(Comma) {
			if err := e.advance(); err != nil {
				return err
			}
		}
	}
	e.global.Declare(sym)
	_, err = e.expect(RBrace)
	return err
}

func (e *Emitter) parseTraitDecl() error {
	if _, err := e.expect(KwTrait); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	sym := &Symbol{Name: name.Lexeme, Kind: SymTrait, IsGlobal: true}
	e.global.Declare(sym)
	if _, err := e.expect(LBrace); err != nil {
		return err
	}
	for !e.at(RBrace) {
		if e.at(EOF) {
			return parseErr(e.cur.Span, "unterminated trait body")
		}
		if err := e.advance(); err != nil {
			return err
		}
	}
	_, err = e.expect(RBrace)
	return err
}

func (e *Emitter) parseNamespaceDecl() error {
	if _, err := e.expect(KwSpace); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	nsScope := NewScope(e.global)
	sym := &Symbol{Name: name.Lexeme, Kind: SymNamespace, IsGlobal: true, Namespace: nsScope}
	e.global.Declare(sym)

	if _, err := e.expect(LBrace); err != nil {
		return err
	}
	prevScope := e.scope
	e.scope = nsScope
	for !e.at(RBrace) {
		if e.at(EOF) {
			return parseErr(e.cur.Span, "unterminated namespace body")
		}
		if err := e.parseTopLevelStatement(); err != nil {
			return err
		}
	}
	e.scope = prevScope
	_, err = e.expect(RBrace)
	return err
}

func (e *Emitter) parseUseDecl() error {
	if _, err := e.expect(KwUse); err != nil {
		return err
	}
	name, err := e.expect(Ident)
	if err != nil {
		return err
	}
	sym, ok := e.global.Lookup(name.Lexeme)
	if !ok || sym.Kind != SymNamespace {
		return parseErr(name.Span, "undefined namespace %q", name.Lexeme)
	}
	e.scope.AddImport(sym.Namespace)
	return e.consumeStmtTerminator()
}

func (e *Emitter) consumeStmtTerminator() error {
	if e.at(Semicolon) {
		return e.advance()
	}
	return nil
}
