package fluence

import (
	"fmt"
	"strconv"
	"strings"
)

// LexError is returned for any fatal tokenization failure (§4.1).
type LexError struct {
	Kind string // UnterminatedString | UnterminatedComment | BadNumericLiteral | UnknownCharacter
	Msg  string
	Span Span
}

func (e LexError) Error() string {
	return fmt.Sprintf("LexError::%s: %s @ %s", e.Kind, e.Msg, e.Span)
}

func lexErr(kind, msg string, sp Span) error {
	return LexError{Kind: kind, Msg: msg, Span: sp}
}

const lexEOF = -1

// fstrFrame tracks one active f-string's nesting state: whether the
// lexer is currently emitting fragment text or has handed control back
// to the normal tokenizer for an embedded `{expr}`, and (in the latter
// case) how many unmatched `{` have been seen so the matching `}` can
// be told apart from a nested block's own braces.
type fstrFrame struct {
	inExpr bool
	depth  int
}

// Lexer turns Fluence source text into a lazy token stream. It supports
// `Peek`/`Consume` at the token level and exposes `HasReachedEnd` and the
// absolute character cursor, per §4.1's contract. A Lexer is restartable
// only by constructing a new one over the same source — grounded on
// base_parser.go's cursor/line/column triple and grammar_parser.go's
// hand-dispatched character scanning, generalized from PEG terminals to
// Fluence's full operator set.
type Lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	file string

	fstr []*fstrFrame

	lookahead    *Token
	lookaheadErr error
}

func NewLexer(source, file string) *Lexer {
	return &Lexer{src: []rune(source), file: file}
}

func (l *Lexer) HasReachedEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) location() Location {
	return Location{Line: l.line, Column: l.col, Cursor: l.pos, File: l.file}
}

func (l *Lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return lexEOF
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	i := l.pos + offset
	if i < 0 || i >= len(l.src) {
		return lexEOF
	}
	return l.src[i]
}

func (l *Lexer) peekString(n int) string {
	end := l.pos + n
	if end > len(l.src) {
		end = len(l.src)
	}
	return string(l.src[l.pos:end])
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return lexEOF
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return c
}

// consumeLiteral advances past `s` assuming it was just matched by a
// peekString(len(s)) == s check at the current position.
func (l *Lexer) consumeLiteral(s string) {
	for range s {
		l.advance()
	}
}

// lexState is an opaque snapshot of scanning position, used by the
// emitter to re-parse the same source span more than once — e.g. the
// `<N!|` chained-assignment form, which re-evaluates its source
// expression independently for each target (§4.2, §9's "two distinct
// lowering templates" note).
type lexState struct {
	pos, line, col int
	fstr           []fstrFrame
	lookahead      *Token
	lookaheadErr   error
}

func (l *Lexer) Snapshot() lexState {
	fstrCopy := make([]fstrFrame, len(l.fstr))
	for i, f := range l.fstr {
		fstrCopy[i] = *f
	}
	return lexState{pos: l.pos, line: l.line, col: l.col, fstr: fstrCopy, lookahead: l.lookahead, lookaheadErr: l.lookaheadErr}
}

func (l *Lexer) Restore(s lexState) {
	l.pos, l.line, l.col = s.pos, s.line, s.col
	l.fstr = make([]*fstrFrame, len(s.fstr))
	for i := range s.fstr {
		f := s.fstr[i]
		l.fstr[i] = &f
	}
	l.lookahead, l.lookaheadErr = s.lookahead, s.lookaheadErr
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() (Token, error) {
	if l.lookahead == nil && l.lookaheadErr == nil {
		tok, err := l.scan()
		l.lookahead = &tok
		l.lookaheadErr = err
	}
	if l.lookaheadErr != nil {
		return Token{}, l.lookaheadErr
	}
	return *l.lookahead, nil
}

// ConsumeToken returns and advances past the next token.
func (l *Lexer) ConsumeToken() (Token, error) {
	if l.lookahead != nil || l.lookaheadErr != nil {
		tok, err := *l.lookahead, l.lookaheadErr
		l.lookahead, l.lookaheadErr = nil, nil
		return tok, err
	}
	return l.scan()
}

// SkipWhitespaceAndComments consumes runs of whitespace, `# ...` line
// comments (terminated by, but not consuming, the newline), and
// `#* ... *#` block comments.
func (l *Lexer) SkipWhitespaceAndComments() error {
	for {
		switch c := l.peekRune(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '#' && l.peekAt(1) == '*':
			start := l.location()
			l.advance()
			l.advance()
			closed := false
			for !l.HasReachedEnd() {
				if l.peekRune() == '*' && l.peekAt(1) == '#' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return lexErr("UnterminatedComment", "missing closing `*#`", NewSpan(start, l.location()))
			}
		case c == '#':
			for !l.HasReachedEnd() && l.peekRune() != '\n' {
				l.advance()
			}
		default:
			return nil
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isIdentCont(r rune) bool { return isIdentStart(r) || isDigit(r) }

// scan produces the next token, handling whitespace/comment skipping,
// f-string mode, and the full operator decision tables from §4.1.
func (l *Lexer) scan() (Token, error) {
	if n := len(l.fstr); n > 0 && !l.fstr[n-1].inExpr {
		return l.scanFStringFragment()
	}

	if err := l.SkipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	start := l.location()
	if l.HasReachedEnd() {
		return Token{Kind: EOF, Span: NewSpan(start, start)}, nil
	}

	c := l.peekRune()

	switch {
	case isDigit(c), c == '.' && isDigit(l.peekAt(1)):
		return l.scanNumber(start)
	case c == 'f' && l.peekAt(1) == '"':
		return l.scanFStringStart(start)
	case isIdentStart(c):
		return l.scanIdentOrKeyword(start)
	case c == '"':
		return l.scanString(start)
	case c == '\'':
		return l.scanChar(start)
	}

	if n := len(l.fstr); n > 0 && l.fstr[n-1].inExpr {
		switch c {
		case '{':
			l.advance()
			l.fstr[n-1].depth++
			return Token{Kind: LBrace, Lexeme: "{", Span: NewSpan(start, l.location())}, nil
		case '}':
			l.advance()
			l.fstr[n-1].depth--
			if l.fstr[n-1].depth == 0 {
				l.fstr[n-1].inExpr = false
				return Token{Kind: FStringExprEnd, Lexeme: "}", Span: NewSpan(start, l.location())}, nil
			}
			return Token{Kind: RBrace, Lexeme: "}", Span: NewSpan(start, l.location())}, nil
		}
	}

	return l.scanOperator(start)
}

func (l *Lexer) scanIdentOrKeyword(start Location) (Token, error) {
	var sb strings.Builder
	for isIdentCont(l.peekRune()) {
		sb.WriteRune(l.advance())
	}
	word := sb.String()
	end := l.location()
	sp := NewSpan(start, end)
	if kw, ok := keywords[word]; ok {
		switch kw {
		case KwTrue:
			return Token{Kind: BoolLit, Lexeme: word, IntVal: 1, Span: sp}, nil
		case KwFalse:
			return Token{Kind: BoolLit, Lexeme: word, IntVal: 0, Span: sp}, nil
		case KwNil:
			return Token{Kind: NilLit, Lexeme: word, Span: sp}, nil
		default:
			return Token{Kind: kw, Lexeme: word, Span: sp}, nil
		}
	}
	return Token{Kind: Ident, Lexeme: word, Span: sp}, nil
}

// scanNumber implements §4.1's numeric type ladder: underscore digit
// separators are cosmetic, scientific notation and a leading dot are
// both accepted, and a trailing `f` forces single precision.
func (l *Lexer) scanNumber(start Location) (Token, error) {
	var sb strings.Builder
	isFloat := false

	readDigits := func() {
		for isDigit(l.peekRune()) || l.peekRune() == '_' {
			if l.peekRune() == '_' {
				l.advance()
				continue
			}
			sb.WriteRune(l.advance())
		}
	}

	readDigits()
	if l.peekRune() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		sb.WriteRune(l.advance())
		readDigits()
	} else if l.peekRune() == '.' && sb.Len() == 0 {
		// leading-dot form: `.5`
		isFloat = true
		sb.WriteRune(l.advance())
		readDigits()
	}
	if c := l.peekRune(); c == 'e' || c == 'E' {
		isFloat = true
		sb.WriteRune(l.advance())
		if c := l.peekRune(); c == '+' || c == '-' {
			sb.WriteRune(l.advance())
		}
		readDigits()
	}

	singlePrecision := false
	if l.peekRune() == 'f' && !isIdentCont(l.peekAt(1)) {
		singlePrecision = true
		l.advance()
	}

	text := sb.String()
	end := l.location()
	sp := NewSpan(start, end)

	if singlePrecision {
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Token{}, lexErr("BadNumericLiteral", err.Error(), sp)
		}
		return Token{Kind: FloatLit, Lexeme: text + "f", FltVal: v, IsFloat: true, Span: sp}, nil
	}
	if isFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, lexErr("BadNumericLiteral", err.Error(), sp)
		}
		return Token{Kind: DoubleLit, Lexeme: text, FltVal: v, Span: sp}, nil
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, lexErr("BadNumericLiteral", err.Error(), sp)
	}
	kind := LongLit
	if v >= -(1<<31) && v <= (1<<31)-1 {
		kind = IntLit
	}
	return Token{Kind: kind, Lexeme: text, IntVal: v, Span: sp}, nil
}

func (l *Lexer) readEscape(quote rune) (rune, error) {
	start := l.location()
	l.advance() // consume backslash
	c := l.advance()
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\':
		return '\\', nil
	case '\'':
		return '\'', nil
	case '"':
		return '"', nil
	case '{':
		return '{', nil
	case '}':
		return '}', nil
	default:
		if c == quote {
			return quote, nil
		}
		return 0, lexErr("BadNumericLiteral", fmt.Sprintf("unknown escape `\\%c`", c), NewSpan(start, l.location()))
	}
}

func (l *Lexer) scanString(start Location) (Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.HasReachedEnd() {
			return Token{}, lexErr("UnterminatedString", "missing closing `\"`", NewSpan(start, l.location()))
		}
		c := l.peekRune()
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' {
			r, err := l.readEscape('"')
			if err != nil {
				return Token{}, err
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(l.advance())
	}
	sp := NewSpan(start, l.location())
	return Token{Kind: StringLit, Lexeme: sb.String(), Span: sp}, nil
}

func (l *Lexer) scanChar(start Location) (Token, error) {
	l.advance() // opening quote
	if l.HasReachedEnd() {
		return Token{}, lexErr("UnterminatedString", "missing closing `'`", NewSpan(start, l.location()))
	}
	var r rune
	var err error
	if l.peekRune() == '\\' {
		r, err = l.readEscape('\'')
		if err != nil {
			return Token{}, err
		}
	} else {
		r = l.advance()
	}
	if l.peekRune() != '\'' {
		return Token{}, lexErr("UnterminatedString", "missing closing `'`", NewSpan(start, l.location()))
	}
	l.advance()
	sp := NewSpan(start, l.location())
	return Token{Kind: CharLit, Lexeme: string(r), IntVal: int64(r), Span: sp}, nil
}

// scanFStringStart consumes the leading `f"` and begins fragment mode.
func (l *Lexer) scanFStringStart(start Location) (Token, error) {
	l.advance() // 'f'
	l.advance() // '"'
	l.fstr = append(l.fstr, &fstrFrame{})
	return l.scanFStringFragment()
}

// scanFStringFragment reads literal text up to the next unescaped `{`
// (emitting the fragment so far and switching to expr mode) or the closing
// `"` (emitting the final fragment and popping the f-string frame).
// `{{`/`}}` are escaped braces.
func (l *Lexer) scanFStringFragment() (Token, error) {
	start := l.location()
	var sb strings.Builder
	for {
		if l.HasReachedEnd() {
			return Token{}, lexErr("UnterminatedString", "missing closing `\"` in f-string", NewSpan(start, l.location()))
		}
		c := l.peekRune()
		switch {
		case c == '"':
			l.advance()
			l.fstr = l.fstr[:len(l.fstr)-1]
			return Token{Kind: FStringFragment, Lexeme: sb.String(), Span: NewSpan(start, l.location())}, nil
		case c == '{' && l.peekAt(1) == '{':
			l.advance()
			l.advance()
			sb.WriteRune('{')
		case c == '}' && l.peekAt(1) == '}':
			l.advance()
			l.advance()
			sb.WriteRune('}')
		case c == '{':
			l.advance()
			l.fstr[len(l.fstr)-1].inExpr = true
			l.fstr[len(l.fstr)-1].depth = 1
			return Token{Kind: FStringFragment, Lexeme: sb.String(), Span: NewSpan(start, l.location())}, nil
		case c == '\\':
			r, err := l.readEscape('"')
			if err != nil {
				return Token{}, err
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(l.advance())
		}
	}
}

// literalAt reports whether `s` matches the source text starting at the
// current cursor.
func (l *Lexer) literalAt(s string) bool { return l.peekString(len(s)) == s }

// ltFamily holds the longest-match decision table for tokens beginning
// with `<`, tried strictly in length-descending order (§4.1).
var ltFamily = []struct {
	lit  string
	kind Kind
}{
	{"<||==|", CollectiveOrEqual},
	{"<||!=|", CollectiveOrNotEqual},
	{"<||??|", OrGuardChain},
	{"<||<=|", CollectiveOrLe},
	{"<||>=|", CollectiveOrGe},
	{"<||<|", CollectiveOrLt},
	{"<||>|", CollectiveOrGt},
	{"<==|", CollectiveEqual},
	{"<!=|", CollectiveNotEqual},
	{"<<=|", CollectiveLe},
	{"<>=|", CollectiveGe},
	{"<??|", GuardChain},
	{"<~?|", OptionalSequentialRest},
	{"<<|", CollectiveLt},
	{"<>|", CollectiveGt},
	{"<~|", SequentialRest},
	{"<=", LessEqual},
	{"<|", RestAssign},
}

// pipeFamily holds the longest-match decision table for tokens
// beginning with `|` (§4.1).
var pipeFamily = []struct {
	lit  string
	kind Kind
}{
	{"|>>=", ReducerPipe},
	{"|>>", MapPipe},
	{"|??", GuardPipe},
	{"|~>", ScanPipe},
	{"||", PipePipe},
	{"|>", Pipe},
	{"|?", OptionalPipe},
}

// scanChainAssignN tries the `<N|`, `<N?|`, `<N!|`, `<N!?|` forms, which
// need a numeric payload between the leading `<` and the closing
// punctuation. Returns ok=false (with position unchanged) if the digits
// aren't followed by a valid suffix, so the caller can fall back to the
// plain `<` / `<=` table.
func (l *Lexer) scanChainAssignN(start Location) (Token, bool) {
	savedPos, savedLine, savedCol := l.pos, l.line, l.col
	l.advance() // '<'
	if !isDigit(l.peekRune()) {
		l.pos, l.line, l.col = savedPos, savedLine, savedCol
		return Token{}, false
	}
	var digits strings.Builder
	for isDigit(l.peekRune()) {
		digits.WriteRune(l.advance())
	}
	var kind Kind
	switch {
	case l.literalAt("!?|"):
		kind = OptionalUniqueChainAssignN
		l.consumeLiteral("!?|")
	case l.literalAt("!|"):
		kind = UniqueChainAssignN
		l.consumeLiteral("!|")
	case l.literalAt("?|"):
		kind = OptionalChainAssignN
		l.consumeLiteral("?|")
	case l.literalAt("|"):
		kind = ChainAssignN
		l.consumeLiteral("|")
	default:
		l.pos, l.line, l.col = savedPos, savedLine, savedCol
		return Token{}, false
	}
	n, _ := strconv.Atoi(digits.String())
	sp := NewSpan(start, l.location())
	return Token{Kind: kind, Lexeme: "<" + digits.String() + "|", N: n, Span: sp}, true
}

func (l *Lexer) scanOperator(start Location) (Token, error) {
	c := l.peekRune()

	if c == '<' {
		if tok, ok := l.scanChainAssignN(start); ok {
			return tok, nil
		}
		for _, cand := range ltFamily {
			if l.literalAt(cand.lit) {
				l.consumeLiteral(cand.lit)
				return Token{Kind: cand.kind, Lexeme: cand.lit, Span: NewSpan(start, l.location())}, nil
			}
		}
		if l.literalAt("<<") {
			l.consumeLiteral("<<")
			return Token{Kind: Shl, Lexeme: "<<", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Less, Lexeme: "<", Span: NewSpan(start, l.location())}, nil
	}

	if c == '|' {
		for _, cand := range pipeFamily {
			if l.literalAt(cand.lit) {
				l.consumeLiteral(cand.lit)
				return Token{Kind: cand.kind, Lexeme: cand.lit, Span: NewSpan(start, l.location())}, nil
			}
		}
		l.advance()
		return Token{Kind: PipeChar, Lexeme: "|", Span: NewSpan(start, l.location())}, nil
	}

	if c == '.' {
		if l.literalAt("..") {
			l.consumeLiteral("..")
			return Token{Kind: RangeOp, Lexeme: "..", Span: NewSpan(start, l.location())}, nil
		}
		for _, lit := range []string{".and(", ".or(", ".++(", ".--(", ".+=", ".-=", ".*=", "./="} {
			if l.literalAt(lit) {
				l.consumeLiteral(lit)
				return Token{Kind: DotOp, Lexeme: lit, Span: NewSpan(start, l.location())}, nil
			}
		}
		l.advance()
		return Token{Kind: Dot, Lexeme: ".", Span: NewSpan(start, l.location())}, nil
	}

	switch c {
	case '-':
		switch {
		case l.literalAt("->>"):
			l.consumeLiteral("->>")
			return Token{Kind: TrainStart, Lexeme: "->>", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("--"):
			l.consumeLiteral("--")
			return Token{Kind: MinusMinus, Lexeme: "--", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("-="):
			l.consumeLiteral("-=")
			return Token{Kind: MinusAssign, Lexeme: "-=", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("->"):
			l.consumeLiteral("->")
			return Token{Kind: Arrow, Lexeme: "->", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Minus, Lexeme: "-", Span: NewSpan(start, l.location())}, nil
	case '+':
		switch {
		case l.literalAt("++"):
			l.consumeLiteral("++")
			return Token{Kind: PlusPlus, Lexeme: "++", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("+="):
			l.consumeLiteral("+=")
			return Token{Kind: PlusAssign, Lexeme: "+=", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Plus, Lexeme: "+", Span: NewSpan(start, l.location())}, nil
	case '*':
		switch {
		case l.literalAt("**"):
			l.consumeLiteral("**")
			return Token{Kind: Power, Lexeme: "**", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("*="):
			l.consumeLiteral("*=")
			return Token{Kind: StarAssign, Lexeme: "*=", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Star, Lexeme: "*", Span: NewSpan(start, l.location())}, nil
	case '/':
		if l.literalAt("/=") {
			l.consumeLiteral("/=")
			return Token{Kind: SlashAssign, Lexeme: "/=", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Slash, Lexeme: "/", Span: NewSpan(start, l.location())}, nil
	case '%':
		if l.literalAt("%=") {
			l.consumeLiteral("%=")
			return Token{Kind: ModAssign, Lexeme: "%=", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Percent, Lexeme: "%", Span: NewSpan(start, l.location())}, nil
	case '!':
		switch {
		case l.literalAt("!!"):
			l.consumeLiteral("!!")
			return Token{Kind: BoolFlip, Lexeme: "!!", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("!="):
			l.consumeLiteral("!=")
			return Token{Kind: NotEq, Lexeme: "!=", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Bang, Lexeme: "!", Span: NewSpan(start, l.location())}, nil
	case '~':
		l.advance()
		return Token{Kind: Tilde, Lexeme: "~", Span: NewSpan(start, l.location())}, nil
	case '&':
		if l.literalAt("&&") {
			l.consumeLiteral("&&")
			return Token{Kind: AmpAmp, Lexeme: "&&", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Amp, Lexeme: "&", Span: NewSpan(start, l.location())}, nil
	case '^':
		l.advance()
		return Token{Kind: Caret, Lexeme: "^", Span: NewSpan(start, l.location())}, nil
	case '=':
		switch {
		case l.literalAt("=>"):
			l.consumeLiteral("=>")
			return Token{Kind: FatArrow, Lexeme: "=>", Span: NewSpan(start, l.location())}, nil
		case l.literalAt("=="):
			l.consumeLiteral("==")
			return Token{Kind: EqEq, Lexeme: "==", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Assign, Lexeme: "=", Span: NewSpan(start, l.location())}, nil
	case '>':
		switch {
		case l.literalAt("><"):
			l.consumeLiteral("><")
			return Token{Kind: Swap, Lexeme: "><", Span: NewSpan(start, l.location())}, nil
		case l.literalAt(">="):
			l.consumeLiteral(">=")
			return Token{Kind: GreaterEqual, Lexeme: ">=", Span: NewSpan(start, l.location())}, nil
		case l.literalAt(">>"):
			l.consumeLiteral(">>")
			return Token{Kind: Shr, Lexeme: ">>", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Greater, Lexeme: ">", Span: NewSpan(start, l.location())}, nil
	case '?':
		if l.literalAt("?:") {
			l.consumeLiteral("?:")
			return Token{Kind: TernaryAlt, Lexeme: "?:", Span: NewSpan(start, l.location())}, nil
		}
		l.advance()
		return Token{Kind: Question, Lexeme: "?", Span: NewSpan(start, l.location())}, nil
	case ':':
		l.advance()
		return Token{Kind: Colon, Lexeme: ":", Span: NewSpan(start, l.location())}, nil
	case ';':
		l.advance()
		return Token{Kind: Semicolon, Lexeme: ";", Span: NewSpan(start, l.location())}, nil
	case ',':
		l.advance()
		return Token{Kind: Comma, Lexeme: ",", Span: NewSpan(start, l.location())}, nil
	case '(':
		l.advance()
		return Token{Kind: LParen, Lexeme: "(", Span: NewSpan(start, l.location())}, nil
	case ')':
		l.advance()
		return Token{Kind: RParen, Lexeme: ")", Span: NewSpan(start, l.location())}, nil
	case '{':
		l.advance()
		return Token{Kind: LBrace, Lexeme: "{", Span: NewSpan(start, l.location())}, nil
	case '}':
		l.advance()
		return Token{Kind: RBrace, Lexeme: "}", Span: NewSpan(start, l.location())}, nil
	case '[':
		l.advance()
		return Token{Kind: LBracket, Lexeme: "[", Span: NewSpan(start, l.location())}, nil
	case ']':
		l.advance()
		return Token{Kind: RBracket, Lexeme: "]", Span: NewSpan(start, l.location())}, nil
	}

	l.advance()
	return Token{}, lexErr("UnknownCharacter", fmt.Sprintf("unexpected character `%c`", c), NewSpan(start, l.location()))
}
