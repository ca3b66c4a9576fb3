package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src, "test.fl")
	var toks []Token
	for {
		tok, err := l.ConsumeToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func kinds(toks []Token) []Kind {
	ks := make([]Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexerBasicTokens(t *testing.T) {
	toks := lexAll(t, `x = 1 + 2;`)
	assert.Equal(t, []Kind{Ident, Assign, IntLit, Plus, IntLit, Semicolon, EOF}, kinds(toks))
}

func TestLexerIntVsLongBoundary(t *testing.T) {
	toks := lexAll(t, `2147483647 2147483648`)
	assert.Equal(t, IntLit, toks[0].Kind)
	assert.Equal(t, LongLit, toks[1].Kind)
}

func TestLexerFloatAndDoubleLiterals(t *testing.T) {
	toks := lexAll(t, `1.5 1.5f .5 1e10`)
	assert.Equal(t, DoubleLit, toks[0].Kind)
	assert.Equal(t, FloatLit, toks[1].Kind)
	assert.InDelta(t, 1.5, toks[1].FltVal, 1e-9)
	assert.Equal(t, DoubleLit, toks[2].Kind)
	assert.InDelta(t, 0.5, toks[2].FltVal, 1e-9)
	assert.Equal(t, DoubleLit, toks[3].Kind)
	assert.InDelta(t, 1e10, toks[3].FltVal, 1)
}

func TestLexerNumericSeparators(t *testing.T) {
	toks := lexAll(t, `1_000_000`)
	assert.Equal(t, IntLit, toks[0].Kind)
	assert.Equal(t, int64(1000000), toks[0].IntVal)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := lexAll(t, `"a\nb\t\"c\""`)
	require.Equal(t, StringLit, toks[0].Kind)
	assert.Equal(t, "a\nb\t\"c\"", toks[0].Lexeme)
}

func TestLexerUnterminatedStringIsAnError(t *testing.T) {
	l := NewLexer(`"abc`, "test.fl")
	_, err := l.ConsumeToken()
	require.Error(t, err)
	var le LexError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "UnterminatedString", le.Kind)
}

func TestLexerCharLiteral(t *testing.T) {
	toks := lexAll(t, `'a' '\n'`)
	require.Equal(t, CharLit, toks[0].Kind)
	assert.Equal(t, int64('a'), toks[0].IntVal)
	assert.Equal(t, int64('\n'), toks[1].IntVal)
}

func TestLexerKeywords(t *testing.T) {
	toks := lexAll(t, `true false nil`)
	assert.Equal(t, BoolLit, toks[0].Kind)
	assert.Equal(t, int64(1), toks[0].IntVal)
	assert.Equal(t, BoolLit, toks[1].Kind)
	assert.Equal(t, int64(0), toks[1].IntVal)
	assert.Equal(t, NilLit, toks[2].Kind)
}

func TestLexerComments(t *testing.T) {
	toks := lexAll(t, "x # trailing comment\n= 1")
	assert.Equal(t, []Kind{Ident, Assign, IntLit, EOF}, kinds(toks))

	toks = lexAll(t, "x #* block\ncomment *# = 1")
	assert.Equal(t, []Kind{Ident, Assign, IntLit, EOF}, kinds(toks))
}

func TestLexerUnterminatedBlockComment(t *testing.T) {
	l := NewLexer("x #* never closed", "test.fl")
	_, err := l.ConsumeToken() // Ident "x"
	require.NoError(t, err)
	_, err = l.ConsumeToken()
	require.Error(t, err)
}

func TestLexerRangeOperator(t *testing.T) {
	toks := lexAll(t, `1..3`)
	assert.Equal(t, []Kind{IntLit, RangeOp, IntLit, EOF}, kinds(toks))
}

func TestLexerLtFamilyLongestMatch(t *testing.T) {
	// Plain `<=` lexes as LessEqual...
	toks := lexAll(t, `a <= b`)
	assert.Equal(t, []Kind{Ident, LessEqual, Ident, EOF}, kinds(toks))

	// ...but the longer `<==|` collective-assign form must win over the
	// shorter `<=` prefix it shares.
	toks = lexAll(t, `a <==| b`)
	assert.Equal(t, []Kind{Ident, CollectiveEqual, Ident, EOF}, kinds(toks))
}

func TestLexerPipeFamily(t *testing.T) {
	toks := lexAll(t, `a |> b`)
	assert.Equal(t, []Kind{Ident, Pipe, Ident, EOF}, kinds(toks))
}

func TestLexerFString(t *testing.T) {
	toks := lexAll(t, `f"hi {name}!"`)
	// fragment "hi ", expr tokens for `name`, expr-end, fragment "!"
	assert.Equal(t, FStringFragment, toks[0].Kind)
	assert.Equal(t, "hi ", toks[0].Lexeme)
	assert.Equal(t, Ident, toks[1].Kind)
	assert.Equal(t, "name", toks[1].Lexeme)
	assert.Equal(t, FStringExprEnd, toks[2].Kind)
	assert.Equal(t, FStringFragment, toks[3].Kind)
	assert.Equal(t, "!", toks[3].Lexeme)
}

func TestLexerFStringEscapedBraces(t *testing.T) {
	toks := lexAll(t, `f"{{literal}}"`)
	assert.Equal(t, FStringFragment, toks[0].Kind)
	assert.Equal(t, "{literal}", toks[0].Lexeme)
}

func TestLexerUnknownCharacter(t *testing.T) {
	l := NewLexer("@", "test.fl")
	_, err := l.ConsumeToken()
	require.Error(t, err)
	var le LexError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "UnknownCharacter", le.Kind)
}

func TestLexerPeekTokenDoesNotConsume(t *testing.T) {
	l := NewLexer(`x y`, "test.fl")
	p1, err := l.PeekToken()
	require.NoError(t, err)
	p2, err := l.PeekToken()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	c, err := l.ConsumeToken()
	require.NoError(t, err)
	assert.Equal(t, p1, c)
}
