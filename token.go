package fluence

import "fmt"

// Kind enumerates every distinct token a Fluence lexer can produce: the
// literal forms, identifiers and reserved words, punctuation, and the
// full operator set (§4.1, §6). Grounded on the token-kind-table shape of
// other_examples' CWBudde-go-dws token.go (a `Kind` enum plus a
// name-lookup table) rather than the teacher, which never externalizes a
// Token type because its own grammar parser scans straight off runes.
type Kind int

const (
	EOF Kind = iota
	ERROR

	// literals
	IntLit
	LongLit
	FloatLit
	DoubleLit
	CharLit
	StringLit
	FStringFragment
	FStringExprStart
	FStringExprEnd
	BoolLit
	NilLit
	Ident

	// reserved words
	KwFunc
	KwStruct
	KwEnum
	KwTrait
	KwImpl
	KwSpace
	KwUse
	KwSolid
	KwIf
	KwElse
	KwUnless
	KwWhile
	KwUntil
	KwFor
	KwIn
	KwLoop
	KwTimes
	KwAs
	KwMatch
	KwRest
	KwReturn
	KwBreak
	KwContinue
	KwTry
	KwCatch
	KwThrow
	KwRef
	KwSelf
	KwTrue
	KwFalse
	KwNil
	KwIs
	KwAnd
	KwOr

	// punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Dot
	Arrow      // ->
	FatArrow   // =>
	Question   // ?
	TernaryAlt // ?:

	// arithmetic / unary
	Plus
	Minus
	Star
	Slash
	Percent
	Power // **
	PlusPlus
	MinusMinus
	Bang     // !
	BoolFlip // !!
	Tilde    // ~

	// bitwise
	Amp      // &
	PipeChar // |
	Caret    // ^
	Shl      // <<  (only reached when the `<<` 4-char collective table misses)
	Shr      // >>

	// comparison
	EqEq
	NotEq
	Less
	LessEqual
	Greater
	GreaterEqual

	// assignment
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	ModAssign

	// logic
	AmpAmp
	PipePipe

	// range & swap
	RangeOp // ..
	Swap    // ><

	// train
	TrainStart // ->>
	TrainEnd   // <<-

	// pipes
	Pipe         // |>
	OptionalPipe // |?
	GuardPipe    // |??
	ScanPipe     // |~>
	MapPipe      // |>>
	ReducerPipe  // |>>=

	// collective comparisons (OR family, 6-char)
	CollectiveOrEqual
	CollectiveOrNotEqual
	OrGuardChain
	CollectiveOrLt
	CollectiveOrLe
	CollectiveOrGt
	CollectiveOrGe

	// collective comparisons (AND family, 4-char)
	CollectiveEqual
	CollectiveNotEqual
	CollectiveLt
	CollectiveLe
	CollectiveGt
	CollectiveGe
	GuardChain
	SequentialRest
	OptionalSequentialRest

	// chained assignment pipeline separators, payload N in Token.N
	ChainAssignN
	OptionalChainAssignN
	UniqueChainAssignN
	OptionalUniqueChainAssignN
	RestAssign // <|

	// dot-prefixed operator family: .and( .or( .++( .--( .+= .-= .*= ./=
	DotOp
)

var kindNames = map[Kind]string{
	EOF: "EOF", ERROR: "ERROR",
	IntLit: "Int", LongLit: "Long", FloatLit: "Float", DoubleLit: "Double",
	CharLit: "Char", StringLit: "String", FStringFragment: "FStringFragment",
	FStringExprStart: "FStringExprStart", FStringExprEnd: "FStringExprEnd",
	BoolLit: "Bool", NilLit: "Nil", Ident: "Identifier",
	KwFunc: "func", KwStruct: "struct", KwEnum: "enum", KwTrait: "trait",
	KwImpl: "impl", KwSpace: "space", KwUse: "use", KwSolid: "solid",
	KwIf: "if", KwElse: "else", KwUnless: "unless", KwWhile: "while",
	KwUntil: "until", KwFor: "for", KwIn: "in", KwLoop: "loop",
	KwTimes: "times", KwAs: "as", KwMatch: "match", KwRest: "rest",
	KwReturn: "return", KwBreak: "break", KwContinue: "continue",
	KwTry: "try", KwCatch: "catch", KwThrow: "throw", KwRef: "ref",
	KwSelf: "self", KwTrue: "true", KwFalse: "false", KwNil: "nil",
	KwIs: "is", KwAnd: "and", KwOr: "or",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Comma: ",", Semicolon: ";", Colon: ":",
	Dot: ".", Arrow: "->", FatArrow: "=>", Question: "?", TernaryAlt: "?:",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Power: "**",
	PlusPlus: "++", MinusMinus: "--", Bang: "!", BoolFlip: "!!", Tilde: "~",
	Amp: "&", PipeChar: "|", Caret: "^", Shl: "<<", Shr: ">>",
	EqEq: "==", NotEq: "!=", Less: "<", LessEqual: "<=", Greater: ">", GreaterEqual: ">=",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	SlashAssign: "/=", ModAssign: "%=",
	AmpAmp: "&&", PipePipe: "||",
	RangeOp: "..", Swap: "><",
	TrainStart: "->>", TrainEnd: "<<-",
	Pipe: "|>", OptionalPipe: "|?", GuardPipe: "|??", ScanPipe: "|~>",
	MapPipe: "|>>", ReducerPipe: "|>>=",
	CollectiveOrEqual: "<||==|", CollectiveOrNotEqual: "<||!=|", OrGuardChain: "<||??|",
	CollectiveOrLt: "<||<|", CollectiveOrLe: "<||<=|", CollectiveOrGt: "<||>|", CollectiveOrGe: "<||>=|",
	CollectiveEqual: "<==|", CollectiveNotEqual: "<!=|",
	CollectiveLt: "<<|", CollectiveLe: "<<=|", CollectiveGt: "<>|", CollectiveGe: "<>=|",
	GuardChain: "<??|", SequentialRest: "<~|", OptionalSequentialRest: "<~?|",
	ChainAssignN: "<N|", OptionalChainAssignN: "<N?|",
	UniqueChainAssignN: "<N!|", OptionalUniqueChainAssignN: "<N!?|",
	RestAssign: "<|",
	DotOp:      "DotOp",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"func": KwFunc, "struct": KwStruct, "enum": KwEnum, "trait": KwTrait,
	"impl": KwImpl, "space": KwSpace, "use": KwUse, "solid": KwSolid,
	"if": KwIf, "else": KwElse, "unless": KwUnless, "while": KwWhile,
	"until": KwUntil, "for": KwFor, "in": KwIn, "loop": KwLoop,
	"times": KwTimes, "as": KwAs, "match": KwMatch, "rest": KwRest,
	"return": KwReturn, "break": KwBreak, "continue": KwContinue,
	"try": KwTry, "catch": KwCatch, "throw": KwThrow, "ref": KwRef,
	"self": KwSelf, "true": KwTrue, "false": KwFalse, "nil": KwNil,
	"is": KwIs, "and": KwAnd, "or": KwOr,
}

// Token is an immutable lexical unit: its kind, its lexeme (the source
// text, except that string/char literals carry their decoded contents
// and the `<N|` family carries `<N|`), an optional numeric payload (for literals and for the
// `N` in the `<N|` chained-assignment family), and its source span.
type Token struct {
	Kind    Kind
	Lexeme  string
	IntVal  int64
	FltVal  float64
	N       int // payload for CHAIN_ASSIGN_N and friends
	IsFloat bool
	Span    Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Lexeme, t.Span)
}
