// Package token defines the tagged token records produced by the lexer.
package token

// Type identifies a token's lexical category.
type Type int

const (
	EOF Type = iota
	UNKNOWN
	IDENT
	NUMBER

	// Reserved words, in the order the grounding source declares them.
	KW_PROGRAM
	KW_CONST
	KW_VAR
	KW_PROCEDURE
	KW_BEGIN
	KW_END
	KW_IF
	KW_THEN
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_TO
	KW_DOWNTO
	KW_CALL
	KW_READ
	KW_WRITE
	KW_ODD
	KW_MOD
	KW_NEW
	KW_DELETE

	// Operators.
	OP_PLUS
	OP_MINUS
	OP_MUL
	OP_DIV
	OP_EQ
	OP_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE
	OP_ASSIGN
	OP_ADDR

	// Delimiters.
	DL_LPAREN
	DL_RPAREN
	DL_LBRACKET
	DL_RBRACKET
	DL_COMMA
	DL_SEMICOLON
	DL_PERIOD
	DL_COLON
)

// Keywords maps reserved-word spellings to their token type. Matching is
// case-sensitive; the lexer never case-folds.
var Keywords = map[string]Type{
	"program":   KW_PROGRAM,
	"const":     KW_CONST,
	"var":       KW_VAR,
	"procedure": KW_PROCEDURE,
	"begin":     KW_BEGIN,
	"end":       KW_END,
	"if":        KW_IF,
	"then":      KW_THEN,
	"else":      KW_ELSE,
	"while":     KW_WHILE,
	"do":        KW_DO,
	"for":       KW_FOR,
	"to":        KW_TO,
	"downto":    KW_DOWNTO,
	"call":      KW_CALL,
	"read":      KW_READ,
	"write":     KW_WRITE,
	"odd":       KW_ODD,
	"mod":       KW_MOD,
	"new":       KW_NEW,
	"delete":    KW_DELETE,
}

var typeNames = map[Type]string{
	EOF:          "EOF",
	UNKNOWN:      "UNKNOWN",
	IDENT:        "IDENT",
	NUMBER:       "NUMBER",
	KW_PROGRAM:   "program",
	KW_CONST:     "const",
	KW_VAR:       "var",
	KW_PROCEDURE: "procedure",
	KW_BEGIN:     "begin",
	KW_END:       "end",
	KW_IF:        "if",
	KW_THEN:      "then",
	KW_ELSE:      "else",
	KW_WHILE:     "while",
	KW_DO:        "do",
	KW_FOR:       "for",
	KW_TO:        "to",
	KW_DOWNTO:    "downto",
	KW_CALL:      "call",
	KW_READ:      "read",
	KW_WRITE:     "write",
	KW_ODD:       "odd",
	KW_MOD:       "mod",
	KW_NEW:       "new",
	KW_DELETE:    "delete",
	OP_PLUS:      "+",
	OP_MINUS:     "-",
	OP_MUL:       "*",
	OP_DIV:       "/",
	OP_EQ:        "=",
	OP_NE:        "<>",
	OP_LT:        "<",
	OP_LE:        "<=",
	OP_GT:        ">",
	OP_GE:        ">=",
	OP_ASSIGN:    ":=",
	OP_ADDR:      "&",
	DL_LPAREN:    "(",
	DL_RPAREN:    ")",
	DL_LBRACKET:  "[",
	DL_RBRACKET:  "]",
	DL_COMMA:     ",",
	DL_SEMICOLON: ";",
	DL_PERIOD:    ".",
	DL_COLON:     ":",
}

// String renders the token type the way diagnostics and the --tokens dump
// want to see it: the reserved word or punctuation spelling for keywords and
// operators, else the type's tag name.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "???"
}

// Token is one lexeme: its type, literal spelling, parsed numeric value (for
// NUMBER), and source position. Length is a character count, not a byte
// count, so caret rendering lines up under multi-byte UTF-8 lexemes.
type Token struct {
	Type    Type
	Literal string
	Value   int64
	Line    int
	Column  int
	Length  int
}

// IsStatementStart reports whether t is one of the nine statement-starting
// keywords or '*', the pointer dereference that can open an assignment.
func (t Token) IsStatementStart() bool {
	switch t.Type {
	case KW_IF, KW_WHILE, KW_FOR, KW_CALL, KW_READ, KW_WRITE,
		KW_NEW, KW_DELETE, KW_BEGIN, OP_MUL:
		return true
	default:
		return false
	}
}
