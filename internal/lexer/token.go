package lexer

import "fmt"

// TokenType represents the kind of a lexical token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT
	NEWLINE // significant: terminates an item

	// Literals
	IDENT
	INT
	FLOAT
	STRING       // plain or first/only fragment of an interpolated string
	STRING_PART  // middle text fragment of an interpolated string: "...{
	STRING_END   // final text fragment: }..."
	CHAR
	SUFFIX // identifier immediately glued to a preceding number literal: 12px -> INT(12) SUFFIX(px)
	DATETIME

	// Sigil framing. The lexer only identifies tag/open/close; the body
	// is captured verbatim (honoring nested braces) and handed to the
	// parser, which is what interprets tag-specific semantics.
	SIGIL_TAG   // the `tag` part of ~tag{...} or ~tag"..."flags
	SIGIL_BODY  // verbatim captured body
	SIGIL_FLAGS // trailing flag letters after a ~tag"..."flags form
	HTML_OPEN   // ~<html>
	HTML_CLOSE  // </html>

	// Keywords
	FUNC
	PURE
	LET
	IN
	IF
	THEN
	ELSE
	MATCH
	WITH
	TYPE
	CLASS
	INSTANCE
	GIVEN
	MODULE
	USE
	EXPORT
	DOMAIN
	MACHINE
	FORALL
	EXISTS
	DO
	GENERATE
	RESOURCE
	YIELD
	RECURSE
	WHEN
	UNLESS
	ON
	NOT

	// Operators
	PLUS
	MINUS
	STAR
	CROSS // × — cross product, same precedence as STAR (open question #1 in spec)
	SLASH
	PERCENT
	EQ
	NEQ
	LT
	GT
	LTE
	GTE
	AND
	OR
	ARROW   // ->
	FARROW  // =>
	LARROW  // <-
	PIPEOP  // |>
	PIPE    // |
	APPEND  // ++ (infix append operator)
	CONS    // ::
	BANG    // !
	QUESTION
	AT // @ decorator sigil
	DOLLAR
	HASH
	ASSIGN
	COLON

	// Delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	DOT
	ELLIPSIS
	SEMICOLON
	TILDE // ~ opens a sigil

	TRUE
	FALSE
	UNIT
)

var names = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", COMMENT: "COMMENT", NEWLINE: "NEWLINE",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	STRING_PART: "STRING_PART", STRING_END: "STRING_END", CHAR: "CHAR",
	SUFFIX: "SUFFIX", DATETIME: "DATETIME",
	SIGIL_TAG: "SIGIL_TAG", SIGIL_BODY: "SIGIL_BODY", SIGIL_FLAGS: "SIGIL_FLAGS",
	HTML_OPEN: "HTML_OPEN", HTML_CLOSE: "HTML_CLOSE",

	FUNC: "func", PURE: "pure", LET: "let", IN: "in", IF: "if", THEN: "then",
	ELSE: "else", MATCH: "match", WITH: "with", TYPE: "type", CLASS: "class",
	INSTANCE: "instance", GIVEN: "given", MODULE: "module", USE: "use",
	EXPORT: "export", DOMAIN: "domain", MACHINE: "machine", FORALL: "forall",
	EXISTS: "exists", DO: "do", GENERATE: "generate", RESOURCE: "resource",
	YIELD: "yield", RECURSE: "recurse", WHEN: "when", UNLESS: "unless",
	ON: "on", NOT: "not",

	PLUS: "+", MINUS: "-", STAR: "*", CROSS: "×", SLASH: "/", PERCENT: "%",
	EQ: "==", NEQ: "!=", LT: "<", GT: ">", LTE: "<=", GTE: ">=",
	AND: "&&", OR: "||", ARROW: "->", FARROW: "=>", LARROW: "<-",
	PIPEOP: "|>", PIPE: "|", APPEND: "++", CONS: "::", BANG: "!",
	QUESTION: "?", AT: "@", DOLLAR: "$", HASH: "#", ASSIGN: "=", COLON: ":",

	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", DOT: ".",
	ELLIPSIS: "...", SEMICOLON: ";", TILDE: "~",

	TRUE: "true", FALSE: "false", UNIT: "()",
}

func (t TokenType) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

var keywords = map[string]TokenType{
	"func": FUNC, "pure": PURE, "let": LET, "in": IN, "if": IF, "then": THEN,
	"else": ELSE, "match": MATCH, "with": WITH, "type": TYPE, "class": CLASS,
	"instance": INSTANCE, "given": GIVEN, "module": MODULE, "use": USE,
	"export": EXPORT, "domain": DOMAIN, "machine": MACHINE, "forall": FORALL,
	"exists": EXISTS, "do": DO, "generate": GENERATE, "resource": RESOURCE,
	"yield": YIELD, "recurse": RECURSE, "when": WHEN, "unless": UNLESS,
	"on": ON, "not": NOT, "true": TRUE, "false": FALSE,
}

// LookupIdent maps a raw identifier to its keyword token, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// KnownSigilTags enumerates the recognized sigil tags from §4.1. An
// unrecognized tag is still lexed (the lexer only frames the literal);
// the parser/elaborator decides whether it is valid.
var KnownSigilTags = map[string]bool{
	"r": true, "u": true, "url": true, "p": true, "path": true,
	"d": true, "t": true, "dt": true, "tz": true, "zdt": true,
	"k": true, "m": true,
}

// Token is a single lexical unit with source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Offset  int
	File    string
}

func NewToken(tokenType TokenType, literal string, line, column, offset int, file string) Token {
	return Token{Type: tokenType, Literal: literal, Line: line, Column: column, Offset: offset, File: file}
}

func (t Token) Position() string {
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %s}", t.Type, t.Literal, t.Position())
}

func (t Token) IsOperator() bool {
	switch t.Type {
	case PLUS, MINUS, STAR, CROSS, SLASH, PERCENT, EQ, NEQ, LT, GT, LTE, GTE,
		AND, OR, APPEND, CONS, PIPEOP:
		return true
	}
	return false
}

// Precedence gives the binding power of a binary operator; higher
// binds tighter. Pipeline `|>` sits below everything else (§4.2).
func (t Token) Precedence() int {
	switch t.Type {
	case PIPEOP:
		return 1
	case OR:
		return 2
	case AND:
		return 3
	case EQ, NEQ:
		return 4
	case LT, GT, LTE, GTE:
		return 5
	case CONS, APPEND:
		return 6
	case PLUS, MINUS:
		return 7
	case STAR, SLASH, CROSS, PERCENT:
		return 8
	default:
		return 0
	}
}
