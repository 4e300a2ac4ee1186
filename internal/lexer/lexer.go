package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
)

// Lexer tokenizes AIVI source code into a Token stream. It never stops
// at the first problem: forbidden constructs (§4.1) are recorded in a
// Bag and an ILLEGAL token is emitted so the parser can recover.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
	file         string
	diags        *diagnostics.Bag
}

func New(input string, filename string) *Lexer {
	l := &Lexer{input: input, file: filename, line: 1, column: 0, diags: diagnostics.NewBag()}
	l.readChar()
	return l
}

func (l *Lexer) Diagnostics() *diagnostics.Bag { return l.diags }

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
	} else {
		var size int
		l.ch, size = utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.position = l.readPosition
		l.readPosition += size
		l.column++
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return ch
}

func (l *Lexer) peekAhead(n int) rune {
	pos := l.readPosition
	for i := 1; i < n; i++ {
		if pos >= len(l.input) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.input[pos:])
		pos += size
	}
	if pos >= len(l.input) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.input[pos:])
	return ch
}

// NextToken returns the next token, skipping non-newline whitespace
// and comments. Newlines are significant (they terminate items) and
// are returned as NEWLINE tokens; the parser collapses runs of them.
func (l *Lexer) NextToken() Token {
	l.skipInsignificant()

	line, column, offset := l.line, l.column, l.position

	switch l.ch {
	case '\n':
		l.readChar()
		return NewToken(NEWLINE, "\\n", line, column, offset, l.file)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(EQ, "==", line, column, offset)
		}
		if l.peekChar() == '>' {
			l.readChar()
			return l.emit(FARROW, "=>", line, column, offset)
		}
		return l.emit(ASSIGN, "=", line, column, offset)
	case '+':
		if l.peekChar() == '+' {
			l.readChar()
			return l.emit(APPEND, "++", line, column, offset)
		}
		return l.emit(PLUS, "+", line, column, offset)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			return l.emit(ARROW, "->", line, column, offset)
		}
		if l.peekChar() == '-' {
			l.skipLineComment()
			return l.NextToken()
		}
		return l.emit(MINUS, "-", line, column, offset)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(NEQ, "!=", line, column, offset)
		}
		return l.emit(BANG, "!", line, column, offset)
	case '*':
		return l.emit(STAR, "*", line, column, offset)
	case '×':
		return l.emit(CROSS, "×", line, column, offset)
	case '/':
		return l.emit(SLASH, "/", line, column, offset)
	case '%':
		return l.emit(PERCENT, "%", line, column, offset)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(LTE, "<=", line, column, offset)
		}
		if l.peekChar() == '-' {
			l.readChar()
			return l.emit(LARROW, "<-", line, column, offset)
		}
		if l.peekChar() == '/' {
			return l.readHTMLClose(line, column, offset)
		}
		return l.emit(LT, "<", line, column, offset)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(GTE, ">=", line, column, offset)
		}
		return l.emit(GT, ">", line, column, offset)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			return l.emit(AND, "&&", line, column, offset)
		}
		return l.illegal(line, column, offset)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return l.emit(OR, "||", line, column, offset)
		}
		if l.peekChar() == '>' {
			l.readChar()
			return l.emit(PIPEOP, "|>", line, column, offset)
		}
		return l.emit(PIPE, "|", line, column, offset)
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			return l.emit(CONS, "::", line, column, offset)
		}
		return l.emit(COLON, ":", line, column, offset)
	case '.':
		if l.peekChar() == '.' && l.peekAhead(2) == '.' {
			l.readChar()
			l.readChar()
			return l.emit(ELLIPSIS, "...", line, column, offset)
		}
		return l.emit(DOT, ".", line, column, offset)
	case ',':
		return l.emit(COMMA, ",", line, column, offset)
	case ';':
		return l.emit(SEMICOLON, ";", line, column, offset)
	case '(':
		if l.peekChar() == ')' {
			l.readChar()
			return l.emit(UNIT, "()", line, column, offset)
		}
		return l.emit(LPAREN, "(", line, column, offset)
	case ')':
		return l.emit(RPAREN, ")", line, column, offset)
	case '{':
		return l.emit(LBRACE, "{", line, column, offset)
	case '}':
		return l.emit(RBRACE, "}", line, column, offset)
	case '[':
		return l.emit(LBRACKET, "[", line, column, offset)
	case ']':
		return l.emit(RBRACKET, "]", line, column, offset)
	case '?':
		return l.emit(QUESTION, "?", line, column, offset)
	case '@':
		return l.emit(AT, "@", line, column, offset)
	case '$':
		return l.emit(DOLLAR, "$", line, column, offset)
	case '#':
		return l.emit(HASH, "#", line, column, offset)
	case '~':
		return l.readSigilOpen(line, column, offset)
	case '"':
		return l.readStringToken(line, column, offset)
	case '\'':
		return l.readCharLiteral(line, column, offset)
	case 0:
		return NewToken(EOF, "", line, column, offset, l.file)
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()
			return NewToken(LookupIdent(literal), literal, line, column, offset, l.file)
		}
		if isDigit(l.ch) {
			return l.readNumberToken(line, column, offset)
		}
		return l.illegal(line, column, offset)
	}
}

func (l *Lexer) emit(t TokenType, lit string, line, column, offset int) Token {
	tok := NewToken(t, lit, line, column, offset, l.file)
	l.readChar()
	return tok
}

func (l *Lexer) illegal(line, column, offset int) Token {
	tok := NewToken(ILLEGAL, string(l.ch), line, column, offset, l.file)
	l.readChar()
	return tok
}

func (l *Lexer) skipInsignificant() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '-' && l.peekChar() == '-' {
			l.skipLineComment()
			continue
		}
		break
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readStringToken reads a (possibly interpolated) string literal. At the
// first `{expr}` hole it returns a STRING_PART; the parser then reads the
// hole's tokens with NextToken and calls ContinueInterpolation, which
// yields further STRING_PART fragments and a final STRING_END.
func (l *Lexer) readStringToken(line, column, offset int) Token {
	var out strings.Builder
	l.readChar() // opening quote
	for l.ch != '"' && l.ch != '{' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			out.WriteRune(l.escapeRune())
		} else {
			out.WriteRune(l.ch)
			l.readChar()
		}
	}
	if l.ch == '{' {
		l.readChar()
		return NewToken(STRING_PART, out.String(), line, column, offset, l.file)
	}
	if l.ch == 0 {
		l.diags.Errorf(spanAt(l.file, line, column, offset), diagnostics.EUnclosedString, "unclosed string literal")
		return NewToken(STRING, out.String(), line, column, offset, l.file)
	}
	l.readChar() // closing quote
	return NewToken(STRING, out.String(), line, column, offset, l.file)
}

// ContinueInterpolation is called by the parser immediately after
// consuming the expression inside a `{...}` hole (once it sees the
// matching `}`) to resume scanning string text.
func (l *Lexer) ContinueInterpolation() Token {
	line, column, offset := l.line, l.column, l.position
	var out strings.Builder
	l.readChar() // skip the `}` that closed the hole
	for l.ch != '"' && l.ch != '{' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			out.WriteRune(l.escapeRune())
		} else {
			out.WriteRune(l.ch)
			l.readChar()
		}
	}
	if l.ch == '{' {
		l.readChar()
		return NewToken(STRING_PART, out.String(), line, column, offset, l.file)
	}
	l.readChar() // closing quote (or EOF, reported by caller)
	return NewToken(STRING_END, out.String(), line, column, offset, l.file)
}

func (l *Lexer) escapeRune() rune {
	defer l.readChar()
	switch l.ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '{':
		return '{'
	default:
		return l.ch
	}
}

func (l *Lexer) readCharLiteral(line, column, offset int) Token {
	var out strings.Builder
	l.readChar()
	if l.ch == '\\' {
		l.readChar()
		out.WriteRune(l.escapeRune())
	} else {
		out.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '\'' {
		l.readChar()
	}
	return NewToken(CHAR, out.String(), line, column, offset, l.file)
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '\'' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumberToken reads an INT or FLOAT literal (§4.4 numeric literal
// suffixes). Only the number is returned here; an identifier glued to it
// is left in the input for the parser to read as a SUFFIX token through
// PendingSuffix.
func (l *Lexer) readNumberToken(line, column, offset int) Token {
	position := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lit := l.input[position:l.position]
	if isFloat {
		return NewToken(FLOAT, lit, line, column, offset, l.file)
	}
	return NewToken(INT, lit, line, column, offset, l.file)
}

// PendingSuffix returns a SUFFIX token if the lexer is sitting
// directly on an identifier with no intervening whitespace — called by
// the parser right after consuming an INT/FLOAT token.
func (l *Lexer) PendingSuffix() (Token, bool) {
	if !isLetter(l.ch) {
		return Token{}, false
	}
	line, column, offset := l.line, l.column, l.position
	lit := l.readIdentifier()
	return NewToken(SUFFIX, lit, line, column, offset, l.file), true
}

// readSigilOpen lexes `~tag{body}` or `~tag"body"flags`, honoring
// nested braces in the brace form, and the special `~<html>…</html>`
// structured form whose close is matched by the parser via HTML_CLOSE.
func (l *Lexer) readSigilOpen(line, column, offset int) Token {
	l.readChar() // consume '~'
	if l.ch == '<' {
		return l.readHTMLOpen(line, column, offset)
	}
	tagStart := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	tag := l.input[tagStart:l.position]
	return NewToken(SIGIL_TAG, tag, line, column, offset, l.file)
}

// ReadSigilBody is invoked by the parser right after a SIGIL_TAG to
// capture the body verbatim, honoring nested `{`/`}` in the brace form.
func (l *Lexer) ReadSigilBody() (body Token, flags Token, hasFlags bool) {
	line, column, offset := l.line, l.column, l.position
	if l.ch == '{' {
		depth := 0
		var out strings.Builder
		for {
			if l.ch == 0 {
				l.diags.Errorf(spanAt(l.file, line, column, offset), diagnostics.EUnclosedBracket, "unclosed sigil body: expected '}'")
				break
			}
			if l.ch == '{' {
				depth++
				if depth > 1 {
					out.WriteRune(l.ch)
				}
				l.readChar()
				continue
			}
			if l.ch == '}' {
				depth--
				if depth == 0 {
					l.readChar()
					break
				}
				out.WriteRune(l.ch)
				l.readChar()
				continue
			}
			out.WriteRune(l.ch)
			l.readChar()
		}
		return NewToken(SIGIL_BODY, out.String(), line, column, offset, l.file), Token{}, false
	}
	if l.ch == '"' {
		l.readChar()
		var out strings.Builder
		for l.ch != '"' && l.ch != 0 {
			if l.ch == '\\' {
				l.readChar()
				out.WriteRune(l.escapeRune())
				continue
			}
			out.WriteRune(l.ch)
			l.readChar()
		}
		if l.ch == 0 {
			l.diags.Errorf(spanAt(l.file, line, column, offset), diagnostics.EUnclosedString, "unclosed sigil body")
		} else {
			l.readChar()
		}
		fline, fcol, foff := l.line, l.column, l.position
		flagStart := l.position
		for isLetter(l.ch) {
			l.readChar()
		}
		flagLit := l.input[flagStart:l.position]
		return NewToken(SIGIL_BODY, out.String(), line, column, offset, l.file),
			NewToken(SIGIL_FLAGS, flagLit, fline, fcol, foff, l.file), flagLit != ""
	}
	return NewToken(SIGIL_BODY, "", line, column, offset, l.file), Token{}, false
}

func (l *Lexer) readHTMLOpen(line, column, offset int) Token {
	l.readChar() // consume '<'
	start := l.position
	for l.ch != '>' && l.ch != 0 {
		l.readChar()
	}
	tag := l.input[start:l.position]
	if l.ch == '>' {
		l.readChar()
	}
	return NewToken(HTML_OPEN, tag, line, column, offset, l.file)
}

func (l *Lexer) readHTMLClose(line, column, offset int) Token {
	l.readChar() // '<'
	l.readChar() // '/'
	start := l.position
	for l.ch != '>' && l.ch != 0 {
		l.readChar()
	}
	tag := l.input[start:l.position]
	if l.ch == '>' {
		l.readChar()
	}
	return NewToken(HTML_CLOSE, tag, line, column, offset, l.file)
}

func spanAt(file string, line, column, offset int) ast.Span {
	p := ast.Pos{File: file, Line: line, Column: column, Offset: offset}
	return ast.Span{Start: p, End: p}
}

func isLetter(ch rune) bool { return unicode.IsLetter(ch) || ch == '_' }
func isDigit(ch rune) bool  { return unicode.IsDigit(ch) }

// Error represents a lexer-level panic condition (should not normally
// surface; forbidden constructs are reported via Diagnostics instead).
type Error struct {
	Message string
	Line    int
	Column  int
	File    string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}
