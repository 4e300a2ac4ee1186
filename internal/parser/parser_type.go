package parser

import (
	"strings"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/lexer"
)

// parseType parses a full type expression: a chain of atoms (for type
// application, e.g. `Option a`) optionally followed by `-> Type` and a
// trailing `! {Effects}` annotation on the arrow's result (§4.4).
func (p *Parser) parseType() ast.Type {
	start := p.curPos()
	left := p.parseTypeApplication()

	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		ret := p.parseType()
		ft := &ast.FuncType{Params: []ast.Type{left}, Return: ret, Pos: start}
		if p.peekTokenIs(lexer.BANG) {
			p.nextToken()
			ft.Effects = p.parseEffectAnnotation()
		}
		return ft
	}
	return left
}

// parseTypeApplication parses one or more juxtaposed type atoms,
// collapsing `List a` style application into a single SimpleType whose
// Name carries the full applied spelling (surface-level only — the
// type checker builds its own structured representation downstream).
func (p *Parser) parseTypeApplication() ast.Type {
	start := p.curPos()
	first := p.parseTypeAtom()
	parts := []string{first.String()}
	for canStartTypeAtom(p.peekToken.Type) {
		p.nextToken()
		parts = append(parts, p.parseTypeAtom().String())
	}
	if len(parts) == 1 {
		return first
	}
	return &ast.SimpleType{Name: strings.Join(parts, " "), Pos: start}
}

func canStartTypeAtom(t lexer.TokenType) bool {
	switch t {
	case lexer.IDENT, lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
		return true
	}
	return false
}

func (p *Parser) parseTypeAtom() ast.Type {
	start := p.curPos()
	switch p.curToken.Type {
	case lexer.IDENT:
		name := p.curToken.Literal
		if len(name) > 0 && name[0] >= 'a' && name[0] <= 'z' {
			return &ast.TypeVar{Name: name, Pos: start}
		}
		return &ast.SimpleType{Name: name, Pos: start}
	case lexer.LBRACKET:
		p.nextToken()
		elem := p.parseType()
		p.expectPeek(lexer.RBRACKET)
		return &ast.ListType{Element: elem, Pos: start}
	case lexer.LPAREN:
		p.nextToken()
		if p.curTokenIs(lexer.RPAREN) {
			return &ast.SimpleType{Name: "()", Pos: start}
		}
		first := p.parseType()
		if !p.peekTokenIs(lexer.COMMA) {
			p.expectPeek(lexer.RPAREN)
			return first
		}
		tt := &ast.TupleType{Elements: []ast.Type{first}, Pos: start}
		for p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
			tt.Elements = append(tt.Elements, p.parseType())
		}
		p.expectPeek(lexer.RPAREN)
		return tt
	case lexer.LBRACE:
		return p.parseRecordTypeDef()
	default:
		p.report("PAR_BAD_TYPE", "expected a type, got "+p.curToken.Type.String(), "write a type name, type variable, [list], (tuple), or {record}")
		return &ast.SimpleType{Name: "?", Pos: start}
	}
}
