package parser

import (
	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/lexer"
)

// parsePattern parses a single pattern (§3.2): literals, identifiers
// (bare bind or wildcard `_`), constructors, lists/cons, tuples,
// records, and `pat as name` bindings.
func (p *Parser) parsePattern() ast.Pattern {
	pat := p.parsePatternAtom()
	for p.peekTokenIs(lexer.IDENT) && p.peekToken.Literal == "as" {
		p.nextToken() // consume "as"
		start := pat.Position()
		p.nextToken()
		name := p.curToken.Literal
		pat = &ast.AsPattern{Name: name, Pattern: pat, Pos: start}
	}
	if p.peekTokenIs(lexer.CONS) {
		p.nextToken()
		start := pat.Position()
		p.nextToken()
		tail := p.parsePattern()
		pat = &ast.ConsPattern{Head: pat, Tail: tail, Pos: start}
	}
	return pat
}

func (p *Parser) parsePatternAtom() ast.Pattern {
	start := p.curPos()
	switch p.curToken.Type {
	case lexer.IDENT:
		name := p.curToken.Literal
		if name == "_" {
			return &ast.WildcardPattern{Pos: start}
		}
		if isUpper(name) {
			return p.parseConstructorPattern()
		}
		return &ast.Identifier{Name: name, Pos: start}
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.UNIT:
		lit := p.parseExpression(LOWEST)
		if l, ok := lit.(*ast.Literal); ok {
			return l
		}
		return &ast.WildcardPattern{Pos: start}
	case lexer.LBRACKET:
		return p.parseListPattern()
	case lexer.LPAREN:
		return p.parseTuplePattern()
	case lexer.LBRACE:
		return p.parseRecordPattern()
	case lexer.MINUS:
		p.nextToken()
		inner := p.parsePatternAtom()
		if l, ok := inner.(*ast.Literal); ok {
			switch v := l.Value.(type) {
			case int64:
				l.Value = -v
			case float64:
				l.Value = -v
			}
			return l
		}
		return inner
	default:
		p.report("PAR_BAD_PATTERN", "expected a pattern, got "+p.curToken.Type.String(), "use a literal, identifier, constructor, list, tuple, or record pattern")
		return &ast.WildcardPattern{Pos: start}
	}
}

func (p *Parser) parseConstructorPattern() ast.Pattern {
	start := p.curPos()
	name := p.curToken.Literal
	cp := &ast.ConstructorPattern{Name: name, Pos: start}
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		p.nextToken()
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			cp.Patterns = append(cp.Patterns, p.parsePattern())
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				p.nextToken()
			} else {
				break
			}
		}
		p.expectPeek(lexer.RPAREN)
	}
	return cp
}

func (p *Parser) parseListPattern() ast.Pattern {
	start := p.curPos()
	lp := &ast.ListPattern{Pos: start}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACKET) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.ELLIPSIS) {
			p.nextToken()
			lp.Rest = p.parsePattern()
		} else {
			lp.Elements = append(lp.Elements, p.parsePattern())
		}
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RBRACKET)
	return lp
}

func (p *Parser) parseTuplePattern() ast.Pattern {
	start := p.curPos()
	p.nextToken()
	if p.curTokenIs(lexer.RPAREN) {
		return &ast.Literal{Kind: ast.UnitLit, Pos: start}
	}
	first := p.parsePattern()
	if !p.peekTokenIs(lexer.COMMA) {
		p.expectPeek(lexer.RPAREN)
		return first
	}
	tp := &ast.TuplePattern{Elements: []ast.Pattern{first}, Pos: start}
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		tp.Elements = append(tp.Elements, p.parsePattern())
	}
	p.expectPeek(lexer.RPAREN)
	return tp
}

func (p *Parser) parseRecordPattern() ast.Pattern {
	start := p.curPos()
	rp := &ast.RecordPattern{Pos: start}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.ELLIPSIS) {
			rp.Rest = true
			p.nextToken()
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				p.nextToken()
			}
			continue
		}
		fstart := p.curPos()
		fname := p.curToken.Literal
		var fpat ast.Pattern = &ast.Identifier{Name: fname, Pos: fstart}
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			fpat = p.parsePattern()
		}
		rp.Fields = append(rp.Fields, &ast.FieldPattern{Name: fname, Pattern: fpat, Pos: fstart})
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RBRACE)
	return rp
}
