package parser

import (
	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
	"github.com/aivi-lang/aivi/internal/lexer"
)

// parseDecorator parses `@name` or `@name <arg>` (§4.2). Three
// decorators get extra shape validation at parse time because their
// contract is checked before any later pass sees them: @test requires
// a string argument, @inline takes none, @native takes a string target
// argument and parseDefOrSig reports E1526 when the @native def has no
// parameters; whether a type signature precedes the def is not checked.
func (p *Parser) parseDecorator() *ast.Decorator {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.Decorator{Pos: start}
	}
	name := p.curToken.Literal
	dec := &ast.Decorator{Name: name, Pos: start}

	switch name {
	case "test":
		if !p.peekTokenIs(lexer.STRING) && !p.peekTokenIs(lexer.STRING_PART) {
			p.report(diagnostics.ETestArgMissing, "@test requires a string name argument", `write @test "description"`)
			p.nextToken()
			return dec
		}
		p.nextToken()
		if !p.curTokenIs(lexer.STRING) {
			p.report(diagnostics.ETestArgNotString, "@test argument must be a string literal", `write @test "description"`)
		}
		dec.Arg = p.parseExpression(LOWEST)
	case "inline":
		if p.peekToken.Type != lexer.NEWLINE && p.peekToken.Type != lexer.AT && !p.isDeclStart(p.peekToken.Type) {
			p.report(diagnostics.EInlineHasArgs, "@inline takes no argument", "remove the argument after @inline")
		}
	case "deprecated":
		if p.peekTokenIs(lexer.STRING) || p.peekTokenIs(lexer.STRING_PART) {
			p.nextToken()
			dec.Arg = p.parseExpression(LOWEST)
		}
	case "native":
		if p.peekTokenIs(lexer.STRING) {
			p.nextToken()
			dec.Arg = p.parseExpression(LOWEST)
		}
	}
	p.nextToken()
	return dec
}

func (p *Parser) isDeclStart(t lexer.TokenType) bool {
	switch t {
	case lexer.IDENT, lexer.TYPE, lexer.CLASS, lexer.INSTANCE, lexer.USE, lexer.DOMAIN, lexer.MACHINE, lexer.EXPORT, lexer.AT, lexer.EOF:
		return true
	}
	return false
}

// parseUseClause parses `use Module (a, b)` or `use Module (*)` (§4.3).
func (p *Parser) parseUseClause() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.UseClause{Pos: start}
	}
	path := p.curToken.Literal
	for p.peekTokenIs(lexer.SLASH) {
		p.nextToken()
		path += "/"
		if p.expectPeek(lexer.IDENT) {
			path += p.curToken.Literal
		}
	}
	u := &ast.UseClause{Module: path, Pos: start}
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		for !p.peekTokenIs(lexer.RPAREN) && !p.peekTokenIs(lexer.EOF) {
			p.nextToken()
			if p.curTokenIs(lexer.STAR) {
				u.Wildcard = true
			} else if p.curTokenIs(lexer.IDENT) {
				u.Names = append(u.Names, p.curToken.Literal)
			}
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		p.expectPeek(lexer.RPAREN)
	}
	return u
}

// parseDefOrSig distinguishes `name : Type` (a TypeSig, the first half
// of an overload set) from `name params... = body` (a value binding).
// A TypeSig whose type is directly followed by `=` on the same line
// (`x : Int = 1`) is reported as E1528.
func (p *Parser) parseDefOrSig(decorators []*ast.Decorator) ast.Node {
	start := p.curPos()
	name := p.curToken.Literal

	if p.peekTokenIs(lexer.COLON) {
		p.nextToken() // consume name, curToken == COLON
		p.nextToken() // first token of the type
		typ := p.parseType()
		sig := &ast.TypeSig{Name: name, Type: typ, Pos: start}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.report(diagnostics.ESigFollowedByEq, "a type signature must be followed by a def with the same name, not `=` directly", "write the signature on its own line, then `name params = body` beneath it")
		}
		return sig
	}

	def := &ast.Def{Name: name, Decorators: decorators, Pos: start}
	for p.peekTokenIs(lexer.IDENT) || p.peekTokenIs(lexer.LPAREN) || p.peekTokenIs(lexer.LBRACKET) || p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		def.Params = append(def.Params, p.parseParam())
	}

	for _, d := range decorators {
		if d.Name == "native" && len(def.Params) == 0 {
			p.report(diagnostics.ENativeNoSig, "@native def requires a preceding type signature", "add `"+name+" : ...` above this def")
		}
	}

	if !p.expectPeek(lexer.ASSIGN) {
		return def
	}
	p.nextToken()
	def.Body = p.parseExpression(LOWEST)
	def.Span = ast.Span{Start: start, End: p.curPos()}

	if len(decorators) > 0 {
		// A decorated binding must stay an *ast.Def: ast.FuncDecl has no
		// Decorators field, and callers (internal/hir, internal/resolve)
		// need to see @native/@debug_fn/@no_prelude to act on them.
		return def
	}

	if len(def.Params) == 0 {
		return &ast.FuncDecl{Name: name, Body: def.Body, Pos: start, Span: def.Span}
	}
	fd := &ast.FuncDecl{Name: name, Params: def.Params, Body: def.Body, Pos: start, Span: def.Span}
	return fd
}

func (p *Parser) parseParam() *ast.Param {
	start := p.curPos()
	if p.curTokenIs(lexer.IDENT) {
		name := p.curToken.Literal
		param := &ast.Param{Name: name, Pos: start}
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			param.Type = p.parseType()
		}
		return param
	}
	// irrefutable destructuring param `(a, b)` or `[x, ...xs]`: bind the
	// pattern's rendered text as a placeholder name; HIR desugaring
	// expands it into a match against a fresh temporary.
	pat := p.parsePattern()
	return &ast.Param{Name: "$" + pat.String(), Pos: start}
}

// parseTypeDecl parses `type Name params = ...` in any of its three
// shapes: algebraic (`A | B(x)`), record (`{ field: T, ... }`), or
// alias (anything else).
func (p *Parser) parseTypeDecl() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.TypeDecl{Pos: start}
	}
	name := p.curToken.Literal
	var params []string
	for p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	decl := &ast.TypeDecl{Name: name, TypeParams: params, Pos: start}
	if !p.expectPeek(lexer.ASSIGN) {
		return decl
	}
	p.nextToken()

	if p.curTokenIs(lexer.LBRACE) {
		decl.Definition = p.parseRecordTypeDef()
		return decl
	}

	decl.Definition = p.parseAlgebraicOrAlias()
	return decl
}

func (p *Parser) parseRecordTypeDef() *ast.RecordType {
	start := p.curPos()
	rt := &ast.RecordType{Pos: start}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		fstart := p.curPos()
		fname := p.curToken.Literal
		if !p.expectPeek(lexer.COLON) {
			break
		}
		p.nextToken()
		ftype := p.parseType()
		rt.Fields = append(rt.Fields, &ast.RecordField{Name: fname, Type: ftype, Pos: fstart})
		p.nextToken()
	}
	return rt
}

// parseAlgebraicOrAlias parses `Ctor(args) | Ctor2 | ...`; a single
// constructor with no following `|` and no arguments is still wrapped
// as a one-constructor AlgebraicType unless it looks like a plain type
// reference, in which case it's a TypeAlias.
func (p *Parser) parseAlgebraicOrAlias() ast.TypeDef {
	start := p.curPos()
	if p.curTokenIs(lexer.IDENT) && isUpper(p.curToken.Literal) {
		alg := &ast.AlgebraicType{Pos: start}
		for {
			alg.Constructors = append(alg.Constructors, p.parseConstructor())
			if p.peekTokenIs(lexer.PIPE) {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
		return alg
	}
	typ := p.parseType()
	return &ast.TypeAlias{Type: typ, Pos: start}
}

func (p *Parser) parseConstructor() *ast.Constructor {
	start := p.curPos()
	name := p.curToken.Literal
	ctor := &ast.Constructor{Name: name, Pos: start}
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		p.nextToken()
		for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
			ctor.Fields = append(ctor.Fields, p.parseType())
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				p.nextToken()
			} else {
				break
			}
		}
		p.expectPeek(lexer.RPAREN)
	}
	return ctor
}

func isUpper(s string) bool { return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' }

// parseClassDecl parses `class Name a = [Supers] [given (...)] { members }` (§4.4).
func (p *Parser) parseClassDecl() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.ClassDeclX{Pos: start}
	}
	c := &ast.ClassDeclX{Name: p.curToken.Literal, Pos: start}
	if p.expectPeek(lexer.IDENT) {
		c.TypeVar = p.curToken.Literal
	}
	if p.peekTokenIs(lexer.ASSIGN) {
		p.nextToken()
	}
	for p.peekTokenIs(lexer.IDENT) && isUpper(p.peekToken.Literal) {
		p.nextToken()
		c.Supers = append(c.Supers, p.curToken.Literal)
		if p.peekTokenIs(lexer.PIPE) {
			p.nextToken()
		}
	}
	if p.peekTokenIs(lexer.GIVEN) {
		p.nextToken()
		c.Given = p.parseGivenConstraints()
	}
	if !p.expectPeek(lexer.LBRACE) {
		return c
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		mstart := p.curPos()
		mname := p.curToken.Literal
		if p.expectPeek(lexer.COLON) {
			p.nextToken()
			mtype := p.parseType()
			c.Members = append(c.Members, ast.ClassMember{Name: mname, Type: mtype, Pos: mstart})
		}
		p.nextToken()
	}
	return c
}

func (p *Parser) parseGivenConstraints() []ast.GivenConstraint {
	var out []ast.GivenConstraint
	if !p.expectPeek(lexer.LPAREN) {
		return out
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		name := p.curToken.Literal
		if p.expectPeek(lexer.COLON) {
			p.nextToken()
			out = append(out, ast.GivenConstraint{Name: name, ClassName: p.curToken.Literal})
		}
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RPAREN)
	return out
}

// parseInstanceDecl parses `instance ClassName Type = { method = expr, ... }`.
func (p *Parser) parseInstanceDecl() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.InstanceDeclX{Pos: start}
	}
	inst := &ast.InstanceDeclX{ClassName: p.curToken.Literal, Pos: start, Methods: map[string]ast.Expr{}}
	p.nextToken()
	inst.Type = p.parseTypeAtom()
	if p.peekTokenIs(lexer.GIVEN) {
		p.nextToken()
		inst.Given = p.parseGivenConstraints()
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return inst
	}
	if !p.expectPeek(lexer.LBRACE) {
		return inst
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		mname := p.curToken.Literal
		var params []*ast.Param
		for p.peekTokenIs(lexer.IDENT) {
			p.nextToken()
			params = append(params, &ast.Param{Name: p.curToken.Literal, Pos: p.curPos()})
		}
		if !p.expectPeek(lexer.ASSIGN) {
			break
		}
		p.nextToken()
		body := p.parseExpression(LOWEST)
		if len(params) > 0 {
			body = &ast.Lambda{Params: params, Body: body, Pos: body.Position()}
		}
		inst.Methods[mname] = body
		p.nextToken()
	}
	return inst
}

// parseDomainDecl parses `domain Name = { 1suffix : F -> R, ... }` (§4.4).
func (p *Parser) parseDomainDecl() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.DomainDecl{Pos: start}
	}
	d := &ast.DomainDecl{Name: p.curToken.Literal, Pos: start}
	if !p.expectPeek(lexer.ASSIGN) || !p.expectPeek(lexer.LBRACE) {
		return d
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		tstart := p.curPos()
		var suffix string
		if p.curTokenIs(lexer.INT) {
			suffix = p.curToken.Literal
			if s, ok := p.l.PendingSuffix(); ok {
				suffix += s.Literal
			}
			p.resyncPeek()
		} else {
			suffix = p.curToken.Literal
		}
		if p.expectPeek(lexer.COLON) {
			p.nextToken()
			typ := p.parseType()
			d.Suffixes = append(d.Suffixes, ast.SuffixTemplate{Suffix: suffix, Type: typ, Pos: tstart})
		}
		p.nextToken()
	}
	return d
}

// parseMachineDecl parses `machine N = { [Src] -> Tgt : event { fields }, ... }` (§4.2 supplement).
func (p *Parser) parseMachineDecl() ast.Node {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		return &ast.MachineDecl{Pos: start}
	}
	m := &ast.MachineDecl{Name: p.curToken.Literal, Pos: start}
	if !p.expectPeek(lexer.ASSIGN) || !p.expectPeek(lexer.LBRACE) {
		return m
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		tr := ast.MachineTransition{Pos: p.curPos()}
		if p.curTokenIs(lexer.LBRACKET) {
			p.nextToken()
			tr.From = p.curToken.Literal
			p.expectPeek(lexer.RBRACKET)
		}
		if p.expectPeek(lexer.ARROW) {
			p.nextToken()
			tr.To = p.curToken.Literal
		}
		if p.expectPeek(lexer.COLON) {
			p.nextToken()
			tr.Event = p.curToken.Literal
		}
		if p.peekTokenIs(lexer.LBRACE) {
			p.nextToken()
			p.nextToken()
			for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
				if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
					p.nextToken()
					continue
				}
				fname := p.curToken.Literal
				if p.expectPeek(lexer.COLON) {
					p.nextToken()
					ftype := p.parseType()
					tr.Fields = append(tr.Fields, &ast.RecordField{Name: fname, Type: ftype})
				}
				p.nextToken()
			}
		}
		m.Transitions = append(m.Transitions, tr)
		p.nextToken()
	}
	return m
}
