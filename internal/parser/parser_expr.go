package parser

import (
	"strconv"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
	"github.com/aivi-lang/aivi/internal/lexer"
)

// parseExpression is the Pratt engine: parse a prefix term, then greedily
// absorb juxtaposed application arguments, then climb the infix operator
// chain while the next operator binds tighter than precedence.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		p.noPrefixParseFnError(p.curToken.Type)
		return &ast.Error{Pos: p.curPos()}
	}
	leftExp := prefix()
	leftExp = p.absorbApplication(leftExp)

	for !p.peekTokenIs(lexer.NEWLINE) && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

// canStartArgAtom reports whether tok can open a bare application
// argument. Prefix operators (`-`, `!`, `not`) are excluded so `a - b`
// parses as subtraction rather than `a` applied to `(-b)`.
func canStartArgAtom(tok lexer.TokenType) bool {
	switch tok {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.STRING_PART,
		lexer.CHAR, lexer.TRUE, lexer.FALSE, lexer.UNIT, lexer.DATETIME,
		lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE, lexer.SIGIL_TAG:
		return true
	}
	return false
}

func (p *Parser) absorbApplication(fn ast.Expr) ast.Expr {
	var args []ast.Expr
	for canStartArgAtom(p.peekToken.Type) {
		p.nextToken()
		arg := p.parseExpression(CALL)
		args = append(args, arg)
	}
	if len(args) == 0 {
		return fn
	}
	return &ast.FuncCall{Func: fn, Args: args, Pos: fn.Position()}
}

func (p *Parser) parseIdentifier() ast.Expr {
	return &ast.Identifier{Name: p.curToken.Literal, Pos: p.curPos()}
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.report("PAR_BAD_INT", "invalid integer literal "+tok.Literal, "use decimal digits")
	}
	lit := &ast.Literal{Kind: ast.IntLit, Value: v, Pos: p.curPos()}
	suffix, ok := p.l.PendingSuffix()
	p.resyncPeek()
	if ok {
		return &ast.SuffixedNumber{Number: lit, Suffix: suffix.Literal, Pos: lit.Pos}
	}
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.report("PAR_BAD_FLOAT", "invalid float literal "+tok.Literal, "use decimal digits with a single '.'")
	}
	lit := &ast.Literal{Kind: ast.FloatLit, Value: v, Pos: p.curPos()}
	suffix, ok := p.l.PendingSuffix()
	p.resyncPeek()
	if ok {
		return &ast.SuffixedNumber{Number: lit, Suffix: suffix.Literal, Pos: lit.Pos}
	}
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return &ast.Literal{Kind: ast.StringLit, Value: p.curToken.Literal, Pos: p.curPos()}
}

// parseInterpolatedString reassembles STRING_PART ... IDENT/expr ... STRING_END
// fragments emitted by the lexer into a single TextInterpolate node (§4.1).
func (p *Parser) parseInterpolatedString() ast.Expr {
	start := p.curPos()
	ti := &ast.TextInterpolate{Pos: start}
	ti.Parts = append(ti.Parts, ast.TextPart{Text: p.curToken.Literal})

	for {
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		ti.Parts = append(ti.Parts, ast.TextPart{Expr: expr})

		next := p.l.ContinueInterpolation()
		if next.Type == lexer.STRING_END {
			ti.Parts = append(ti.Parts, ast.TextPart{Text: next.Literal})
			p.peekToken = p.l.NextToken()
			p.curToken = next
			break
		}
		// STRING_PART: more interpolated segments follow
		ti.Parts = append(ti.Parts, ast.TextPart{Text: next.Literal})
		p.curToken = next
	}
	return ti
}

func (p *Parser) parseCharLiteral() ast.Expr {
	r := []rune(p.curToken.Literal)
	var v rune
	if len(r) > 0 {
		v = r[0]
	}
	return &ast.Literal{Kind: ast.StringLit, Value: string(v), Pos: p.curPos()}
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return &ast.Literal{Kind: ast.BoolLit, Value: p.curTokenIs(lexer.TRUE), Pos: p.curPos()}
}

func (p *Parser) parseUnitLiteral() ast.Expr {
	return &ast.Literal{Kind: ast.UnitLit, Value: nil, Pos: p.curPos()}
}

func (p *Parser) parseDateTimeLiteral() ast.Expr {
	return &ast.DateTimeLiteral{Text: p.curToken.Literal, Pos: p.curPos()}
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	start := p.curPos()
	op := p.curToken.Literal
	if p.curTokenIs(lexer.BANG) || p.curTokenIs(lexer.NOT) {
		op = "!"
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryOp{Op: op, Expr: operand, Pos: start}
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	start := left.Position()
	op := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryOp{Left: left, Op: op, Right: right, Pos: start}
}

func (p *Parser) parsePipeExpr(left ast.Expr) ast.Expr {
	start := left.Position()
	p.nextToken()
	right := p.parseExpression(PIPE)
	return &ast.Pipe{Left: left, Right: right, Pos: start}
}

func (p *Parser) parseCallExpr(fn ast.Expr) ast.Expr {
	start := fn.Position()
	call := &ast.FuncCall{Func: fn, Pos: start}
	p.nextToken()
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		call.Args = append(call.Args, p.parseExpression(LOWEST))
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RPAREN)
	return call
}

func (p *Parser) parseIndexExpr(base ast.Expr) ast.Expr {
	start := base.Position()
	p.nextToken()
	idx := p.parseExpression(LOWEST)
	p.expectPeek(lexer.RBRACKET)
	return &ast.Index{Base: base, Index: idx, Pos: start}
}

func (p *Parser) parseAccessOrMethod(base ast.Expr) ast.Expr {
	start := base.Position()
	if !p.expectPeek(lexer.IDENT) {
		return base
	}
	field := p.curToken.Literal
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		call := p.parseCallExpr(&ast.Identifier{Name: field, Pos: p.curPos()}).(*ast.FuncCall)
		call.Args = append([]ast.Expr{base}, call.Args...)
		return call
	}
	return &ast.RecordAccess{Record: base, Field: field, Pos: start}
}

func (p *Parser) parseGroupedOrTuple() ast.Expr {
	start := p.curPos()
	p.nextToken()
	if p.curTokenIs(lexer.RPAREN) {
		return &ast.Literal{Kind: ast.UnitLit, Pos: start}
	}
	first := p.parseExpression(LOWEST)
	if !p.peekTokenIs(lexer.COMMA) {
		p.expectPeek(lexer.RPAREN)
		return first
	}
	tup := &ast.Tuple{Elements: []ast.Expr{first}, Pos: start}
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		tup.Elements = append(tup.Elements, p.parseExpression(LOWEST))
	}
	p.expectPeek(lexer.RPAREN)
	return tup
}

func (p *Parser) parseListLiteralOrPattern() ast.Expr {
	start := p.curPos()
	list := &ast.List{Pos: start}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACKET) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.ELLIPSIS) {
			p.nextToken()
			list.Elements = append(list.Elements, &ast.Spread{Value: p.parseExpression(LOWEST), Pos: start})
		} else {
			list.Elements = append(list.Elements, p.parseExpression(LOWEST))
		}
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RBRACKET)
	return list
}

func (p *Parser) parseSpreadExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	return &ast.Spread{Value: p.parseExpression(PREFIX), Pos: start}
}

// parseBraceExpr disambiguates the four things a leading `{` can open:
// a record literal `{ a: 1, b: 2 }`, a patch `{ base | a.b: v }`, or a
// plain block `{ e1; e2 }` of semicolon/newline-separated expressions.
func (p *Parser) parseBraceExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	p.skipNewlines()

	if p.curTokenIs(lexer.RBRACE) {
		return &ast.Record{Pos: start}
	}

	if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.COLON) {
		return p.parseRecordLiteral(start)
	}

	first := p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.PIPE) {
		return p.parsePatchLiteral(start, first)
	}

	block := &ast.Block{Exprs: []ast.Expr{first}, Pos: start}
	for {
		p.skipSeparators()
		if p.peekTokenIs(lexer.RBRACE) {
			p.nextToken()
			break
		}
		if p.peekTokenIs(lexer.EOF) {
			p.reportExpected(lexer.RBRACE, "close the block with '}'")
			break
		}
		p.nextToken()
		block.Exprs = append(block.Exprs, p.parseExpression(LOWEST))
	}
	if len(block.Exprs) == 1 {
		return block.Exprs[0]
	}
	return block
}

func (p *Parser) skipSeparators() {
	for p.peekTokenIs(lexer.NEWLINE) || p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseRecordLiteral(start ast.Pos) ast.Expr {
	rec := &ast.Record{Pos: start}
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(lexer.ELLIPSIS) {
			p.nextToken()
			rec.Fields = append(rec.Fields, &ast.Field{Name: "...", Value: p.parseExpression(LOWEST)})
			p.nextToken()
			continue
		}
		fstart := p.curPos()
		fname := p.curToken.Literal
		if !p.expectPeek(lexer.COLON) {
			break
		}
		p.nextToken()
		fval := p.parseExpression(LOWEST)
		rec.Fields = append(rec.Fields, &ast.Field{Name: fname, Value: fval, Pos: fstart})
		p.nextToken()
		p.skipNewlines()
	}
	return rec
}

// parsePatchLiteral parses the rest of `{ base | a.b.c: v, ... }` once
// the leading `base` expression and the `|` have been seen.
func (p *Parser) parsePatchLiteral(start ast.Pos, target ast.Expr) ast.Expr {
	p.nextToken() // consume '|'
	p.nextToken()
	patch := &ast.Patch{Target: target, Pos: start}
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		fstart := p.curPos()
		var path []string
		path = append(path, p.curToken.Literal)
		for p.peekTokenIs(lexer.DOT) {
			p.nextToken()
			p.nextToken()
			path = append(path, p.curToken.Literal)
		}
		if !p.expectPeek(lexer.COLON) {
			break
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		patch.Fields = append(patch.Fields, ast.PatchField{Path: path, Value: val, Pos: fstart})
		p.nextToken()
	}
	return patch
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.THEN) {
		return &ast.If{Condition: cond, Pos: start}
	}
	p.nextToken()
	then := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.ELSE) {
		return &ast.If{Condition: cond, Then: then, Pos: start}
	}
	p.nextToken()
	els := p.parseExpression(LOWEST)
	return &ast.If{Condition: cond, Then: then, Else: els, Pos: start}
}

// parseMatchExpr parses `match e { pat [when guard] => body, ... }`.
// The legacy `pat | pat2 => body` or-pattern syntax used in older
// drafts is rejected with E1530 in favor of repeating the whole arm.
func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	subject := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.LBRACE) {
		return &ast.Match{Expr: subject, Pos: start}
	}
	m := &ast.Match{Expr: subject, Pos: start}
	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		cstart := p.curPos()
		pat := p.parsePattern()
		if p.peekTokenIs(lexer.PIPE) {
			p.report(diagnostics.ELegacyMatchOr, "combined `pat | pat2 => body` arms are no longer supported", "write each pattern as its own arm")
		}
		var guard ast.Expr
		if p.peekTokenIs(lexer.WHEN) {
			p.nextToken()
			p.nextToken()
			guard = p.parseExpression(LOWEST)
		}
		if !p.expectPeek(lexer.FARROW) {
			break
		}
		p.nextToken()
		body := p.parseExpression(LOWEST)
		m.Cases = append(m.Cases, &ast.Case{Pattern: pat, Guard: guard, Body: body, Pos: cstart})
		p.nextToken()
		for p.curTokenIs(lexer.COMMA) || p.curTokenIs(lexer.NEWLINE) {
			p.nextToken()
		}
	}
	return m
}

func (p *Parser) parseFuncLit() ast.Expr {
	start := p.curPos()
	fn := &ast.FuncLit{Pos: start}
	if !p.expectPeek(lexer.LPAREN) {
		return fn
	}
	p.nextToken()
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		fn.Params = append(fn.Params, p.parseParam())
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
		} else {
			break
		}
	}
	p.expectPeek(lexer.RPAREN)
	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		fn.ReturnType = p.parseType()
	}
	if p.peekTokenIs(lexer.BANG) {
		p.nextToken()
		fn.Effects = p.parseEffectAnnotation()
	}
	if !p.expectPeek(lexer.LBRACE) {
		return fn
	}
	fn.Body = p.parseBraceExpr()
	return fn
}

func (p *Parser) parseLetExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	name := p.curToken.Literal
	l := &ast.Let{Name: name, Pos: start}
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		l.Type = p.parseType()
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return l
	}
	p.nextToken()
	l.Value = p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.IN) {
		p.nextToken()
		p.nextToken()
		l.Body = p.parseExpression(LOWEST)
	} else if p.peekTokenIs(lexer.NEWLINE) {
		p.nextToken()
		p.nextToken()
		l.Body = p.parseExpression(LOWEST)
	}
	return l
}

// parseKeywordBlock parses `do { ... }`, `generate { ... }`, and
// `resource { ... }` into a StructuredBlock (§3.3).
func (p *Parser) parseKeywordBlock() ast.Expr {
	start := p.curPos()
	var kind ast.BlockKind
	switch p.curToken.Type {
	case lexer.DO:
		kind = ast.DoBlock
	case lexer.GENERATE:
		kind = ast.GenerateBlock
	case lexer.RESOURCE:
		kind = ast.ResourceBlock
	}
	monad := "Effect"
	if p.peekTokenIs(lexer.IDENT) && isUpper(p.peekToken.Literal) {
		p.nextToken()
		monad = p.curToken.Literal
	}
	if !p.expectPeek(lexer.LBRACE) {
		return &ast.StructuredBlock{Kind: kind, Monad: monad, Pos: start}
	}
	block := &ast.StructuredBlock{Kind: kind, Monad: monad, Pos: start}
	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		item := p.parseBlockItem()
		block.Items = append(block.Items, item)
		p.skipSeparators()
		p.nextToken()
		p.skipNewlines()
	}
	return block
}

func (p *Parser) parseBlockItem() ast.BlockItem {
	start := p.curPos()
	switch p.curToken.Type {
	case lexer.YIELD:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemYield, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.RECURSE:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemRecurse, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.WHEN:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemWhen, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.UNLESS:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemUnless, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.GIVEN:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemGiven, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.ON:
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemOn, Expr: p.parseExpression(LOWEST), Pos: start}
	case lexer.LET:
		p.nextToken()
		name := p.curToken.Literal
		p.expectPeek(lexer.ASSIGN)
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemLet, Name: name, Expr: p.parseExpression(LOWEST), Pos: start}
	}

	if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.LARROW) {
		name := p.curToken.Literal
		p.nextToken()
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemBind, Name: name, Expr: p.parseExpression(LOWEST), Pos: start}
	}
	if canStartPattern(p.curToken.Type) {
		save := p.snapshot()
		pat := p.parsePattern()
		if p.peekTokenIs(lexer.LARROW) {
			p.nextToken()
			p.nextToken()
			return ast.BlockItem{Kind: ast.ItemBind, Pattern: pat, Expr: p.parseExpression(LOWEST), Pos: start}
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			return ast.BlockItem{Kind: ast.ItemLet, Pattern: pat, Expr: p.parseExpression(LOWEST), Pos: start}
		}
		p.restore(save)
	}
	if p.curTokenIs(lexer.IDENT) && p.curToken.Literal == "filter" {
		p.nextToken()
		return ast.BlockItem{Kind: ast.ItemFilter, Expr: p.parseExpression(LOWEST), Pos: start}
	}
	return ast.BlockItem{Kind: ast.ItemExpr, Expr: p.parseExpression(LOWEST), Pos: start}
}

// parserSnapshot supports the small amount of backtracking needed to
// tell a `pattern <-`/`pattern =` block item apart from a bare
// expression statement without a separate tokenizer checkpoint API.
type parserSnapshot struct {
	cur, peek lexer.Token
}

func (p *Parser) snapshot() parserSnapshot { return parserSnapshot{p.curToken, p.peekToken} }
func (p *Parser) restore(s parserSnapshot) { p.curToken, p.peekToken = s.cur, s.peek }

func canStartPattern(t lexer.TokenType) bool {
	switch t {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
		return true
	}
	return false
}

// parseSigilExpr parses `~tag{body}flags` / `~tag"body"flags` literals
// (§4.1). curToken is already the SIGIL_TAG; nextToken() deliberately
// left peekToken empty so the raw body can be read via ReadSigilBody
// before any ordinary tokenization touches it.
func (p *Parser) parseSigilExpr() ast.Expr {
	start := p.curPos()
	tag := p.curToken

	switch tag.Literal {
	case "d", "t", "dt", "tz", "zdt":
		body, flags, hasFlags := p.l.ReadSigilBody()
		zone := ""
		if hasFlags {
			zone = flags.Literal
		}
		p.peekToken = p.l.NextToken()
		return &ast.DateTimeLiteral{Text: body.Literal, Zone: zone, Pos: start}
	default:
		if !lexer.KnownSigilTags[tag.Literal] {
			p.warn(diagnostics.WUnknownSigilTag, "unrecognized sigil tag ~"+tag.Literal)
		}
		body, flags, hasFlags := p.l.ReadSigilBody()
		lit := &ast.SigilLiteral{Tag: tag.Literal, Body: body.Literal, Pos: start}
		if hasFlags {
			lit.Flags = flags.Literal
		}
		p.peekToken = p.l.NextToken()
		return lit
	}
}
