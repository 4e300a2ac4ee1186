package parser

import (
	"fmt"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
	"github.com/aivi-lang/aivi/internal/lexer"
)

// Parser is a Pratt parser over the token stream produced by
// internal/lexer. It never stops at the first error: every parse*
// method that hits something unexpected records a *ParserError (see
// parser_error.go) and synchronizes to the next recoverable token so
// the rest of the file still gets diagnosed in one pass.
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token

	errors []error
	diags  *diagnostics.Bag

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Precedence levels, lowest to highest. Pipe sits below every other
// binary operator (§4.2); application binds tighter than all of them.
const (
	LOWEST = iota
	LAMBDA
	PIPE
	LogicalOr
	LogicalAnd
	EQUALS
	LESSGREATER
	APPEND
	SUM
	PRODUCT
	PREFIX
	CALL
	DotAccess
	HIGHEST
)

var precedences = map[lexer.TokenType]int{
	lexer.PIPEOP:   PIPE,
	lexer.OR:       LogicalOr,
	lexer.AND:      LogicalAnd,
	lexer.EQ:       EQUALS,
	lexer.NEQ:      EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LTE:      LESSGREATER,
	lexer.GTE:      LESSGREATER,
	lexer.CONS:     APPEND,
	lexer.APPEND:   APPEND,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.STAR:     PRODUCT,
	lexer.CROSS:    PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.LPAREN:   CALL,
	lexer.DOT:      DotAccess,
	lexer.LBRACKET: DotAccess,
}

// New creates a Parser over l, priming the two-token lookahead buffer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, diags: l.Diagnostics()}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:    p.parseIdentifier,
		lexer.INT:      p.parseIntegerLiteral,
		lexer.FLOAT:    p.parseFloatLiteral,
		lexer.STRING:   p.parseStringLiteral,
		lexer.STRING_PART: p.parseInterpolatedString,
		lexer.CHAR:     p.parseCharLiteral,
		lexer.TRUE:     p.parseBoolLiteral,
		lexer.FALSE:    p.parseBoolLiteral,
		lexer.UNIT:     p.parseUnitLiteral,
		lexer.DATETIME: p.parseDateTimeLiteral,
		lexer.BANG:     p.parsePrefixExpr,
		lexer.MINUS:    p.parsePrefixExpr,
		lexer.NOT:      p.parsePrefixExpr,
		lexer.LPAREN:   p.parseGroupedOrTuple,
		lexer.LBRACKET: p.parseListLiteralOrPattern,
		lexer.LBRACE:   p.parseBraceExpr,
		lexer.SIGIL_TAG: p.parseSigilExpr,
		lexer.IF:       p.parseIfExpr,
		lexer.MATCH:    p.parseMatchExpr,
		lexer.FUNC:     p.parseFuncLit,
		lexer.LET:      p.parseLetExpr,
		lexer.DO:       p.parseKeywordBlock,
		lexer.GENERATE: p.parseKeywordBlock,
		lexer.RESOURCE: p.parseKeywordBlock,
		lexer.ELLIPSIS: p.parseSpreadExpr,
	}

	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS: p.parseInfixExpr, lexer.MINUS: p.parseInfixExpr,
		lexer.STAR: p.parseInfixExpr, lexer.CROSS: p.parseInfixExpr,
		lexer.SLASH: p.parseInfixExpr, lexer.PERCENT: p.parseInfixExpr,
		lexer.EQ: p.parseInfixExpr, lexer.NEQ: p.parseInfixExpr,
		lexer.LT: p.parseInfixExpr, lexer.GT: p.parseInfixExpr,
		lexer.LTE: p.parseInfixExpr, lexer.GTE: p.parseInfixExpr,
		lexer.AND: p.parseInfixExpr, lexer.OR: p.parseInfixExpr,
		lexer.CONS: p.parseInfixExpr, lexer.APPEND: p.parseInfixExpr,
		lexer.PIPEOP: p.parsePipeExpr,
		lexer.LPAREN: p.parseCallExpr,
		lexer.DOT:    p.parseAccessOrMethod,
		lexer.LBRACKET: p.parseIndexExpr,
	}

	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every ParserError recorded during the parse.
func (p *Parser) Errors() []error { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	switch p.curToken.Type {
	case lexer.SIGIL_TAG, lexer.INT, lexer.FLOAT:
		// The sigil body (ReadSigilBody) and a glued numeric suffix
		// (PendingSuffix) are both read directly off the lexer's raw
		// position rather than through ordinary tokenization. Leave the
		// lookahead slot empty so an eager NextToken call doesn't
		// consume/corrupt that position first; the prefix parse
		// function for this token resyncs peekToken itself once it has
		// read what it needs (parseSigilExpr, parseIntegerLiteral,
		// parseFloatLiteral, and domain-decl suffix parsing).
		p.peekToken = lexer.Token{}
		return
	}
	p.peekToken = p.l.NextToken()
}

// resyncPeek re-fetches peekToken after reading directly off the
// lexer's position for a SIGIL_TAG/INT/FLOAT curToken (see nextToken).
func (p *Parser) resyncPeek() {
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) curPos() ast.Pos {
	return ast.Pos{Line: p.curToken.Line, Column: p.curToken.Column, File: p.curToken.File, Offset: p.curToken.Offset}
}

func (p *Parser) curSpan() ast.Span {
	start := p.curPos()
	end := start
	end.Column += len(p.curToken.Literal)
	end.Offset += len(p.curToken.Literal)
	return ast.Span{Start: start, End: end}
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// skipNewlines consumes any run of significant NEWLINE tokens; several
// surface positions (after `{`, `,`, binary operators, etc.) allow a
// line break without ending the current item.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
}

// Parse parses a single top-level expression or item, wrapping it in a
// synthetic *ast.Program.Module for REPL use (§REPL surface, pipeline.go).
func (p *Parser) Parse() *ast.Program {
	file := &ast.File{Pos: p.curPos()}
	p.parseFileBody(file)

	mod := &ast.Module{Pos: file.Pos}
	if file.Module != nil {
		mod.Name = file.Module.Path
	}
	mod.Decls = file.Decls
	return &ast.Program{File: file, Module: mod}
}

// ParseFile parses a complete source file: optional module header, use
// clauses, then top-level declarations, returning the populated *ast.File.
func (p *Parser) ParseFile() *ast.File {
	file := &ast.File{Pos: p.curPos()}
	p.parseFileBody(file)
	return file
}

func (p *Parser) parseFileBody(file *ast.File) {
	p.skipNewlines()

	sawModule := false
	sawNonModuleDecl := false
	for !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(lexer.MODULE) {
			if sawModule {
				p.report(diagnostics.EMultipleModules, "a file may declare at most one module", "remove the duplicate module header")
			}
			if sawNonModuleDecl {
				p.report(diagnostics.EModuleNotAtStart, "module header must be the first declaration in the file", "move `module ...` to the top of the file")
			}
			decl := p.parseModuleDecl()
			file.Module = decl
			sawModule = true
			p.skipNewlines()
			continue
		}
		sawNonModuleDecl = true
		if node := p.parseTopLevelItem(); node != nil {
			file.Decls = append(file.Decls, node)
			if fd, ok := node.(*ast.FuncDecl); ok {
				file.Funcs = append(file.Funcs, fd)
			}
		}
		p.skipNewlines()
	}
}

func (p *Parser) parseModuleDecl() *ast.ModuleDecl {
	start := p.curPos()
	if !p.expectPeek(lexer.IDENT) {
		p.report(diagnostics.EMissingModule, "expected a module path after `module`", "write `module path/to/mod`")
		return &ast.ModuleDecl{Pos: start}
	}
	path := p.curToken.Literal
	for p.peekTokenIs(lexer.SLASH) {
		p.nextToken()
		path += "/"
		if p.expectPeek(lexer.IDENT) {
			path += p.curToken.Literal
		}
	}
	return &ast.ModuleDecl{Path: path, Pos: start}
}

// parseTopLevelItem dispatches on the current token to one of the
// top-level declaration forms (§4.2). Decorators are collected first
// since they can prefix any def/type/class/instance.
func (p *Parser) parseTopLevelItem() ast.Node {
	var decorators []*ast.Decorator
	for p.curTokenIs(lexer.AT) {
		decorators = append(decorators, p.parseDecorator())
		p.skipNewlines()
	}

	switch p.curToken.Type {
	case lexer.USE:
		return p.parseUseClause()
	case lexer.TYPE:
		return p.parseTypeDecl()
	case lexer.CLASS:
		return p.parseClassDecl()
	case lexer.INSTANCE:
		return p.parseInstanceDecl()
	case lexer.DOMAIN:
		return p.parseDomainDecl()
	case lexer.MACHINE:
		return p.parseMachineDecl()
	case lexer.EXPORT:
		p.nextToken()
		return p.parseTopLevelItemExported(decorators)
	case lexer.IDENT:
		return p.parseDefOrSig(decorators)
	default:
		p.report("PAR_UNEXPECTED_TOP_LEVEL", fmt.Sprintf("unexpected token %s at top level", p.curToken.Type), "expected a def, type, class, instance, use, domain, or machine declaration")
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseTopLevelItemExported(decorators []*ast.Decorator) ast.Node {
	switch p.curToken.Type {
	case lexer.TYPE:
		td := p.parseTypeDecl()
		if t, ok := td.(*ast.TypeDecl); ok {
			t.Exported = true
		}
		return td
	case lexer.IDENT:
		node := p.parseDefOrSig(decorators)
		if fd, ok := node.(*ast.FuncDecl); ok {
			fd.IsExport = true
		}
		return node
	default:
		return p.parseTopLevelItem()
	}
}
