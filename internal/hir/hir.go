// Package hir lowers a resolved surface *ast.File into HIR: the
// pipeline stage between name resolution and Kernel normalization
// (spec section 4.5). Lowering does four things the surface grammar
// leaves implicit:
//
//   - every bound name is tagged with how resolve.Resolve classified
//     it (local, imported, prelude), so Kernel and later stages never
//     need to re-walk scopes;
//   - `a |> f |> g` pipeline chains are split into an explicit
//     PipeChain carrying one shared pipe id and per-stage indices,
//     instead of staying nested left-associative Pipe trees;
//   - `@debug_fn`/`@native "target"` decorators are peeled off Def
//     nodes into first-class fields (DebugFn, NativeTarget) rather
//     than staying attached as generic Decorator values the rest of
//     the pipeline would have to special-case;
//   - surface TextInterpolate nodes are carried over as HIR Interp
//     nodes whose embedded expressions have themselves been lowered.
package hir

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
	"github.com/aivi-lang/aivi/internal/resolve"
)

// NodeID is a fresh, file-unique id assigned to every HIR node during
// lowering; later stages (Kernel, RustIR) use it to key side tables
// (e.g. the monomorphizer's spec_map) without re-deriving identity
// from source position.
type NodeID uint32

// RefKind classifies how a Var's name was resolved.
type RefKind int

const (
	RefLocal RefKind = iota
	RefImport
	RefPrelude
	RefUnresolved
)

// Expr is a lowered HIR expression.
type Expr interface {
	ID() NodeID
	hirExpr()
}

type base struct{ id NodeID }

func (b base) ID() NodeID { return b.id }
func (base) hirExpr()     {}

type Var struct {
	base
	Name   string
	Module string // always "": lowering does not record the defining module
	Kind   RefKind
}

type Lit struct {
	base
	Kind  ast.LiteralKind
	Value string
}

// opaqueLit marks a Lit synthesized from a surface form HIR does not
// give its own node shape (e.g. an un-elaborated QuasiQuote body); the
// stringified surface text is carried through so a later stage that
// does understand the form can still recover it, instead of HIR
// failing outright on constructs outside its scope.
const opaqueLit ast.LiteralKind = -1

type App struct {
	base
	Fn   Expr
	Args []Expr
}

type Lam struct {
	base
	Params []string
	Body   Expr
}

type Let struct {
	base
	Name  string
	Value Expr
	Body  Expr
	Rec   bool
}

type If struct {
	base
	Cond, Then, Else Expr
}

type MatchCase struct {
	Pattern ast.Pattern
	Body    Expr
}

type MatchE struct {
	base
	Scrutinee Expr
	Cases     []MatchCase
}

type ListE struct {
	base
	Items []Expr
}

type TupleE struct {
	base
	Items []Expr
}

type RecordField struct {
	Name  string
	Value Expr
}

type RecordE struct {
	base
	Fields []RecordField
}

type RecordAccessE struct {
	base
	Target Expr
	Field  string
}

type RecordUpdateE struct {
	base
	Target Expr
	Fields []RecordField
}

// InterpPart is either literal text or a lowered embedded expression.
type InterpPart struct {
	Text string
	Expr Expr // nil when Text is set
}

type Interp struct {
	base
	Parts []InterpPart
}

// PipeChain is the flattened form of a `a |> f |> g |> ...` chain.
// Stages[0] is the initial value; Stages[1:] are the functions applied
// in order, each sharing PipeID so later stages (e.g. effect-tracking
// in the type checker) can recover that they came from one surface
// pipeline rather than unrelated applications.
type PipeChain struct {
	base
	PipeID int
	Stages []Expr
}

// BlockE carries a surface StructuredBlock through to Kernel mostly
// unchanged (Kernel, not HIR, owns the block-form lowering rules);
// HIR's contribution is lowering every embedded expression and
// pattern-bearing item.
type BlockE struct {
	base
	Kind  ast.BlockKind
	Monad string
	Items []BlockItem
}

type BlockItem struct {
	Kind    ast.BlockItemKind
	Pattern ast.Pattern
	Name    string
	Expr    Expr
}

// NativeCall replaces the body of a `@native "target"` def: calling it
// invokes the named runtime/builtin symbol directly with the def's own
// parameters as arguments, bypassing ordinary evaluation of a body
// expression (there is none).
type NativeCall struct {
	base
	Target string
	Args   []Expr
}

// Def is a lowered top-level binding.
type Def struct {
	Name         string
	Params       []string
	Body         Expr
	DebugFn      bool
	NativeTarget string // "" unless @native
}

// File is the lowered module.
type File struct {
	Module string
	Defs   []*Def
}

// Lowerer assigns fresh NodeIDs and threads resolve output through the
// lowering of one file.
type Lowerer struct {
	next    NodeID
	res     *resolve.Result
	prelude resolve.Prelude
	diags   *diagnostics.Bag
	pipeSeq int
}

// New returns a Lowerer for a file that has already been name-resolved
// by internal/resolve; diagnostics it produces (e.g. rejecting a
// @native decorator without a literal target argument) are appended to
// res.Diags. The target string itself is not checked. prelude may
// be nil; it is only consulted to tag Var nodes as RefPrelude.
func New(res *resolve.Result, prelude resolve.Prelude) *Lowerer {
	return &Lowerer{res: res, prelude: prelude, diags: res.Diags}
}

func (lw *Lowerer) fresh() NodeID {
	lw.next++
	return lw.next
}

// Lower lowers every Def/FuncDecl in file into HIR.
func (lw *Lowerer) Lower(file *ast.File) *File {
	out := &File{}
	if file.Module != nil {
		out.Module = file.Module.Path
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			out.Defs = append(out.Defs, lw.lowerFuncDecl(d))
		case *ast.Def:
			out.Defs = append(out.Defs, lw.lowerDef(d))
		}
	}
	return out
}

func (lw *Lowerer) lowerFuncDecl(d *ast.FuncDecl) *Def {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return &Def{Name: d.Name, Params: names, Body: lw.lowerExpr(d.Body)}
}

func (lw *Lowerer) lowerDef(d *ast.Def) *Def {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	out := &Def{Name: d.Name, Params: names}

	var nativeTarget string
	debugFn := false
	for _, dec := range d.Decorators {
		switch dec.Name {
		case "native":
			nativeTarget = decoratorStringArg(dec)
			if nativeTarget == "" {
				lw.diags.Errorf(spanOf(d.Pos), "E1530", "@native on %s requires a string target argument", d.Name)
			}
		case "debug_fn":
			debugFn = true
		}
	}

	out.DebugFn = debugFn
	if nativeTarget != "" {
		out.NativeTarget = nativeTarget
		args := make([]Expr, len(names))
		for i, n := range names {
			args[i] = &Var{base: base{lw.fresh()}, Name: n, Kind: RefLocal}
		}
		out.Body = &NativeCall{base: base{lw.fresh()}, Target: nativeTarget, Args: args}
		return out
	}

	out.Body = lw.lowerExpr(d.Body)
	return out
}

func decoratorStringArg(dec *ast.Decorator) string {
	lit, ok := dec.Arg.(*ast.Literal)
	if !ok {
		return ""
	}
	if s, ok := lit.Value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", lit.Value)
}

func spanOf(p ast.Pos) ast.Span { return ast.Span{Start: p, End: p} }

func (lw *Lowerer) lowerExpr(e ast.Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Identifier:
		return lw.lowerIdentifier(n)
	case *ast.Literal:
		return &Lit{base: base{lw.fresh()}, Kind: n.Kind, Value: fmt.Sprintf("%v", n.Value)}
	case *ast.BinaryOp:
		return &App{
			base: base{lw.fresh()},
			Fn:   &Var{base: base{lw.fresh()}, Name: n.Op, Kind: RefPrelude},
			Args: []Expr{lw.lowerExpr(n.Left), lw.lowerExpr(n.Right)},
		}
	case *ast.UnaryOp:
		return &App{
			base: base{lw.fresh()},
			Fn:   &Var{base: base{lw.fresh()}, Name: "unary" + n.Op, Kind: RefPrelude},
			Args: []Expr{lw.lowerExpr(n.Operand)},
		}
	case *ast.Lambda:
		return lw.lowerLambdaLike(paramNames(n.Params), n.Body)
	case *ast.FuncLit:
		return lw.lowerLambdaLike(paramNames(n.Params), n.Body)
	case *ast.FuncCall:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = lw.lowerExpr(a)
		}
		return &App{base: base{lw.fresh()}, Fn: lw.lowerExpr(n.Func), Args: args}
	case *ast.Let:
		return &Let{base: base{lw.fresh()}, Name: n.Name, Value: lw.lowerExpr(n.Value), Body: lw.lowerExpr(n.Body)}
	case *ast.LetRec:
		return &Let{base: base{lw.fresh()}, Name: n.Name, Value: lw.lowerExpr(n.Value), Body: lw.lowerExpr(n.Body), Rec: true}
	case *ast.Block:
		return lw.lowerPlainBlockStmts(n)
	case *ast.If:
		return &If{base: base{lw.fresh()}, Cond: lw.lowerExpr(n.Condition), Then: lw.lowerExpr(n.Then), Else: lw.lowerExpr(n.Else)}
	case *ast.Match:
		cases := make([]MatchCase, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = MatchCase{Pattern: c.Pattern, Body: lw.lowerExpr(c.Body)}
		}
		return &MatchE{base: base{lw.fresh()}, Scrutinee: lw.lowerExpr(n.Expr), Cases: cases}
	case *ast.List:
		items := make([]Expr, len(n.Elements))
		for i, it := range n.Elements {
			items[i] = lw.lowerExpr(it)
		}
		return &ListE{base: base{lw.fresh()}, Items: items}
	case *ast.Tuple:
		items := make([]Expr, len(n.Elements))
		for i, it := range n.Elements {
			items[i] = lw.lowerExpr(it)
		}
		return &TupleE{base: base{lw.fresh()}, Items: items}
	case *ast.Record:
		fields := make([]RecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = RecordField{Name: f.Name, Value: lw.lowerExpr(f.Value)}
		}
		return &RecordE{base: base{lw.fresh()}, Fields: fields}
	case *ast.RecordAccess:
		return &RecordAccessE{base: base{lw.fresh()}, Target: lw.lowerExpr(n.Record), Field: n.Field}
	case *ast.RecordUpdate:
		fields := make([]RecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = RecordField{Name: f.Name, Value: lw.lowerExpr(f.Value)}
		}
		return &RecordUpdateE{base: base{lw.fresh()}, Target: lw.lowerExpr(n.Base), Fields: fields}
	case *ast.TextInterpolate:
		parts := make([]InterpPart, len(n.Parts))
		for i, p := range n.Parts {
			if p.Expr != nil {
				parts[i] = InterpPart{Expr: lw.lowerExpr(p.Expr)}
			} else {
				parts[i] = InterpPart{Text: p.Text}
			}
		}
		return &Interp{base: base{lw.fresh()}, Parts: parts}
	case *ast.Pipe:
		return lw.lowerPipe(n)
	case *ast.StructuredBlock:
		return lw.lowerBlock(n)
	case *ast.Patch:
		fields := make([]RecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = RecordField{Name: strings.Join(f.Path, "."), Value: lw.lowerExpr(f.Value)}
		}
		return &RecordUpdateE{base: base{lw.fresh()}, Target: lw.lowerExpr(n.Target), Fields: fields}
	case *ast.Index:
		return &App{
			base: base{lw.fresh()},
			Fn:   &Var{base: base{lw.fresh()}, Name: "__index", Kind: RefPrelude},
			Args: []Expr{lw.lowerExpr(n.Base), lw.lowerExpr(n.Index)},
		}
	case *ast.HTMLSigil:
		args := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			args[i] = lw.lowerExpr(c)
		}
		return &App{
			base: base{lw.fresh()},
			Fn:   &Var{base: base{lw.fresh()}, Name: "__html_" + n.Tag, Kind: RefPrelude},
			Args: args,
		}
	default:
		// Constructs without a dedicated HIR shape (QuasiQuote bodies,
		// Send/Recv, Spread outside a collected literal) are passed
		// through as an opaque literal of their surface text; desugaring
		// them fully is scoped to internal/elaborate's effect-specific
		// handling, not the generic HIR lowering pass.
		return &Lit{base: base{lw.fresh()}, Kind: opaqueLit, Value: e.String()}
	}
}

func paramNames(params []*ast.Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func (lw *Lowerer) lowerLambdaLike(params []string, body ast.Expr) Expr {
	return &Lam{base: base{lw.fresh()}, Params: params, Body: lw.lowerExpr(body)}
}

// lowerPlainBlockStmts lowers the teacher-style `{ e1; e2; ...; en }`
// Block (distinct from a surface StructuredBlock) into a right-nested
// chain of sequencing Lets, the same shape the Kernel Plain-block rule
// produces for a StructuredBlock: only the final expression's value
// escapes the block, earlier ones are evaluated for effect only.
func (lw *Lowerer) lowerPlainBlockStmts(n *ast.Block) Expr {
	if len(n.Exprs) == 0 {
		return &Lit{base: base{lw.fresh()}, Kind: opaqueLit, Value: "()"}
	}
	result := lw.lowerExpr(n.Exprs[len(n.Exprs)-1])
	for i := len(n.Exprs) - 2; i >= 0; i-- {
		lowered := lw.lowerExpr(n.Exprs[i])
		result = &Let{base: base{lw.fresh()}, Name: "_", Value: lowered, Body: result}
	}
	return result
}

func (lw *Lowerer) lowerBlock(n *ast.StructuredBlock) *BlockE {
	items := make([]BlockItem, len(n.Items))
	for i, it := range n.Items {
		items[i] = BlockItem{Kind: it.Kind, Pattern: it.Pattern, Name: it.Name, Expr: lw.lowerExpr(it.Expr)}
	}
	return &BlockE{base: base{lw.fresh()}, Kind: n.Kind, Monad: n.Monad, Items: items}
}

func (lw *Lowerer) lowerPipe(n *ast.Pipe) *PipeChain {
	lw.pipeSeq++
	id := lw.pipeSeq

	var stages []ast.Expr
	var flatten func(e ast.Expr)
	flatten = func(e ast.Expr) {
		if p, ok := e.(*ast.Pipe); ok {
			flatten(p.Left)
			stages = append(stages, p.Right)
			return
		}
		stages = append(stages, e)
	}
	flatten(n)

	lowered := make([]Expr, len(stages))
	for i, s := range stages {
		lowered[i] = lw.lowerExpr(s)
	}
	return &PipeChain{base: base{lw.fresh()}, PipeID: id, Stages: lowered}
}

func (lw *Lowerer) lowerIdentifier(n *ast.Identifier) *Var {
	kind := RefUnresolved
	module := ""
	if lw.res != nil {
		if _, ok := lw.res.Exports[n.Name]; ok {
			kind = RefLocal
		} else if _, ok := lw.prelude[n.Name]; ok {
			kind = RefPrelude
		} else {
			// Resolved but not locally defined: either a `use`-imported
			// name or a builtin without a prelude entry. Either way it
			// is not a dangling reference by this point — resolve.Resolve
			// already rejected those with E3000 before HIR ever runs.
			kind = RefImport
		}
	}
	return &Var{base: base{lw.fresh()}, Name: n.Name, Module: module, Kind: kind}
}

// Dump renders file as indented JSON for the `aivi desugar` CLI
// subcommand and for golden tests, the same role ast.Print plays for
// the surface tree.
func Dump(file *File) string {
	out := map[string]any{"module": file.Module}
	defs := make([]any, len(file.Defs))
	for i, d := range file.Defs {
		defs[i] = dumpDef(d)
	}
	out["defs"] = defs
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}

func dumpDef(d *Def) map[string]any {
	m := map[string]any{
		"name":   d.Name,
		"params": d.Params,
		"body":   dumpExpr(d.Body),
	}
	if d.DebugFn {
		m["debugFn"] = true
	}
	if d.NativeTarget != "" {
		m["nativeTarget"] = d.NativeTarget
	}
	return m
}

func dumpExpr(e Expr) any {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Var:
		return map[string]any{"type": "Var", "name": n.Name, "kind": refKindString(n.Kind)}
	case *Lit:
		return map[string]any{"type": "Lit", "value": n.Value}
	case *App:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExpr(a)
		}
		return map[string]any{"type": "App", "fn": dumpExpr(n.Fn), "args": args}
	case *Lam:
		return map[string]any{"type": "Lam", "params": n.Params, "body": dumpExpr(n.Body)}
	case *Let:
		return map[string]any{"type": "Let", "name": n.Name, "rec": n.Rec, "value": dumpExpr(n.Value), "body": dumpExpr(n.Body)}
	case *If:
		return map[string]any{"type": "If", "cond": dumpExpr(n.Cond), "then": dumpExpr(n.Then), "else": dumpExpr(n.Else)}
	case *MatchE:
		cases := make([]any, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = map[string]any{"pattern": c.Pattern.String(), "body": dumpExpr(c.Body)}
		}
		return map[string]any{"type": "Match", "scrutinee": dumpExpr(n.Scrutinee), "cases": cases}
	case *ListE:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = dumpExpr(it)
		}
		return map[string]any{"type": "List", "items": items}
	case *TupleE:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = dumpExpr(it)
		}
		return map[string]any{"type": "Tuple", "items": items}
	case *RecordE:
		return map[string]any{"type": "Record", "fields": dumpFields(n.Fields)}
	case *RecordAccessE:
		return map[string]any{"type": "RecordAccess", "target": dumpExpr(n.Target), "field": n.Field}
	case *RecordUpdateE:
		return map[string]any{"type": "RecordUpdate", "target": dumpExpr(n.Target), "fields": dumpFields(n.Fields)}
	case *Interp:
		parts := make([]any, len(n.Parts))
		for i, p := range n.Parts {
			if p.Expr != nil {
				parts[i] = map[string]any{"expr": dumpExpr(p.Expr)}
			} else {
				parts[i] = map[string]any{"text": p.Text}
			}
		}
		return map[string]any{"type": "Interp", "parts": parts}
	case *PipeChain:
		stages := make([]any, len(n.Stages))
		for i, s := range n.Stages {
			stages[i] = dumpExpr(s)
		}
		return map[string]any{"type": "PipeChain", "pipeId": n.PipeID, "stages": stages}
	case *BlockE:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = map[string]any{"kind": int(it.Kind), "name": it.Name, "expr": dumpExpr(it.Expr)}
		}
		return map[string]any{"type": "Block", "kind": int(n.Kind), "monad": n.Monad, "items": items}
	case *NativeCall:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExpr(a)
		}
		return map[string]any{"type": "NativeCall", "target": n.Target, "args": args}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", e)}
	}
}

func dumpFields(fields []RecordField) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{"name": f.Name, "value": dumpExpr(f.Value)}
	}
	return out
}

func refKindString(k RefKind) string {
	switch k {
	case RefLocal:
		return "local"
	case RefImport:
		return "import"
	case RefPrelude:
		return "prelude"
	default:
		return "unresolved"
	}
}
