// Package kernel lowers HIR into Kernel IR: a minimalist lambda calculus
// (spec section 3.5/4.5). This is where every structured block form
// (Plain, Do, Resource, Generate) disappears — the four desugaring
// rules below are mechanical rewrites, independent of the type
// checker, so Kernel lowering can run immediately after internal/hir
// without waiting on inference.
package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/hir"
)

// Expr is a lowered Kernel node.
type Expr interface {
	kernelExpr()
}

type Var struct{ Name string }

type Lit struct {
	Kind  ast.LiteralKind
	Value string
}

// Lam is always unary; multi-param HIR lambdas are curried into nested
// Lams, matching Kernel's "App"/"Call" split (Call is n-ary sugar, the
// curried Lam/App chain is what's actually evaluated).
type Lam struct {
	Param string
	Body  Expr
}

// App is binary application: `f x`.
type App struct {
	Fn  Expr
	Arg Expr
}

// Call is n-ary application sugar over a curried chain of App nodes;
// kept as its own node (rather than always exploding to App) so the
// interpreter can dispatch saturated builtins/closures in one step.
type Call struct {
	Fn   Expr
	Args []Expr
}

type DebugFn struct {
	Name string
	Body Expr
}

type Pipe struct {
	PipeID int
	Stages []Expr
}

type ListE struct {
	Items  []Expr
	Spread Expr // non-nil for `[...xs, a, b]` style trailing/leading spread
}

type TupleE struct{ Items []Expr }

type RecordField struct {
	Name  string
	Value Expr
}

type RecordE struct {
	Fields []RecordField
	Spread Expr
}

// Patch is a nested record update: `r.{ a.b = v, c = w }`.
type Patch struct {
	Target Expr
	Fields []RecordField
}

type FieldAccess struct {
	Target Expr
	Field  string
}

type Index struct {
	Base  Expr
	Index Expr
}

type MatchCase struct {
	Pattern ast.Pattern
	Body    Expr
}

type Match struct {
	Scrutinee Expr
	Cases     []MatchCase
}

type If struct {
	Cond, Then, Else Expr
}

type Binary struct {
	Op          string
	Left, Right Expr
}

// Raw carries source text through unevaluated (raw escapes in the
// surface grammar) — Kernel does not interpret it further.
type Raw struct{ Text string }

// Mock is a scoped substitution block: while Body evaluates, every
// name in Subs resolves to its replacement instead of its normal
// binding.
type Mock struct {
	Subs map[string]Expr
	Body Expr
}

func (Var) kernelExpr()         {}
func (Lit) kernelExpr()         {}
func (Lam) kernelExpr()         {}
func (App) kernelExpr()         {}
func (Call) kernelExpr()        {}
func (DebugFn) kernelExpr()     {}
func (Pipe) kernelExpr()        {}
func (ListE) kernelExpr()       {}
func (TupleE) kernelExpr()      {}
func (RecordE) kernelExpr()     {}
func (Patch) kernelExpr()       {}
func (FieldAccess) kernelExpr() {}
func (Index) kernelExpr()       {}
func (Match) kernelExpr()       {}
func (If) kernelExpr()          {}
func (Binary) kernelExpr()      {}
func (Raw) kernelExpr()         {}
func (Mock) kernelExpr()        {}

// Def is a lowered top-level binding; Params have already been curried
// into nested Lams in Body by lowerDef, matching Kernel's treatment of
// every function as a one-argument lambda chain.
type Def struct {
	Name string
	Body Expr
}

type File struct {
	Module string
	Defs   []*Def
}

// Lower desugars every block form in file and returns the Kernel module.
func Lower(file *hir.File) *File {
	out := &File{Module: file.Module}
	for _, d := range file.Defs {
		out.Defs = append(out.Defs, lowerDef(d))
	}
	return out
}

func lowerDef(d *hir.Def) *Def {
	body := lowerExpr(d.Body)
	for i := len(d.Params) - 1; i >= 0; i-- {
		body = Lam{Param: d.Params[i], Body: body}
	}
	if d.DebugFn {
		body = DebugFn{Name: d.Name, Body: body}
	}
	return &Def{Name: d.Name, Body: body}
}

func lowerExpr(e hir.Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *hir.Var:
		return Var{Name: n.Name}
	case *hir.Lit:
		return Lit{Kind: n.Kind, Value: n.Value}
	case *hir.App:
		return curryCall(lowerExpr(n.Fn), lowerArgs(n.Args))
	case *hir.Lam:
		body := lowerExpr(n.Body)
		for i := len(n.Params) - 1; i >= 0; i-- {
			body = Lam{Param: n.Params[i], Body: body}
		}
		return body
	case *hir.Let:
		// Rec lets desugar to the same (λp.body) value application shape;
		// a true fixpoint combinator is only needed once the type
		// checker distinguishes recursive bindings requiring it, which
		// Kernel itself does not decide.
		return App{Fn: Lam{Param: n.Name, Body: lowerExpr(n.Body)}, Arg: lowerExpr(n.Value)}
	case *hir.If:
		return If{Cond: lowerExpr(n.Cond), Then: lowerExpr(n.Then), Else: lowerExpr(n.Else)}
	case *hir.MatchE:
		cases := make([]MatchCase, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = MatchCase{Pattern: c.Pattern, Body: lowerExpr(c.Body)}
		}
		return Match{Scrutinee: lowerExpr(n.Scrutinee), Cases: cases}
	case *hir.ListE:
		return ListE{Items: lowerArgs(n.Items)}
	case *hir.TupleE:
		return TupleE{Items: lowerArgs(n.Items)}
	case *hir.RecordE:
		return RecordE{Fields: lowerFields(n.Fields)}
	case *hir.RecordAccessE:
		return FieldAccess{Target: lowerExpr(n.Target), Field: n.Field}
	case *hir.RecordUpdateE:
		return Patch{Target: lowerExpr(n.Target), Fields: lowerFields(n.Fields)}
	case *hir.Interp:
		return lowerInterp(n)
	case *hir.PipeChain:
		stages := make([]Expr, len(n.Stages))
		for i, s := range n.Stages {
			stages[i] = lowerExpr(s)
		}
		return Pipe{PipeID: n.PipeID, Stages: stages}
	case *hir.NativeCall:
		return Call{Fn: Var{Name: "__native_" + n.Target}, Args: lowerArgs(n.Args)}
	case *hir.BlockE:
		return lowerBlock(n)
	default:
		return Raw{Text: fmt.Sprintf("%v", e)}
	}
}

func lowerArgs(args []hir.Expr) []Expr {
	out := make([]Expr, len(args))
	for i, a := range args {
		out[i] = lowerExpr(a)
	}
	return out
}

func lowerFields(fields []hir.RecordField) []RecordField {
	out := make([]RecordField, len(fields))
	for i, f := range fields {
		out[i] = RecordField{Name: f.Name, Value: lowerExpr(f.Value)}
	}
	return out
}

// curryCall builds an n-ary Call when fn is a plain callee, matching
// Kernel's Call node rather than exploding into binary App chains; this
// keeps operator applications (which HIR already represents as an App
// of a two-arg operator Var) legible as a single saturated call.
func curryCall(fn Expr, args []Expr) Expr {
	if len(args) == 0 {
		return fn
	}
	if v, ok := fn.(Var); ok && isOperator(v.Name) && len(args) == 2 {
		return Binary{Op: v.Name, Left: args[0], Right: args[1]}
	}
	return Call{Fn: fn, Args: args}
}

func isOperator(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "×", "==", "!=", "<", "<=", ">", ">=", "&&", "||":
		return true
	}
	return false
}

// lowerInterp desugars `"a{x}b"` into a left-fold of `++` over text
// chunks and `toText`-coerced expression chunks — Kernel has no
// dedicated interpolation node, so it collapses to the same Binary
// chain a hand-written string concatenation would produce.
func lowerInterp(n *hir.Interp) Expr {
	var acc Expr
	for _, p := range n.Parts {
		var part Expr
		if p.Expr != nil {
			part = Call{Fn: Var{Name: "toText"}, Args: []Expr{lowerExpr(p.Expr)}}
		} else {
			part = Lit{Kind: ast.StringLit, Value: p.Text}
		}
		if acc == nil {
			acc = part
			continue
		}
		acc = Binary{Op: "++", Left: acc, Right: part}
	}
	if acc == nil {
		return Lit{Kind: ast.StringLit, Value: ""}
	}
	return acc
}

func lowerBlock(b *hir.BlockE) Expr {
	switch b.Kind {
	case ast.PlainBlock:
		return lowerPlainBlock(b.Items)
	case ast.DoBlock:
		return wrapResourceScope(lowerDoChain(b.Items))
	case ast.ResourceBlock:
		return lowerResourceBlock(b.Items)
	case ast.GenerateBlock:
		return lowerGenerateBlock(b.Items)
	default:
		return lowerPlainBlock(b.Items)
	}
}

// lowerPlainBlock implements `{ p = e1; e2 }` -> `(λp.e2) e1`, right
// to left, using Match desugaring whenever a binder's pattern is not a
// bare identifier.
func lowerPlainBlock(items []hir.BlockItem) Expr {
	if len(items) == 0 {
		return Lit{Kind: ast.UnitLit, Value: "()"}
	}
	last := items[len(items)-1]
	result := last.Expr
	if result == nil {
		result = Lit{Kind: ast.UnitLit, Value: "()"}
	} else {
		result = lowerExpr(result)
	}
	for i := len(items) - 2; i >= 0; i-- {
		it := items[i]
		value := lowerExpr(it.Expr)
		result = bindPlain(it, value, result)
	}
	return result
}

func bindPlain(it hir.BlockItem, value, rest Expr) Expr {
	if it.Pattern == nil || isIdentPattern(it.Pattern) {
		name := it.Name
		if name == "" {
			name = patternName(it.Pattern)
		}
		if name == "" {
			name = "_"
		}
		return App{Fn: Lam{Param: name, Body: rest}, Arg: value}
	}
	scrutVar := "__scrut"
	return App{
		Fn: Lam{
			Param: scrutVar,
			Body: Match{
				Scrutinee: Var{Name: scrutVar},
				Cases:     []MatchCase{{Pattern: it.Pattern, Body: rest}},
			},
		},
		Arg: value,
	}
}

func isIdentPattern(p ast.Pattern) bool {
	_, ok := p.(*ast.Identifier)
	return ok
}

func patternName(p ast.Pattern) string {
	if id, ok := p.(*ast.Identifier); ok {
		return id.Name
	}
	return ""
}

// lowerDoChain implements the `do Effect { ... }` bind chain: every
// item but the last threads into the next via `bind`/bare application;
// a final `yield e` becomes `pure e`, a final `recurse e` stays a bare
// tail call.
func lowerDoChain(items []hir.BlockItem) Expr {
	if len(items) == 0 {
		return Call{Fn: Var{Name: "pure"}, Args: []Expr{Lit{Kind: ast.UnitLit, Value: "()"}}}
	}
	last := items[len(items)-1]
	var result Expr
	switch last.Kind {
	case ast.ItemYield:
		result = Call{Fn: Var{Name: "pure"}, Args: []Expr{lowerExpr(last.Expr)}}
	case ast.ItemRecurse:
		result = lowerExpr(last.Expr)
	default:
		result = doStep(last, Call{Fn: Var{Name: "pure"}, Args: []Expr{Lit{Kind: ast.UnitLit, Value: "()"}}})
	}
	for i := len(items) - 2; i >= 0; i-- {
		result = doStep(items[i], result)
	}
	return result
}

// doStep binds one block item in front of rest.
func doStep(it hir.BlockItem, rest Expr) Expr {
	switch it.Kind {
	case ast.ItemBind:
		name := it.Name
		if name == "" {
			name = "__bind"
		}
		return Call{Fn: Var{Name: "bind"}, Args: []Expr{lowerExpr(it.Expr), Lam{Param: name, Body: rest}}}
	case ast.ItemLet:
		// Non-monadic let: pre-wrapped in `pure` per the bind-chain rule,
		// so it threads through `bind` exactly like ItemBind.
		name := it.Name
		if name == "" {
			name = "__let"
		}
		pureVal := Call{Fn: Var{Name: "pure"}, Args: []Expr{lowerExpr(it.Expr)}}
		return Call{Fn: Var{Name: "bind"}, Args: []Expr{pureVal, Lam{Param: name, Body: rest}}}
	case ast.ItemExpr:
		return Call{Fn: Var{Name: "bind"}, Args: []Expr{lowerExpr(it.Expr), Lam{Param: "_", Body: rest}}}
	case ast.ItemWhen:
		return If{Cond: lowerExpr(it.Expr), Then: rest, Else: Call{Fn: Var{Name: "pure"}, Args: []Expr{Lit{Kind: ast.UnitLit, Value: "()"}}}}
	case ast.ItemUnless:
		return If{Cond: lowerExpr(it.Expr), Then: Call{Fn: Var{Name: "pure"}, Args: []Expr{Lit{Kind: ast.UnitLit, Value: "()"}}}, Else: rest}
	case ast.ItemGiven, ast.ItemOn:
		// Effect-handler installation: scope rest under the named
		// handler rather than a plain bind; left as a direct call to a
		// runtime helper since handler dispatch belongs to
		// internal/effects, not Kernel's generic desugaring.
		return Call{Fn: Var{Name: "__withHandler"}, Args: []Expr{lowerExpr(it.Expr), Lam{Param: "_", Body: rest}}}
	default:
		return Call{Fn: Var{Name: "bind"}, Args: []Expr{lowerExpr(it.Expr), Lam{Param: "_", Body: rest}}}
	}
}

func wrapResourceScope(chain Expr) Expr {
	return Call{Fn: Var{Name: "__withResourceScope"}, Args: []Expr{Lam{Param: "_", Body: chain}}}
}

// lowerResourceBlock splits items at the first `yield`: everything
// before it is the acquire effect (ending in that yielded value),
// everything after is the cleanup effect.
func lowerResourceBlock(items []hir.BlockItem) Expr {
	split := len(items)
	for i, it := range items {
		if it.Kind == ast.ItemYield {
			split = i
			break
		}
	}
	var acquireItems, cleanupItems []hir.BlockItem
	if split < len(items) {
		acquireItems = append(append([]hir.BlockItem{}, items[:split]...), items[split])
		cleanupItems = items[split+1:]
	} else {
		acquireItems = items
	}
	acquire := lowerDoChain(acquireItems)
	cleanup := lowerDoChain(cleanupItems)
	return Call{
		Fn:   Var{Name: "__makeResource"},
		Args: []Expr{Lam{Param: "_", Body: acquire}, Lam{Param: "_", Body: cleanup}},
	}
}

// lowerGenerateBlock Church-encodes a generate block right-to-left:
// empty = λk.λz.z; yield x = λk.λz. k z x; append g1 g2 = λk.λz. g2 k
// (g1 k z); filter cond next = λk.λz. if cond then next k z else z.
func lowerGenerateBlock(items []hir.BlockItem) Expr {
	acc := churchEmpty()
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		switch it.Kind {
		case ast.ItemYield:
			acc = churchAppend(churchYield(lowerExpr(it.Expr)), acc)
		case ast.ItemFilter:
			acc = churchFilter(lowerExpr(it.Expr), acc)
		case ast.ItemBind:
			name := it.Name
			if name == "" {
				name = "__genx"
			}
			src := Call{Fn: Var{Name: "__asGenerator"}, Args: []Expr{lowerExpr(it.Expr)}}
			acc = Call{Fn: Var{Name: "bind"}, Args: []Expr{src, Lam{Param: name, Body: acc}}}
		case ast.ItemRecurse:
			acc = churchAppend(lowerExpr(it.Expr), acc)
		default:
			acc = churchAppend(lowerExpr(it.Expr), acc)
		}
	}
	return acc
}

func churchEmpty() Expr {
	return Lam{Param: "k", Body: Lam{Param: "z", Body: Var{Name: "z"}}}
}

func churchYield(x Expr) Expr {
	return Lam{Param: "k", Body: Lam{Param: "z", Body: Call{Fn: Var{Name: "k"}, Args: []Expr{Var{Name: "z"}, x}}}}
}

func churchAppend(g1, g2 Expr) Expr {
	return Lam{
		Param: "k",
		Body: Lam{
			Param: "z",
			Body: Call{
				Fn: g2,
				Args: []Expr{
					Var{Name: "k"},
					Call{Fn: g1, Args: []Expr{Var{Name: "k"}, Var{Name: "z"}}},
				},
			},
		},
	}
}

func churchFilter(cond, next Expr) Expr {
	return Lam{
		Param: "k",
		Body: Lam{
			Param: "z",
			Body: If{
				Cond: cond,
				Then: Call{Fn: next, Args: []Expr{Var{Name: "k"}, Var{Name: "z"}}},
				Else: Var{Name: "z"},
			},
		},
	}
}

// Dump renders file as indented JSON for the `aivi kernel` CLI
// subcommand, the same role hir.Dump plays one stage earlier.
func Dump(file *File) string {
	out := map[string]any{"module": file.Module}
	defs := make([]any, len(file.Defs))
	for i, d := range file.Defs {
		defs[i] = map[string]any{"name": d.Name, "body": dumpExpr(d.Body)}
	}
	out["defs"] = defs
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}

func dumpExpr(e Expr) any {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case Var:
		return map[string]any{"type": "Var", "name": n.Name}
	case Lit:
		return map[string]any{"type": "Lit", "value": n.Value}
	case Lam:
		return map[string]any{"type": "Lam", "param": n.Param, "body": dumpExpr(n.Body)}
	case App:
		return map[string]any{"type": "App", "fn": dumpExpr(n.Fn), "arg": dumpExpr(n.Arg)}
	case Call:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExpr(a)
		}
		return map[string]any{"type": "Call", "fn": dumpExpr(n.Fn), "args": args}
	case DebugFn:
		return map[string]any{"type": "DebugFn", "name": n.Name, "body": dumpExpr(n.Body)}
	case Pipe:
		stages := make([]any, len(n.Stages))
		for i, s := range n.Stages {
			stages[i] = dumpExpr(s)
		}
		return map[string]any{"type": "Pipe", "pipeId": n.PipeID, "stages": stages}
	case ListE:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = dumpExpr(it)
		}
		return map[string]any{"type": "List", "items": items}
	case TupleE:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = dumpExpr(it)
		}
		return map[string]any{"type": "Tuple", "items": items}
	case RecordE:
		return map[string]any{"type": "Record", "fields": dumpKernelFields(n.Fields)}
	case Patch:
		return map[string]any{"type": "Patch", "target": dumpExpr(n.Target), "fields": dumpKernelFields(n.Fields)}
	case FieldAccess:
		return map[string]any{"type": "FieldAccess", "target": dumpExpr(n.Target), "field": n.Field}
	case Index:
		return map[string]any{"type": "Index", "base": dumpExpr(n.Base), "index": dumpExpr(n.Index)}
	case Match:
		cases := make([]any, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = map[string]any{"pattern": c.Pattern.String(), "body": dumpExpr(c.Body)}
		}
		return map[string]any{"type": "Match", "scrutinee": dumpExpr(n.Scrutinee), "cases": cases}
	case If:
		return map[string]any{"type": "If", "cond": dumpExpr(n.Cond), "then": dumpExpr(n.Then), "else": dumpExpr(n.Else)}
	case Binary:
		return map[string]any{"type": "Binary", "op": n.Op, "left": dumpExpr(n.Left), "right": dumpExpr(n.Right)}
	case Raw:
		return map[string]any{"type": "Raw", "text": n.Text}
	case Mock:
		return map[string]any{"type": "Mock", "body": dumpExpr(n.Body)}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", e)}
	}
}

func dumpKernelFields(fields []RecordField) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{"name": f.Name, "value": dumpExpr(f.Value)}
	}
	return out
}
