package rustir

import (
	"encoding/json"
	"fmt"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/kernel"
)

// Expr is a RustIR node: every Kernel shape carries over unchanged
// (Var, Lit, Lam, App, Call, ListE, TupleE, RecordE, Patch,
// FieldAccess, Index, Match, If, Binary, Pipe, DebugFn, Raw, Mock)
// except that the four block forms Kernel collapsed into lambda
// applications, bind chains, and Church encodings are pattern-matched
// back into a Block node carrying its original BlockKind — the same
// "block kinds reinstated" trade the native Rust backend's RustIR
// makes, so later passes can emit a direct loop/resource-scope instead
// of re-discovering it from nested closures.
type Expr interface {
	rustirExpr()
}

type Var struct{ Name string }
type Lit struct {
	Kind  ast.LiteralKind
	Value string
}
type Lam struct {
	Param string
	Body  Expr
}
type App struct {
	Fn  Expr
	Arg Expr
}
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
	Spread Expr
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
type If struct{ Cond, Then, Else Expr }
type Binary struct {
	Op          string
	Left, Right Expr
}
type Raw struct{ Text string }
type Mock struct {
	Subs map[string]Expr
	Body Expr
}

// BlockKind mirrors ast.BlockKind/hir.BlockE's four forms, reinstated
// after Kernel lowering erased them.
type BlockKind int

const (
	PlainBlock BlockKind = iota
	EffectBlock
	ResourceBlock
	GenerateBlock
)

func (k BlockKind) String() string {
	switch k {
	case PlainBlock:
		return "Plain"
	case EffectBlock:
		return "Effect"
	case ResourceBlock:
		return "Resource"
	case GenerateBlock:
		return "Generate"
	default:
		return "Unknown"
	}
}

// BlockItem is one statement of a reinstated block. Exactly one of
// Bind/Yield is meaningful per ItemKind; Expr is always present except
// for a bare pattern-only bind (never produced by this lowering).
type ItemKind int

const (
	ItemBind ItemKind = iota
	ItemExprStmt
	ItemYield
)

type BlockItem struct {
	Kind    ItemKind
	Name    string
	Pattern ast.Pattern
	Expr    Expr
}

// Block is the reinstated block node: Plain/Effect/Resource blocks
// recognized from their Kernel desugaring, carrying the original item
// sequence back instead of the nested Lam/App/Call chain.
type Block struct {
	Kind  BlockKind
	Items []BlockItem
	// Cleanup holds a Resource block's second (cleanup) item chain;
	// nil for every other kind.
	Cleanup []BlockItem
}

func (Var) rustirExpr()         {}
func (Lit) rustirExpr()         {}
func (Lam) rustirExpr()         {}
func (App) rustirExpr()         {}
func (Call) rustirExpr()        {}
func (DebugFn) rustirExpr()     {}
func (Pipe) rustirExpr()        {}
func (ListE) rustirExpr()       {}
func (TupleE) rustirExpr()      {}
func (RecordE) rustirExpr()     {}
func (Patch) rustirExpr()       {}
func (FieldAccess) rustirExpr() {}
func (Index) rustirExpr()       {}
func (Match) rustirExpr()       {}
func (If) rustirExpr()          {}
func (Binary) rustirExpr()      {}
func (Raw) rustirExpr()         {}
func (Mock) rustirExpr()        {}
func (Block) rustirExpr()       {}

// Def is a RustIR definition: Body plus an optional CgType (spec
// section 3.6). Type is Dynamic{} until a TypeHints entry supplies a
// concrete one, rather than nil, so every later pass can call
// IsClosed/Suffix without a nil check.
type Def struct {
	Name string
	Body Expr
	Type CgType
}

type File struct {
	Module string
	Defs   []*Def
}

// TypeHints is the type checker's per-def concrete type, keyed by def
// name — a single resolved type per def, for defs the checker already
// settled on one instantiation for. internal/monomorphize's Plan is
// the multi-valued version of this (name -> every observed call-site
// instantiation) that feeds actual specialization/cloning; a def
// absent from TypeHints lowers with CgType Dynamic{}.
type TypeHints map[string]CgType

// Lower translates Kernel IR into RustIR, reinstating block kinds and
// attaching each def's CgType from hints (Dynamic{} if absent).
func Lower(file *kernel.File, hints TypeHints) *File {
	out := &File{Module: file.Module}
	for _, d := range file.Defs {
		typ, ok := hints[d.Name]
		if !ok || typ == nil {
			typ = Dynamic{}
		}
		out.Defs = append(out.Defs, &Def{Name: d.Name, Body: lowerExpr(d.Body), Type: typ})
	}
	return out
}

func lowerExpr(e kernel.Expr) Expr {
	if reinstated := tryReinstateBlock(e); reinstated != nil {
		return reinstated
	}
	switch n := e.(type) {
	case nil:
		return nil
	case kernel.Var:
		return Var{Name: n.Name}
	case kernel.Lit:
		return Lit{Kind: n.Kind, Value: n.Value}
	case kernel.Lam:
		return Lam{Param: n.Param, Body: lowerExpr(n.Body)}
	case kernel.App:
		return App{Fn: lowerExpr(n.Fn), Arg: lowerExpr(n.Arg)}
	case kernel.Call:
		return Call{Fn: lowerExpr(n.Fn), Args: lowerExprs(n.Args)}
	case kernel.DebugFn:
		return DebugFn{Name: n.Name, Body: lowerExpr(n.Body)}
	case kernel.Pipe:
		return Pipe{PipeID: n.PipeID, Stages: lowerExprs(n.Stages)}
	case kernel.ListE:
		return ListE{Items: lowerExprs(n.Items), Spread: lowerExpr(n.Spread)}
	case kernel.TupleE:
		return TupleE{Items: lowerExprs(n.Items)}
	case kernel.RecordE:
		return RecordE{Fields: lowerFields(n.Fields), Spread: lowerExpr(n.Spread)}
	case kernel.Patch:
		return Patch{Target: lowerExpr(n.Target), Fields: lowerFields(n.Fields)}
	case kernel.FieldAccess:
		return FieldAccess{Target: lowerExpr(n.Target), Field: n.Field}
	case kernel.Index:
		return Index{Base: lowerExpr(n.Base), Index: lowerExpr(n.Index)}
	case kernel.Match:
		cases := make([]MatchCase, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = MatchCase{Pattern: c.Pattern, Body: lowerExpr(c.Body)}
		}
		return Match{Scrutinee: lowerExpr(n.Scrutinee), Cases: cases}
	case kernel.If:
		return If{Cond: lowerExpr(n.Cond), Then: lowerExpr(n.Then), Else: lowerExpr(n.Else)}
	case kernel.Binary:
		return Binary{Op: n.Op, Left: lowerExpr(n.Left), Right: lowerExpr(n.Right)}
	case kernel.Raw:
		return Raw{Text: n.Text}
	case kernel.Mock:
		subs := make(map[string]Expr, len(n.Subs))
		for k, v := range n.Subs {
			subs[k] = lowerExpr(v)
		}
		return Mock{Subs: subs, Body: lowerExpr(n.Body)}
	default:
		return Raw{Text: fmt.Sprintf("%v", e)}
	}
}

func lowerExprs(in []kernel.Expr) []Expr {
	out := make([]Expr, len(in))
	for i, e := range in {
		out[i] = lowerExpr(e)
	}
	return out
}

func lowerFields(in []kernel.RecordField) []RecordField {
	out := make([]RecordField, len(in))
	for i, f := range in {
		out[i] = RecordField{Name: f.Name, Value: lowerExpr(f.Value)}
	}
	return out
}

// tryReinstateBlock recognizes the three Kernel desugarings this
// package can unambiguously invert (Plain's (λp.rest) value chain,
// `do`'s __withResourceScope-wrapped bind chain, and
// __makeResource(acquire, cleanup)) and rebuilds a Block node.
// Generate blocks' Church encoding is deliberately left un-reinstated:
// an `empty`/`yield`/`append`/`filter` lambda shape is structurally
// indistinguishable from a hand-written higher-order function once
// bound to those names, so recovering it reliably needs the type
// checker's scrutinee types, not available at this stage (see
// DESIGN.md).
func tryReinstateBlock(e kernel.Expr) Expr {
	if call, ok := e.(kernel.Call); ok {
		if v, ok := call.Fn.(kernel.Var); ok {
			switch v.Name {
			case "__withResourceScope":
				if len(call.Args) == 1 {
					if lam, ok := call.Args[0].(kernel.Lam); ok {
						items := reinstateDoChain(lam.Body)
						return Block{Kind: EffectBlock, Items: items}
					}
				}
			case "__makeResource":
				if len(call.Args) == 2 {
					acquireLam, ok1 := call.Args[0].(kernel.Lam)
					cleanupLam, ok2 := call.Args[1].(kernel.Lam)
					if ok1 && ok2 {
						return Block{
							Kind:    ResourceBlock,
							Items:   reinstateDoChain(acquireLam.Body),
							Cleanup: reinstateDoChain(cleanupLam.Body),
						}
					}
				}
			}
		}
	}
	if app, ok := e.(kernel.App); ok {
		if lam, ok := app.Fn.(kernel.Lam); ok {
			value := lowerExpr(app.Arg)
			rest := lowerExpr(lam.Body)
			items := []BlockItem{{Kind: ItemBind, Name: lam.Param, Expr: value}}
			items = append(items, plainTail(rest)...)
			return Block{Kind: PlainBlock, Items: items}
		}
	}
	return nil
}

// plainTail flattens a right-nested chain of reinstated Plain blocks
// into one flat item list, so `{a=1;b=2;c}` round-trips to three
// items rather than a Block nested inside a Block.
func plainTail(rest Expr) []BlockItem {
	if b, ok := rest.(Block); ok && b.Kind == PlainBlock {
		return b.Items
	}
	return []BlockItem{{Kind: ItemExprStmt, Expr: rest}}
}

// reinstateDoChain walks a Kernel `bind`/`pure` chain back into a flat
// Effect-block item list, terminating at a bare `pure e` (-> Yield) or
// any other tail expression (-> a final non-monadic statement).
func reinstateDoChain(e kernel.Expr) []BlockItem {
	if call, ok := e.(kernel.Call); ok {
		if v, ok := call.Fn.(kernel.Var); ok {
			switch v.Name {
			case "bind":
				if len(call.Args) == 2 {
					if lam, ok := call.Args[1].(kernel.Lam); ok {
						head := BlockItem{Kind: ItemBind, Name: lam.Param, Expr: lowerExpr(call.Args[0])}
						return append([]BlockItem{head}, reinstateDoChain(lam.Body)...)
					}
				}
			case "pure":
				if len(call.Args) == 1 {
					return []BlockItem{{Kind: ItemYield, Expr: lowerExpr(call.Args[0])}}
				}
			}
		}
	}
	return []BlockItem{{Kind: ItemExprStmt, Expr: lowerExpr(e)}}
}

// Dump renders file as indented JSON for debugging/golden tests, the
// same role kernel.Dump and hir.Dump play at the earlier stages.
func Dump(file *File) string {
	out := map[string]any{"module": file.Module}
	defs := make([]any, len(file.Defs))
	for i, d := range file.Defs {
		defs[i] = map[string]any{"name": d.Name, "type": d.Type.String(), "body": dumpExpr(d.Body)}
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
		return map[string]any{"type": "Record", "fields": dumpRecordFields(n.Fields)}
	case Patch:
		return map[string]any{"type": "Patch", "target": dumpExpr(n.Target), "fields": dumpRecordFields(n.Fields)}
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
	case Block:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = dumpBlockItem(it)
		}
		result := map[string]any{"type": "Block", "kind": n.Kind.String(), "items": items}
		if n.Cleanup != nil {
			cleanup := make([]any, len(n.Cleanup))
			for i, it := range n.Cleanup {
				cleanup[i] = dumpBlockItem(it)
			}
			result["cleanup"] = cleanup
		}
		return result
	default:
		return map[string]any{"type": fmt.Sprintf("%T", e)}
	}
}

func dumpBlockItem(it BlockItem) any {
	kind := "expr"
	switch it.Kind {
	case ItemBind:
		kind = "bind"
	case ItemYield:
		kind = "yield"
	}
	return map[string]any{"kind": kind, "name": it.Name, "expr": dumpExpr(it.Expr)}
}

func dumpRecordFields(fields []RecordField) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{"name": f.Name, "value": dumpExpr(f.Value)}
	}
	return out
}
