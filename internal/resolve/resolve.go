package resolve

import (
	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/diagnostics"
)

// ModuleExports is the export surface of one already-resolved module:
// every name it binds at top level. The loader (internal/module,
// internal/loader) populates this from a module's own resolved Result
// before a dependent module is resolved, the same dependency order the
// teacher's internal/link topologically sorts modules into.
type ModuleExports map[string]Binding

// Prelude is the implicit scope every module starts from unless it
// carries `@no_prelude` (§4.3). Populated once by the runtime from the
// embedded stdlib's resolved exports; resolve itself only consumes it.
type Prelude map[string]Binding

// Result is the output of resolving one file: its top-level scope
// (for building this module's entry in the caller's export map) and
// any diagnostics raised along the way.
type Result struct {
	ModuleName string
	Exports    ModuleExports
	Diags      *diagnostics.Bag
}

// Resolver resolves one *ast.File against the exports of its
// dependencies and the prelude.
type Resolver struct {
	diags   *diagnostics.Bag
	prelude Prelude
}

// New creates a Resolver. prelude may be nil to resolve without an
// implicit scope (used for the prelude module itself).
func New(prelude Prelude) *Resolver {
	return &Resolver{diags: diagnostics.NewBag(), prelude: prelude}
}

// Resolve builds the module scope for file and walks every
// declaration, returning the module's own export table plus
// diagnostics. deps maps each `use`d module path to its resolved
// exports.
func (r *Resolver) Resolve(file *ast.File, deps map[string]ModuleExports) *Result {
	noPrelude := hasDecorator(file, "no_prelude")

	top := NewScope(nil)
	if !noPrelude {
		for _, b := range r.prelude {
			bind := b
			top.Define(&bind)
		}
	}

	useClauses := collectUseClauses(file)
	for _, use := range useClauses {
		exports, ok := deps[use.Module]
		if !ok {
			r.diags.Errorf(spanAt(use.Pos), diagnostics.EUnknownImport,
				"unknown module %q in use clause", use.Module)
			continue
		}
		names := use.Names
		if use.Wildcard {
			names = names[:0]
			for n := range exports {
				names = append(names, n)
			}
		}
		for _, n := range names {
			b, ok := exports[n]
			if !ok {
				r.diags.Errorf(spanAt(use.Pos), diagnostics.EUnknownImport,
					"module %q has no export named %q", use.Module, n)
				continue
			}
			b.Module = use.Module
			top.Define(&b)
		}
	}

	exports := make(ModuleExports)
	r.defineLocals(file, top, exports)

	for _, decl := range file.Decls {
		r.resolveDecl(decl, top)
	}

	for _, use := range useClauses {
		if use.Wildcard {
			continue
		}
		for _, n := range use.Names {
			if b, ok := top.Lookup(n); ok && b.Module == use.Module && !b.Used {
				r.diags.Warnf(spanAt(use.Pos), diagnostics.WUnusedImport,
					"imported name %q from %q is never used", n, use.Module)
			}
		}
	}

	modName := ""
	if file.Module != nil {
		modName = file.Module.Path
	}
	return &Result{ModuleName: modName, Exports: exports, Diags: r.diags}
}

// defineLocals makes one pass over top-level declarations entering
// every name a module exports into top (and exports), before walking
// any bodies — so forward references and mutual recursion between
// top-level defs resolve regardless of declaration order.
func (r *Resolver) defineLocals(file *ast.File, top *Scope, exports ModuleExports) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			b := Binding{Name: d.Name, Kind: KindValue, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
		case *ast.Def:
			b := Binding{Name: d.Name, Kind: KindValue, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
		case *ast.TypeSig:
			// A bare signature introduces an overload slot; the actual
			// value binding is installed by the Def/FuncDecl sharing its
			// name. Harmless if that binding already exists.
			if _, ok := top.Lookup(d.Name); !ok {
				b := Binding{Name: d.Name, Kind: KindValue, Pos: d.Pos}
				top.Define(&b)
				exports[d.Name] = b
			}
		case *ast.TypeDecl:
			b := Binding{Name: d.Name, Kind: KindType, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
			if alg, ok := d.Definition.(*ast.AlgebraicType); ok {
				for _, ctor := range alg.Constructors {
					cb := Binding{Name: ctor.Name, Kind: KindConstructor, Pos: ctor.Pos}
					top.Define(&cb)
					exports[ctor.Name] = cb
				}
			}
		case *ast.TypeClass:
			b := Binding{Name: d.Name, Kind: KindClass, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
			for _, m := range d.Methods {
				mb := Binding{Name: m.Name, Kind: KindValue, Pos: m.Pos}
				top.Define(&mb)
				exports[m.Name] = mb
			}
		case *ast.ClassDeclX:
			b := Binding{Name: d.Name, Kind: KindClass, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
			for _, m := range d.Members {
				mb := Binding{Name: m.Name, Kind: KindValue, Pos: m.Pos}
				top.Define(&mb)
				exports[m.Name] = mb
			}
		case *ast.DomainDecl:
			for _, st := range d.Suffixes {
				b := Binding{Name: "1" + st.Suffix, Kind: KindDomainSuffix, Pos: st.Pos}
				top.Define(&b)
				exports["1"+st.Suffix] = b
			}
		case *ast.MachineDecl:
			b := Binding{Name: d.Name, Kind: KindType, Pos: d.Pos}
			top.Define(&b)
			exports[d.Name] = b
		}
	}
}

func (r *Resolver) resolveDecl(decl ast.Node, top *Scope) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		fn := NewScope(top)
		for _, p := range d.Params {
			fn.Define(&Binding{Name: p.Name, Kind: KindValue, Pos: p.Pos})
		}
		if d.Body != nil {
			r.resolveExpr(d.Body, fn)
		}
	case *ast.Def:
		fn := NewScope(top)
		for _, p := range d.Params {
			fn.Define(&Binding{Name: p.Name, Kind: KindValue, Pos: p.Pos})
		}
		if d.Body != nil {
			r.resolveExpr(d.Body, fn)
		}
	case *ast.InstanceDeclX:
		inst := NewScope(top)
		for _, body := range d.Methods {
			r.resolveExpr(body, inst)
		}
	case *ast.Instance:
		// teacher-shape instance: methods are FuncDecls, walked via the
		// top-level decl loop that produced them; nothing extra to do.
	}
}

func (r *Resolver) resolveExpr(e ast.Expr, sc *Scope) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Identifier:
		r.use(n.Name, n.Pos, sc)
	case *ast.Literal, *ast.DateTimeLiteral, *ast.SigilLiteral:
		// no references
	case *ast.BinaryOp:
		r.resolveExpr(n.Left, sc)
		r.resolveExpr(n.Right, sc)
	case *ast.UnaryOp:
		r.resolveExpr(n.Expr, sc)
	case *ast.Lambda:
		inner := NewScope(sc)
		for _, p := range n.Params {
			inner.Define(&Binding{Name: p.Name, Kind: KindValue, Pos: p.Pos})
		}
		r.resolveExpr(n.Body, inner)
	case *ast.FuncLit:
		inner := NewScope(sc)
		for _, p := range n.Params {
			inner.Define(&Binding{Name: p.Name, Kind: KindValue, Pos: p.Pos})
		}
		r.resolveExpr(n.Body, inner)
	case *ast.FuncCall:
		r.resolveExpr(n.Func, sc)
		for _, a := range n.Args {
			r.resolveExpr(a, sc)
		}
	case *ast.Let:
		r.resolveExpr(n.Value, sc)
		inner := NewScope(sc)
		inner.Define(&Binding{Name: n.Name, Kind: KindValue, Pos: n.Pos})
		r.resolveExpr(n.Body, inner)
	case *ast.LetRec:
		inner := NewScope(sc)
		inner.Define(&Binding{Name: n.Name, Kind: KindValue, Pos: n.Pos})
		r.resolveExpr(n.Value, inner)
		r.resolveExpr(n.Body, inner)
	case *ast.Block:
		inner := NewScope(sc)
		for _, ex := range n.Exprs {
			r.resolveExpr(ex, inner)
		}
	case *ast.If:
		r.resolveExpr(n.Condition, sc)
		r.resolveExpr(n.Then, sc)
		r.resolveExpr(n.Else, sc)
	case *ast.Match:
		r.resolveExpr(n.Expr, sc)
		for _, c := range n.Cases {
			inner := NewScope(sc)
			r.resolvePattern(c.Pattern, inner)
			if c.Guard != nil {
				r.resolveExpr(c.Guard, inner)
			}
			r.resolveExpr(c.Body, inner)
		}
	case *ast.List:
		for _, el := range n.Elements {
			r.resolveExpr(el, sc)
		}
	case *ast.Tuple:
		for _, el := range n.Elements {
			r.resolveExpr(el, sc)
		}
	case *ast.Record:
		for _, f := range n.Fields {
			r.resolveExpr(f.Value, sc)
		}
	case *ast.RecordAccess:
		r.resolveExpr(n.Record, sc)
	case *ast.RecordUpdate:
		r.resolveExpr(n.Base, sc)
		for _, f := range n.Fields {
			r.resolveExpr(f.Value, sc)
		}
	case *ast.Send:
		r.resolveExpr(n.Channel, sc)
		r.resolveExpr(n.Value, sc)
	case *ast.Recv:
		r.resolveExpr(n.Channel, sc)
	case *ast.Spread:
		r.resolveExpr(n.Value, sc)
	case *ast.SuffixedNumber:
		r.resolveExpr(n.Number, sc)
		r.use("1"+n.Suffix, n.Pos, sc)
	case *ast.TextInterpolate:
		for _, part := range n.Parts {
			if part.Expr != nil {
				r.resolveExpr(part.Expr, sc)
			}
		}
	case *ast.Pipe:
		r.resolveExpr(n.Left, sc)
		r.resolveExpr(n.Right, sc)
	case *ast.Patch:
		r.resolveExpr(n.Target, sc)
		for _, f := range n.Fields {
			r.resolveExpr(f.Value, sc)
		}
	case *ast.Index:
		r.resolveExpr(n.Base, sc)
		r.resolveExpr(n.Index, sc)
	case *ast.HTMLSigil:
		for _, a := range n.Attrs {
			r.resolveExpr(a.Value, sc)
		}
		for _, c := range n.Children {
			r.resolveExpr(c, sc)
		}
	case *ast.StructuredBlock:
		r.resolveBlock(n, sc)
	case *ast.QuasiQuote:
		for _, it := range n.Interpolations {
			r.resolveExpr(it.Expr, sc)
		}
	case *ast.Error:
		// parse-error placeholder; nothing to resolve
	default:
		// Unrecognized expression shapes are tolerated rather than
		// panicking — later passes (type inference) own the full
		// node inventory and will catch anything genuinely malformed.
	}
}

func (r *Resolver) resolveBlock(b *ast.StructuredBlock, sc *Scope) {
	cur := NewScope(sc)
	for _, item := range b.Items {
		switch item.Kind {
		case ast.ItemBind, ast.ItemLet:
			if item.Expr != nil {
				r.resolveExpr(item.Expr, cur)
			}
			next := NewScope(cur)
			if item.Pattern != nil {
				r.resolvePattern(item.Pattern, next)
			} else if item.Name != "" {
				next.Define(&Binding{Name: item.Name, Kind: KindValue, Pos: item.Pos})
			}
			cur = next
		default:
			if item.Expr != nil {
				r.resolveExpr(item.Expr, cur)
			}
		}
	}
}

func (r *Resolver) resolvePattern(p ast.Pattern, sc *Scope) {
	if p == nil {
		return
	}
	switch n := p.(type) {
	case *ast.Identifier:
		sc.Define(&Binding{Name: n.Name, Kind: KindValue, Pos: n.Pos})
	case *ast.WildcardPattern:
	case *ast.Literal:
	case *ast.ConsPattern:
		r.resolvePattern(n.Head, sc)
		r.resolvePattern(n.Tail, sc)
	case *ast.ListPattern:
		for _, el := range n.Elements {
			r.resolvePattern(el, sc)
		}
		if n.Rest != nil {
			r.resolvePattern(n.Rest, sc)
		}
	case *ast.TuplePattern:
		for _, el := range n.Elements {
			r.resolvePattern(el, sc)
		}
	case *ast.RecordPattern:
		for _, f := range n.Fields {
			r.resolvePattern(f.Pattern, sc)
		}
	case *ast.ConstructorPattern:
		r.use(n.Name, n.Pos, sc)
		for _, sub := range n.Patterns {
			r.resolvePattern(sub, sc)
		}
	case *ast.AsPattern:
		sc.Define(&Binding{Name: n.Name, Kind: KindValue, Pos: n.Pos})
		r.resolvePattern(n.Pattern, sc)
	case *ast.SubjectIdentPattern:
		// Refers to the match subject, not a fresh binding.
	}
}

// use records a reference to name, reporting E3000 if it resolves to
// nothing in the current scope chain.
func (r *Resolver) use(name string, pos ast.Pos, sc *Scope) {
	if _, ok := sc.Lookup(name); ok {
		sc.MarkUsed(name)
		return
	}
	r.diags.Errorf(spanAt(pos), diagnostics.EUnknownRef, "unknown reference %q", name)
}

func spanAt(pos ast.Pos) ast.Span {
	return ast.Span{Start: pos, End: pos}
}

// hasDecorator reports whether any top-level Def in file carries the
// named decorator. FuncDecl (the shape most defs parse to today) does
// not carry decorators; this only sees them on the ast.Def shape,
// which overloaded/decorated defs use.
func hasDecorator(file *ast.File, name string) bool {
	for _, decl := range file.Decls {
		def, ok := decl.(*ast.Def)
		if !ok {
			continue
		}
		for _, d := range def.Decorators {
			if d.Name == name {
				return true
			}
		}
	}
	return false
}

func collectUseClauses(file *ast.File) []*ast.UseClause {
	var out []*ast.UseClause
	for _, decl := range file.Decls {
		if u, ok := decl.(*ast.UseClause); ok {
			out = append(out, u)
		}
	}
	return out
}
