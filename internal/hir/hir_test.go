package hir

import (
	"testing"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/lexer"
	"github.com/aivi-lang/aivi/internal/parser"
	"github.com/aivi-lang/aivi/internal/resolve"
)

func lowerSrc(t *testing.T, src string) (*File, *resolve.Result) {
	t.Helper()
	l := lexer.New(src, "test.ai")
	p := parser.New(l)
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := resolve.New(nil).Resolve(file, nil)
	if res.Diags.HasErrors() {
		t.Fatalf("resolve errors: %v", res.Diags.Items())
	}
	lw := New(res, nil)
	return lw.Lower(file), res
}

func TestLowerSimpleDef(t *testing.T) {
	out, _ := lowerSrc(t, "module demo\n\nadd x y = x + y\n")
	if len(out.Defs) != 1 {
		t.Fatalf("expected 1 def, got %d", len(out.Defs))
	}
	d := out.Defs[0]
	if d.Name != "add" || len(d.Params) != 2 {
		t.Fatalf("unexpected def shape: %+v", d)
	}
	app, ok := d.Body.(*App)
	if !ok {
		t.Fatalf("expected App body, got %T", d.Body)
	}
	fn, ok := app.Fn.(*Var)
	if !ok || fn.Name != "+" {
		t.Fatalf("expected + operator Var, got %+v", app.Fn)
	}
}

func TestLowerPipeChainFlattensToOnePipeID(t *testing.T) {
	out, _ := lowerSrc(t, "module demo\n\nmain = 1 |> double |> double\ndouble x = x * 2\n")
	d := out.Defs[0]
	chain, ok := d.Body.(*PipeChain)
	if !ok {
		t.Fatalf("expected PipeChain, got %T", d.Body)
	}
	if len(chain.Stages) != 3 {
		t.Fatalf("expected 3 stages (value + 2 pipe steps), got %d", len(chain.Stages))
	}
}

func TestLowerNativeDecoratorProducesNativeCall(t *testing.T) {
	out, res := lowerSrc(t, `module demo

@native "math.sqrt"
fastSqrt x = x
`)
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.Items())
	}
	var def *Def
	for _, d := range out.Defs {
		if d.Name == "fastSqrt" {
			def = d
		}
	}
	if def == nil {
		t.Fatalf("fastSqrt def not lowered; defs: %+v", out.Defs)
	}
	if def.NativeTarget != "math.sqrt" {
		t.Fatalf("NativeTarget = %q, want math.sqrt", def.NativeTarget)
	}
	if _, ok := def.Body.(*NativeCall); !ok {
		t.Fatalf("expected NativeCall body, got %T", def.Body)
	}
}

func TestLowerIfMatchShape(t *testing.T) {
	out, _ := lowerSrc(t, "module demo\n\nsign n = if n == 0 { 0 } else { 1 }\n")
	d := out.Defs[0]
	if _, ok := d.Body.(*If); !ok {
		t.Fatalf("expected If, got %T", d.Body)
	}
}

func TestLowerRecordAndAccess(t *testing.T) {
	out, _ := lowerSrc(t, "module demo\n\npoint = { x: 1, y: 2 }\ngetX p = p.x\n")
	if len(out.Defs) != 2 {
		t.Fatalf("expected 2 defs, got %d", len(out.Defs))
	}
	rec, ok := out.Defs[0].Body.(*RecordE)
	if !ok || len(rec.Fields) != 2 {
		t.Fatalf("expected 2-field record, got %+v", out.Defs[0].Body)
	}
	acc, ok := out.Defs[1].Body.(*RecordAccessE)
	if !ok || acc.Field != "x" {
		t.Fatalf("expected RecordAccessE on field x, got %+v", out.Defs[1].Body)
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	out, _ := lowerSrc(t, "module demo\n\na = 1\nb = 2\nc = a + b\n")
	seen := map[NodeID]bool{}
	var walk func(e Expr)
	walk = func(e Expr) {
		if e == nil {
			return
		}
		if seen[e.ID()] {
			t.Fatalf("duplicate NodeID %d", e.ID())
		}
		seen[e.ID()] = true
		switch n := e.(type) {
		case *App:
			walk(n.Fn)
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, d := range out.Defs {
		walk(d.Body)
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one visited node")
	}
}
