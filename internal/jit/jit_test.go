package jit

import (
	"context"
	"testing"

	"github.com/aivi-lang/aivi/internal/hir"
	"github.com/aivi-lang/aivi/internal/kernel"
	"github.com/aivi-lang/aivi/internal/lexer"
	"github.com/aivi-lang/aivi/internal/parser"
	"github.com/aivi-lang/aivi/internal/resolve"
)

func compileFirstDef(t *testing.T, src string) *kernel.Def {
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
	h := hir.New(res, nil).Lower(file)
	k := kernel.Lower(h)
	if len(k.Defs) == 0 {
		t.Fatal("no defs lowered")
	}
	return k.Defs[0]
}

func TestSpecializeArithmeticFunction(t *testing.T) {
	ctx := context.Background()
	def := compileFirstDef(t, "module demo\n\nadd x y = x + y\n")

	spec := NewSpecializer(ctx)
	defer spec.Close(ctx)

	fn, err := spec.Compile(ctx, def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer fn.Close(ctx)

	got, err := fn.Call(ctx, 3, 4)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 7 {
		t.Fatalf("add(3,4) = %d, want 7", got)
	}
}

func TestSpecializeNestedArithmetic(t *testing.T) {
	ctx := context.Background()
	def := compileFirstDef(t, "module demo\n\ncombo x y z = x * y + z\n")

	spec := NewSpecializer(ctx)
	defer spec.Close(ctx)

	fn, err := spec.Compile(ctx, def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer fn.Close(ctx)

	got, err := fn.Call(ctx, 2, 5, 1)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 11 {
		t.Fatalf("combo(2,5,1) = %d, want 11", got)
	}
}

func TestCompileRejectsNonArithmeticBody(t *testing.T) {
	ctx := context.Background()
	def := compileFirstDef(t, "module demo\n\npick c = if c == 0 { 1 } else { 2 }\n")

	spec := NewSpecializer(ctx)
	defer spec.Close(ctx)

	if _, err := spec.Compile(ctx, def); err == nil {
		t.Fatal("expected Compile to reject an If-bodied def")
	}
}
