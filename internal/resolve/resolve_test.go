package resolve

import (
	"testing"

	"github.com/aivi-lang/aivi/internal/lexer"
	"github.com/aivi-lang/aivi/internal/parser"
)

func parseSrc(t *testing.T, src string) *parser.Parser {
	t.Helper()
	l := lexer.New(src, "test.ai")
	return parser.New(l)
}

func TestResolveSimpleModuleNoErrors(t *testing.T) {
	p := parseSrc(t, "module demo\n\nadd x y = x + y\n\nmain = add 1 2\n")
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, nil)
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected resolve errors: %v", res.Diags.Items())
	}
	if _, ok := res.Exports["add"]; !ok {
		t.Fatalf("expected add to be exported, got %+v", res.Exports)
	}
	if _, ok := res.Exports["main"]; !ok {
		t.Fatalf("expected main to be exported, got %+v", res.Exports)
	}
}

func TestResolveUnknownReferenceReportsE3000(t *testing.T) {
	p := parseSrc(t, "module demo\n\nmain = missingName\n")
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, nil)
	found := false
	for _, d := range res.Diags.Items() {
		if d.Code == "E3000" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E3000 for unknown reference, got %v", res.Diags.Items())
	}
}

func TestResolveMutualRecursionAcrossDecls(t *testing.T) {
	src := "module demo\n\nisEven n = if n == 0 { true } else { isOdd n }\n\nisOdd n = if n == 0 { false } else { isEven n }\n"
	p := parseSrc(t, src)
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, nil)
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected resolve errors for mutually recursive defs: %v", res.Diags.Items())
	}
}

func TestResolveUnknownImportedModule(t *testing.T) {
	p := parseSrc(t, "module demo\n\nuse other/mod (helper)\n\nmain = helper\n")
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, map[string]ModuleExports{})
	found := false
	for _, d := range res.Diags.Items() {
		if d.Code == "E2005" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E2005 for unknown module, got %v", res.Diags.Items())
	}
}

func TestResolveUnusedImportReportsW2100(t *testing.T) {
	deps := map[string]ModuleExports{
		"other/mod": {"helper": Binding{Name: "helper", Kind: KindValue}},
	}
	p := parseSrc(t, "module demo\n\nuse other/mod (helper)\n\nmain = 1\n")
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, deps)
	found := false
	for _, d := range res.Diags.Items() {
		if d.Code == "W2100" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected W2100 for unused import, got %v", res.Diags.Items())
	}
}

func TestResolveConstructorPatternBindsNames(t *testing.T) {
	src := "module demo\n\ntype Option a = Some(a) | None\n\nunwrap o = match o { Some(x) => x, None => 0 }\n"
	p := parseSrc(t, src)
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	res := New(nil).Resolve(file, nil)
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected resolve errors: %v", res.Diags.Items())
	}
}
