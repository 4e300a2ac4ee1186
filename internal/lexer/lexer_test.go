package lexer

import "testing"

func collect(src string) []Token {
	l := New(src, "test.ai")
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func assertTypes(t *testing.T, src string, want []TokenType) {
	t.Helper()
	toks := collect(src)
	if len(toks) < len(want) {
		t.Fatalf("got %d tokens, want at least %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s (%q), want %s", i, toks[i].Type, toks[i].Literal, w)
		}
	}
}

func TestBasicTokens(t *testing.T) {
	assertTypes(t, "let x = 5 + 10", []TokenType{LET, IDENT, ASSIGN, INT, PLUS, INT, EOF})
}

func TestNewlineIsSignificant(t *testing.T) {
	assertTypes(t, "x\ny", []TokenType{IDENT, NEWLINE, IDENT, EOF})
}

func TestPipelineOperator(t *testing.T) {
	assertTypes(t, "xs |> map f |> sum", []TokenType{IDENT, PIPEOP, IDENT, IDENT, PIPEOP, IDENT, EOF})
}

func TestLineCommentSkipped(t *testing.T) {
	assertTypes(t, "-- comment\nx", []TokenType{NEWLINE, IDENT, EOF})
}

func TestNumericSuffixSplit(t *testing.T) {
	l := New("12px", "test.ai")
	num := l.NextToken()
	if num.Type != INT || num.Literal != "12" {
		t.Fatalf("expected INT(12), got %v", num)
	}
	suffix, ok := l.PendingSuffix()
	if !ok || suffix.Literal != "px" {
		t.Fatalf("expected suffix px, got %v ok=%v", suffix, ok)
	}
}

func TestSigilBraceForm(t *testing.T) {
	l := New(`~r{a{b}c}`, "test.ai")
	tag := l.NextToken()
	if tag.Type != SIGIL_TAG || tag.Literal != "r" {
		t.Fatalf("expected SIGIL_TAG(r), got %v", tag)
	}
	body, _, hasFlags := l.ReadSigilBody()
	if body.Literal != "a{b}c" {
		t.Fatalf("expected nested braces preserved, got %q", body.Literal)
	}
	if hasFlags {
		t.Fatalf("brace form has no flags")
	}
}

func TestSigilQuoteForm(t *testing.T) {
	l := New(`~t"2024-01-01"utc`, "test.ai")
	tag := l.NextToken()
	if tag.Type != SIGIL_TAG || tag.Literal != "t" {
		t.Fatalf("expected SIGIL_TAG(t), got %v", tag)
	}
	body, flags, hasFlags := l.ReadSigilBody()
	if body.Literal != "2024-01-01" {
		t.Fatalf("unexpected body %q", body.Literal)
	}
	if !hasFlags || flags.Literal != "utc" {
		t.Fatalf("expected flags utc, got %v hasFlags=%v", flags, hasFlags)
	}
}

func TestUnclosedStringReportsE1001(t *testing.T) {
	l := New(`"unterminated`, "test.ai")
	l.NextToken()
	diags := l.Diagnostics().Items()
	if len(diags) != 1 || diags[0].Code != "E1001" {
		t.Fatalf("expected E1001 diagnostic, got %v", diags)
	}
}

func TestUnclosedSigilBraceReportsE1004(t *testing.T) {
	l := New(`~r{unterminated`, "test.ai")
	l.NextToken()
	l.ReadSigilBody()
	diags := l.Diagnostics().Items()
	if len(diags) != 1 || diags[0].Code != "E1004" {
		t.Fatalf("expected E1004 diagnostic, got %v", diags)
	}
}

func TestStringInterpolationFragments(t *testing.T) {
	l := New(`"hi {name}!"`, "test.ai")
	first := l.NextToken()
	if first.Type != STRING_PART || first.Literal != "hi " {
		t.Fatalf("expected STRING_PART(\"hi \"), got %v", first)
	}
	expr := l.NextToken()
	if expr.Type != IDENT || expr.Literal != "name" {
		t.Fatalf("expected IDENT(name), got %v", expr)
	}
	end := l.ContinueInterpolation()
	if end.Type != STRING_END || end.Literal != "!" {
		t.Fatalf("expected STRING_END(\"!\"), got %v", end)
	}
}
