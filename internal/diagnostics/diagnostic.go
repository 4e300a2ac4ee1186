package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aivi-lang/aivi/internal/ast"
)

// Severity tags a Diagnostic as blocking compilation or merely advisory.
type Severity int

const (
	// SeverityError blocks progress to the next pipeline stage once any
	// Error-severity Diagnostic has been recorded for a file.
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Label attaches a message to a secondary span inside a Diagnostic,
// e.g. pointing at the opening bracket an EOF error was waiting for.
type Label struct {
	Span    ast.Span
	Message string
}

// Diagnostic is the stable-code, span-carrying error record produced by
// every pipeline stage (lexer, parser, resolver, type checker). Stages
// never panic or stop at the first Diagnostic: they accumulate a slice
// and the caller decides whether to keep going (see Bag).
type Diagnostic struct {
	Severity Severity
	Code     string // "E1001", "W2100", ...
	Span     ast.Span
	Message  string
	Labels   []Label
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s[%s]: %s",
		d.Span.Start.File, d.Span.Start.Line, d.Span.Start.Column,
		d.Severity, d.Code, d.Message)
	for _, l := range d.Labels {
		fmt.Fprintf(&b, "\n  %s:%d:%d: %s",
			l.Span.Start.File, l.Span.Start.Line, l.Span.Start.Column, l.Message)
	}
	return b.String()
}

// Bag accumulates Diagnostics across a pipeline stage. Every stage
// collects everything it can before returning; Bag.HasErrors tells the
// caller whether to stop at the stage boundary.
type Bag struct {
	items []Diagnostic
}

func NewBag() *Bag { return &Bag{} }

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Errorf(span ast.Span, code, format string, args ...any) {
	b.Add(Diagnostic{Severity: SeverityError, Code: code, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Warnf(span ast.Span, code, format string, args ...any) {
	b.Add(Diagnostic{Severity: SeverityWarning, Code: code, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) Len() int { return len(b.items) }

// Sorted returns diagnostics ordered by file, then position, stable
// across repeated runs regardless of the order stages appended them in.
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i].Span.Start, out[j].Span.Start
		if a.File != c.File {
			return a.File < c.File
		}
		if a.Offset != c.Offset {
			return a.Offset < c.Offset
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Merge appends another Bag's diagnostics onto this one, used when a
// stage fans out across several files and recombines results.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// ErrSentinel is the sentinel error returned by a pipeline stage once
// its Bag contains at least one error-severity Diagnostic. Upstream
// callers render the Bag themselves; this error carries no message of
// its own so it is never double-printed.
type ErrSentinel struct{ Bag *Bag }

func (e *ErrSentinel) Error() string {
	return fmt.Sprintf("%d diagnostic(s)", e.Bag.Len())
}

// AsSentinel returns (bag, true) if err is an *ErrSentinel.
func AsSentinel(err error) (*Bag, bool) {
	se, ok := err.(*ErrSentinel)
	if !ok {
		return nil, false
	}
	return se.Bag, true
}
