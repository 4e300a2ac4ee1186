// Package resolve builds per-module scopes from use clauses, the
// implicit prelude, and local declarations (§4.3), then walks every
// expression and pattern in a file to flag unresolved references and
// unused imports. It runs after parsing and before type inference.
package resolve

import (
	"github.com/aivi-lang/aivi/internal/ast"
)

// Kind classifies what a name in scope refers to.
type Kind int

const (
	KindValue Kind = iota
	KindType
	KindClass
	KindConstructor
	KindDomainSuffix
)

// Binding is one name entered into a scope.
type Binding struct {
	Name   string
	Module string // "" for locals and prelude
	Kind   Kind
	Pos    ast.Pos
	Used   bool
}

// Scope is a lexical chain of binding tables. Child scopes (lambda
// params, let bodies, match arms, block items) shadow their parent's
// names; lookups walk outward until a binding is found or the chain
// is exhausted.
type Scope struct {
	parent   *Scope
	bindings map[string]*Binding
}

// NewScope creates a scope nested inside parent (nil for the module's
// top-level scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: make(map[string]*Binding)}
}

// Define enters a new binding into this scope, shadowing any binding
// of the same name visible from a parent scope.
func (s *Scope) Define(b *Binding) {
	s.bindings[b.Name] = b
}

// Lookup searches this scope and its ancestors for name, returning
// the nearest binding and whether one was found.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// MarkUsed records that name was referenced, for unused-import
// reporting at the module scope.
func (s *Scope) MarkUsed(name string) {
	if b, ok := s.Lookup(name); ok {
		b.Used = true
	}
}

// Own returns the bindings defined directly in this scope (not
// inherited from a parent), for import-usage auditing.
func (s *Scope) Own() map[string]*Binding {
	return s.bindings
}
