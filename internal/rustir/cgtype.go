// Package rustir lowers Kernel IR into RustIR (spec section 3.6): the
// same expression shapes as Kernel, but with the block kinds Kernel
// erased (Plain/Effect/Generate/Resource) pattern-matched back out of
// their desugared form, and a CgType attached to every top-level def.
//
// This mirrors the role of the native Rust backend's typed_expr/blocks
// emitters and the rust_ir::cg_type module in the original
// implementation, minus the Rust-source-text emission itself: that
// emitter is a distinct, out-of-scope backend (the native-Rust code
// emitter named in the Non-goals), not the Cranelift-equivalent path
// internal/jit implements.
package rustir

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// CgType is a code-generation type (spec section 3.7): closed means no
// free type variables, which is the precondition for monomorphization
// and for internal/jit's unboxed compilation path.
type CgType interface {
	cgType()
	// IsClosed reports whether the type contains no Dynamic or Var leaf.
	IsClosed() bool
	// Suffix yields the deterministic name suffix monomorphization uses
	// to name a specialized clone (spec section 4.6's cg_type_suffix).
	Suffix() string
	String() string
}

type Int struct{}
type Float struct{}
type Text struct{}
type Bool struct{}
type Unit struct{}

// Dynamic is the "could not be resolved to a concrete type" case: the
// type checker gave up, or (in this build) no plan entry exists for
// the def at all. Dynamic values stay boxed through the interpreter;
// internal/jit refuses to compile them.
type Dynamic struct{}

// Var is an unresolved type variable: present in a def's inferred
// scheme before monomorphization picks a concrete instantiation.
type Var struct{ Name string }

type ListOf struct{ Elem CgType }

type TupleOf struct{ Elems []CgType }

type FuncOf struct {
	Params []CgType
	Ret    CgType
}

// RecordOf is an exotic type for Suffix purposes: unlike the "shape"
// types above, a record's suffix folds to a hash rather than a name,
// matching spec section 4.6's "or a hash for exotic types."
type RecordOf struct{ Fields map[string]CgType }

// Adt names a user-defined sum type by its constructors, mirroring the
// native Rust backend's CgType::Adt (name + constructor list); kept
// only for Suffix/IsClosed purposes since no constructor-table lookup
// is wired into this build's type plan.
type Adt struct {
	Name         string
	Constructors []string
}

func (Int) cgType()      {}
func (Float) cgType()    {}
func (Text) cgType()     {}
func (Bool) cgType()     {}
func (Unit) cgType()     {}
func (Dynamic) cgType()  {}
func (Var) cgType()      {}
func (ListOf) cgType()   {}
func (TupleOf) cgType()  {}
func (FuncOf) cgType()   {}
func (RecordOf) cgType() {}
func (Adt) cgType()      {}

func (Int) IsClosed() bool     { return true }
func (Float) IsClosed() bool   { return true }
func (Text) IsClosed() bool    { return true }
func (Bool) IsClosed() bool    { return true }
func (Unit) IsClosed() bool    { return true }
func (Dynamic) IsClosed() bool { return false }
func (Var) IsClosed() bool     { return false }
func (l ListOf) IsClosed() bool {
	return l.Elem != nil && l.Elem.IsClosed()
}
func (t TupleOf) IsClosed() bool {
	for _, e := range t.Elems {
		if e == nil || !e.IsClosed() {
			return false
		}
	}
	return true
}
func (f FuncOf) IsClosed() bool {
	if f.Ret == nil || !f.Ret.IsClosed() {
		return false
	}
	for _, p := range f.Params {
		if p == nil || !p.IsClosed() {
			return false
		}
	}
	return true
}
func (r RecordOf) IsClosed() bool {
	for _, v := range r.Fields {
		if v == nil || !v.IsClosed() {
			return false
		}
	}
	return true
}
func (Adt) IsClosed() bool { return true }

func (Int) String() string     { return "Int" }
func (Float) String() string   { return "Float" }
func (Text) String() string    { return "Text" }
func (Bool) String() string    { return "Bool" }
func (Unit) String() string    { return "Unit" }
func (Dynamic) String() string { return "Dynamic" }
func (v Var) String() string   { return v.Name }
func (l ListOf) String() string {
	return fmt.Sprintf("List[%s]", l.Elem)
}
func (t TupleOf) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (f FuncOf) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return strings.Join(parts, " -> ") + " -> " + f.Ret.String()
}
func (r RecordOf) String() string {
	return fmt.Sprintf("{%s}", strings.Join(sortedFieldNames(r.Fields), ", "))
}
func (a Adt) String() string { return a.Name }

// Suffix implements spec section 4.6's cg_type_suffix: "Int", "Float",
// "List_Int", "Func_Int_to_Bool", "Tup_…", or a hash for exotic types.
func (Int) Suffix() string   { return "Int" }
func (Float) Suffix() string { return "Float" }
func (Text) Suffix() string  { return "Text" }
func (Bool) Suffix() string  { return "Bool" }
func (Unit) Suffix() string  { return "Unit" }
func (Dynamic) Suffix() string {
	return "Dynamic"
}
func (v Var) Suffix() string { return "Var_" + v.Name }
func (l ListOf) Suffix() string {
	return "List_" + l.Elem.Suffix()
}
func (t TupleOf) Suffix() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Suffix()
	}
	return "Tup_" + strings.Join(parts, "_")
}
func (f FuncOf) Suffix() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.Suffix()
	}
	return "Func_" + strings.Join(parts, "_") + "_to_" + f.Ret.Suffix()
}
func (r RecordOf) Suffix() string {
	return "Rec_" + exoticHash(r.String())
}
func (a Adt) Suffix() string {
	return "Adt_" + a.Name
}

func sortedFieldNames(fields map[string]CgType) []string {
	names := make([]string, 0, len(fields))
	for k, v := range fields {
		names = append(names, fmt.Sprintf("%s: %s", k, v))
	}
	sort.Strings(names)
	return names
}

// exoticHash produces the deterministic short hash spec section 4.6
// falls back to for types with no simple name (records, ADTs with
// structural identity).
func exoticHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
