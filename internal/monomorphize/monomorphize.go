// Package monomorphize specializes polymorphic RustIR defs per
// concrete call-site instantiation (spec section 4.6). It is the last
// step before code generation: internal/jit and (eventually) a fuller
// RustIR-driven backend only ever see already-monomorphic bodies.
package monomorphize

import (
	"fmt"
	"sort"

	"github.com/aivi-lang/aivi/internal/rustir"
)

// Plan is the type checker's observed call-site instantiations: for
// each def name, the list of concrete CgTypes it was called at. A def
// absent from Plan, or whose RustIR CgType is already closed, is left
// untouched.
type Plan map[string][]rustir.CgType

// SpecMap routes a polymorphic def's callers to the right
// specialization: name -> the list of specialization names produced
// for it, in the order of first occurrence in the plan's instantiation
// list with duplicate Suffixes dropped. Only defs with two or more
// recorded instantiations get an entry.
type SpecMap map[string][]string

// Specialize applies spec section 4.6's three rules to every def in
// file:
//
//   - a def whose own RustIR CgType is already closed is left as is;
//   - a def with exactly one recorded instantiation has that type
//     slotted in directly (no clone, no rename);
//   - a def with multiple recorded instantiations is cloned once per
//     distinct Suffix, each clone named `name$mono_<Suffix>`, and every
//     clone's Type field set to its instantiation.
//
// Returns the specialized file and the spec_map the JIT/codegen
// lowerer consults when resolving a call to a still-polymorphic name.
func Specialize(file *rustir.File, plan Plan) (*rustir.File, SpecMap) {
	out := &rustir.File{Module: file.Module}
	specMap := make(SpecMap)

	for _, def := range file.Defs {
		if def.Type != nil && def.Type.IsClosed() {
			out.Defs = append(out.Defs, def)
			continue
		}

		insts := plan[def.Name]
		switch len(insts) {
		case 0:
			// No observed instantiation: nothing to specialize against,
			// left polymorphic (and therefore boxed/interpreted) as is.
			out.Defs = append(out.Defs, def)
		case 1:
			out.Defs = append(out.Defs, &rustir.Def{Name: def.Name, Body: def.Body, Type: insts[0]})
		default:
			names := make([]string, 0, len(insts))
			for _, inst := range dedupe(insts) {
				cloneName := fmt.Sprintf("%s$mono_%s", def.Name, inst.Suffix())
				out.Defs = append(out.Defs, &rustir.Def{Name: cloneName, Body: def.Body, Type: inst})
				names = append(names, cloneName)
			}
			specMap[def.Name] = names
		}
	}
	return out, specMap
}

// dedupe collapses instantiations that share a Suffix (e.g. the
// checker recorded the same concrete type at two call sites), keeping
// the plan's original ordering for the first occurrence of each.
func dedupe(insts []rustir.CgType) []rustir.CgType {
	seen := make(map[string]bool, len(insts))
	out := make([]rustir.CgType, 0, len(insts))
	for _, inst := range insts {
		s := inst.Suffix()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, inst)
	}
	return out
}

// Names returns file's def names in lexical order, mainly useful for
// deterministic test assertions and debug dumps.
func Names(file *rustir.File) []string {
	names := make([]string, len(file.Defs))
	for i, d := range file.Defs {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}
