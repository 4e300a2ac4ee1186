// Package jit specializes closed, purely-arithmetic Kernel definitions
// into a tiny hand-assembled WebAssembly module and executes it
// through wazero's ahead-of-time compiler engine (spec section 4.7).
// There is no Go binding for Cranelift anywhere in reach, so this is
// the idiomatic-Go stand-in: wazero compiles the module to native
// machine code once at instantiation, then every call runs compiled
// code rather than a tree-walking interpreter.
//
// Coverage is deliberately narrow. Only definitions whose body is built
// from integer parameters, integer literals, and the four arithmetic
// binary operators compile; everything else (closures, pattern match,
// effects, text, records) returns ErrNotCompilable so the caller falls
// back to internal/eval's interpreter, matching the Codegen-error
// fallback rule in spec section 7.
package jit

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/aivi-lang/aivi/internal/kernel"
)

// ErrNotCompilable is returned by Compile when a definition's body uses
// a construct outside this specializer's supported subset.
var ErrNotCompilable = errors.New("jit: definition is not in the compilable integer-arithmetic subset")

// Specializer owns one wazero runtime; compiled modules are cheap to
// instantiate from it repeatedly (the runtime caches the compiled
// machine code, not just the parsed bytes).
type Specializer struct {
	runtime wazero.Runtime
}

// NewSpecializer builds a Specializer using wazero's compiler engine
// (as opposed to its pure-interpreter engine) so instantiated modules
// actually get JIT-compiled rather than tree-walked.
func NewSpecializer(ctx context.Context) *Specializer {
	cfg := wazero.NewRuntimeConfigCompiler()
	return &Specializer{runtime: wazero.NewRuntimeWithConfig(ctx, cfg)}
}

func (s *Specializer) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// CompiledFn is one specialized definition, ready to be called with
// int64 arguments matching its original parameter list.
type CompiledFn struct {
	mod    api.Module
	export api.Function
}

func (c *CompiledFn) Call(ctx context.Context, args ...int64) (int64, error) {
	u64 := make([]uint64, len(args))
	for i, a := range args {
		u64[i] = api.EncodeI64(a)
	}
	ret, err := c.export.Call(ctx, u64...)
	if err != nil {
		return 0, fmt.Errorf("jit: call failed: %w", err)
	}
	if len(ret) == 0 {
		return 0, nil
	}
	return api.DecodeI64(ret[0]), nil
}

func (c *CompiledFn) Close(ctx context.Context) error {
	return c.mod.Close(ctx)
}

// Compile attempts to specialize def. On success every call to the
// returned CompiledFn runs wazero-compiled native code instead of
// internal/eval's interpreter.
func (s *Specializer) Compile(ctx context.Context, def *kernel.Def) (*CompiledFn, error) {
	params, body, ok := uncurry(def.Body)
	if !ok {
		return nil, ErrNotCompilable
	}
	slots := make(map[string]uint32, len(params))
	for i, p := range params {
		slots[p] = uint32(i)
	}

	var code []byte
	if err := emit(body, slots, &code); err != nil {
		return nil, err
	}
	code = append(code, 0x0B) // end

	wasmBytes := assembleModule(def.Name, len(params), code)

	mod, err := s.runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("jit: instantiate %s: %w", def.Name, err)
	}
	fn := mod.ExportedFunction(def.Name)
	if fn == nil {
		return nil, fmt.Errorf("jit: %s: export missing after instantiation", def.Name)
	}
	return &CompiledFn{mod: mod, export: fn}, nil
}

// uncurry peels nested single-param Lams (the shape kernel.lowerDef
// always produces) back into a flat parameter list plus the innermost
// body expression.
func uncurry(e kernel.Expr) ([]string, kernel.Expr, bool) {
	var params []string
	for {
		lam, ok := e.(kernel.Lam)
		if !ok {
			break
		}
		params = append(params, lam.Param)
		e = lam.Body
	}
	if len(params) == 0 {
		return nil, nil, false
	}
	return params, e, true
}

// emit appends WASM bytecode for e (postorder: operands then opcode)
// to *code, failing if e uses any construct outside the supported
// integer-arithmetic subset.
func emit(e kernel.Expr, slots map[string]uint32, code *[]byte) error {
	switch n := e.(type) {
	case kernel.Var:
		idx, ok := slots[n.Name]
		if !ok {
			return fmt.Errorf("%w: free variable %q", ErrNotCompilable, n.Name)
		}
		*code = append(*code, 0x20) // local.get
		appendULEB128(code, uint64(idx))
		return nil
	case kernel.Lit:
		iv, err := literalInt(n)
		if err != nil {
			return err
		}
		*code = append(*code, 0x42) // i64.const
		appendSLEB128(code, iv)
		return nil
	case kernel.Binary:
		if err := emit(n.Left, slots, code); err != nil {
			return err
		}
		if err := emit(n.Right, slots, code); err != nil {
			return err
		}
		op, ok := arithOpcode[n.Op]
		if !ok {
			return fmt.Errorf("%w: operator %q", ErrNotCompilable, n.Op)
		}
		*code = append(*code, op)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrNotCompilable, e)
	}
}

var arithOpcode = map[string]byte{
	"+": 0x7C, // i64.add
	"-": 0x7D, // i64.sub
	"*": 0x7E, // i64.mul
	"/": 0x7F, // i64.div_s
}

func literalInt(lit kernel.Lit) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(lit.Value, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("%w: non-integer literal %q", ErrNotCompilable, lit.Value)
	}
	return v, nil
}

// assembleModule hand-builds a minimal WASM binary exporting one
// function `name` of arity argc, all params and the result typed i64,
// with body as its already-emitted instruction stream.
func assembleModule(name string, argc int, body []byte) []byte {
	var out []byte
	out = append(out, 0x00, 0x61, 0x73, 0x6D) // magic "\0asm"
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version 1

	// Type section: one functype (i64^argc) -> i64
	var functype []byte
	functype = append(functype, 0x60) // func
	appendULEB128(&functype, uint64(argc))
	for i := 0; i < argc; i++ {
		functype = append(functype, 0x7E) // i64
	}
	functype = append(functype, 0x01, 0x7E) // one result, i64
	out = appendSection(out, 1, prefixVecCount(1, functype))

	// Function section: one function using type index 0
	var funcsec []byte
	appendULEB128(&funcsec, 0)
	out = appendSection(out, 3, prefixVecCount(1, funcsec))

	// Export section: export function index 0 as name
	var exportsec []byte
	appendName(&exportsec, name)
	exportsec = append(exportsec, 0x00) // func export kind
	appendULEB128(&exportsec, 0)
	out = appendSection(out, 7, prefixVecCount(1, exportsec))

	// Code section: one function body, no local declarations besides params
	var fnbody []byte
	appendULEB128(&fnbody, 0) // zero local-decl groups (params don't count here)
	fnbody = append(fnbody, body...)
	var codesec []byte
	appendULEB128(&codesec, uint64(len(fnbody)))
	codesec = append(codesec, fnbody...)
	out = appendSection(out, 10, prefixVecCount(1, codesec))

	return out
}

func prefixVecCount(count int, payload []byte) []byte {
	var out []byte
	appendULEB128(&out, uint64(count))
	out = append(out, payload...)
	return out
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	appendULEB128(&out, uint64(len(payload)))
	return append(out, payload...)
}

func appendName(out *[]byte, s string) {
	appendULEB128(out, uint64(len(s)))
	*out = append(*out, s...)
}

func appendULEB128(out *[]byte, v uint64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		*out = append(*out, b)
		if v == 0 {
			return
		}
	}
}

func appendSLEB128(out *[]byte, v int64) {
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		*out = append(*out, b)
	}
}
