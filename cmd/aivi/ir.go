package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/hir"
	"github.com/aivi-lang/aivi/internal/kernel"
	"github.com/aivi-lang/aivi/internal/monomorphize"
	"github.com/aivi-lang/aivi/internal/resolve"
	"github.com/aivi-lang/aivi/internal/rustir"
)

func newDesugarCmd() *cobra.Command {
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "desugar <target>",
		Short: "Emit HIR as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesugar(args[0], debugTrace)
		},
	}
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

func newKernelCmd() *cobra.Command {
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "kernel <target>",
		Short: "Emit Kernel IR as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(args[0], debugTrace)
		},
	}
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

func newRustIRCmd() *cobra.Command {
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "rust-ir <target>",
		Short: "Emit RustIR as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRustIR(args[0], debugTrace)
		},
	}
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

// runRustIR lowers to RustIR (reinstating block kinds) and runs
// monomorphization with an empty call-site plan, since no
// type-checker pass feeds real instantiation data into this command
// yet: every def therefore stays Dynamic and unspecialized, which the
// JSON dump shows honestly rather than fabricating inferred types.
func runRustIR(target string, debugTrace bool) error {
	return forEachResolved(target, debugTrace, func(file *resolveOutput) error {
		lowered := hir.New(file.res, nil).Lower(file.ast)
		k := kernel.Lower(lowered)
		r := rustir.Lower(k, nil)
		specialized, specMap := monomorphize.Specialize(r, nil)
		fmt.Println(rustir.Dump(specialized))
		if len(specMap) > 0 {
			fmt.Println(info(fmt.Sprintf("spec_map: %v", specMap)))
		}
		return nil
	})
}

func runDesugar(target string, debugTrace bool) error {
	return forEachResolved(target, debugTrace, func(file *resolveOutput) error {
		lowered := hir.New(file.res, nil).Lower(file.ast)
		fmt.Println(hir.Dump(lowered))
		return nil
	})
}

func runKernel(target string, debugTrace bool) error {
	return forEachResolved(target, debugTrace, func(file *resolveOutput) error {
		lowered := hir.New(file.res, nil).Lower(file.ast)
		k := kernel.Lower(lowered)
		fmt.Println(kernel.Dump(k))
		return nil
	})
}

type resolveOutput struct {
	ast *ast.File
	res *resolve.Result
}

// forEachResolved parses and name-resolves every file under target,
// invoking fn for each one that resolves cleanly; it reports parse and
// resolve diagnostics the same way `aivi check` does and sets the
// process exit code accordingly.
func forEachResolved(target string, debugTrace bool, fn func(*resolveOutput) error) error {
	files, err := resolveTarget(target)
	if err != nil {
		return err
	}
	if debugTrace {
		fmt.Println(info("debug-trace: lowering pass only, no runtime events to trace yet"))
	}
	hadErrors := false
	for _, path := range files {
		file, errs := parseFile(path)
		if len(errs) > 0 {
			hadErrors = true
			for _, e := range errs {
				fmt.Printf("%s: %s\n", red(path), e)
			}
			continue
		}
		res := resolve.New(nil).Resolve(file, nil)
		if res.Diags.HasErrors() {
			hadErrors = true
			for _, d := range res.Diags.Sorted() {
				fmt.Println(d.String())
			}
			continue
		}
		if err := fn(&resolveOutput{ast: file, res: res}); err != nil {
			return err
		}
	}
	exitOnDiagnostics(hadErrors)
	return nil
}
