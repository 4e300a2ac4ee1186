package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aivi-lang/aivi/internal/hir"
	"github.com/aivi-lang/aivi/internal/jit"
	"github.com/aivi-lang/aivi/internal/kernel"
)

func newRunCmd() *cobra.Command {
	var watch bool
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "run <target>",
		Short: "JIT and run main",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunCmd(args[0], watch, debugTrace)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run on source file changes")
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

// runRunCmd lowers every def to Kernel and tries internal/jit's
// integer-arithmetic specializer on each one, reporting which defs
// it could JIT-compile. Full program execution (calling `main`,
// resolving imports across the whole package, falling back to
// internal/eval's interpreter for anything internal/jit rejects)
// needs internal/rustir/internal/monomorphize and the eval-side
// extensions this pass has not finished (see DESIGN.md); until then
// this reports compilability per-def rather than claiming to execute
// the program end to end, and --watch is accepted but not yet backed
// by a file watcher.
func runRunCmd(target string, watch, debugTrace bool) error {
	if watch {
		fmt.Println(warn("--watch is accepted but not yet implemented; running once"))
	}
	ctx := context.Background()
	spec := jit.NewSpecializer(ctx)
	defer spec.Close(ctx)

	return forEachResolved(target, debugTrace, func(r *resolveOutput) error {
		lowered := hir.New(r.res, nil).Lower(r.ast)
		k := kernel.Lower(lowered)
		for _, def := range k.Defs {
			fn, err := spec.Compile(ctx, def)
			if err != nil {
				fmt.Printf("%s %s: %v\n", warn("interpreter fallback"), def.Name, err)
				continue
			}
			fmt.Printf("%s %s: compiled via wazero\n", green("jit"), def.Name)
			fn.Close(ctx)
		}
		return nil
	})
}
