package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aivi-lang/aivi/internal/resolve"
)

func newCheckCmd() *cobra.Command {
	var checkStdlib bool
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "check <target>",
		Short: "Typecheck; render diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], checkStdlib, debugTrace)
		},
	}
	cmd.Flags().BoolVar(&checkStdlib, "check-stdlib", false, "also resolve against the prelude's own source")
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

// runCheck name-resolves every file under target and reports
// diagnostics. Full Algorithm W + class-constraint inference
// (spec section 4.4) is not yet bridged into this entrypoint, so a
// clean run here means
// "no unresolved names," not "well-typed." That distinction is
// printed explicitly rather than claiming more than was checked.
func runCheck(target string, checkStdlib, debugTrace bool) error {
	files, err := resolveTarget(target)
	if err != nil {
		return err
	}
	if debugTrace {
		fmt.Fprintln(os.Stderr, info("debug-trace: name-resolution pass only, no JIT/interpreter events to trace yet"))
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
		for _, d := range res.Diags.Sorted() {
			fmt.Println(d.String())
		}
		if res.Diags.HasErrors() {
			hadErrors = true
		}
	}
	if !hadErrors {
		fmt.Println(green("OK") + " (name resolution clean; full type inference is not yet wired into this command)")
	}
	exitOnDiagnostics(hadErrors)
	return nil
}
