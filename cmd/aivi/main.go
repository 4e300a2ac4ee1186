// Command aivi is the AIVI toolchain CLI: parse, check, format, emit
// intermediate representations, run the test runner, and execute or
// build a package (spec section 6). Subcommands are modeled as cobra
// Commands rather than the teacher's hand-rolled flag.Parse switch,
// promoting spf13/cobra and spf13/pflag from indirect to direct
// dependencies to exercise them for real.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version is set by ldflags during release builds.
	Version = "dev"

	bold  = color.New(color.Bold).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	warn  = color.New(color.FgYellow).SprintFunc()
	info  = color.New(color.FgCyan).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func main() {
	root := &cobra.Command{
		Use:     "aivi",
		Short:   "AIVI toolchain: parse, typecheck, format, compile, and run .aivi packages",
		Version: Version,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n", bold("aivi")))

	root.AddCommand(
		newParseCmd(),
		newCheckCmd(),
		newFmtCmd(),
		newDesugarCmd(),
		newKernelCmd(),
		newRustIRCmd(),
		newTestCmd(),
		newRunCmd(),
		newBuildCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
}

func exitOnDiagnostics(hasErrors bool) {
	if hasErrors {
		os.Exit(1)
	}
}
