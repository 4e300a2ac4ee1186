package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	var only string
	var checkStdlib bool
	cmd := &cobra.Command{
		Use:   "test <target>",
		Short: "Run @test defs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestCmd(args[0], only, checkStdlib)
		},
	}
	cmd.Flags().StringVar(&only, "only", "", "run only the named @test def")
	cmd.Flags().BoolVar(&checkStdlib, "check-stdlib", false, "also run prelude's own @test defs")
	return cmd
}

// runTestCmd is an honest stub: executing an @test def needs the
// runtime (internal/eval plus internal/effects' capability plumbing)
// wired to HIR/Kernel lowering output, which this pass has not built
// end to end yet (see DESIGN.md's internal/eval/internal/effects
// pending-extensions note). internal/test's reporter/schema types
// exist and are exercised by their own package tests already.
func runTestCmd(target, only string, checkStdlib bool) error {
	_ = target
	_ = only
	_ = checkStdlib
	return fmt.Errorf("aivi test: @test execution needs internal/eval's runtime wired to Kernel output, not yet implemented in this build")
}
