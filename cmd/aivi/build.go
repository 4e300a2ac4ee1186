package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var out string
	var debugTrace bool
	cmd := &cobra.Command{
		Use:   "build <target>",
		Short: "Emit native object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildCmd(args[0], out, debugTrace)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output object file path")
	cmd.Flags().BoolVar(&debugTrace, "debug-trace", false, "emit per-function trace events to stderr")
	return cmd
}

// runBuildCmd reports the native-object-file backend as out of scope:
// the original system's separate native-Rust code emitter is a named
// external collaborator, and internal/jit targets wazero-executed WASM
// rather than a linkable object file, so this keeps the CLI surface
// table complete without fabricating an AOT backend nothing in the
// repository implements.
func runBuildCmd(target, out string, debugTrace bool) error {
	_ = target
	_ = out
	_ = debugTrace
	return fmt.Errorf("aivi build: native object-file backend is not part of this core (internal/jit targets wazero-executed WASM, not a linkable object file)")
}
