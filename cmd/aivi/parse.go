package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aivi-lang/aivi/internal/ast"
	"github.com/aivi-lang/aivi/internal/lexer"
	"github.com/aivi-lang/aivi/internal/parser"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <target>",
		Short: "Emit surface AST as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(args[0])
		},
	}
}

func runParse(target string) error {
	files, err := resolveTarget(target)
	if err != nil {
		return err
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
		fmt.Println(ast.Print(file))
	}
	exitOnDiagnostics(hadErrors)
	return nil
}

// parseFile lexes and parses one source file, returning both the
// lexer's and parser's accumulated errors.
func parseFile(path string) (*ast.File, []error) {
	src, err := readSource(path)
	if err != nil {
		return nil, []error{err}
	}
	l := lexer.New(src, path)
	p := parser.New(l)
	file := p.ParseFile()

	var errs []error
	for _, d := range l.Diagnostics().Items() {
		errs = append(errs, fmt.Errorf("%s", d.String()))
	}
	errs = append(errs, p.Errors()...)
	return file, errs
}
