// Package repl provides the Effects Inspector for introspecting types and effects.
package repl

import (
	"fmt"

	"github.com/aivi-lang/aivi/internal/schema"
)

// EffectsResult represents the result of effects introspection
type EffectsResult struct {
	Schema    string   `json:"schema"`
	Type      string   `json:"type"`
	Effects   []string `json:"effects"`
	Decisions []any    `json:"decisions,omitempty"` // from ledger slice when defaulting occurs
}

// EffectsCommand implements the :effects REPL command
// For now, this is a placeholder that will be implemented
// once we have proper effect tracking in the type system
func EffectsCommand(input string) error {
	// Build result
	result := EffectsResult{
		Schema:  schema.EffectsV1,
		Type:    "<type inference pending>",
		Effects: []string{}, // Pure by default for now
	}

	// Marshal to JSON
	data, err := schema.MarshalDeterministic(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	formatted, err := schema.FormatJSON(data)
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}

	fmt.Println(string(formatted))
	return nil
}
