// Package format serializes script result values for final output. It does
// not second-guess the representation the script chose: text mode renders the
// value as-is, JSON mode re-serializes its recursive shape.
package format

import (
	"encoding/json"
	"fmt"

	"github.com/scriptor-dev/scriptor/internal/sandbox"
)

// Mode selects the output serialization.
type Mode string

const (
	// ModeText renders scalars and joins sequences with newlines.
	ModeText Mode = "text"
	// ModeJSON renders indented JSON.
	ModeJSON Mode = "json"
	// ModeJSONOneLine renders compact single-line JSON.
	ModeJSONOneLine Mode = "json-one-line"
)

// Render serializes a result value in the given mode.
func Render(value sandbox.Value, mode Mode) (string, error) {
	switch mode {
	case ModeText, "":
		return value.Text(), nil
	case ModeJSON:
		raw, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize result to JSON: %w", err)
		}
		return string(raw), nil
	case ModeJSONOneLine:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("serialize result to JSON: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported output mode %q", mode)
	}
}
