// Package prompt assembles the instruction text sent to the generation
// backend from a task description and an optional preview of the input.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// PreviewMarker prefixes each previewed input line so the backend can tell
// sample data apart from ordinary instruction comments.
const PreviewMarker = "#>"

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// Build renders the generation prompt. The preamble is fixed; when
// previewLines > 0 and the input is non-empty, the first previewLines lines
// of input are included as schema context, each prefixed with PreviewMarker.
// The task description closes the prompt as a trailing instruction line.
//
// Build is deterministic: identical arguments always produce byte-identical
// prompts.
func Build(task string, input string, previewLines int) (string, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return "", errors.New("task description is required")
	}
	if previewLines < 0 {
		return "", fmt.Errorf("preview line count must not be negative, got %d", previewLines)
	}

	renderInput := struct {
		Task         string
		PreviewText  string
		PreviewCount int
	}{
		Task:         task,
		PreviewText:  previewText(input, previewLines),
		PreviewCount: previewLines,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "generate.tmpl", renderInput); err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}
	return buf.String(), nil
}

// previewText returns the first n input lines in original order, each
// prefixed with PreviewMarker. Inputs with fewer than n lines contribute all
// of their lines; there is no padding and no truncation marker.
func previewText(input string, n int) string {
	if n <= 0 || input == "" {
		return ""
	}
	lines := splitLines(input)
	if len(lines) > n {
		lines = lines[:n]
	}
	for i, line := range lines {
		lines[i] = PreviewMarker + line
	}
	return strings.Join(lines, "\n")
}

func splitLines(input string) []string {
	lines := strings.Split(input, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
