package ui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const fallbackEditor = "vi"

// Edit hands the current script to the user's editor via a temp file and
// returns the trimmed replacement text. The replacement fully supersedes the
// candidate.
func (c *Console) Edit(current string) (string, error) {
	file, err := os.CreateTemp("", "scriptor-*.risor")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()
	defer func() {
		_ = os.Remove(path)
	}()

	if _, err := file.WriteString(current); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("seed temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	name, args := resolveEditor()
	cmd := exec.Command(name, append(args, path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", name, err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edited script: %w", err)
	}
	return strings.TrimSpace(string(edited)), nil
}

// resolveEditor picks $VISUAL, then $EDITOR, then vi. The variable may carry
// arguments ("code --wait").
func resolveEditor() (string, []string) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		value := strings.TrimSpace(os.Getenv(env))
		if value == "" {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) > 0 {
			return fields[0], fields[1:]
		}
	}
	return fallbackEditor, nil
}
