// Package inputio reads the session input payload from a file or a pipe.
// The payload is read exactly once and treated as immutable afterwards.
package inputio

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Read returns the full input payload. A non-empty path reads the named
// file; otherwise the given stream (normally stdin) is drained.
func Read(stdin io.Reader, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input file %q: %w", path, err)
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read piped input: %w", err)
	}
	return string(raw), nil
}
