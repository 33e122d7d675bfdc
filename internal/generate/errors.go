package generate

import (
	"fmt"
	"strings"
)

// ErrorKind classifies generation failures for user-facing messaging.
type ErrorKind string

const (
	// KindTransport covers network and connection failures.
	KindTransport ErrorKind = "transport"
	// KindAuth covers rejected credentials (HTTP 401/403).
	KindAuth ErrorKind = "auth"
	// KindBackend covers other non-success responses from the backend.
	KindBackend ErrorKind = "backend"
	// KindMalformed covers responses that could not be decoded.
	KindMalformed ErrorKind = "malformed"
	// KindEmpty covers well-formed responses carrying no completion text.
	KindEmpty ErrorKind = "empty"
)

// Error is a generation failure. Each kind is distinguishable so the
// controller can report transport, auth, and response problems differently.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Detail)
	switch {
	case detail != "" && e.Err != nil:
		return fmt.Sprintf("generation %s error: %s: %v", e.Kind, detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("generation %s error: %v", e.Kind, e.Err)
	case detail != "":
		return fmt.Sprintf("generation %s error: %s", e.Kind, detail)
	default:
		return fmt.Sprintf("generation %s error", e.Kind)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error, ignoring kind, so callers can detect generation
// failures generically with errors.Is(err, &generate.Error{}).
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

func newError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
