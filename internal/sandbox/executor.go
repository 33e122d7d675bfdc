// Package sandbox runs candidate scripts inside an isolated Risor interpreter
// and maps their declared result binding into a tagged value.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/risor-io/risor/builtins"
	"github.com/risor-io/risor/compiler"
	modMath "github.com/risor-io/risor/modules/math"
	modRand "github.com/risor-io/risor/modules/rand"
	modRegexp "github.com/risor-io/risor/modules/regexp"
	modStrings "github.com/risor-io/risor/modules/strings"
	modTime "github.com/risor-io/risor/modules/time"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
	"github.com/risor-io/risor/vm"
)

const (
	// InputVariable is the global the script reads its payload from.
	InputVariable = "data"
	// ResultVariable is the binding the script must assign its answer to.
	ResultVariable = "result"

	scriptFilename = "candidate"
)

// Outcome is the tagged result of one sandboxed execution: either a converted
// result value or a human-readable diagnostic, never both.
type Outcome struct {
	value  Value
	diag   string
	failed bool
}

// Success wraps a converted result value.
func Success(value Value) Outcome {
	return Outcome{value: value}
}

// Failure wraps an execution diagnostic.
func Failure(diagnostic string) Outcome {
	return Outcome{diag: diagnostic, failed: true}
}

// Failed reports whether the execution produced a diagnostic instead of a value.
func (o Outcome) Failed() bool { return o.failed }

// Value returns the result value of a successful execution.
func (o Outcome) Value() Value { return o.value }

// Diagnostic returns the failure description of a failed execution.
func (o Outcome) Diagnostic() string { return o.diag }

// Executor runs scripts single-shot, each in a fresh interpreter instance.
// The zero configuration applies no timeout; WithTimeout layers one in.
type Executor struct {
	timeout time.Duration
}

// Option configures Executor construction.
type Option func(*Executor)

// WithTimeout bounds each execution. A timed-out interpreter is abandoned;
// because no interpreter state is shared between executions, this cannot
// corrupt later runs.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

// New constructs an Executor.
func New(options ...Option) *Executor {
	executor := &Executor{}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(executor)
	}
	return executor
}

// Execute runs the script against the input payload and extracts the result
// binding. Script failures of every kind (parse error, runtime error, missing
// or unconvertible result, timeout) are reported as a failed Outcome; the
// host process never terminates on script content.
func (e *Executor) Execute(ctx context.Context, script string, input string) Outcome {
	if e == nil {
		return Failure("executor is nil")
	}
	if strings.TrimSpace(script) == "" {
		return Failure("empty script")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	globals := executionGlobals(input)
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	program, err := parser.Parse(ctx, script, parser.WithFilename(scriptFilename))
	if err != nil {
		return Failure(fmt.Sprintf("script error: %v", err))
	}
	code, err := compiler.Compile(program,
		compiler.WithGlobalNames(names),
		compiler.WithFilename(scriptFilename),
	)
	if err != nil {
		return Failure(fmt.Sprintf("script error: %v", err))
	}

	machine := vm.New(code, vm.WithGlobals(globals))
	if err := machine.Run(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failure(fmt.Sprintf("script execution exceeded %s", e.timeout))
		}
		if errors.Is(err, context.Canceled) {
			return Failure("script execution canceled")
		}
		return Failure(fmt.Sprintf("script error: %v", err))
	}

	obj, err := machine.Get(ResultVariable)
	if err != nil || obj == nil {
		return Failure("no result produced")
	}

	raw := obj.Interface()
	if raw == nil {
		// Non-data objects (functions, modules) carry no Go equivalent;
		// only a genuine nil result converts to the null value.
		if _, isNil := obj.(*object.NilType); isNil {
			return Success(Null())
		}
		return Failure("unsupported result type")
	}

	value, err := FromInterface(raw)
	if err != nil {
		return Failure("unsupported result type")
	}
	return Success(value)
}

// executionGlobals assembles the script environment: the input payload, the
// core builtins, and in-memory modules only. Host-facing modules (os, exec,
// http, net, filepath) are never handed to the interpreter, so scripts cannot
// reach the filesystem, the network, or other processes.
func executionGlobals(input string) map[string]any {
	globals := map[string]any{
		InputVariable: input,
		"math":        modMath.Module(),
		"rand":        modRand.Module(),
		"regexp":      modRegexp.Module(),
		"strings":     modStrings.Module(),
		"time":        modTime.Module(),
	}
	for name, builtin := range builtins.Builtins() {
		globals[name] = builtin
	}
	return globals
}
