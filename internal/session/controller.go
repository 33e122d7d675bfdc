package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/scriptor-dev/scriptor/internal/generate"
	"github.com/scriptor-dev/scriptor/internal/prompt"
	"github.com/scriptor-dev/scriptor/internal/sandbox"
)

// Choice is one of the four recognized review responses.
type Choice string

const (
	// ChoiceRun executes the current candidate.
	ChoiceRun Choice = "yes"
	// ChoiceQuit abandons the session without executing.
	ChoiceQuit Choice = "quit"
	// ChoiceRegenerate discards the candidate and asks the backend again.
	ChoiceRegenerate Choice = "regen"
	// ChoiceEdit replaces the candidate with user-supplied text.
	ChoiceEdit Choice = "edit"
)

// Status distinguishes the two terminal session outcomes.
type Status string

const (
	// StatusCompleted means the session executed a script; the execution
	// outcome itself may still be a failure.
	StatusCompleted Status = "completed"
	// StatusAborted means the user quit before any execution.
	StatusAborted Status = "aborted"
)

// ErrRepeatedCandidate ends the session when regeneration returns a script
// identical to one already seen; more attempts with the same prompt are
// unlikely to diverge, so the user is asked to rephrase the task.
var ErrRepeatedCandidate = errors.New("regenerated script is identical to a previous candidate; rephrase the task")

// Result is the terminal outcome of one session.
type Result struct {
	Status  Status
	Outcome sandbox.Outcome
}

// Generator produces one candidate script per call.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (generate.Candidate, error)
}

// Executor runs a script against the session input.
type Executor interface {
	Execute(ctx context.Context, script string, input string) sandbox.Outcome
}

// Console is the user interaction surface of the review loop.
type Console interface {
	ShowPrompt(promptText string)
	ShowScript(script string, edited bool)
	Choose(ctx context.Context) (Choice, error)
	Edit(current string) (string, error)
	ShowError(message string)
}

// Config assembles one session.
type Config struct {
	Task         string
	Input        string
	PreviewLines int
	Temperature  float64
	MaxTokens    int
	ShowPrompt   bool

	Generator Generator
	Executor  Executor
	Console   Console
	Logger    *log.Logger

	// BuildPrompt overrides the prompt builder in tests. Defaults to
	// prompt.Build.
	BuildPrompt func(task string, input string, previewLines int) (string, error)
}

// Controller owns the session state machine. The input payload is read once
// at construction and shared read-only across every regeneration and
// execution attempt; exactly one candidate is current at any time.
type Controller struct {
	task         string
	input        string
	previewLines int
	temperature  float64
	maxTokens    int
	showPrompt   bool

	generator   Generator
	executor    Executor
	console     Console
	logger      *log.Logger
	buildPrompt func(task string, input string, previewLines int) (string, error)

	machine   *Machine
	prompt    string
	candidate generate.Candidate
	edited    bool
	history   []string
}

// NewController validates collaborators and returns a Controller ready to run.
func NewController(cfg Config) (*Controller, error) {
	task := strings.TrimSpace(cfg.Task)
	if task == "" {
		return nil, errors.New("task description is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Console == nil {
		return nil, errors.New("console is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	builder := cfg.BuildPrompt
	if builder == nil {
		builder = prompt.Build
	}

	return &Controller{
		task:         task,
		input:        cfg.Input,
		previewLines: cfg.PreviewLines,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		showPrompt:   cfg.ShowPrompt,
		generator:    cfg.Generator,
		executor:     cfg.Executor,
		console:      cfg.Console,
		logger:       logger,
		buildPrompt:  builder,
		machine:      NewMachine(),
		history:      []string{},
	}, nil
}

// Run drives the state machine to a terminal state. A generation failure is
// fatal to the session and returned as an error; an execution failure is a
// completed session whose Outcome carries the diagnostic.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if c == nil {
		return Result{}, errors.New("controller is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		switch c.machine.Current() {
		case StateBuilding:
			if err := c.build(); err != nil {
				return Result{}, err
			}
		case StateGenerating:
			if err := c.generate(ctx); err != nil {
				return Result{}, err
			}
		case StateReviewing:
			if err := c.review(ctx); err != nil {
				return Result{}, err
			}
		case StateEditing:
			if err := c.edit(); err != nil {
				return Result{}, err
			}
		case StateExecuting:
			outcome, err := c.execute(ctx)
			if err != nil {
				return Result{}, err
			}
			return Result{Status: StatusCompleted, Outcome: outcome}, nil
		case StateAborted:
			return Result{Status: StatusAborted}, nil
		default:
			return Result{}, fmt.Errorf("session reached unexpected state %q", c.machine.Current())
		}
	}
}

// build renders the prompt exactly once per session. Regeneration reuses it
// unchanged, along with the session-initial temperature and token budget.
func (c *Controller) build() error {
	rendered, err := c.buildPrompt(c.task, c.input, c.previewLines)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}
	c.prompt = rendered
	c.logger.With("preview_lines", c.previewLines, "prompt_bytes", len(rendered)).Debug("prompt built")
	return c.machine.Transition(StateGenerating)
}

func (c *Controller) generate(ctx context.Context) error {
	candidate, err := c.generator.Generate(ctx, generate.Request{
		Prompt:      c.prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}

	for _, previous := range c.history {
		if previous == candidate.Script {
			return ErrRepeatedCandidate
		}
	}
	c.history = append(c.history, candidate.Script)
	c.candidate = candidate
	c.edited = false
	c.logger.With("attempt", len(c.history), "script_bytes", len(candidate.Script)).Info("candidate generated")

	if c.showPrompt && len(c.history) == 1 {
		c.console.ShowPrompt(c.prompt)
	}
	return c.machine.Transition(StateReviewing)
}

func (c *Controller) review(ctx context.Context) error {
	c.console.ShowScript(c.candidate.Script, false)

	choice, err := c.console.Choose(ctx)
	if err != nil {
		return fmt.Errorf("read review choice: %w", err)
	}
	c.logger.With("choice", string(choice)).Debug("review choice")

	switch choice {
	case ChoiceRun:
		return c.machine.Transition(StateExecuting)
	case ChoiceQuit:
		return c.machine.Transition(StateAborted)
	case ChoiceRegenerate:
		return c.machine.Transition(StateGenerating)
	case ChoiceEdit:
		return c.machine.Transition(StateEditing)
	default:
		return fmt.Errorf("unrecognized review choice %q", choice)
	}
}

// edit replaces the candidate in full with user-supplied text and proceeds
// straight to execution; there is no second review step. An editor failure
// returns to reviewing.
func (c *Controller) edit() error {
	replacement, err := c.console.Edit(c.candidate.Script)
	if err != nil {
		c.console.ShowError(fmt.Sprintf("edit script: %v", err))
		return c.machine.Transition(StateReviewing)
	}

	c.candidate.Script = replacement
	c.edited = true
	c.logger.With("script_bytes", len(replacement)).Info("candidate edited")
	c.console.ShowScript(replacement, true)
	return c.machine.Transition(StateExecuting)
}

func (c *Controller) execute(ctx context.Context) (sandbox.Outcome, error) {
	outcome := c.executor.Execute(ctx, c.candidate.Script, c.input)
	if err := c.machine.Transition(StateAccepted); err != nil {
		return sandbox.Outcome{}, err
	}
	c.logger.With("failed", outcome.Failed(), "edited", c.edited).Info("script executed")
	return outcome, nil
}

// Prompt exposes the session prompt after building, for display and tests.
func (c *Controller) Prompt() string {
	if c == nil {
		return ""
	}
	return c.prompt
}

// StateHistory exposes the recorded machine transitions.
func (c *Controller) StateHistory() []TransitionRecord {
	if c == nil {
		return nil
	}
	return c.machine.History()
}
