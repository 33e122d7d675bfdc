package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/scriptor-dev/scriptor/internal/config"
	"github.com/scriptor-dev/scriptor/internal/doctor"
	"github.com/scriptor-dev/scriptor/internal/format"
	"github.com/scriptor-dev/scriptor/internal/generate"
	"github.com/scriptor-dev/scriptor/internal/inputio"
	"github.com/scriptor-dev/scriptor/internal/logging"
	"github.com/scriptor-dev/scriptor/internal/sandbox"
	"github.com/scriptor-dev/scriptor/internal/session"
	"github.com/scriptor-dev/scriptor/internal/ui"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

const (
	exitFailure = 1
	// exitAborted marks a deliberate user quit: non-zero so pipelines can
	// tell it from success, distinct from error exits.
	exitAborted = 2
)

// exitError carries a process exit code through the cobra error path.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		code := exitFailure
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string) error {
	path, created, err := config.EnsureHomeConfig()
	if err != nil {
		return fmt.Errorf("prepare config: %w", err)
	}
	if created {
		fmt.Fprintf(os.Stderr, "Created a new configuration file at: %s\n", path)
		fmt.Fprintln(os.Stderr, "Set the 'api_key' value in the file before using the program.")
		return &exitError{code: exitFailure}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New()
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", closeErr)
		}
	}()

	cmd := newRootCommand(cfg, logger.Logger)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type options struct {
	temperature  float64
	maxTokens    int
	inputFile    string
	previewLines int
	showPrompt   bool
	jsonify      bool
	jsonOneLine  bool
}

func newRootCommand(cfg *config.Config, logger *log.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "scriptor \"task description\"",
		Short:         "Generate and run text-processing scripts from a task description",
		Long: "scriptor turns a natural-language description of a text-processing task\n" +
			"into a Risor script, lets you review it, runs it in an in-memory sandbox\n" +
			"against your input, and prints the result.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), cfg, logger, opts, args[0])
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := root.Flags()
	flags.Float64VarP(&opts.temperature, "temp", "t", cfg.Temperature,
		fmt.Sprintf("sampling temperature (%.2f-%.2f; lower is more deterministic)", generate.MinTemperature, generate.MaxTemperature))
	flags.IntVarP(&opts.maxTokens, "max-tokens", "m", cfg.MaxTokens, "completion token limit")
	flags.StringVarP(&opts.inputFile, "input", "i", "", "read data from a file instead of stdin")
	flags.IntVarP(&opts.previewLines, "show-lines", "s", 0, "show the backend the first N input lines as schema context")
	flags.BoolVarP(&opts.showPrompt, "show-prompt", "p", false, "print the assembled prompt before reviewing")
	flags.BoolVarP(&opts.jsonify, "json", "j", false, "serialize the result to JSON")
	flags.BoolVar(&opts.jsonOneLine, "json-one-line", false, "serialize JSON output to one line (requires --json)")

	root.AddCommand(newDoctorCommand(cfg))
	return root
}

func validateOptions(opts *options) error {
	if err := generate.ValidateTemperature(opts.temperature); err != nil {
		return err
	}
	if err := generate.ValidateMaxTokens(opts.maxTokens); err != nil {
		return err
	}
	if opts.previewLines < 0 {
		return fmt.Errorf("--show-lines must not be negative, got %d", opts.previewLines)
	}
	if opts.jsonOneLine && !opts.jsonify {
		return errors.New("--json-one-line requires --json to be set")
	}
	return nil
}

func outputMode(opts *options) format.Mode {
	switch {
	case opts.jsonOneLine:
		return format.ModeJSONOneLine
	case opts.jsonify:
		return format.ModeJSON
	default:
		return format.ModeText
	}
}

func runTask(ctx context.Context, cfg *config.Config, logger *log.Logger, opts *options, task string) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	input, err := inputio.Read(os.Stdin, opts.inputFile)
	if err != nil {
		return err
	}

	console := ui.NewConsole()
	client := generate.NewClient(generate.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
	})
	executor := sandbox.New(sandbox.WithTimeout(cfg.ExecTimeout))

	controller, err := session.NewController(session.Config{
		Task:         task,
		Input:        input,
		PreviewLines: opts.previewLines,
		Temperature:  opts.temperature,
		MaxTokens:    opts.maxTokens,
		ShowPrompt:   opts.showPrompt,
		Generator:    &spinnerGenerator{client: client},
		Executor:     executor,
		Console:      console,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	result, err := controller.Run(ctx)
	if err != nil {
		if errors.Is(err, ui.ErrInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Caught interrupt; exiting.")
			return &exitError{code: exitAborted}
		}
		return err
	}

	switch result.Status {
	case session.StatusAborted:
		return &exitError{code: exitAborted}
	case session.StatusCompleted:
		if result.Outcome.Failed() {
			console.ShowError(result.Outcome.Diagnostic())
			return &exitError{code: exitFailure}
		}
		rendered, err := format.Render(result.Outcome.Value(), outputMode(opts))
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	default:
		return fmt.Errorf("unexpected session status %q", result.Status)
	}
}

// spinnerGenerator wraps the generation client with a terminal progress
// indicator so the session controller stays free of display concerns.
type spinnerGenerator struct {
	client *generate.Client
}

func (g *spinnerGenerator) Generate(ctx context.Context, req generate.Request) (generate.Candidate, error) {
	spinner := ui.NewSpinner("Generating program...")
	spinner.Start()
	defer spinner.Stop()
	return g.client.Generate(ctx, req)
}

func newDoctorCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment for configuration and editor problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := doctor.Run(cfg)
			for _, check := range checks {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4s %-12s %s\n", check.Status, check.Name, check.Detail)
			}
			if !doctor.Healthy(checks) {
				return &exitError{code: exitFailure, message: "one or more checks failed"}
			}
			return nil
		},
	}
}
