// Package ui implements the terminal surface of the review loop: candidate
// display, the four-way review prompt, the spinner shown while the backend
// call is in flight, and external-editor handoff.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/scriptor-dev/scriptor/internal/session"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user interrupts the review prompt with
// Ctrl+C or Ctrl+\, or when input reaches EOF before a choice was made.
var ErrInterrupted = errors.New("interrupted")

const ruleLine = "------------------------------"

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
	ruleStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Console writes user-facing review output to stderr, keeping stdout free for
// the final result.
type Console struct {
	out   io.Writer
	in    *os.File
	isTTY bool
}

// NewConsole returns a Console bound to the process terminal.
func NewConsole() *Console {
	return &Console{
		out:   os.Stderr,
		in:    os.Stdin,
		isTTY: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewConsoleWithStreams returns a Console with injected streams for tests.
// Raw-mode key handling is disabled; choices are read line-wise.
func NewConsoleWithStreams(out io.Writer, in *os.File) *Console {
	return &Console{out: out, in: in}
}

// ShowPrompt prints the full generation prompt between rule lines.
func (c *Console) ShowPrompt(promptText string) {
	fmt.Fprintln(c.out, headingStyle.Render("Prompt:"))
	c.printRuled(promptText)
	fmt.Fprintln(c.out)
}

// ShowScript prints the current candidate between rule lines, labeled by
// whether it came from the backend or from an edit.
func (c *Console) ShowScript(script string, edited bool) {
	heading := "Generated program:"
	if edited {
		heading = "Edited program:"
	}
	fmt.Fprintln(c.out, headingStyle.Render(heading))
	c.printRuled(script)
}

// ShowError prints a single user-facing error line.
func (c *Console) ShowError(message string) {
	fmt.Fprintln(c.out, errorStyle.Render("Error: "+message))
}

func (c *Console) printRuled(body string) {
	fmt.Fprintln(c.out, ruleStyle.Render(ruleLine))
	fmt.Fprintln(c.out, body)
	fmt.Fprintln(c.out, ruleStyle.Render(ruleLine))
}

// Choose solicits one of the four review choices. On a terminal it reads a
// single keypress in raw mode; otherwise it reads a line and takes its first
// character, re-prompting on anything unrecognized.
func (c *Console) Choose(ctx context.Context) (session.Choice, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintf(c.out, "%s (%s/%s/%s/%s) ",
		headingStyle.Render("Run program?"),
		"["+keyStyle.Render("y")+"]es",
		"["+keyStyle.Render("q")+"]uit",
		"["+keyStyle.Render("r")+"]egen",
		"["+keyStyle.Render("e")+"]dit",
	)

	if c.isTTY {
		return c.chooseRaw()
	}
	return c.chooseLine()
}

// chooseRaw reads single keypresses until one of the recognized choice keys
// arrives. Unrecognized keys are ignored silently.
func (c *Console) chooseRaw() (session.Choice, error) {
	fd := int(c.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	buf := make([]byte, 1)
	for {
		n, err := c.in.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read keypress: %w", err)
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'y', 'q', 'r', 'e':
			_ = term.Restore(fd, oldState)
			fmt.Fprintf(c.out, "%c\n", buf[0])
			return choiceForKey(buf[0]), nil
		case 0x03, 0x1c: // Ctrl+C, Ctrl+backslash
			_ = term.Restore(fd, oldState)
			fmt.Fprintln(c.out)
			return "", ErrInterrupted
		}
	}
}

func (c *Console) chooseLine() (session.Choice, error) {
	reader := bufio.NewReader(c.in)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return "", ErrInterrupted
			}
			return "", fmt.Errorf("read choice: %w", err)
		}
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 0 {
			if choice := choiceForKey(trimmed[0]); choice != "" {
				return choice, nil
			}
		}
		c.ShowError("invalid input; enter 'y', 'q', 'r', or 'e'")
		if err != nil {
			return "", ErrInterrupted
		}
		fmt.Fprint(c.out, "> ")
	}
}

func choiceForKey(key byte) session.Choice {
	switch key {
	case 'y':
		return session.ChoiceRun
	case 'q':
		return session.ChoiceQuit
	case 'r':
		return session.ChoiceRegenerate
	case 'e':
		return session.ChoiceEdit
	default:
		return ""
	}
}
