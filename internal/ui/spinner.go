package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner renders a single-line progress indicator on stderr while a
// blocking operation is in flight. On non-terminal output it prints the
// message once instead of animating.
type Spinner struct {
	out     io.Writer
	message string
	isTTY   bool

	mu      sync.Mutex
	done    chan struct{}
	stopped sync.WaitGroup
}

// NewSpinner returns a Spinner for the process stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		out:     os.Stderr,
		message: message,
		isTTY:   term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Start begins rendering. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	if !s.isTTY {
		fmt.Fprintln(s.out, s.message)
		return
	}

	s.done = make(chan struct{})
	s.stopped.Add(1)
	go s.run(s.done)
}

// Stop halts rendering and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.stopped.Wait()
	s.done = nil
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.stopped.Done()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-done:
			fmt.Fprintf(s.out, "\r\033[2K")
			return
		case <-ticker.C:
			fmt.Fprintf(s.out, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], headingStyle.Render(s.message))
			frame++
		}
	}
}
