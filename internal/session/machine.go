// Package session drives the generate-review-execute loop for one task and
// one input payload.
package session

import (
	"fmt"
	"time"
)

// State identifies one phase of the session lifecycle.
type State string

const (
	// StateBuilding assembles the generation prompt.
	StateBuilding State = "building"
	// StateGenerating waits on the generation backend.
	StateGenerating State = "generating"
	// StateReviewing presents the candidate and waits for a user choice.
	StateReviewing State = "reviewing"
	// StateEditing replaces the candidate with user-supplied text.
	StateEditing State = "editing"
	// StateExecuting runs the current script in the sandbox.
	StateExecuting State = "executing"
	// StateAccepted is the terminal state of an executed session.
	StateAccepted State = "accepted"
	// StateAborted is the terminal state of a session quit before execution.
	StateAborted State = "aborted"
)

// allowedTransitions encodes the review loop invariants: regeneration returns
// to generating with the prompt unchanged, editing proceeds straight to
// execution, and quitting bypasses the executor entirely. An editor failure
// returns to reviewing so the user can choose again.
var allowedTransitions = map[State]map[State]struct{}{
	StateBuilding: {
		StateGenerating: {},
	},
	StateGenerating: {
		StateReviewing: {},
	},
	StateReviewing: {
		StateExecuting:  {},
		StateEditing:    {},
		StateGenerating: {},
		StateAborted:    {},
	},
	StateEditing: {
		StateExecuting: {},
		StateReviewing: {},
	},
	StateExecuting: {
		StateAccepted: {},
	},
}

// IllegalTransitionError is returned for a disallowed state transition.
type IllegalTransitionError struct {
	FromState State
	ToState   State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition session from %q to %q", e.FromState, e.ToState)
}

// Is enables errors.Is checks for illegal transition failures.
func (e *IllegalTransitionError) Is(target error) bool {
	_, ok := target.(*IllegalTransitionError)
	return ok
}

// TransitionRecord stores one transition for inspection in tests and logs.
type TransitionRecord struct {
	FromState State
	ToState   State
	Timestamp time.Time
}

// Machine validates session state transitions against the allowed set.
type Machine struct {
	state   State
	now     func() time.Time
	history []TransitionRecord
}

// NewMachine returns a Machine in StateBuilding.
func NewMachine() *Machine {
	return &Machine{
		state:   StateBuilding,
		now:     time.Now,
		history: []TransitionRecord{},
	}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	if m == nil {
		return ""
	}
	return m.state
}

// Transition moves the machine to the given state, rejecting moves the
// lifecycle does not allow.
func (m *Machine) Transition(to State) error {
	if m == nil {
		return fmt.Errorf("machine is nil")
	}
	targets, ok := allowedTransitions[m.state]
	if !ok {
		return &IllegalTransitionError{FromState: m.state, ToState: to}
	}
	if _, ok := targets[to]; !ok {
		return &IllegalTransitionError{FromState: m.state, ToState: to}
	}
	m.history = append(m.history, TransitionRecord{
		FromState: m.state,
		ToState:   to,
		Timestamp: m.now().UTC(),
	})
	m.state = to
	return nil
}

// History returns a copy of the recorded transitions.
func (m *Machine) History() []TransitionRecord {
	if m == nil {
		return nil
	}
	out := make([]TransitionRecord, len(m.history))
	copy(out, m.history)
	return out
}
