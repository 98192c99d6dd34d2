// Package lifecycle implements the artifact state machine.
//
// The state set and transition table are process-wide and shared across all
// project types. The package is pure validation: applying a transition never
// touches storage, and the version duplication required when an approved
// artifact re-enters In Progress is the artifact package's responsibility.
package lifecycle

import (
	"errors"
	"fmt"
)

// Artifact state names.
const (
	StateToDo       = "To Do"
	StateInProgress = "In Progress"
	StateApproved   = "Approved"
)

// ErrInvalidTransition is returned when the requested (from, to) pair has no
// matching transition row. Self-transitions are always invalid.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions maps each state to its valid next states. Approved is not
// terminal: it can always re-enter In Progress.
var ValidTransitions = map[string][]string{
	StateToDo:       {StateInProgress},
	StateInProgress: {StateApproved},
	StateApproved:   {StateInProgress},
}

// States returns all state names in lifecycle order.
func States() []string {
	return []string{StateToDo, StateInProgress, StateApproved}
}

// Initial returns the state of a freshly created artifact.
func Initial() string {
	return StateToDo
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to string) bool {
	for _, v := range ValidTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// Apply validates from → to and returns the resulting state. It wraps
// ErrInvalidTransition when no transition row matches.
func Apply(from, to string) (string, error) {
	if !CanTransition(from, to) {
		return "", fmt.Errorf("lifecycle: %w: from %q to %q; valid: %v",
			ErrInvalidTransition, from, to, ValidTransitions[from])
	}
	return to, nil
}
