package lifecycle

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		// The three legal transitions.
		{StateToDo, StateInProgress, true},
		{StateInProgress, StateApproved, true},
		{StateApproved, StateInProgress, true},

		// Everything else, including self-transitions and skips.
		{StateToDo, StateToDo, false},
		{StateToDo, StateApproved, false},
		{StateInProgress, StateInProgress, false},
		{StateInProgress, StateToDo, false},
		{StateApproved, StateApproved, false},
		{StateApproved, StateToDo, false},

		// Unknown states.
		{"Draft", StateInProgress, false},
		{StateToDo, "Done", false},
	}
	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		if got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApply_Valid(t *testing.T) {
	got, err := Apply(StateToDo, StateInProgress)
	if err != nil {
		t.Fatalf("Apply(ToDo, InProgress) error: %v", err)
	}
	if got != StateInProgress {
		t.Errorf("Apply = %q, want %q", got, StateInProgress)
	}
}

func TestApply_Invalid(t *testing.T) {
	_, err := Apply(StateToDo, StateApproved)
	if err == nil {
		t.Fatal("Apply(ToDo, Approved) succeeded, want error")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Apply error = %v, want ErrInvalidTransition", err)
	}
}

func TestApply_SelfTransitionRejected(t *testing.T) {
	for _, s := range States() {
		if _, err := Apply(s, s); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Apply(%q, %q) = %v, want ErrInvalidTransition", s, s, err)
		}
	}
}

func TestApply_ExhaustivePairs(t *testing.T) {
	valid := map[[2]string]bool{
		{StateToDo, StateInProgress}:     true,
		{StateInProgress, StateApproved}: true,
		{StateApproved, StateInProgress}: true,
	}
	for _, from := range States() {
		for _, to := range States() {
			_, err := Apply(from, to)
			if valid[[2]string{from, to}] {
				if err != nil {
					t.Errorf("Apply(%q, %q) error: %v, want success", from, to, err)
				}
			} else if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Apply(%q, %q) = %v, want ErrInvalidTransition", from, to, err)
			}
		}
	}
}

func TestInitial(t *testing.T) {
	if Initial() != StateToDo {
		t.Errorf("Initial() = %q, want %q", Initial(), StateToDo)
	}
}
