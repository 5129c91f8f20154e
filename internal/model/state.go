package model

import (
	"errors"
	"fmt"
)

// State is a node of the orchestrator state machine.
//
// A run always begins in StateStart and ends in exactly one of the terminal
// states StateSuccess or StateFailed. The checking states are only entered
// when the corresponding stage is enabled.
type State int

const (
	// StateStart is the initial state before any stage runs.
	StateStart State = iota

	// StateGenerating is active while the document processor runs.
	StateGenerating

	// StateMarkupChecking is active while the markup validator runs.
	StateMarkupChecking

	// StateLinkChecking is active while the link checker runs.
	StateLinkChecking

	// StateSuccess is the terminal state reached when every enabled stage passed.
	StateSuccess

	// StateFailed is the terminal state reached when any stage failed.
	StateFailed
)

// ErrInvalidTransition is returned when a state change is not allowed
// by the state machine.
var ErrInvalidTransition = errors.New("invalid state transition")

// String returns the state name used in logs, reports and the history database.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateGenerating:
		return "generating"
	case StateMarkupChecking:
		return "markup_checking"
	case StateLinkChecking:
		return "link_checking"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState returns the State with the given name.
func ParseState(name string) (State, error) {
	for st := StateStart; st <= StateFailed; st++ {
		if st.String() == name {
			return st, nil
		}
	}
	return StateStart, fmt.Errorf("unknown state %q", name)
}

// allowedTransitions lists every legal edge of the state machine.
// Stages only move forward; any working state may fail.
var allowedTransitions = map[State][]State{
	StateStart:          {StateGenerating},
	StateGenerating:     {StateMarkupChecking, StateLinkChecking, StateSuccess, StateFailed},
	StateMarkupChecking: {StateLinkChecking, StateSuccess, StateFailed},
	StateLinkChecking:   {StateSuccess, StateFailed},
}

// CanTransition reports whether the state machine allows moving from one
// state to another.
func CanTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage identifies one external validation step.
type Stage string

const (
	// StageGenerate runs the document processor and produces the artifact.
	StageGenerate Stage = "generation"

	// StageMarkup runs the HTML/CSS conformance validator on the artifact.
	StageMarkup Stage = "markup"

	// StageLinks runs the link checker on the artifact directory.
	StageLinks Stage = "links"
)

// State returns the working state that is active while the stage runs.
func (s Stage) State() State {
	switch s {
	case StageGenerate:
		return StateGenerating
	case StageMarkup:
		return StateMarkupChecking
	case StageLinks:
		return StateLinkChecking
	default:
		return StateStart
	}
}
