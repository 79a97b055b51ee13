package models

import (
	"fmt"
	"strings"
	"time"
)

// ItemState is the lifecycle state of a single work item.
//
// The only legal transitions are Queued -> Running -> Succeeded and
// Queued|Running -> Failed. Succeeded and Failed are terminal.
type ItemState int

const (
	StateQueued ItemState = iota
	StateRunning
	StateSucceeded
	StateFailed
)

// String returns the lowercase state name.
func (s ItemState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s ItemState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s ItemState) CanTransition(next ItemState) bool {
	switch s {
	case StateQueued:
		return next == StateRunning || next == StateFailed
	case StateRunning:
		return next == StateSucceeded || next == StateFailed
	default:
		return false
	}
}

// Outcome represents the terminal result of encoding a single segment.
//
// It enforces logical consistency: a succeeded outcome must have an output
// path and no error, a failed outcome must have an error and no output path.
//
// Use NewOutcomeSuccess or NewOutcomeFailure to create validated instances.
type Outcome struct {
	Segment    string    `json:"segment"`
	State      ItemState `json:"state"`
	OutputPath string    `json:"output_path"`
	Err        error     `json:"-"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewOutcomeSuccess creates a succeeded Outcome with validation.
//
// Returns an error if outputPath is empty or whitespace-only.
func NewOutcomeSuccess(segment, outputPath string) (*Outcome, error) {
	o := &Outcome{
		Segment:    segment,
		State:      StateSucceeded,
		OutputPath: outputPath,
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outcome: %w", err)
	}
	return o, nil
}

// NewOutcomeFailure creates a failed Outcome. The error must not be nil.
func NewOutcomeFailure(segment string, cause error) (*Outcome, error) {
	o := &Outcome{
		Segment: segment,
		State:   StateFailed,
		Err:     cause,
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outcome: %w", err)
	}
	return o, nil
}

// Succeeded reports whether the outcome is a success.
func (o *Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Duration returns how long the item was running, zero if it never started.
func (o *Outcome) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Validate checks if the Outcome has consistent state.
//
// Returns an error if:
//   - Segment is empty
//   - State is not terminal
//   - Succeeded but Err is not nil, or OutputPath is empty
//   - Failed but Err is nil, or OutputPath is set
func (o *Outcome) Validate() error {
	if strings.TrimSpace(o.Segment) == "" {
		return fmt.Errorf("segment cannot be empty")
	}

	if !o.State.Terminal() {
		return fmt.Errorf("state %s is not terminal", o.State)
	}

	if o.State == StateSucceeded {
		if o.Err != nil {
			return fmt.Errorf("inconsistent state: succeeded but error is not nil")
		}
		if strings.TrimSpace(o.OutputPath) == "" {
			return fmt.Errorf("output_path cannot be empty for succeeded outcome")
		}
		return nil
	}

	if o.Err == nil {
		return fmt.Errorf("failed outcome must have an error")
	}
	if strings.TrimSpace(o.OutputPath) != "" {
		return fmt.Errorf("failed outcome should not have output_path")
	}

	return nil
}
