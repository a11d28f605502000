package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/protoforge/core"
)

// Status summarizes where a run stands.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusHalted  Status = "halted"
)

// StageError records why a run halted.
type StageError struct {
	Stage   Stage     `json:"stage"`
	Kind    core.Kind `json:"kind,omitempty"`
	Message string    `json:"message"`
	err     error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

// Unwrap exposes the original failure.
func (e *StageError) Unwrap() error { return e.err }

// State is the record of one pipeline run. It is a value: methods that
// advance the run return a new State and leave the receiver untouched.
type State struct {
	RunID     string
	Input     string
	StartedAt time.Time
	UpdatedAt time.Time

	outputs [numStages]string
	current Stage
	err     *StageError
}

// NewState starts a run for input.
func NewState(runID, input string) State {
	now := time.Now().UTC()
	return State{RunID: runID, Input: input, StartedAt: now, UpdatedAt: now}
}

// Output returns the slot of stage (empty until that stage completed).
func (s State) Output(stage Stage) string {
	if !stage.Valid() {
		return ""
	}
	return s.outputs[stage-1]
}

// Current returns the last successfully completed stage.
func (s State) Current() Stage { return s.current }

// Err returns the halt reason or nil.
func (s State) Err() *StageError { return s.err }

// Status derives the run status from the marker and error slot.
func (s State) Status() Status {
	switch {
	case s.err != nil:
		return StatusHalted
	case s.current == StageRefinement:
		return StatusDone
	default:
		return StatusRunning
	}
}

// Done reports whether all five stages completed.
func (s State) Done() bool { return s.Status() == StatusDone }

// Prototype returns the final HTML reply once the run is done.
func (s State) Prototype() (string, bool) {
	if !s.Done() {
		return "", false
	}
	return s.Output(StageRefinement), true
}

// complete records the output of stage. Only the stage directly after the
// current marker may complete, only once, and only while no error is set.
func (s State) complete(stage Stage, output string) (State, error) {
	if s.err != nil {
		return s, fmt.Errorf("run halted at %s", s.err.Stage)
	}
	if want := s.current.Next(); stage != want || !stage.Valid() {
		return s, fmt.Errorf("stage %s completed out of order (expected %s)", stage, want)
	}
	if output == "" {
		return s, fmt.Errorf("stage %s produced empty output", stage)
	}
	next := s
	next.outputs[stage-1] = output
	next.current = stage
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// fail records err as the halt reason at stage. The marker keeps pointing at
// the last completed stage.
func (s State) fail(stage Stage, err error) State {
	next := s
	se := &StageError{Stage: stage, Kind: core.KindOf(err), Message: err.Error(), err: err}
	var existing *StageError
	if errors.As(err, &existing) {
		se = existing
	}
	next.err = se
	next.UpdatedAt = time.Now().UTC()
	return next
}

type stateJSON struct {
	RunID          string      `json:"run_id"`
	Input          string      `json:"user_input"`
	Discovery      string      `json:"discovery_output"`
	Structure      string      `json:"structure_output"`
	Design         string      `json:"design_output"`
	Implementation string      `json:"implementation_output"`
	Refinement     string      `json:"refinement_output"`
	CurrentStage   Stage       `json:"current_stage"`
	Status         Status      `json:"status"`
	Error          *StageError `json:"error,omitempty"`
	StartedAt      time.Time   `json:"started_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// MarshalJSON renders the state with named slots.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		RunID:          s.RunID,
		Input:          s.Input,
		Discovery:      s.Output(StageDiscovery),
		Structure:      s.Output(StageStructure),
		Design:         s.Output(StageDesign),
		Implementation: s.Output(StageImplementation),
		Refinement:     s.Output(StageRefinement),
		CurrentStage:   s.current,
		Status:         s.Status(),
		Error:          s.err,
		StartedAt:      s.StartedAt,
		UpdatedAt:      s.UpdatedAt,
	})
}
