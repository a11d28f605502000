package pipeline

import (
	"fmt"

	"github.com/hupe1980/protoforge/agent"
)

// Stage is one step of the fixed chain. The zero value StageNone marks a run
// in which no stage has completed yet.
type Stage int

const (
	StageNone Stage = iota
	StageDiscovery
	StageStructure
	StageDesign
	StageImplementation
	StageRefinement
)

const numStages = int(StageRefinement)

var stageAgents = [...]agent.ID{
	StageDiscovery:      agent.Discovery,
	StageStructure:      agent.Structure,
	StageDesign:         agent.Design,
	StageImplementation: agent.Implementation,
	StageRefinement:     agent.Refinement,
}

// Stages returns all stages in execution order.
func Stages() []Stage {
	return []Stage{StageDiscovery, StageStructure, StageDesign, StageImplementation, StageRefinement}
}

// Valid reports whether s is one of the five executable stages.
func (s Stage) Valid() bool { return s >= StageDiscovery && s <= StageRefinement }

// AgentID returns the agent that executes s.
func (s Stage) AgentID() agent.ID {
	if !s.Valid() {
		return ""
	}
	return stageAgents[s]
}

// Next returns the stage following s, or StageNone after refinement.
func (s Stage) Next() Stage {
	if s >= StageRefinement || s < StageNone {
		return StageNone
	}
	return s + 1
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if s == StageNone {
		return "none"
	}
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return string(stageAgents[s])
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage maps a stage (agent) name to a Stage.
func ParseStage(name string) (Stage, error) {
	if name == "none" || name == "" {
		return StageNone, nil
	}
	for _, s := range Stages() {
		if string(stageAgents[s]) == name {
			return s, nil
		}
	}
	return StageNone, fmt.Errorf("unknown stage %q", name)
}
