package checking

import (
	"consensusmc/model"
	"consensusmc/state"
)

// The state of the system at the current point of execution
type State struct {
	// The current snapshot
	System *model.System
	// The snapshot before the last event. Nil for the initial state of a run.
	Prev *model.System
	// True if no event is enabled in the current snapshot. False otherwise, also where a run was cut short.
	IsTerminal bool
	// The sequence of GlobalStates that lead to this State, the current state included.
	Sequence state.Trace
}

// Create the State of the last element of the sequence.
func NewState(sequence state.Trace, terminal bool) State {
	s := State{
		System:     sequence.Last(),
		IsTerminal: terminal,
		Sequence:   sequence,
	}
	if len(sequence) > 1 {
		s.Prev = sequence[len(sequence)-2].System
	}
	return s
}
