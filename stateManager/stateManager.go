package stateManager

import (
	"consensusmc/state"
)

// Manages the global state across several runs.
type StateManager interface {
	GetRunStateManager() *RunStateManager
	AddRun(run state.Trace)
	State() state.StateSpace
}
