package stateManager

import (
	"consensusmc/event"
	"consensusmc/model"
	"consensusmc/state"
)

// A type that manages the state of a single run at a time.
//
// Should only be accessed from a single goroutine at a time.
// When the run has been completed and the EndRun function is called the run is handed to the StateManager and the state is reset.
// The RunStateManager can then safely be used on a new run.
type RunStateManager struct {
	sm StateManager

	run state.Trace
}

// Create a new RunStateManager
//
// Is initialized with a reference to the StateManager that created it.
func NewRunStateManager(sm StateManager) *RunStateManager {
	return &RunStateManager{
		sm:  sm,
		run: make(state.Trace, 0),
	}
}

// Add the snapshot to the current run
//
// sys is the snapshot reached. It must not be mutated afterwards.
// evt is the event that caused the transition into the snapshot, nil for the initial snapshot.
func (rsm *RunStateManager) UpdateGlobalState(sys *model.System, evt event.Event) {
	rsm.run = append(rsm.run, state.New(sys, state.CreateEventRecord(evt)))
}

// The run collected so far
func (rsm *RunStateManager) Run() state.Trace {
	return rsm.run
}

// Mark the last state of the current run as cut short
func (rsm *RunStateManager) Truncate() {
	if len(rsm.run) > 0 {
		rsm.run[len(rsm.run)-1].Truncated = true
	}
}

func (rsm *RunStateManager) EndRun() {
	rsm.sm.AddRun(rsm.run)
	rsm.run = make(state.Trace, 0)
}
