package state

import (
	"fmt"

	"consensusmc/event"
	"consensusmc/model"
)

// The global state of the system at one step of a run
type GlobalState struct {
	// The snapshot reached after the event. Read only.
	System *model.System

	// A record of the event that caused the transition into this state
	Evt EventRecord

	// True if a run was cut short in this state while events were still enabled
	Truncated bool
}

func New(sys *model.System, evt EventRecord) GlobalState {
	return GlobalState{System: sys, Evt: evt}
}

// The canonical key of the snapshot
func (gs GlobalState) Key() string {
	return gs.System.Key()
}

func (gs GlobalState) String() string {
	return fmt.Sprintf("Evt: %v\t %v\t Crashed: %v\t", gs.Evt, gs.System, gs.System.FaultyNodes())
}

// A sequence of global states, starting with the initial state of the run.
type Trace []GlobalState

// Return the ids of the events in the trace, skipping the initial state.
// The result can be replayed with scheduler.NewReplay.
func (t Trace) EventIds() []event.EventId {
	out := []event.EventId{}
	for _, gs := range t {
		if gs.Evt.Id == "" {
			continue
		}
		out = append(out, gs.Evt.Id)
	}
	return out
}

// The last snapshot of the trace, or nil if the trace is empty.
func (t Trace) Last() *model.System {
	if len(t) == 0 {
		return nil
	}
	return t[len(t)-1].System
}
