package scheduler

import (
	"fmt"
	"sync"

	"consensusmc/event"
)

// Replays a recorded run.
//
// The run is represented as the sequence of event ids, e.g. as exported by checking.CheckerResponse.Export.
// Only a single run is replayed.
type Replay struct {
	sync.Mutex
	run  []event.EventId
	done bool
}

func NewReplay(run []event.EventId) *Replay {
	return &Replay{
		run: run,
	}
}

func (r *Replay) GetRunScheduler() RunScheduler {
	r.Lock()
	defer r.Unlock()
	if r.done {
		return newRunReplay(nil)
	}
	r.done = true
	return newRunReplay(r.run)
}

type runReplay struct {
	// A slice of the run to be replayed with event ids in order
	run []event.EventId
	// The index of the current event
	index int
}

func newRunReplay(run []event.EventId) *runReplay {
	return &runReplay{
		index: 0,
		run:   run,
	}
}

// Get the next event of the recorded run.
//
// Returns RunEndedError when the recorded run is exhausted
// and a ReplayDivergedError if the recorded event is not enabled, i.e. the run can not be reproduced.
func (rr *runReplay) Next(enabled []event.Event) (event.Event, error) {
	if rr.index >= len(rr.run) {
		return nil, RunEndedError
	}
	evtId := rr.run[rr.index]
	evt := event.Find(enabled, evtId)
	if evt == nil {
		return nil, fmt.Errorf("%w: step %v, event %q", ReplayDivergedError, rr.index, evtId)
	}
	rr.index++
	return evt, nil
}

func (rr *runReplay) StartRun() error {
	if rr.run == nil {
		return NoRunsError
	}
	return nil
}

// Finish the current run. A replay scheduler only replays once.
func (rr *runReplay) EndRun() {
	rr.index = 0
	rr.run = nil
}
