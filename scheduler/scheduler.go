package scheduler

import (
	"errors"

	"consensusmc/event"
)

type GlobalScheduler interface {
	// Used to manage the scheduling across several runs.
	// Creates run schedulers that are used by separate goroutines, one run at a time.

	// Create a RunScheduler that will communicate with the global scheduler
	GetRunScheduler() RunScheduler
}

type RunScheduler interface {
	// Selects the actions of a single run.
	// Is only used from a single goroutine.

	// Select the next event from the events enabled in the current snapshot.
	// Will return RunEndedError if no event is enabled or if the scheduler has no more events to schedule in this run.
	// The event returned must be one of the enabled events.
	Next(enabled []event.Event) (event.Event, error)

	// Prepare for starting a new run. Returns a NoRunsError if no more runs should be started.
	StartRun() error
	// Finish the current run and prepare for the next one
	EndRun()
}

var (
	RunEndedError       = errors.New("scheduler: The run has ended. Reset the state.")
	NoRunsError         = errors.New("scheduler: No available new runs to be started")
	ReplayDivergedError = errors.New("scheduler: The replayed event is not enabled")
)
