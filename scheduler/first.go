package scheduler

import "consensusmc/event"

// A deterministic scheduler that always picks the first enabled event.
//
// Since enabled events are sorted by id, the run only depends on the initial snapshot.
// Useful to get a reproducible run without recording it.
type First struct{}

func NewFirst() *First {
	return &First{}
}

func (f *First) GetRunScheduler() RunScheduler {
	return &firstRun{}
}

type firstRun struct{}

func (fr *firstRun) Next(enabled []event.Event) (event.Event, error) {
	if len(enabled) == 0 {
		return nil, RunEndedError
	}
	return enabled[0], nil
}

func (fr *firstRun) StartRun() error { return nil }

func (fr *firstRun) EndRun() {}
