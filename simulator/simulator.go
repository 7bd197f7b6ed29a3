package simulator

import (
	"fmt"

	"consensusmc/metrics"
	"consensusmc/model"
	"consensusmc/scheduler"
	"consensusmc/stateManager"
)

// Simulates runs of the protocol
//
// Every run starts from the same initial snapshot and is driven by its own run scheduler.
// Several runs are simulated concurrently, each goroutine owning the snapshots of its run.
type Simulator struct {

	// The scheduler selects the events of the runs
	Scheduler scheduler.GlobalScheduler

	sm      stateManager.StateManager
	driver  *Driver
	metrics *metrics.Metrics

	// If true will ignore all errors while simulating runs. Will return aggregate of errors at the end. If false will interrupt simulation if an error occur
	ignoreErrors bool

	// If true will ignore panics that are raised during the simulation. If false will catch the panic and return it as an error.
	ignorePanics bool

	maxRuns       int
	maxDepth      int
	numConcurrent int
}

// Create a new simulator
//
// Configure the simulator with the Scheduler and the StateManager used for the simulation.
// The driver applies the events and checks the properties after every step.
// m records the progress of the simulation and may be nil.
//
// ignoreErrors specifies whether to ignore errors. If errors are ignored the simulation will continue simulating runs even if errors occur in some runs.
// A summary of the errors will be provided at the end.
//
// ignorePanics specifies whether to ignore panics. If panics are not ignored the simulation will catch panics that occur when executing events and return them.
//
// maxRuns specifies the maximum number of runs to be simulated.
//
// maxDepth specifies the maximum depth of the simulation, i.e. the number of events in a run. A maxDepth less than one does not bound the runs.
//
// numConcurrent specifies the maximum number of runs that are concurrently simulated.
func NewSimulator(sch scheduler.GlobalScheduler, sm stateManager.StateManager, driver *Driver, m *metrics.Metrics, ignoreErrors bool, ignorePanics bool, maxRuns int, maxDepth int, numConcurrent int) *Simulator {
	return &Simulator{
		Scheduler: sch,
		sm:        sm,
		driver:    driver,
		metrics:   m,

		ignoreErrors: ignoreErrors,
		ignorePanics: ignorePanics,

		maxRuns:       maxRuns,
		maxDepth:      maxDepth,
		numConcurrent: numConcurrent,
	}
}

// Simulate runs starting from the initial snapshot.
//
// The runs are added to the state manager.
// Simulate returns nil if it runs to completion or reaches the max number of runs.
// It returns an error if a run broke a property or could not be completed.
func (s *Simulator) Simulate(initial *model.System) error {
	if initial == nil {
		return fmt.Errorf("%w: no initial snapshot", ErrConfiguration)
	}
	if s.maxRuns < 1 || s.numConcurrent < 1 {
		return fmt.Errorf("%w: maxRuns and numConcurrent must be positive. Got %v and %v", ErrConfiguration, s.maxRuns, s.numConcurrent)
	}

	// Used to signal to start the next run
	nextRun := make(chan bool)
	// used by runSimulators to signal that a run has been completed to the main loop. Errors are also returned
	status := make(chan error)
	// Used by the runSimulators to signal that they have stopped executing runs and have closed the goroutine
	// Main loop stops when all runSimulators have stopped executing runs
	closing := make(chan bool)

	ongoing := 0
	startedRuns := 0
	for ongoing < s.numConcurrent {
		ongoing++
		rsim := newRunSimulator(s.Scheduler.GetRunScheduler(), s.sm.GetRunStateManager(), s.driver, s.metrics, s.maxDepth, s.ignorePanics)
		go rsim.SimulateRuns(nextRun, status, closing, initial)

		// Send a signal to start processing runs
		startedRuns++
		nextRun <- true

		if startedRuns >= s.maxRuns {
			break
		}
	}

	return s.mainLoop(ongoing, startedRuns, nextRun, status, closing)
}

// The main loop of the simulation.
//
// Manages the simulation of runs and coordinates the runSimulators.
//
// Receives status updates from each of the runSimulators. One status update for each completed run.
// Processes the status updates and signals for the runSimulator to begin simulating the next run.
// Does not start new simulations if more than maxRuns simulations has been started.
// Returns when all runSimulators has stopped running.
func (s *Simulator) mainLoop(ongoing int, startedRuns int, nextRun chan bool, status chan error, closing chan bool) error {
	errorSlice := []error{}
	var out error

	// Stop the simulation by closing the nextRun channel if it is not already closed
	stopped := false
	stop := func() {
		if !stopped {
			stopped = true
			close(nextRun)
		}
	}
	// Loop until all runSimulators has stopped simulating
	for ongoing > 0 {
		select {
		case err := <-status:
			// Handle errors depending on whether the ignoreErrors flag is set or not
			if err != nil {
				if !s.ignoreErrors {
					if out == nil {
						out = err
					}
					stop()
					break
				}
				errorSlice = append(errorSlice, err)
			}

			if stopped {
				break
			}
			if startedRuns < s.maxRuns {
				// A runSimulator may stop while we wait, so the signal is sent in a select with closing
				s.signalNextRun(nextRun, closing, &ongoing)
				startedRuns++
			} else {
				stop()
			}
		case <-closing:
			ongoing--
		}
	}

	stop()

	// Can safely close the closing and status channels, since we know that all runSimulators has completed and will not try to send on them
	close(closing)
	close(status)

	if s.ignoreErrors && len(errorSlice) > 0 {
		return simulationError{
			errorSlice: errorSlice,
		}
	}
	return out
}

func (s *Simulator) signalNextRun(nextRun chan bool, closing chan bool, ongoing *int) {
	for {
		select {
		case nextRun <- true:
			return
		case <-closing:
			*ongoing--
			if *ongoing == 0 {
				return
			}
		}
	}
}
