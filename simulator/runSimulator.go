package simulator

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/metrics"
	"consensusmc/model"
	"consensusmc/protocol"
	"consensusmc/scheduler"
	"consensusmc/stateManager"
)

type runSimulator struct {
	sch     scheduler.RunScheduler
	sm      *stateManager.RunStateManager
	driver  *Driver
	metrics *metrics.Metrics

	maxDepth     int
	ignorePanics bool
}

func newRunSimulator(sch scheduler.RunScheduler, sm *stateManager.RunStateManager, driver *Driver, m *metrics.Metrics, maxDepth int, ignorePanics bool) *runSimulator {
	return &runSimulator{
		sch:     sch,
		sm:      sm,
		driver:  driver,
		metrics: m,

		maxDepth:     maxDepth,
		ignorePanics: ignorePanics,
	}
}

// Main loop of the runSimulator.
// Continuously listens to the nextRun channel and starts simulating a new run each time it receives a signal.
// Stops simulating runs when the channel is closed or when a scheduler.NoRunsError is returned.
// Sends the status of each run on the status channel.
// When it closes it sends an indication on the closing channel
func (rs *runSimulator) SimulateRuns(nextRun chan bool, status chan error, closing chan bool, initial *model.System) {
	// Continue executing runs until the nextRun channel is closed or until the scheduler returns NoRunsError
	for range nextRun {
		err := rs.simulateRun(initial)
		if errors.Is(err, scheduler.NoRunsError) {
			break
		}
		// Send error to main loop
		status <- err
	}

	// Indicate that the runSimulator has stopped
	closing <- true
}

func (rs *runSimulator) simulateRun(initial *model.System) (err error) {
	if err := rs.sch.StartRun(); err != nil {
		return err
	}
	// Always hand the run to the state manager, also when it was cut short by an error
	defer rs.sm.EndRun()
	defer rs.sch.EndRun()

	if !rs.ignorePanics {
		// Catch all panics that occur while executing the run. These are caused by faults in the implementation and are therefore reported to the simulator.
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("Simulator: Panicked while simulating a run: %v \nStack Trace:\n %s", p, debug.Stack())
			}
		}()
	}

	trace, err := rs.driver.run(initial, rs.sch, rs.maxDepth, rs.observe)
	if err == nil && len(rs.driver.Enabled(trace.Last())) > 0 {
		// Stopped by maxDepth or by the end of a replay
		rs.sm.Truncate()
	}
	rs.record(trace.Last(), len(trace)-1, err)
	var violation *checking.InvariantViolation
	if errors.As(err, &violation) {
		return err
	}
	if errors.Is(err, protocol.ErrPreconditionViolation) {
		// An enabled event must always be executable
		log.Panicf("Simulator: %v", err)
	}
	if err != nil {
		return fmt.Errorf("Simulator: An error occurred while simulating a run: %w", err)
	}
	return nil
}

func (rs *runSimulator) observe(sys *model.System, evt event.Event) {
	rs.sm.UpdateGlobalState(sys, evt)
	if evt != nil {
		rs.metrics.RecordStep(string(evt.Action()))
	}
}

// Record the outcome of the run
func (rs *runSimulator) record(last *model.System, length int, err error) {
	var violation *checking.InvariantViolation
	switch {
	case errors.As(err, &violation):
		rs.metrics.RecordViolation(violation.Predicate)
		rs.metrics.RecordRun(metrics.OutcomeViolated, length)
	case err != nil:
		rs.metrics.RecordRun(metrics.OutcomeError, length)
	case Query(last).Stalled:
		rs.metrics.RecordStall()
		rs.metrics.RecordRun(metrics.OutcomeStalled, length)
	case allDecided(last):
		rs.metrics.RecordRun(metrics.OutcomeDecided, length)
	default:
		rs.metrics.RecordRun(metrics.OutcomeTruncated, length)
	}
}

// Returns true if every correct node has decided
func allDecided(sys *model.System) bool {
	for _, n := range sys.Nodes {
		if !n.Faulty && !n.Decided() {
			return false
		}
	}
	return true
}
