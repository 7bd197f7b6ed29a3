package consensusmc

import (
	"errors"
	"log"
	"runtime"

	"consensusmc/checking"
	"consensusmc/config"
	"consensusmc/event"
	"consensusmc/scheduler"
	"consensusmc/simulator"
	"consensusmc/stateManager"
)

// Prepare simulation with initial configuration.
//
// Initializes the simulator with the necessary parameters.
// See the SimulatorOptions for a full overview of possible options.
// Default values will be used if no value is provided.
// Default scheduler is a RandomWalkScheduler with seed 0.
func PrepareSimulation(opts ...SimulatorOption) Simulation {
	var (
		// Maximum number of runs simulated
		maxRuns = 10000

		// Maximum number of events in a run
		maxDepth = 100

		// number of runs that is simulated at the same time
		numConcurrent = runtime.GOMAXPROCS(0) // Will not change GOMAXPROCS but only return the current value

		// If true will ignore all errors while simulating runs. Will return aggregate of errors at the end. If false will interrupt simulation if an error occur
		ignoreErrors = false

		// If true will ignore panics that occur during the simulation and let them execute as normal, stopping the simulation. If false will catch the panic and return it as an error.
		// ignoring the panic will make it easier to troubleshoot the error since you can use the debugger to inspect the state when it panics. It will also make the simulation stop.
		ignorePanics = false

		sch scheduler.GlobalScheduler
	)

	// Use the simulator options to configure
	for _, opt := range opts {
		switch t := opt.(type) {
		case config.SchedulerOption:
			sch = t.Sch
		case config.MaxRunsOption:
			maxRuns = t.MaxRuns
		case config.MaxDepthOption:
			maxDepth = t.MaxDepth
		case config.NumConcurrentOption:
			numConcurrent = t.N
		case config.IgnoreErrorOption:
			ignoreErrors = true
		case config.IgnorePanicOption:
			ignorePanics = true
		}
	}
	if sch == nil {
		sch = scheduler.NewRandom(0)
	}

	return Simulation{
		sch: sch,

		ignoreErrors: ignoreErrors,
		ignorePanics: ignorePanics,

		maxRuns:       maxRuns,
		maxDepth:      maxDepth,
		numConcurrent: numConcurrent,
	}
}

// Stores the configuration of the simulations.
//
// A simulation is started by calling the Run method.
// Only one simulation can be run at a time.
type Simulation struct {
	sch scheduler.GlobalScheduler

	ignoreErrors bool
	ignorePanics bool

	maxRuns       int
	maxDepth      int
	numConcurrent int
}

// Run the simulation of the protocol.
//
// The SystemOption is mandatory.
// All RunOptions are optional. Default values will be used if no values are provided.
//
// Returns a checking.CheckerResponse type containing the results of the simulation.
// If a run broke a safety property the response is the *checking.InvariantViolation, and its run can be replayed with ReplayScheduler.
// Otherwise the discovered state space is checked with a checking.PredicateChecker.
func (sr Simulation) Run(system SystemOption, opts ...RunOptions) checking.CheckerResponse {
	rc := newRunConfig(opts...)
	initial := system.system()

	sm := stateManager.NewTreeStateManager()
	driver := simulator.NewDriver(rc.fm, rc.properties...)
	sim := simulator.NewSimulator(sr.sch, sm, driver, rc.metrics, sr.ignoreErrors, sr.ignorePanics, sr.maxRuns, sr.maxDepth, sr.numConcurrent)

	err := sim.Simulate(initial)
	rc.export(sm.State())

	var violation *checking.InvariantViolation
	if errors.As(err, &violation) {
		return violation
	}
	if err != nil {
		log.Panicf("Received an error while running simulation: %v", err)
	}
	return checking.NewPredicateChecker(rc.properties...).Check(sm.State())
}

// A option used to configure the Simulator
type SimulatorOption interface {
	// noop method
	SimOpt()
}

// Use a random walk scheduler for the simulation.
//
// The random walk scheduler is a randomized scheduler.
// It uniformly picks the next event to be scheduled from the currently enabled events.
// It does not have a designated stop point, and will continue to schedule events until maxRuns is reached.
// It does not guarantee that all runs have been tested, nor does it guarantee that the same run will not be simulated multiple times.
// Generally, it provides a more even/varied exploration of the state space than systematic exploration
func RandomWalkScheduler(seed int64) SimulatorOption {
	return config.SchedulerOption{Sch: scheduler.NewRandom(seed)}
}

// Use a replay scheduler for the simulation
//
// The replay scheduler replays the provided run, returning an error if it is unable to reproduce it
// The provided run is represented as a slice of event ids, and can be exported using the CheckerResponse.Export()
func ReplayScheduler(run []event.EventId) SimulatorOption {
	return config.SchedulerOption{Sch: scheduler.NewReplay(run)}
}

// Use a scheduler that always picks the first enabled event.
//
// Every run is the same run, so it is mostly useful with MaxRuns(1).
func FirstScheduler() SimulatorOption {
	return config.SchedulerOption{Sch: scheduler.NewFirst()}
}

// Use the provided scheduler for the simulation
//
// Used to configure the simulation to use a different implementation of scheduler than is commonly provided
func WithScheduler(sch scheduler.GlobalScheduler) SimulatorOption {
	return config.SchedulerOption{Sch: sch}
}

// Configure the maximum number of runs simulated
//
// Default value is 10000
func MaxRuns(maxRuns int) SimulatorOption {
	return config.MaxRunsOption{MaxRuns: maxRuns}
}

// Configure the maximum depth explored.
//
// Default value is 100 when simulating and unbounded when exploring.
// A value less than one removes the bound.
//
// Note that liveness properties can not be verified if a run is not fully explored to its end.
func MaxDepth(maxDepth int) config.MaxDepthOption {
	return config.MaxDepthOption{MaxDepth: maxDepth}
}

// Configure the number of runs that will be executed concurrently.
//
// Default value is GOMAXPROCS
func NumConcurrent(n int) SimulatorOption {
	return config.NumConcurrentOption{N: n}
}

// Set the ignorePanic flag to true.
//
// If true will ignore panics that occur during the simulation and let them execute as normal, stopping the simulation.
// If false will catch the panic and return it as an error.
// Ignoring the panic will make it easier to troubleshoot the error since you can use the debugger to inspect the state when it panics. It will also make the simulation stop.
func IgnorePanic() SimulatorOption {
	return config.IgnorePanicOption{}
}

// Set the ignoreError flag to true.
//
// If true will ignore all errors while simulating runs. Will return aggregate of errors at the end.
// If false will interrupt simulation if an error occur.
func IgnoreError() SimulatorOption {
	return config.IgnoreErrorOption{}
}
