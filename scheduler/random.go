package scheduler

import (
	"math/rand"
	"sync"

	"consensusmc/event"
)

// A scheduler that randomly picks the next event from the enabled events.
//
// It is useful for testing a random selection of the state space when the state space is to large to perform an exhaustive search.
// It provides no guarantee that all errors have been found, but since it is random it generally contains a larger spread in the states that are checked compared to the exhaustive search.
type Random struct {
	sync.Mutex
	rand *rand.Rand
}

// Create a new Random scheduler
//
// Initialized with a seed which is used to generate the seeds of the run-specific schedulers.
// The same seed and the same number of run schedulers give the same runs.
func NewRandom(seed int64) *Random {
	return &Random{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Create a RunScheduler with a seed drawn from the global scheduler.
func (r *Random) GetRunScheduler() RunScheduler {
	r.Lock()
	defer r.Unlock()
	return newRandomRun(r.rand.Int63())
}

type randomRun struct {
	rand *rand.Rand
}

func newRandomRun(seed int64) *randomRun {
	return &randomRun{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Get the next event in the run.
//
// Uniformly selects one of the enabled events.
// Will return RunEndedError if no event is enabled.
func (rs *randomRun) Next(enabled []event.Event) (event.Event, error) {
	if len(enabled) == 0 {
		return nil, RunEndedError
	}
	return enabled[rs.rand.Intn(len(enabled))], nil
}

// Prepare for starting a new run.
//
// A random scheduler never runs out of runs. Each run continues the random sequence of the previous one,
// so consecutive runs of the same run scheduler differ.
func (rs *randomRun) StartRun() error {
	return nil
}

func (rs *randomRun) EndRun() {}
