package consensusmc

import (
	"log"

	"consensusmc/checking"
	"consensusmc/config"
	"consensusmc/explorer"
	"consensusmc/stateManager"
)

// Prepare an exhaustive exploration.
//
// Default values will be used if no value is provided.
// By default the state space is explored breadth first without bounds.
func PrepareExploration(opts ...ExplorerOption) Exploration {
	var (
		strategy = explorer.BreadthFirst
		// Maximum number of distinct snapshots discovered
		maxStates = 0
		// Maximum depth of an expanded snapshot
		maxDepth = 0
	)

	for _, opt := range opts {
		switch t := opt.(type) {
		case config.StrategyOption:
			strategy = t.Strategy
		case config.MaxStatesOption:
			maxStates = t.MaxStates
		case config.MaxDepthOption:
			maxDepth = t.MaxDepth
		}
	}
	return Exploration{
		strategy:  strategy,
		maxStates: maxStates,
		maxDepth:  maxDepth,
	}
}

// Stores the configuration of an exploration.
type Exploration struct {
	strategy  explorer.Strategy
	maxStates int
	maxDepth  int
}

// Explore every snapshot reachable from the initial snapshot.
//
// The SystemOption is mandatory.
// All RunOptions are optional. Default values will be used if no values are provided.
//
// Returns the *explorer.Report of the exploration as a checking.CheckerResponse.
func (ex Exploration) Run(system SystemOption, opts ...RunOptions) checking.CheckerResponse {
	rc := newRunConfig(opts...)

	sm := stateManager.NewTreeStateManager()
	e := explorer.NewExplorer(sm, rc.fm, rc.metrics, ex.strategy, ex.maxStates, ex.maxDepth, rc.properties...)
	report, err := e.Explore(system.system())
	if err != nil {
		log.Panicf("Received an error while exploring: %v", err)
	}
	rc.export(sm.State())
	return report
}

// A option used to configure the Explorer
type ExplorerOption interface {
	// noop method
	ExplorerOpt()
}

// Explore the state space breadth first. The first violation found has a shortest run.
func BreadthFirst() ExplorerOption {
	return config.StrategyOption{Strategy: explorer.BreadthFirst}
}

// Explore the state space depth first.
func DepthFirst() ExplorerOption {
	return config.StrategyOption{Strategy: explorer.DepthFirst}
}

// Stop the exploration after discovering maxStates distinct snapshots.
//
// Default value is no bound.
func MaxStates(maxStates int) ExplorerOption {
	return config.MaxStatesOption{MaxStates: maxStates}
}
