package explorer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/failureManager"
	"consensusmc/metrics"
	"consensusmc/model"
	"consensusmc/state"
	"consensusmc/stateManager"
	"consensusmc/tree"
)

var ErrConfiguration = errors.New("explorer: Invalid configuration")

// The order in which the frontier is explored
type Strategy int

const (
	BreadthFirst Strategy = iota
	DepthFirst
)

func (s Strategy) String() string {
	switch s {
	case BreadthFirst:
		return "BreadthFirst"
	case DepthFirst:
		return "DepthFirst"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Exhaustively explores the snapshots reachable from an initial snapshot.
//
// Every transition is checked against the Always properties, also when it leads to a snapshot that has already been explored,
// since properties like Integrity look at the previous snapshot as well.
// Snapshots are deduplicated by their canonical key, so every snapshot is expanded once.
// A snapshot breaking a property is not expanded further.
type Explorer struct {
	sm         *stateManager.TreeStateManager
	fm         failureManager.FailureManager
	metrics    *metrics.Metrics
	properties []checking.Property

	strategy Strategy
	// The search stops after discovering maxStates distinct snapshots. Not bounded if less than one
	maxStates int
	// Snapshots deeper than maxDepth are not expanded. Not bounded if less than one
	maxDepth int
}

// Create a new Explorer
//
// The discovered state space is stored in sm. m records the progress of the search and may be nil.
func NewExplorer(sm *stateManager.TreeStateManager, fm failureManager.FailureManager, m *metrics.Metrics, strategy Strategy, maxStates int, maxDepth int, properties ...checking.Property) *Explorer {
	return &Explorer{
		sm:         sm,
		fm:         fm,
		metrics:    m,
		properties: properties,

		strategy:  strategy,
		maxStates: maxStates,
		maxDepth:  maxDepth,
	}
}

type node = tree.Tree[state.GlobalState]

// Explore the state space reachable from the initial snapshot.
//
// Returns an error only if an enabled event could not be executed. Broken properties are reported in the Report.
func (e *Explorer) Explore(initial *model.System) (*Report, error) {
	return e.ExploreContext(context.Background(), initial)
}

// Explore the state space until it is exhausted or ctx is done.
//
// If ctx is done first, the partial report is returned, marked as truncated, together with the error of ctx.
func (e *Explorer) ExploreContext(ctx context.Context, initial *model.System) (*Report, error) {
	if initial == nil {
		return nil, fmt.Errorf("%w: no initial snapshot", ErrConfiguration)
	}
	if e.strategy != BreadthFirst && e.strategy != DepthFirst {
		return nil, fmt.Errorf("%w: unknown strategy %v", ErrConfiguration, e.strategy)
	}
	report := newReport(e.properties)

	root, _ := e.sm.Discover(nil, state.New(initial, state.CreateEventRecord(nil)))
	e.metrics.RecordState(false)
	frontier := []*node{}
	if e.evaluate(report, state.Trace{root.Payload()}, false) {
		frontier = append(frontier, root)
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			report.States = e.sm.Len()
			report.Truncated = true
			return report, err
		}
		e.metrics.UpdateFrontier(len(frontier))
		var current *node
		if e.strategy == BreadthFirst {
			current, frontier = frontier[0], frontier[1:]
		} else {
			current, frontier = frontier[len(frontier)-1], frontier[:len(frontier)-1]
		}
		if current.Depth() > report.MaxDepth {
			report.MaxDepth = current.Depth()
		}

		sys := current.Payload().System
		enabled := event.Enabled(sys, e.fm)
		if len(enabled) == 0 {
			report.Terminal++
			e.evaluateTerminal(report, current)
			continue
		}
		if e.maxDepth > 0 && current.Depth() >= e.maxDepth {
			report.Truncated = true
			continue
		}

		path := state.Trace(current.Path())
		for _, evt := range enabled {
			next, err := evt.Execute(sys)
			if err != nil {
				return report, fmt.Errorf("explorer: executing enabled event %v: %w", evt, err)
			}
			report.Transitions++
			e.metrics.RecordStep(string(evt.Action()))

			gs := state.New(next, state.CreateEventRecord(evt))
			sequence := append(path[:len(path):len(path)], gs)
			if !e.evaluate(report, sequence, false) {
				continue
			}

			child, isNew := e.sm.Discover(current, gs)
			e.metrics.RecordState(!isNew)
			if !isNew {
				continue
			}
			if e.maxStates > 0 && e.sm.Len() >= e.maxStates {
				report.States = e.sm.Len()
				report.Truncated = true
				log.Printf("explorer: Stopped after discovering %v states", report.States)
				return report, nil
			}
			frontier = append(frontier, child)
		}
	}
	e.metrics.UpdateFrontier(0)
	report.States = e.sm.Len()
	return report, nil
}

// Evaluate the properties on the last state of the sequence.
// Returns false if an Always property is broken.
func (e *Explorer) evaluate(report *Report, sequence state.Trace, terminal bool) bool {
	ev := checking.Evaluate(e.properties, checking.NewState(sequence, terminal))
	for _, name := range ev.Witnessed {
		if _, ok := report.Witnesses[name]; !ok {
			report.Witnesses[name] = sequence
		}
	}
	if ev.Violated == "" {
		return true
	}
	e.metrics.RecordViolation(ev.Violated)
	if _, ok := report.violated[ev.Violated]; !ok {
		report.violated[ev.Violated] = true
		report.Violations = append(report.Violations, &checking.InvariantViolation{
			Predicate: ev.Violated,
			Trace:     sequence,
		})
	}
	return false
}

// Evaluate the Eventually properties on a snapshot where no event is enabled
func (e *Explorer) evaluateTerminal(report *Report, current *node) {
	sequence := state.Trace(current.Path())
	ev := checking.Evaluate(e.properties, checking.NewState(sequence, true))
	if len(ev.Stalled) == 0 {
		return
	}
	report.Stalls++
	e.metrics.RecordStall()
	if report.FirstStall == nil {
		report.FirstStall = sequence
	}
}
