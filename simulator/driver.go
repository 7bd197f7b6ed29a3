package simulator

import (
	"errors"
	"fmt"
	"log"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/failureManager"
	"consensusmc/model"
	"consensusmc/quorum"
	"consensusmc/scheduler"
	"consensusmc/state"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrConfiguration    = errors.New("simulator: Invalid configuration")
	ErrNoEnabledActions = errors.New("simulator: No action is enabled")
	ErrNotEnabled       = errors.New("simulator: The action is not enabled")
)

type initOptions struct {
	maxLosses int
}

type InitOption func(*initOptions)

// Bound the number of messages that can be lost in a run.
// model.UnlimitedLosses, the default, removes the bound.
func WithMaxLosses(maxLosses int) InitOption {
	return func(o *initOptions) {
		o.maxLosses = maxLosses
	}
}

// Create the initial snapshot of the system.
//
// Returns an error wrapping ErrConfiguration if there are no nodes, if a node id is repeated,
// if there are no values, if a value is the null value, if maxFailures is negative or larger than the number of nodes,
// or if the loss bound is invalid.
// A failure bound that is not smaller than the quorum is accepted, but Agreement is then no longer guaranteed, so a warning is logged.
// A bound that leaves fewer correct nodes than a quorum is logged as well.
func Initialize(nodeIds []int, values []model.Value, maxFailures int, opts ...InitOption) (*model.System, error) {
	cfg := initOptions{maxLosses: model.UnlimitedLosses}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(nodeIds) == 0 {
		return nil, fmt.Errorf("%w: at least one node is required", ErrConfiguration)
	}
	ids := map[int]bool{}
	for _, id := range nodeIds {
		if ids[id] {
			return nil, fmt.Errorf("%w: node id %v is repeated", ErrConfiguration, id)
		}
		ids[id] = true
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one value is required", ErrConfiguration)
	}
	if slices.Contains(values, model.Null) {
		return nil, fmt.Errorf("%w: the null value can not be proposed", ErrConfiguration)
	}
	if maxFailures < 0 || maxFailures > len(nodeIds) {
		return nil, fmt.Errorf("%w: maxFailures must be between 0 and %v. Got %v", ErrConfiguration, len(nodeIds), maxFailures)
	}
	if cfg.maxLosses < model.UnlimitedLosses {
		return nil, fmt.Errorf("%w: maxLosses must be at least %v. Got %v", ErrConfiguration, model.UnlimitedLosses, cfg.maxLosses)
	}
	if q := quorum.Size(len(nodeIds)); maxFailures >= q {
		log.Printf("simulator: maxFailures %v is not smaller than the quorum %v. Agreement may not hold.", maxFailures, q)
	} else if tolerable := quorum.MaxTolerable(len(nodeIds)); maxFailures > tolerable {
		log.Printf("simulator: maxFailures %v leaves less than a quorum of correct nodes. At most %v can crash without stalling every run.", maxFailures, tolerable)
	}

	uniqueValues := map[model.Value]bool{}
	for _, v := range values {
		uniqueValues[v] = true
	}
	return model.NewSystem(nodeIds, maps.Keys(uniqueValues), maxFailures, cfg.maxLosses), nil
}

// Drives a single run over immutable snapshots.
//
// The driver computes the enabled events with the failure manager, lets a scheduler pick one and applies it.
// A Driver holds no run state, so it can be shared between goroutines.
type Driver struct {
	fm         failureManager.FailureManager
	properties []checking.Property
}

// Create a new Driver.
//
// The properties are checked by RunToQuiescence after every step. Only the Always properties can abort a run.
func NewDriver(fm failureManager.FailureManager, properties ...checking.Property) *Driver {
	return &Driver{
		fm:         fm,
		properties: properties,
	}
}

// The properties checked by the driver
func (d *Driver) Properties() []checking.Property {
	return d.properties
}

// The events enabled in the snapshot
func (d *Driver) Enabled(sys *model.System) []event.Event {
	return event.Enabled(sys, d.fm)
}

// Let the run scheduler pick one of the enabled events and apply it.
//
// Returns ErrNoEnabledActions if the snapshot is quiescent.
// Returns the error of the scheduler if it does not select an event, e.g. scheduler.RunEndedError at the end of a replay.
// The snapshot passed in is never modified.
func (d *Driver) Step(sys *model.System, sch scheduler.RunScheduler) (*model.System, event.Event, error) {
	enabled := d.Enabled(sys)
	if len(enabled) == 0 {
		return sys, nil, ErrNoEnabledActions
	}
	evt, err := sch.Next(enabled)
	if err != nil {
		return sys, nil, err
	}
	next, err := evt.Execute(sys)
	if err != nil {
		return sys, evt, fmt.Errorf("simulator: executing %v: %w", evt, err)
	}
	return next, evt, nil
}

// Apply the enabled event with the provided id.
//
// Returns an error wrapping ErrNotEnabled if no such event is enabled in the snapshot.
func (d *Driver) Apply(sys *model.System, id event.EventId) (*model.System, event.Event, error) {
	evt := event.Find(d.Enabled(sys), id)
	if evt == nil {
		return sys, nil, fmt.Errorf("%w: %q", ErrNotEnabled, id)
	}
	next, err := evt.Execute(sys)
	if err != nil {
		return sys, evt, fmt.Errorf("simulator: executing %v: %w", evt, err)
	}
	return next, evt, nil
}

// Step until no event is enabled, the scheduler ends the run or maxSteps events have been applied.
//
// A maxSteps less than one does not bound the run. Every run of the protocol is finite.
// Returns the trace of the run, starting with sys.
// If a property is broken, the run stops and the error is a *checking.InvariantViolation carrying the trace.
// Reaching maxSteps is not an error.
func (d *Driver) RunToQuiescence(sys *model.System, sch scheduler.RunScheduler, maxSteps int) (state.Trace, error) {
	return d.run(sys, sch, maxSteps, nil)
}

// Execute a run. observe, if not nil, is called with every snapshot added to the trace and the event that lead to it.
func (d *Driver) run(sys *model.System, sch scheduler.RunScheduler, maxSteps int, observe func(*model.System, event.Event)) (state.Trace, error) {
	trace := state.Trace{}
	add := func(sys *model.System, evt event.Event) error {
		trace = append(trace, state.New(sys, state.CreateEventRecord(evt)))
		if observe != nil {
			observe(sys, evt)
		}
		return checking.CheckState(d.properties, checking.NewState(trace, false))
	}

	if err := add(sys, nil); err != nil {
		return trace, err
	}
	for steps := 0; maxSteps < 1 || steps < maxSteps; steps++ {
		next, evt, err := d.Step(trace.Last(), sch)
		if errors.Is(err, ErrNoEnabledActions) || errors.Is(err, scheduler.RunEndedError) {
			return trace, nil
		}
		if err != nil {
			return trace, err
		}
		if err := add(next, evt); err != nil {
			return trace, err
		}
	}
	return trace, nil
}

// A summary of a snapshot
type Result struct {
	// The decided value of every node. model.Null if the node has not decided.
	Decided map[int]model.Value
	// The crashed nodes, sorted
	Faulty []int
	// The number of messages in flight, copies included
	MessageCount int
	// True if no node can take an action on its own but some correct node has not decided.
	// Only message losses and crashes may still be enabled. This is a liveness stall, not an error.
	Stalled bool
}

// Summarize the snapshot.
func Query(sys *model.System) Result {
	res := Result{
		Decided:      make(map[int]model.Value, len(sys.Nodes)),
		Faulty:       sys.FaultyNodes(),
		MessageCount: sys.Channel.Len(),
	}
	undecided := false
	for id, n := range sys.Nodes {
		if n.Decided() {
			res.Decided[id] = n.Value
			continue
		}
		res.Decided[id] = model.Null
		if !n.Faulty {
			undecided = true
		}
	}
	// Node actions do not depend on the failure manager
	res.Stalled = undecided && !event.HasNodeAction(event.Enabled(sys, failureManager.NewFailStopManager()))
	return res
}

func (r Result) String() string {
	return fmt.Sprintf("Decided: %v, Faulty: %v, Messages: %v, Stalled: %v", r.Decided, r.Faulty, r.MessageCount, r.Stalled)
}
