package simulator

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/failureManager"
	"consensusmc/model"
	"consensusmc/scheduler"
)

// A run scheduler that picks the first enabled event accepted by choose.
// Events are tried in the order of the preferences, so earlier preferences win.
type preferRun struct {
	preferences []func(event.Event) bool
}

func prefer(preferences ...func(event.Event) bool) *preferRun {
	return &preferRun{preferences: preferences}
}

func (pr *preferRun) Next(enabled []event.Event) (event.Event, error) {
	for _, accept := range pr.preferences {
		for _, evt := range enabled {
			if accept(evt) {
				return evt, nil
			}
		}
	}
	return nil, scheduler.RunEndedError
}

func (pr *preferRun) StartRun() error { return nil }

func (pr *preferRun) EndRun() {}

// Deliver messages, never propose, crash or lose
func deliveries(evt event.Event) bool {
	return !evt.Action().Environment() && evt.Action() != event.ActionPropose
}

func commitLosses(evt event.Event) bool {
	lose, ok := evt.(event.MessageEvent)
	return ok && lose.Action() == event.ActionLoseMessage && lose.Message().Kind == model.Commit
}

func ids(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func mustApply(t *testing.T, d *Driver) func(sys *model.System, id event.EventId) *model.System {
	return func(sys *model.System, id event.EventId) *model.System {
		t.Helper()
		next, _, err := d.Apply(sys, id)
		if err != nil {
			t.Fatalf("Unable to apply %v: %v", id, err)
		}
		return next
	}
}

func proposeId(node int, v model.Value) event.EventId {
	return event.NewProposeEvent(node, v).Id()
}

func receiveId(action event.Action, kind model.MessageKind, from, to int, v model.Value) event.EventId {
	evt, err := event.NewDeliverEvent(action, model.NewMessage(kind, from, to, v))
	if err != nil {
		panic(err)
	}
	return evt.Id()
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		nodeIds     []int
		values      []model.Value
		maxFailures int
		opts        []InitOption
		valid       bool
	}{
		{"valid", ids(3), []model.Value{"v1", "v2"}, 1, nil, true},
		{"failures not below quorum", ids(3), []model.Value{"v1"}, 2, nil, true},
		{"bounded losses", ids(3), []model.Value{"v1"}, 0, []InitOption{WithMaxLosses(2)}, true},
		{"no nodes", []int{}, []model.Value{"v1"}, 0, nil, false},
		{"repeated node", []int{1, 2, 1}, []model.Value{"v1"}, 0, nil, false},
		{"no values", ids(3), []model.Value{}, 0, nil, false},
		{"null value", ids(3), []model.Value{model.Null}, 0, nil, false},
		{"negative failures", ids(3), []model.Value{"v1"}, -1, nil, false},
		{"too many failures", ids(3), []model.Value{"v1"}, 4, nil, false},
		{"invalid losses", ids(3), []model.Value{"v1"}, 0, []InitOption{WithMaxLosses(-2)}, false},
	}
	for _, test := range tests {
		sys, err := Initialize(test.nodeIds, test.values, test.maxFailures, test.opts...)
		if !test.valid {
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("%v: Expected a configuration error. Got: %v", test.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: Unexpected error: %v", test.name, err)
			continue
		}
		for _, id := range test.nodeIds {
			n := sys.Node(id)
			if n == nil || n.Role != model.Follower || n.Value != model.Null || len(n.Votes) != 0 || n.Faulty {
				t.Errorf("%v: Node %v is not in its initial state: %v", test.name, id, n)
			}
		}
		if !sys.Channel.Empty() {
			t.Errorf("%v: The channel should start empty", test.name)
		}
	}
}

func TestInitializeWarnings(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	var tests = []struct {
		nodes       []int
		maxFailures int
		warning     string
	}{
		{[]int{0, 1, 2}, 1, ""},
		{[]int{0, 1, 2}, 2, "Agreement may not hold"},
		{[]int{0, 1, 2, 3}, 1, ""},
		{[]int{0, 1, 2, 3}, 2, "less than a quorum of correct nodes"},
		{[]int{0, 1, 2, 3, 4}, 2, ""},
		{[]int{0, 1, 2, 3, 4}, 3, "Agreement may not hold"},
	}
	for _, test := range tests {
		buf.Reset()
		if _, err := Initialize(test.nodes, []model.Value{"v1"}, test.maxFailures); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		out := buf.String()
		if test.warning == "" && out != "" {
			t.Errorf("Nodes %v, maxFailures %v: expected no warning. Got: %q", test.nodes, test.maxFailures, out)
		}
		if test.warning != "" && !strings.Contains(out, test.warning) {
			t.Errorf("Nodes %v, maxFailures %v: expected a warning containing %q. Got: %q", test.nodes, test.maxFailures, test.warning, out)
		}
	}
}

func TestInitializeDeduplicatesValues(t *testing.T) {
	sys, err := Initialize(ids(3), []model.Value{"v2", "v1", "v2"}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sys.Values) != 2 || sys.Values[0] != "v1" || sys.Values[1] != "v2" {
		t.Fatalf("Expected the sorted values [v1 v2]. Got: %v", sys.Values)
	}
}

func TestStepQuiescent(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager())
	sys, _ := Initialize(ids(1), []model.Value{"v1"}, 0, WithMaxLosses(0))
	sys = mustApply(t, d)(sys, proposeId(0, "v1"))
	// A single node is a candidate without anyone to vote for it
	_, _, err := d.Step(sys, scheduler.NewFirst().GetRunScheduler())
	if !errors.Is(err, ErrNoEnabledActions) {
		t.Fatalf("Expected ErrNoEnabledActions. Got: %v", err)
	}
}

func TestApplyNotEnabled(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager())
	sys, _ := Initialize(ids(3), []model.Value{"v1"}, 0)
	next, _, err := d.Apply(sys, proposeId(0, "v2"))
	if !errors.Is(err, ErrNotEnabled) {
		t.Fatalf("Expected ErrNotEnabled. Got: %v", err)
	}
	if next != sys {
		t.Fatalf("The snapshot should be returned unchanged")
	}
}

func TestRunToQuiescenceMaxSteps(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager(), checking.Safety()...)
	sys, _ := Initialize(ids(3), []model.Value{"v1"}, 0, WithMaxLosses(0))
	trace, err := d.RunToQuiescence(sys, scheduler.NewFirst().GetRunScheduler(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("Expected the initial state and two steps. Got %v states", len(trace))
	}
	if trace[0].System != sys {
		t.Fatalf("The trace should start with the initial snapshot")
	}
}

// Scenario A: a single proposer with reliable delivery. Every node decides.
func TestScenarioSingleProposer(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager(), checking.Safety()...)
	sys, err := Initialize(ids(3), []model.Value{"v1"}, 0, WithMaxLosses(0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sys = mustApply(t, d)(sys, proposeId(0, "v1"))

	trace, err := d.RunToQuiescence(sys, prefer(deliveries), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	res := Query(trace.Last())
	for id, v := range res.Decided {
		if v != "v1" {
			t.Errorf("Expected node %v to decide v1. Got: %v", id, v)
		}
	}
	if res.MessageCount != 0 || res.Stalled {
		t.Errorf("Expected an empty channel and no stall. Got: %v", res)
	}
	// 2 proposals, 2 votes and 3 commits are delivered
	if len(trace.EventIds()) != 7 {
		t.Errorf("Expected 7 deliveries. Got: %v", trace.EventIds())
	}
}

// Scenario B: two concurrent proposers and lost votes. No node decides and no property is broken.
func TestScenarioConflictingProposals(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager(), checking.Safety()...)
	sys, err := Initialize(ids(3), []model.Value{"v1", "v2"}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	apply := mustApply(t, d)
	sys = apply(sys, proposeId(0, "v1"))
	sys = apply(sys, proposeId(1, "v2"))
	sys = apply(sys, receiveId(event.ActionReceiveProposal, model.Propose, 0, 2, "v1"))
	sys = apply(sys, event.EventId("Lose "+model.NewMessage(model.Vote, 2, 0, "v1").String()))

	trace, err := d.RunToQuiescence(sys, prefer(deliveries), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	res := Query(trace.Last())
	for id, v := range res.Decided {
		if v != model.Null {
			t.Errorf("Expected node %v to stay undecided. Got: %v", id, v)
		}
	}
	if !res.Stalled {
		t.Errorf("Expected a liveness stall. Got: %v", res)
	}

	// Whatever the environment does from here, agreement holds
	for i := 0; i < 50; i++ {
		if _, err := d.RunToQuiescence(sys, scheduler.NewRandom(int64(i)).GetRunScheduler(), 0); err != nil {
			t.Fatalf("Run %v broke a property: %v", i, err)
		}
	}
}

// Scenario C: five nodes, one crashes before any proposal. The four correct nodes decide.
func TestScenarioCrashBeforeProposal(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager(), checking.Safety()...)
	sys, err := Initialize(ids(5), []model.Value{"v1"}, 2, WithMaxLosses(0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	apply := mustApply(t, d)
	sys = apply(sys, event.EventId("Crash Target 4"))
	sys = apply(sys, proposeId(0, "v1"))

	trace, err := d.RunToQuiescence(sys, prefer(deliveries), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	res := Query(trace.Last())
	for id := 0; id < 4; id++ {
		if res.Decided[id] != "v1" {
			t.Errorf("Expected node %v to decide v1. Got: %v", id, res.Decided[id])
		}
	}
	if res.Decided[4] != model.Null || len(res.Faulty) != 1 || res.Faulty[0] != 4 {
		t.Errorf("Expected node 4 to be crashed and undecided. Got: %v", res)
	}
	// The proposal and the commit to the crashed node are never received
	if res.MessageCount != 2 || res.Stalled {
		t.Errorf("Expected two undeliverable messages and no stall. Got: %v", res)
	}
}

// Scenario D: every commit is lost. The leader stays leader and nobody decides.
func TestScenarioLostCommits(t *testing.T) {
	d := NewDriver(failureManager.NewFailStopManager(), checking.Safety()...)
	sys, err := Initialize(ids(3), []model.Value{"v1"}, 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sys = mustApply(t, d)(sys, proposeId(0, "v1"))

	trace, err := d.RunToQuiescence(sys, prefer(commitLosses, deliveries), 0)
	if err != nil {
		t.Fatalf("Losing commits should not break a property: %v", err)
	}
	last := trace.Last()
	if last.Node(0).Role != model.Leader {
		t.Errorf("Expected node 0 to be leader. Got: %v", last.Node(0))
	}
	res := Query(last)
	for id, v := range res.Decided {
		if v != model.Null {
			t.Errorf("Expected node %v to stay undecided. Got: %v", id, v)
		}
	}
	if last.Lost != 3 || !res.Stalled {
		t.Errorf("Expected three lost commits and a stall. Lost: %v, %v", last.Lost, res)
	}
}

func TestRunToQuiescenceReportsViolation(t *testing.T) {
	never := checking.Property{
		Name:        "NoCandidate",
		Expectation: checking.ExpectAlways,
		Predicate: func(s checking.State) bool {
			return checking.ForAllNodes(func(n *model.Node) bool { return n.Role != model.Candidate }, s, false)
		},
	}
	d := NewDriver(failureManager.NewFailStopManager(), never)
	sys, _ := Initialize(ids(3), []model.Value{"v1"}, 0)
	trace, err := d.RunToQuiescence(sys, scheduler.NewFirst().GetRunScheduler(), 0)
	var violation *checking.InvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Expected an InvariantViolation. Got: %v", err)
	}
	if violation.Predicate != "NoCandidate" || len(violation.Trace) != 2 || len(trace) != 2 {
		t.Fatalf("Expected the violation after the first proposal. Got: %v", violation)
	}

	// The violating run can be replayed
	replay := scheduler.NewReplay(violation.Trace.EventIds()).GetRunScheduler()
	if _, err := d.RunToQuiescence(sys, replay, 0); !errors.As(err, &violation) {
		t.Fatalf("Expected the replay to reproduce the violation. Got: %v", err)
	}
}
