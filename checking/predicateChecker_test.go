package checking

import (
	"errors"
	"strings"
	"testing"

	"consensusmc/event"
	"consensusmc/model"
	"consensusmc/state"
	"consensusmc/tree"
)

func gsEq(a, b state.GlobalState) bool {
	return a.Evt.Id == b.Evt.Id && a.Key() == b.Key()
}

func record(id string) state.EventRecord {
	return state.EventRecord{Id: event.EventId(id), Repr: id}
}

func TestPredicateCheckerFindsViolation(t *testing.T) {
	sys := newSystem(3)
	root := tree.New(state.New(sys, state.EventRecord{}), gsEq)
	oneDecided := withNodes(sys, func(nodes map[int]*model.Node) { decide(nodes[0], "v1") })
	child := root.AddChild(state.New(oneDecided, record("a")))
	child.AddChild(state.New(withNodes(oneDecided, func(nodes map[int]*model.Node) { decide(nodes[1], "v2") }), record("b")))

	resp := NewPredicateChecker(Default()...).CheckSpace(state.TreeStateSpace{Tree: root})
	ok, desc := resp.Response()
	if ok {
		t.Fatalf("Expected the checker to find the disagreement. Got: %v", desc)
	}
	if resp.Predicate != "Agreement" {
		t.Fatalf("Expected Agreement to be broken. Got: %v", resp.Predicate)
	}
	if !strings.Contains(desc, "Agreement") {
		t.Errorf("The description should name the broken predicate. Got: %v", desc)
	}
	export := resp.Export()
	if len(export) != 2 || export[0] != "a" || export[1] != "b" {
		t.Errorf("Unexpected exported run: %v", export)
	}
}

func TestPredicateCheckerWitnessAndStalls(t *testing.T) {
	sys := newSystem(3)
	root := tree.New(state.New(sys, state.EventRecord{}), gsEq)
	root.AddChild(state.New(withNodes(sys, func(nodes map[int]*model.Node) {
		decide(nodes[0], "v1")
		decide(nodes[1], "v1")
		decide(nodes[2], "v1")
	}), record("decide")))
	root.AddChild(state.New(withNodes(sys, func(nodes map[int]*model.Node) { nodes[2].Faulty = true }), record("crash")))

	resp := NewPredicateChecker(Default()...).CheckSpace(state.TreeStateSpace{Tree: root})
	if ok, desc := resp.Response(); !ok {
		t.Fatalf("Expected all safety properties to hold. Got: %v", desc)
	}
	if _, ok := resp.Witnesses["Progress"]; !ok {
		t.Errorf("Expected a witness for Progress")
	}
	if resp.Stalls != 1 {
		t.Errorf("Expected the crashed run to stall. Got %v stalls", resp.Stalls)
	}
	if resp.States != 3 {
		t.Errorf("Expected 3 states to be checked. Got: %v", resp.States)
	}
	if len(resp.Export()) != 0 {
		t.Errorf("Expected no exported run when all properties hold. Got: %v", resp.Export())
	}
}

func TestPredicateCheckerMissingWitness(t *testing.T) {
	root := tree.New(state.New(newSystem(3), state.EventRecord{}), gsEq)
	resp := NewPredicateChecker(Progress()).CheckSpace(state.TreeStateSpace{Tree: root})
	if len(resp.Missing) != 1 || resp.Missing[0] != "Progress" {
		t.Fatalf("Expected Progress to have no witness. Got: %v", resp.Missing)
	}
}

func TestCheckState(t *testing.T) {
	sys := newSystem(3)
	if err := CheckState(Default(), transition(nil, sys, true)); err != nil {
		t.Fatalf("The initial state should not violate any property. Got: %v", err)
	}
	bad := withNodes(sys, func(nodes map[int]*model.Node) { decide(nodes[0], "v3") })
	err := CheckState(Default(), transition(sys, bad, false))
	var violation *InvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("Expected an InvariantViolation. Got: %v", err)
	}
	if violation.Predicate != "Validity" || len(violation.Trace) != 2 {
		t.Errorf("Unexpected violation: %v", violation)
	}
}
