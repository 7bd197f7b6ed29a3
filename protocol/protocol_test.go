package protocol

import (
	"errors"
	"testing"

	"consensusmc/model"
)

func newSystem(n int, values ...model.Value) *model.System {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return model.NewSystem(ids, values, 0, model.UnlimitedLosses)
}

func mustApply(t *testing.T) func(*model.System, error) *model.System {
	return func(sys *model.System, err error) *model.System {
		t.Helper()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return sys
	}
}

func TestPropose(t *testing.T) {
	must := mustApply(t)
	sys := newSystem(3, "v1")
	next := must(Propose(sys, 0, "v1"))

	n := next.Node(0)
	if n.Role != model.Candidate || n.Value != "v1" {
		t.Fatalf("Proposer should be a candidate for v1. Got: %v", n)
	}
	if next.Channel.Len() != 2 {
		t.Fatalf("Expected a proposal to each of the two other nodes. Got: %v", next.Channel.Messages())
	}
	if next.Channel.Count(model.NewMessage(model.Propose, 0, 0, "v1")) != 0 {
		t.Fatalf("A proposer does not send the proposal to itself")
	}
	if sys.Node(0).Role != model.Follower || !sys.Channel.Empty() {
		t.Fatalf("Propose mutated the snapshot it received")
	}
}

func TestProposeGuards(t *testing.T) {
	must := mustApply(t)
	sys := newSystem(3, "v1")
	if CanPropose(sys, 0, "v9") {
		t.Fatalf("Values outside the allowed set can not be proposed")
	}
	if CanPropose(sys, 7, "v1") {
		t.Fatalf("Unknown nodes can not propose")
	}
	next := must(Propose(sys, 0, "v1"))
	if CanPropose(next, 0, "v1") {
		t.Fatalf("A candidate can not propose again")
	}

	// A follower that adopted a value can not start its own candidacy
	next = must(ReceiveProposal(next, model.NewMessage(model.Propose, 0, 1, "v1")))
	if CanPropose(next, 1, "v1") {
		t.Fatalf("A follower holding a value can not propose")
	}

	crashed := sys.Clone()
	crashed.Node(2).Faulty = true
	if CanPropose(crashed, 2, "v1") {
		t.Fatalf("A crashed node can not propose")
	}
	if _, err := Propose(crashed, 2, "v1"); !errors.Is(err, ErrPreconditionViolation) {
		t.Fatalf("Expected a precondition violation. Got: %v", err)
	}
}

func TestReceiveProposal(t *testing.T) {
	must := mustApply(t)
	sys := must(Propose(newSystem(3, "v1"), 0, "v1"))
	m := model.NewMessage(model.Propose, 0, 1, "v1")
	next := must(ReceiveProposal(sys, m))

	if next.Node(1).Value != "v1" || next.Node(1).Role != model.Follower {
		t.Fatalf("Receiver should adopt the value and stay follower. Got: %v", next.Node(1))
	}
	if next.Channel.Count(m) != 0 {
		t.Fatalf("The proposal should be consumed")
	}
	if next.Channel.Count(model.NewMessage(model.Vote, 1, 0, "v1")) != 1 {
		t.Fatalf("Expected a vote back to the proposer. Got: %v", next.Channel.Messages())
	}
}

func TestReceiveProposalRejectsConflictingValue(t *testing.T) {
	must := mustApply(t)
	sys := newSystem(3, "v1", "v2")
	sys = must(Propose(sys, 0, "v1"))
	sys = must(Propose(sys, 1, "v2"))

	// Node 1 is a candidate for v2 and must not vote for v1
	if CanReceiveProposal(sys, model.NewMessage(model.Propose, 0, 1, "v1")) {
		t.Fatalf("A candidate accepted a conflicting proposal")
	}
	// Node 2 can vote for the first proposal it sees, but not for both
	sys = must(ReceiveProposal(sys, model.NewMessage(model.Propose, 0, 2, "v1")))
	if CanReceiveProposal(sys, model.NewMessage(model.Propose, 1, 2, "v2")) {
		t.Fatalf("A follower voted for two different values")
	}
	// A proposal that is not in the channel can not be received
	if CanReceiveProposal(sys, model.NewMessage(model.Propose, 0, 2, "v1")) {
		t.Fatalf("Received a proposal that was already consumed")
	}
}

func TestCollectVoteReachesQuorum(t *testing.T) {
	must := mustApply(t)
	sys := must(Propose(newSystem(3, "v1"), 0, "v1"))
	sys = must(ReceiveProposal(sys, model.NewMessage(model.Propose, 0, 1, "v1")))
	sys = must(ReceiveProposal(sys, model.NewMessage(model.Propose, 0, 2, "v1")))

	sys = must(CollectVote(sys, model.NewMessage(model.Vote, 1, 0, "v1")))
	if sys.Node(0).Role != model.Candidate {
		t.Fatalf("One vote is below the quorum of two. Node became: %v", sys.Node(0).Role)
	}
	sys = must(CollectVote(sys, model.NewMessage(model.Vote, 2, 0, "v1")))
	if sys.Node(0).Role != model.Leader {
		t.Fatalf("Two votes is a quorum. Node is: %v", sys.Node(0))
	}
	for _, id := range sys.NodeIds() {
		if sys.Channel.Count(model.NewMessage(model.Commit, 0, id, "v1")) != 1 {
			t.Fatalf("Expected a commit to node %v. Channel: %v", id, sys.Channel.Messages())
		}
	}
	if sys.Node(0).Decided() {
		t.Fatalf("The leader decides only when its own commit is delivered")
	}
}

func TestDiscardVote(t *testing.T) {
	must := mustApply(t)
	sys := newSystem(3, "v1", "v2")
	sys = must(Propose(sys, 0, "v1"))
	stale := model.NewMessage(model.Vote, 1, 0, "v2")
	sys.Channel.Enqueue(stale)

	if CanCollectVote(sys, stale) {
		t.Fatalf("A vote for another value must not be counted")
	}
	if !CanDiscardVote(sys, stale) {
		t.Fatalf("A conflicting vote should be discarded")
	}
	next := must(DiscardVote(sys, stale))
	if next.Channel.Count(stale) != 0 || len(next.Node(0).Votes) != 0 {
		t.Fatalf("Discarding should only remove the vote. Got: %v", next)
	}

	valid := model.NewMessage(model.Vote, 1, 0, "v1")
	sys.Channel.Enqueue(valid)
	if CanDiscardVote(sys, valid) {
		t.Fatalf("A valid vote must not be discarded")
	}
}

func TestReceiveCommit(t *testing.T) {
	must := mustApply(t)
	sys := newSystem(3, "v1")
	m := model.NewMessage(model.Commit, 0, 2, "v1")
	sys.Channel.Enqueue(m)
	sys.Channel.Enqueue(m)

	next := must(ReceiveCommit(sys, m))
	if !next.Node(2).Decided() || next.Node(2).Value != "v1" {
		t.Fatalf("Node should have decided v1. Got: %v", next.Node(2))
	}
	if CanReceiveCommit(next, m) {
		t.Fatalf("A decided node can not receive another commit")
	}
	if next.Channel.Count(m) != 1 {
		t.Fatalf("Only one copy of the commit should be consumed")
	}

	crashed := sys.Clone()
	crashed.Node(2).Faulty = true
	if CanReceiveCommit(crashed, m) {
		t.Fatalf("A crashed node can not receive messages")
	}
}
