// Package protocol implements the node-level transitions of the consensus protocol.
//
// Every transition is a guarded, atomic rewrite of one node record and the channel.
// Transitions never mutate the snapshot they receive: they return a new snapshot.
// The faulty flag of the acting node is always the first guard, so no action of a crashed node is ever enabled.
package protocol

import (
	"errors"
	"fmt"

	"consensusmc/model"
	"consensusmc/quorum"
)

// Returned when a transition is applied while its guard does not hold.
// This is a bug in the caller. A driver must only apply enabled actions.
var ErrPreconditionViolation = errors.New("protocol: action applied while disabled")

func precondition(action string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionViolation, fmt.Sprintf(action, args...))
}

// The node can start a candidacy for v.
func CanPropose(sys *model.System, id int, v model.Value) bool {
	n := sys.Node(id)
	if n == nil || n.Faulty {
		return false
	}
	return n.Role == model.Follower && n.Value == model.Null && sys.Allowed(v)
}

// Propose lets a follower without a value become a candidate for v.
// It sends a proposal to every other node.
func Propose(sys *model.System, id int, v model.Value) (*model.System, error) {
	if !CanPropose(sys, id, v) {
		return nil, precondition("Propose(node=%v, value=%v)", id, v)
	}
	next := sys.Clone()
	n := next.Node(id)
	n.Value = v
	n.Role = model.Candidate
	next.Broadcast(id, model.Propose, v, false)
	return next, nil
}

// The receiver of the proposal can vote for it.
//
// A node that already holds a different value rejects the proposal, which prevents equivocation.
func CanReceiveProposal(sys *model.System, m model.Message) bool {
	if m.Kind != model.Propose || sys.Channel.Count(m) == 0 {
		return false
	}
	n := sys.Node(m.To)
	if n == nil || n.Faulty {
		return false
	}
	if n.Role != model.Follower && n.Role != model.Candidate {
		return false
	}
	return n.Value == model.Null || n.Value == m.Value
}

// ReceiveProposal consumes the proposal, adopts its value and votes for it.
func ReceiveProposal(sys *model.System, m model.Message) (*model.System, error) {
	if !CanReceiveProposal(sys, m) {
		return nil, precondition("ReceiveProposal(%v)", m)
	}
	next := sys.Clone()
	next.Channel.Remove(m)
	next.Node(m.To).Value = m.Value
	next.Channel.Enqueue(model.NewMessage(model.Vote, m.To, m.From, m.Value))
	return next, nil
}

// The receiver is a candidate for the value carried by the vote.
func CanCollectVote(sys *model.System, m model.Message) bool {
	if m.Kind != model.Vote || sys.Channel.Count(m) == 0 {
		return false
	}
	n := sys.Node(m.To)
	if n == nil || n.Faulty {
		return false
	}
	return n.Role == model.Candidate && n.Value == m.Value && m.From != m.To
}

// CollectVote records the vote.
//
// When the candidate has collected a quorum of votes it becomes leader and sends a commit for its value to every node,
// itself included. The commit to itself travels through the channel like every other commit,
// so the leader only decides once it is delivered.
//
// This is the only transition that promotes a node to leader.
func CollectVote(sys *model.System, m model.Message) (*model.System, error) {
	if !CanCollectVote(sys, m) {
		return nil, precondition("CollectVote(%v)", m)
	}
	next := sys.Clone()
	next.Channel.Remove(m)
	n := next.Node(m.To)
	n.Votes[m.From] = true
	if quorum.Reached(len(n.Votes), len(next.Nodes)) {
		n.Role = model.Leader
		next.Broadcast(n.ID, model.Commit, n.Value, true)
	}
	return next, nil
}

// The vote reached a correct node that can not use it.
// Stale or conflicting votes are consumed without other effect.
func CanDiscardVote(sys *model.System, m model.Message) bool {
	if m.Kind != model.Vote || sys.Channel.Count(m) == 0 {
		return false
	}
	n := sys.Node(m.To)
	if n == nil || n.Faulty {
		return false
	}
	return !CanCollectVote(sys, m)
}

// DiscardVote removes a stale or conflicting vote from the channel.
func DiscardVote(sys *model.System, m model.Message) (*model.System, error) {
	if !CanDiscardVote(sys, m) {
		return nil, precondition("DiscardVote(%v)", m)
	}
	next := sys.Clone()
	next.Channel.Remove(m)
	return next, nil
}

// The receiver of the commit has not decided yet.
func CanReceiveCommit(sys *model.System, m model.Message) bool {
	if m.Kind != model.Commit || sys.Channel.Count(m) == 0 {
		return false
	}
	n := sys.Node(m.To)
	if n == nil || n.Faulty {
		return false
	}
	return !n.Decided()
}

// ReceiveCommit decides the committed value. The node never takes another action afterwards.
func ReceiveCommit(sys *model.System, m model.Message) (*model.System, error) {
	if !CanReceiveCommit(sys, m) {
		return nil, precondition("ReceiveCommit(%v)", m)
	}
	next := sys.Clone()
	next.Channel.Remove(m)
	n := next.Node(m.To)
	n.Value = m.Value
	n.Role = model.Decided
	return next, nil
}
