package event

import (
	"sort"

	"consensusmc/failureManager"
	"consensusmc/model"
	"consensusmc/protocol"
)

// Enabled computes the full set of events enabled in the snapshot.
//
// The set contains a Propose for every idle follower and allowed value, one receive event for every distinct
// message whose guard holds, one LoseMessage for every distinct message while losses are allowed,
// and one NodeCrash for every node the failure manager allows to crash.
// Copies of the same message produce a single event since delivering either copy leads to the same snapshot.
//
// Events are returned sorted by id, so the order only depends on the snapshot.
func Enabled(sys *model.System, fm failureManager.FailureManager) []Event {
	out := []Event{}

	for _, id := range sys.NodeIds() {
		for _, v := range sys.Values {
			if protocol.CanPropose(sys, id, v) {
				out = append(out, NewProposeEvent(id, v))
			}
		}
	}

	for _, m := range sys.Channel.Distinct() {
		if action, ok := receiveAction(sys, m); ok {
			// The action always matches the message kind
			evt, _ := NewDeliverEvent(action, m)
			out = append(out, evt)
		}
		if fm.CanLose(sys, m) {
			out = append(out, NewLoseEvent(m, fm.Lose))
		}
	}

	for _, id := range fm.CrashCandidates(sys) {
		out = append(out, NewCrashEvent(id, fm.Crash))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Id() < out[j].Id() })
	return out
}

// Return the receive action enabled for the message, if any.
func receiveAction(sys *model.System, m model.Message) (Action, bool) {
	switch m.Kind {
	case model.Propose:
		if protocol.CanReceiveProposal(sys, m) {
			return ActionReceiveProposal, true
		}
	case model.Vote:
		if protocol.CanCollectVote(sys, m) {
			return ActionCollectVote, true
		}
		if protocol.CanDiscardVote(sys, m) {
			return ActionDiscardVote, true
		}
	case model.Commit:
		if protocol.CanReceiveCommit(sys, m) {
			return ActionReceiveCommit, true
		}
	}
	return "", false
}

// Find the enabled event with the provided id.
//
// Returns nil if no such event is enabled.
func Find(enabled []Event, id EventId) Event {
	for _, evt := range enabled {
		if evt.Id() == id {
			return evt
		}
	}
	return nil
}

// Returns true if at least one node action is enabled.
// When only environment actions remain the nodes can not make progress on their own.
func HasNodeAction(enabled []Event) bool {
	for _, evt := range enabled {
		if !evt.Action().Environment() {
			return true
		}
	}
	return false
}
