package failureManager

import (
	"fmt"

	"consensusmc/model"
)

// The FailStopManager implements crash-stop failures and independent message loss.
//
// A crash is irreversible. The crashed node never takes another action, but the messages it has already sent stay deliverable.
// Messages addressed to a crashed node are never received and can only leave the channel by being lost.
// The number of crashes is bounded by the MaxFailures of the snapshot and the number of losses by its MaxLosses.
type FailStopManager struct {
	// Nodes that are allowed to crash. All nodes if empty
	failingNodes map[int]bool
}

// Create a new FailStopManager.
//
// failingNodes restricts the nodes that may crash during a run.
// If no node is provided any node may crash, as long as the failure budget of the snapshot allows it.
func NewFailStopManager(failingNodes ...int) *FailStopManager {
	fm := &FailStopManager{
		failingNodes: make(map[int]bool),
	}
	for _, id := range failingNodes {
		fm.failingNodes[id] = true
	}
	return fm
}

func (fm *FailStopManager) crashable(id int) bool {
	return len(fm.failingNodes) == 0 || fm.failingNodes[id]
}

func (fm *FailStopManager) canCrash(sys *model.System, id int) error {
	n := sys.Node(id)
	if n == nil {
		return ErrUnknownNode
	}
	if n.Faulty {
		return ErrAlreadyCrashed
	}
	if !fm.crashable(id) {
		return ErrNotCrashable
	}
	if len(sys.FaultyNodes()) >= sys.MaxFailures {
		return ErrFailureBudget
	}
	return nil
}

// Return the ids of the correct nodes that can still crash.
//
// Empty if the failure budget of the snapshot is exhausted.
func (fm *FailStopManager) CrashCandidates(sys *model.System) []int {
	out := []int{}
	for _, id := range sys.NodeIds() {
		if fm.canCrash(sys, id) == nil {
			out = append(out, id)
		}
	}
	return out
}

// Perform the crash of the node with the provided id.
func (fm *FailStopManager) Crash(sys *model.System, id int) (*model.System, error) {
	if err := fm.canCrash(sys, id); err != nil {
		return nil, fmt.Errorf("crash node %v: %w", id, err)
	}
	next := sys.Clone()
	next.Node(id).Faulty = true
	return next, nil
}

// Any message in the channel can be lost while the loss budget of the snapshot allows it.
func (fm *FailStopManager) CanLose(sys *model.System, m model.Message) bool {
	return sys.Channel.Count(m) > 0 && sys.LossAllowed()
}

// Drop one copy of the message without running any receive logic.
func (fm *FailStopManager) Lose(sys *model.System, m model.Message) (*model.System, error) {
	if sys.Channel.Count(m) == 0 {
		return nil, fmt.Errorf("lose %v: %w", m, ErrNoSuchMessage)
	}
	if !sys.LossAllowed() {
		return nil, fmt.Errorf("lose %v: %w", m, ErrLossBudget)
	}
	next := sys.Clone()
	next.Channel.Remove(m)
	next.Lost++
	return next, nil
}
