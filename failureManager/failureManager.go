package failureManager

import (
	"errors"

	"consensusmc/model"
)

// Used to inject the environment faults into a run: node crashes and lost messages.
//
// Faults are not attributable to any node. They are offered to the scheduler next to the node actions
// and are applied as transitions producing a new snapshot, like every other action.
type FailureManager interface {
	// Return the ids of the nodes that can crash in the provided snapshot, sorted
	CrashCandidates(sys *model.System) []int
	// Crash the node with the provided id. Returns the new snapshot
	Crash(sys *model.System, id int) (*model.System, error)

	// Returns true if the message can be lost in the provided snapshot
	CanLose(sys *model.System, m model.Message) bool
	// Remove one copy of the message without delivering it. Returns the new snapshot
	Lose(sys *model.System, m model.Message) (*model.System, error)
}

var (
	ErrUnknownNode    = errors.New("failureManager: received crash for a node that is not part of the system")
	ErrAlreadyCrashed = errors.New("failureManager: received crash for a node that has already crashed. Is fail-stop so the node can not crash again")
	ErrFailureBudget  = errors.New("failureManager: the maximum number of crashed nodes has been reached")
	ErrNotCrashable   = errors.New("failureManager: the node is not configured to crash")
	ErrLossBudget     = errors.New("failureManager: the maximum number of lost messages has been reached")
	ErrNoSuchMessage  = errors.New("failureManager: the message is not in the channel")
)
