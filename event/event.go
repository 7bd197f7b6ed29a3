package event

import "consensusmc/model"

// An event represents an action that can be scheduled by the driver.
// Node actions and environment actions (crashes and losses) are both events and are interleaved in the same pool.
//
// Events are applied to a snapshot and produce a new snapshot. They never mutate the snapshot they receive.
type Event interface {
	// An id that identifies the event.
	// Two events that applied to the same snapshot result in the same snapshot have the same id.
	//
	// Ids include the name of the action to prevent collisions between event types.
	Id() EventId

	// Apply the event to the snapshot.
	// Returns an error wrapping protocol.ErrPreconditionViolation or a failureManager error if the event is not enabled in the snapshot.
	Execute(sys *model.System) (*model.System, error)

	// The id of the node whose record is changed by the event.
	Target() int

	// The name of the action, e.g. "Propose" or "LoseMessage"
	Action() Action

	String() string
}

// An event that consumes a message from the channel.
type MessageEvent interface {
	Event

	// The message taken from the channel
	Message() model.Message
}

// Compares two events
//
// Returns true if both events have the same id or if both are nil.
// Returns false otherwise.
func EventsEquals(a, b Event) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id() == b.Id()
}

// An id that identifies the event.
type EventId string

// The name of an action.
type Action string

const (
	ActionPropose         Action = "Propose"
	ActionReceiveProposal Action = "ReceiveProposal"
	ActionCollectVote     Action = "CollectVote"
	ActionDiscardVote     Action = "DiscardVote"
	ActionReceiveCommit   Action = "ReceiveCommit"
	ActionLoseMessage     Action = "LoseMessage"
	ActionNodeCrash       Action = "NodeCrash"
)

// Returns true if the action is taken by the environment rather than by a node.
func (a Action) Environment() bool {
	return a == ActionLoseMessage || a == ActionNodeCrash
}
