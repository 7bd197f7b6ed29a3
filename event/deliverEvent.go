package event

import (
	"fmt"

	"consensusmc/model"
	"consensusmc/protocol"
)

// The delivery of a message to its destination.
//
// The action decides which receive rule consumes the message:
// ReceiveProposal for proposals, CollectVote or DiscardVote for votes and ReceiveCommit for commits.
type DeliverEvent struct {
	action Action
	msg    model.Message
}

// Create a DeliverEvent for the message.
//
// Returns an error if the action is not a receive action for the kind of the message.
func NewDeliverEvent(action Action, msg model.Message) (DeliverEvent, error) {
	ok := false
	switch msg.Kind {
	case model.Propose:
		ok = action == ActionReceiveProposal
	case model.Vote:
		ok = action == ActionCollectVote || action == ActionDiscardVote
	case model.Commit:
		ok = action == ActionReceiveCommit
	}
	if !ok {
		return DeliverEvent{}, fmt.Errorf("event: %v can not deliver %v", action, msg)
	}
	return DeliverEvent{action: action, msg: msg}, nil
}

func (de DeliverEvent) Id() EventId {
	return EventId(fmt.Sprintf("%v %v", de.action, de.msg))
}

func (de DeliverEvent) Execute(sys *model.System) (*model.System, error) {
	switch de.action {
	case ActionReceiveProposal:
		return protocol.ReceiveProposal(sys, de.msg)
	case ActionCollectVote:
		return protocol.CollectVote(sys, de.msg)
	case ActionDiscardVote:
		return protocol.DiscardVote(sys, de.msg)
	case ActionReceiveCommit:
		return protocol.ReceiveCommit(sys, de.msg)
	}
	return nil, fmt.Errorf("event: unknown receive action %v", de.action)
}

func (de DeliverEvent) Target() int {
	return de.msg.To
}

func (de DeliverEvent) Action() Action {
	return de.action
}

func (de DeliverEvent) Message() model.Message {
	return de.msg
}

func (de DeliverEvent) String() string {
	return fmt.Sprintf("{%v %v}", de.action, de.msg)
}
