package event

import (
	"fmt"

	"consensusmc/model"
	"consensusmc/protocol"
)

// A follower starting a candidacy for a value.
//
// The value is chosen by the scheduler: one ProposeEvent is enabled for every allowed value.
type ProposeEvent struct {
	node  int
	value model.Value
}

func NewProposeEvent(node int, value model.Value) ProposeEvent {
	return ProposeEvent{
		node:  node,
		value: value,
	}
}

func (pe ProposeEvent) Id() EventId {
	return EventId(fmt.Sprintf("Propose Node: %v, Value: %v", pe.node, pe.value))
}

func (pe ProposeEvent) Execute(sys *model.System) (*model.System, error) {
	return protocol.Propose(sys, pe.node, pe.value)
}

func (pe ProposeEvent) Target() int {
	return pe.node
}

func (pe ProposeEvent) Action() Action {
	return ActionPropose
}

func (pe ProposeEvent) Value() model.Value {
	return pe.value
}

func (pe ProposeEvent) String() string {
	return fmt.Sprintf("{Propose Node: %v, Value: %v}", pe.node, pe.value)
}
