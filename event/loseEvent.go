package event

import (
	"fmt"

	"consensusmc/model"
)

// The loss of one message. The message leaves the channel without being delivered.
type LoseEvent struct {
	msg  model.Message
	lose func(*model.System, model.Message) (*model.System, error)
}

func NewLoseEvent(msg model.Message, lose func(*model.System, model.Message) (*model.System, error)) LoseEvent {
	return LoseEvent{
		msg:  msg,
		lose: lose,
	}
}

func (le LoseEvent) Id() EventId {
	return EventId(fmt.Sprintf("Lose %v", le.msg))
}

func (le LoseEvent) Execute(sys *model.System) (*model.System, error) {
	return le.lose(sys, le.msg)
}

// The destination of the lost message. Its record is not changed.
func (le LoseEvent) Target() int {
	return le.msg.To
}

func (le LoseEvent) Action() Action {
	return ActionLoseMessage
}

func (le LoseEvent) Message() model.Message {
	return le.msg
}

func (le LoseEvent) String() string {
	return fmt.Sprintf("{Lose %v}", le.msg)
}
