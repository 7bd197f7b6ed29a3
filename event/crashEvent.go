package event

import (
	"fmt"

	"consensusmc/model"
)

type CrashEvent struct {
	target int
	crash  func(*model.System, int) (*model.System, error)
}

// Create a CrashEvent.
//
// crash is the function performing the crash, normally FailureManager.Crash.
func NewCrashEvent(target int, crash func(*model.System, int) (*model.System, error)) CrashEvent {
	return CrashEvent{
		target: target,
		crash:  crash,
	}
}

// An id that identifies the event. Two events that provided the same input state results in the same output state should have the same id
func (ce CrashEvent) Id() EventId {
	return EventId(fmt.Sprintf("Crash Target %v", ce.target))
}

// Crash the target node.
// The node is fail-stop: once crashed it is never enabled for a node action again.
func (ce CrashEvent) Execute(sys *model.System) (*model.System, error) {
	return ce.crash(sys, ce.target)
}

// The id of the crashing node
func (ce CrashEvent) Target() int {
	return ce.target
}

func (ce CrashEvent) Action() Action {
	return ActionNodeCrash
}

func (ce CrashEvent) String() string {
	return fmt.Sprintf("{Crash Target: %v}", ce.target)
}
