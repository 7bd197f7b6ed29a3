package state

import (
	"fmt"

	"consensusmc/event"
)

// A Record of an event
//
// Stores the id, the action and the string representation of the event.
// Records are what a trace keeps of the applied actions, so every delivered, discarded or lost message is inspectable.
type EventRecord struct {
	Id     event.EventId
	Action event.Action
	Target int
	Repr   string
}

func (er EventRecord) String() string {
	return er.Repr
}

// Create a EventRecord from an event.
//
// If the event is nil, create a EventRecord with zero value for all fields.
// The initial state of a run has no event.
func CreateEventRecord(evt event.Event) EventRecord {
	if evt != nil {
		return EventRecord{
			Id:     evt.Id(),
			Action: evt.Action(),
			Target: evt.Target(),
			Repr:   fmt.Sprint(evt),
		}
	}
	return EventRecord{
		Id:     "",
		Action: "",
		Target: 0,
		Repr:   "",
	}
}
