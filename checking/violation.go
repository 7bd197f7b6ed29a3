package checking

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"consensusmc/event"
	"consensusmc/state"
)

// A safety property was broken.
//
// Carries the name of the broken property and the trace of snapshots and actions that lead to the violating snapshot.
type InvariantViolation struct {
	Predicate string
	Trace     state.Trace
}

func (iv *InvariantViolation) Error() string {
	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	fmt.Fprintf(&buffer, "checking: Invariant %v violated after %v actions. Sequence: \n", iv.Predicate, len(iv.Trace.EventIds()))
	for _, gs := range iv.Trace {
		fmt.Fprintf(wrt, "-> %v \n", gs)
	}
	wrt.Flush()
	return buffer.String()
}

// The outcome of evaluating a set of properties on a single state
type Evaluation struct {
	// The first Always property that is broken. Empty if all hold.
	Violated string
	// The Sometimes properties that hold in the state
	Witnessed []string
	// The Eventually properties that are broken in the state
	Stalled []string
}

func Evaluate(props []Property, s State) Evaluation {
	ev := Evaluation{}
	for _, prop := range props {
		holds := prop.Predicate(s)
		switch prop.Expectation {
		case ExpectAlways:
			if !holds && ev.Violated == "" {
				ev.Violated = prop.Name
			}
		case ExpectSometimes:
			if holds {
				ev.Witnessed = append(ev.Witnessed, prop.Name)
			}
		case ExpectEventually:
			if !holds {
				ev.Stalled = append(ev.Stalled, prop.Name)
			}
		}
	}
	return ev
}

// Check the Always properties on the state.
//
// Returns an *InvariantViolation for the first broken property, nil otherwise.
func CheckState(props []Property, s State) error {
	for _, prop := range props {
		if prop.Expectation != ExpectAlways {
			continue
		}
		if !prop.Predicate(s) {
			return &InvariantViolation{
				Predicate: prop.Name,
				Trace:     s.Sequence,
			}
		}
	}
	return nil
}

// Create a response. The result is always false.
func (iv *InvariantViolation) Response() (bool, string) {
	return false, iv.Error()
}

// Export the run that lead to the violation, to be replayed by the Replay scheduler
func (iv *InvariantViolation) Export() []event.EventId {
	return iv.Trace.EventIds()
}
