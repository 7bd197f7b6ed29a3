package explorer

import (
	"bytes"
	"fmt"

	"consensusmc/checking"
	"consensusmc/event"
	"consensusmc/state"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// The result of an exploration
type Report struct {
	// The number of distinct snapshots discovered
	States int
	// The number of executed transitions, including those leading to already discovered snapshots
	Transitions int
	// The number of discovered snapshots where no event is enabled
	Terminal int
	// The depth of the deepest expanded snapshot
	MaxDepth int
	// True if the search was cut short by maxStates or maxDepth
	Truncated bool

	// The first violation found for each broken Always property, in the order they were found
	Violations []*checking.InvariantViolation
	// The first run found for each Sometimes property
	Witnesses map[string]state.Trace
	// The number of terminal snapshots where an Eventually property is broken
	Stalls int
	// A run that ends in a stall. Nil if there are no stalls
	FirstStall state.Trace

	properties []checking.Property
	violated   map[string]bool
}

func newReport(properties []checking.Property) *Report {
	return &Report{
		Witnesses:  map[string]state.Trace{},
		properties: properties,
		violated:   map[string]bool{},
	}
}

// Returns the Sometimes properties without a witness
func (r *Report) Missing() []string {
	out := []string{}
	for _, prop := range r.properties {
		if prop.Expectation != checking.ExpectSometimes {
			continue
		}
		if _, ok := r.Witnesses[prop.Name]; !ok {
			out = append(out, prop.Name)
		}
	}
	return out
}

// Returns true if no Always property is broken
func (r *Report) Ok() bool {
	return len(r.Violations) == 0
}

// Create a response.
//
// Returns true if no Always property is broken, together with a description of the exploration.
// If properties were broken the description contains the runs leading to the violations.
func (r *Report) Response() (bool, string) {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "States: %v. Transitions: %v. Terminal: %v. Max depth: %v.", r.States, r.Transitions, r.Terminal, r.MaxDepth)
	if r.Truncated {
		buffer.WriteString(" The search was truncated.")
	}
	if r.Ok() {
		buffer.WriteString(" All predicates holds.")
	}
	witnessed := maps.Keys(r.Witnesses)
	slices.Sort(witnessed)
	for _, name := range witnessed {
		fmt.Fprintf(&buffer, " Witnessed %v in %v actions.", name, len(r.Witnesses[name].EventIds()))
	}
	for _, name := range r.Missing() {
		fmt.Fprintf(&buffer, " No witness for %v.", name)
	}
	if r.Stalls > 0 {
		fmt.Fprintf(&buffer, " Stalled states: %v.", r.Stalls)
	}
	for _, violation := range r.Violations {
		fmt.Fprintf(&buffer, "\n%v", violation)
	}
	return r.Ok(), buffer.String()
}

// Export the run of the first violation, to be replayed by the Replay scheduler.
// Returns an empty slice if no property is broken.
func (r *Report) Export() []event.EventId {
	if r.Ok() {
		return []event.EventId{}
	}
	return r.Violations[0].Trace.EventIds()
}
