package checking

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"consensusmc/event"
	"consensusmc/state"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type PredicateCheckerResponse struct {
	Result    bool        // True if all Always properties hold. False otherwise
	Sequence  state.Trace // A sequence of states leading to the violating state. nil if Result is true
	Predicate string      // The name of the broken property. Empty if Result is true

	Witnesses map[string]state.Trace // The first run found for each Sometimes property that holds somewhere
	Missing   []string               // The Sometimes properties without a witness
	Stalls    int                    // The number of terminal states where some Eventually property is broken
	States    int                    // The number of states checked
}

// Generate a response
// Returns two parameters, result, and description.
// Result is true if all safety predicates hold, false otherwise.
// Description is a formatted string providing a detailed description of the result.
// If result is false the description contain a representation of the sequence of states that lead to the failing state
func (pcr *PredicateCheckerResponse) Response() (bool, string) {
	var buffer bytes.Buffer
	if pcr.Result {
		fmt.Fprintf(&buffer, "All predicates holds. States: %v.", pcr.States)
	} else {
		wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
		fmt.Fprintf(&buffer, "Predicate broken. Predicate: %v. Sequence: \n", pcr.Predicate)
		for _, element := range pcr.Sequence {
			fmt.Fprintf(wrt, "-> %v \n", element)
		}
		wrt.Flush()
	}
	witnessed := maps.Keys(pcr.Witnesses)
	slices.Sort(witnessed)
	for _, name := range witnessed {
		fmt.Fprintf(&buffer, " Witnessed %v in %v actions.", name, len(pcr.Witnesses[name].EventIds()))
	}
	for _, name := range pcr.Missing {
		fmt.Fprintf(&buffer, " No witness for %v.", name)
	}
	if pcr.Stalls > 0 {
		fmt.Fprintf(&buffer, " Stalled runs: %v.", pcr.Stalls)
	}
	return pcr.Result, buffer.String()
}

// Export the failing event sequence to a slice of event ids to be replayed by the Replay scheduler
func (pcr *PredicateCheckerResponse) Export() []event.EventId {
	if pcr.Sequence == nil {
		return []event.EventId{}
	}
	return pcr.Sequence.EventIds()
}

// Checks a set of properties on every state of a discovered state space
type PredicateChecker struct {
	properties []Property
}

func NewPredicateChecker(properties ...Property) *PredicateChecker {
	return &PredicateChecker{
		properties: properties,
	}
}

func (pc *PredicateChecker) Check(root state.StateSpace) CheckerResponse {
	return pc.CheckSpace(root)
}

// Checks that all properties holds for all nodes.
// Nodes are searched depth first and the search is interrupted if some state that breaks an Always property is found.
func (pc *PredicateChecker) CheckSpace(root state.StateSpace) *PredicateCheckerResponse {
	resp := &PredicateCheckerResponse{
		Result:    true,
		Witnesses: map[string]state.Trace{},
	}
	if root != nil {
		pc.checkNode(root, state.Trace{}, resp)
	}
	for _, prop := range pc.properties {
		if prop.Expectation != ExpectSometimes {
			continue
		}
		if _, ok := resp.Witnesses[prop.Name]; !ok {
			resp.Missing = append(resp.Missing, prop.Name)
		}
	}
	return resp
}

// Returns false if the search should stop
func (pc *PredicateChecker) checkNode(node state.StateSpace, sequence state.Trace, resp *PredicateCheckerResponse) bool {
	sequence = append(slices.Clone(sequence), node.Payload())
	resp.States++
	ev := Evaluate(pc.properties, NewState(sequence, node.IsTerminal()))
	for _, name := range ev.Witnessed {
		if _, ok := resp.Witnesses[name]; !ok {
			resp.Witnesses[name] = sequence
		}
	}
	if len(ev.Stalled) > 0 {
		resp.Stalls++
	}
	if ev.Violated != "" {
		resp.Result = false
		resp.Sequence = sequence
		resp.Predicate = ev.Violated
		return false
	}

	for _, child := range node.Children() {
		if !pc.checkNode(child, sequence, resp) {
			return false
		}
	}
	return true
}
