package checking

import (
	"consensusmc/model"
	"consensusmc/quorum"

	"golang.org/x/exp/maps"
)

// How a property is expected to hold over the runs.
type Expectation int

const (
	// The predicate must hold in every reachable state. A state breaking it is a counterexample.
	ExpectAlways Expectation = iota
	// The predicate should hold in some reachable state. A state satisfying it is a witness.
	ExpectSometimes
	// The predicate should hold in every terminal state.
	// Breaking it is a liveness stall, which is an expected outcome under asynchrony and crashes, not an error.
	ExpectEventually
)

func (e Expectation) String() string {
	switch e {
	case ExpectAlways:
		return "Always"
	case ExpectSometimes:
		return "Sometimes"
	case ExpectEventually:
		return "Eventually"
	}
	return "Unknown"
}

// A named predicate together with how it is expected to hold.
type Property struct {
	Name        string
	Expectation Expectation
	Predicate   Predicate
}

// Agreement: all correct nodes that have decided, decided the same value.
func Agreement() Property {
	return Property{
		Name:        "Agreement",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			decided := make(map[model.Value]bool)
			ForAllNodes(func(n *model.Node) bool {
				if n.Decided() {
					decided[n.Value] = true
				}
				return true
			}, s, true)
			return len(decided) <= 1
		},
	}
}

// Validity: a decided value is one of the allowed values.
func Validity() Property {
	return Property{
		Name:        "Validity",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			return ForAllNodes(func(n *model.Node) bool {
				return !n.Decided() || s.System.Allowed(n.Value)
			}, s, false)
		},
	}
}

// Integrity: a node that has decided stays decided and never changes its decided value.
func Integrity() Property {
	return Property{
		Name:        "Integrity",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			return ForAllTransitions(func(prev, cur *model.Node) bool {
				if !prev.Decided() {
					return true
				}
				return cur.Decided() && cur.Value == prev.Value
			}, s)
		},
	}
}

// RoleOrder: no action regresses the role of a node.
// Roles only move forward in the order Follower < Candidate < Leader < Decided, and a crashed node never recovers.
func RoleOrder() Property {
	return Property{
		Name:        "RoleOrder",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			return ForAllTransitions(func(prev, cur *model.Node) bool {
				if prev.Faulty && !cur.Faulty {
					return false
				}
				return cur.Role >= prev.Role
			}, s)
		},
	}
}

// VoteSet: a node never votes for itself, only known nodes vote,
// and the set of votes of a node only grows while the node is a candidate.
func VoteSet() Property {
	return Property{
		Name:        "VoteSet",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			wellFormed := ForAllNodes(func(n *model.Node) bool {
				for voter := range n.Votes {
					if voter == n.ID || s.System.Node(voter) == nil {
						return false
					}
				}
				return true
			}, s, false)
			if !wellFormed {
				return false
			}
			return ForAllTransitions(func(prev, cur *model.Node) bool {
				for voter := range prev.Votes {
					if !cur.Votes[voter] {
						return false
					}
				}
				if maps.Equal(prev.Votes, cur.Votes) {
					return true
				}
				return prev.Role == model.Candidate
			}, s)
		},
	}
}

// NoPrematureLeader: a node only becomes leader with a quorum of votes.
func NoPrematureLeader() Property {
	return Property{
		Name:        "NoPrematureLeader",
		Expectation: ExpectAlways,
		Predicate: func(s State) bool {
			return ForAllNodes(func(n *model.Node) bool {
				return n.Role != model.Leader || quorum.Reached(len(n.Votes), len(s.System.Nodes))
			}, s, false)
		},
	}
}

// Progress: some node has decided.
func Progress() Property {
	return Property{
		Name:        "Progress",
		Expectation: ExpectSometimes,
		Predicate: func(s State) bool {
			return !ForAllNodes(func(n *model.Node) bool { return !n.Decided() }, s, false)
		},
	}
}

// Termination: when a run ends every correct node has decided.
func Termination() Property {
	return Property{
		Name:        "Termination",
		Expectation: ExpectEventually,
		Predicate: Eventually(func(s State) bool {
			return ForAllNodes(func(n *model.Node) bool { return n.Decided() }, s, true)
		}),
	}
}

// The safety properties of the protocol.
func Safety() []Property {
	return []Property{
		Agreement(),
		Validity(),
		Integrity(),
		RoleOrder(),
		VoteSet(),
		NoPrematureLeader(),
	}
}

// The safety properties together with the Progress and Termination properties.
func Default() []Property {
	return append(Safety(), Progress(), Termination())
}
