package checking

import "consensusmc/model"

// A function to be evaluated on the states
// It returns true if the predicate holds for the state and false otherwise
type Predicate func(s State) bool

// Check that the predicate happens eventually.
//
// Return a predicate that run the provided predicate on terminal states.
// Returns the value of the original predicate if the state is terminal.
// Otherwise, it always returns true.
func Eventually(pred Predicate) Predicate {
	return func(s State) bool {
		if !s.IsTerminal {
			return true
		}
		return pred(s)
	}
}

// Check that condition returns true for all nodes in the provided state
//
// Returns false if cond returns false for some node.
// Returns true otherwise.
// If checkCorrect is true, only correct nodes will be checked, otherwise crashed nodes will also be checked.
func ForAllNodes(cond func(*model.Node) bool, s State, checkCorrect bool) bool {
	for _, n := range s.System.Nodes {
		if checkCorrect && n.Faulty {
			continue
		}
		if !cond(n) {
			return false
		}
	}
	return true
}

// Check that cond holds for every node between the previous and the current snapshot.
//
// Returns true for the initial state of a run.
// Nodes are matched by id. cond receives the previous record first.
func ForAllTransitions(cond func(prev, cur *model.Node) bool, s State) bool {
	if s.Prev == nil {
		return true
	}
	for id, prev := range s.Prev.Nodes {
		cur := s.System.Node(id)
		if cur == nil || !cond(prev, cur) {
			return false
		}
	}
	return true
}
