package state

import (
	"fmt"
	"io"

	"consensusmc/tree"
)

// A discovered state space.
// Every path from the root to a node is a run.
type StateSpace interface {
	Payload() GlobalState
	Children() []StateSpace
	IsTerminal() bool

	Export(io.Writer)
}

// A wrapper around the Tree structure so that it implements the StateSpace interface
type TreeStateSpace struct {
	*tree.Tree[GlobalState]
}

func (tss TreeStateSpace) Children() []StateSpace {
	out := []StateSpace{}
	for _, child := range tss.Tree.Children() {
		out = append(out, TreeStateSpace{
			Tree: child,
		})
	}
	return out
}

// A leaf is terminal unless the run that reached it was cut short there.
func (tss TreeStateSpace) IsTerminal() bool {
	return tss.IsLeafNode() && !tss.Payload().Truncated
}

// Write the Newick representation of the state space to the writer.
// Nodes are labelled with the event that led to them.
func (tss TreeStateSpace) Export(w io.Writer) {
	if tss.Tree == nil {
		return
	}
	fmt.Fprint(w, tss.Newick(func(gs GlobalState) string { return gs.Evt.Repr }))
}
