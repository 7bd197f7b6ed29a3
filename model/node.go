package model

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A value the nodes can agree on.
//
// The empty value is used as null, i.e. the node has not adopted a value yet.
type Value string

const Null Value = ""

func (v Value) String() string {
	if v == Null {
		return "-"
	}
	return string(v)
}

// The role of a node in the protocol.
//
// Roles are ordered. A node only ever moves forward in the order Follower < Candidate < Leader < Decided.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
	Decided
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	case Decided:
		return "Decided"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// The record of a single node.
//
// A node is created as a follower without a value and is never removed.
// Records belong to a System and must only be changed on a cloned System.
type Node struct {
	ID     int
	Role   Role
	Value  Value
	Votes  map[int]bool
	Faulty bool
}

func NewNode(id int) *Node {
	return &Node{
		ID:    id,
		Role:  Follower,
		Value: Null,
		Votes: make(map[int]bool),
	}
}

// Decided is true once the node has received a commit.
// It is derived from the role, so it can never go back to false.
func (n *Node) Decided() bool {
	return n.Role == Decided
}

// Return the ids of the nodes that have voted for this node, sorted.
func (n *Node) Voters() []int {
	voters := maps.Keys(n.Votes)
	slices.Sort(voters)
	return voters
}

func (n *Node) Clone() *Node {
	return &Node{
		ID:     n.ID,
		Role:   n.Role,
		Value:  n.Value,
		Votes:  maps.Clone(n.Votes),
		Faulty: n.Faulty,
	}
}

// Returns true if both records hold the same state.
func (n *Node) Equal(o *Node) bool {
	return n.ID == o.ID &&
		n.Role == o.Role &&
		n.Value == o.Value &&
		n.Faulty == o.Faulty &&
		maps.Equal(n.Votes, o.Votes)
}

func (n *Node) String() string {
	status := ""
	if n.Faulty {
		status = " crashed"
	}
	return fmt.Sprintf("{%v %v val=%v votes=%v%s}", n.ID, n.Role, n.Value, n.Voters(), status)
}
