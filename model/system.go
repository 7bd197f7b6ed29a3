package model

import (
	"fmt"
	"strings"

	"consensusmc/network"
	"consensusmc/quorum"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// UnlimitedLosses disables the bound on the number of lost messages.
const UnlimitedLosses = -1

// A snapshot of the whole system: every node record and every message in flight.
//
// A System is treated as immutable once it has been handed out.
// Transitions Clone the snapshot they receive and return the clone,
// so snapshots can be shared read-only, e.g. across the frontier of an exhaustive search.
type System struct {
	Nodes   map[int]*Node
	Channel *network.Bag[Message]

	// The values that can be proposed
	Values []Value

	// Maximum number of nodes that can crash during a run
	MaxFailures int
	// Maximum number of messages that can be lost during a run. UnlimitedLosses if unbounded
	MaxLosses int
	// Number of messages lost so far
	Lost int
}

// Create the initial snapshot.
//
// Every node starts as a follower without a value, with no votes and not crashed. The channel is empty.
// The input is not validated. See simulator.Initialize for the validated entry point.
func NewSystem(nodeIds []int, values []Value, maxFailures int, maxLosses int) *System {
	nodes := make(map[int]*Node, len(nodeIds))
	for _, id := range nodeIds {
		nodes[id] = NewNode(id)
	}
	vals := slices.Clone(values)
	slices.Sort(vals)
	return &System{
		Nodes:       nodes,
		Channel:     network.NewBag(MessageLess),
		Values:      vals,
		MaxFailures: maxFailures,
		MaxLosses:   maxLosses,
	}
}

// Create a deep copy of the snapshot.
func (s *System) Clone() *System {
	nodes := make(map[int]*Node, len(s.Nodes))
	for id, n := range s.Nodes {
		nodes[id] = n.Clone()
	}
	return &System{
		Nodes:       nodes,
		Channel:     s.Channel.Clone(),
		Values:      s.Values,
		MaxFailures: s.MaxFailures,
		MaxLosses:   s.MaxLosses,
		Lost:        s.Lost,
	}
}

// Return the node ids sorted in increasing order.
func (s *System) NodeIds() []int {
	ids := maps.Keys(s.Nodes)
	slices.Sort(ids)
	return ids
}

// Return the node with the provided id, or nil if there is no such node.
func (s *System) Node(id int) *Node {
	return s.Nodes[id]
}

// The number of votes a candidate needs to become leader.
func (s *System) Quorum() int {
	return quorum.Size(len(s.Nodes))
}

// Returns true if v is one of the values that can be proposed.
func (s *System) Allowed(v Value) bool {
	_, found := slices.BinarySearch(s.Values, v)
	return found
}

// Return the ids of the crashed nodes, sorted.
func (s *System) FaultyNodes() []int {
	faulty := []int{}
	for _, id := range s.NodeIds() {
		if s.Nodes[id].Faulty {
			faulty = append(faulty, id)
		}
	}
	return faulty
}

// Return a map with the status of all nodes. True means that the node is correct.
func (s *System) Correct() map[int]bool {
	correct := make(map[int]bool, len(s.Nodes))
	for id, n := range s.Nodes {
		correct[id] = !n.Faulty
	}
	return correct
}

// Returns true if more messages can be lost in this run.
func (s *System) LossAllowed() bool {
	return s.MaxLosses == UnlimitedLosses || s.Lost < s.MaxLosses
}

// Enqueue one message of the provided kind from the sender to every other node.
//
// If includeSelf is true the sender also sends the message to itself through the channel.
func (s *System) Broadcast(from int, kind MessageKind, val Value, includeSelf bool) {
	for _, id := range s.NodeIds() {
		if id == from && !includeSelf {
			continue
		}
		s.Channel.Enqueue(NewMessage(kind, from, id, val))
	}
}

// Key returns the canonical serialization of the snapshot.
//
// Nodes are listed by increasing id and the channel by the total order over messages,
// so two structurally identical snapshots have the same key independent of map iteration order.
// The static configuration (values and budgets) is not part of the key.
func (s *System) Key() string {
	var b strings.Builder
	for _, id := range s.NodeIds() {
		n := s.Nodes[id]
		fmt.Fprintf(&b, "%d:%d:%q:%v:%t;", id, n.Role, string(n.Value), n.Voters(), n.Faulty)
	}
	b.WriteString("|")
	for _, m := range s.Channel.Messages() {
		fmt.Fprintf(&b, "%d:%d:%d:%q:%d;", m.Kind, m.From, m.To, string(m.Value), m.Term)
	}
	fmt.Fprintf(&b, "|lost=%d", s.Lost)
	return b.String()
}

// Returns true if both snapshots hold the same node records and the same messages.
func (s *System) Equal(o *System) bool {
	if !maps.EqualFunc(s.Nodes, o.Nodes, func(a, b *Node) bool { return a.Equal(b) }) {
		return false
	}
	return s.Lost == o.Lost && s.Channel.Equal(o.Channel)
}

func (s *System) String() string {
	nodes := make([]string, 0, len(s.Nodes))
	for _, id := range s.NodeIds() {
		nodes = append(nodes, s.Nodes[id].String())
	}
	return fmt.Sprintf("Nodes: %v\t Channel: %v", strings.Join(nodes, " "), s.Channel.Messages())
}
