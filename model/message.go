package model

import "fmt"

// The kind of a protocol message
type MessageKind int

const (
	Propose MessageKind = iota
	Vote
	Commit
)

func (k MessageKind) String() string {
	switch k {
	case Propose:
		return "Propose"
	case Vote:
		return "Vote"
	case Commit:
		return "Commit"
	}
	return fmt.Sprintf("MessageKind(%d)", int(k))
}

// The protocol is single-shot, so every message belongs to the same term.
const Term = 1

// A message in flight between two nodes.
//
// Messages are plain values. Two messages with the same content are interchangeable,
// but both copies stay in the channel until each of them is delivered or lost.
type Message struct {
	Kind  MessageKind
	From  int
	To    int
	Value Value
	Term  int
}

func NewMessage(kind MessageKind, from, to int, val Value) Message {
	return Message{
		Kind:  kind,
		From:  from,
		To:    to,
		Value: val,
		Term:  Term,
	}
}

func (m Message) String() string {
	return fmt.Sprintf("{%v %v->%v val=%q term=%v}", m.Kind, m.From, m.To, string(m.Value), m.Term)
}

// MessageLess is the total order used to list the channel canonically.
// Messages are ordered by kind, sender, receiver, value and term.
func MessageLess(a, b Message) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.Term < b.Term
}
