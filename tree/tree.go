package tree

import (
	"fmt"
	"strings"
)

// A rooted tree where every node knows its parent.
//
// Used to store discovered runs and search frontiers: the path from the root to any node is the run that reached it.
// A Tree is not safe for concurrent use. Callers must serialize access.
type Tree[T any] struct {
	payload  T
	parent   *Tree[T]
	children []*Tree[T]
	depth    int
	eq       func(a, b T) bool
}

// Create a new tree with the payload as the root.
//
// eq is used by HasChild and GetChild to compare payloads.
func New[T any](payload T, eq func(a, b T) bool) *Tree[T] {
	return &Tree[T]{
		payload:  payload,
		parent:   nil,
		children: []*Tree[T]{},
		depth:    0,
		eq:       eq,
	}
}

// Returns the total number of elements in the tree
func (t *Tree[T]) Len() int {
	len := 1
	for _, child := range t.children {
		len += child.Len()
	}
	return len
}

// Adds a new child with the provided payload as a child of the current Tree
// Returns the child when done
func (t *Tree[T]) AddChild(payload T) *Tree[T] {
	treeNode := &Tree[T]{
		payload:  payload,
		parent:   t,
		children: []*Tree[T]{},
		depth:    t.depth + 1,
		eq:       t.eq,
	}
	t.children = append(t.children, treeNode)
	return treeNode
}

// Returns true if the TreeNode has a child with the provided payload.
// Otherwise returns false
func (t *Tree[T]) HasChild(payload T) bool {
	return t.GetChild(payload) != nil
}

// Returns the first child node with the provided payload.
// If no such child node exists returns nil
func (t *Tree[T]) GetChild(payload T) *Tree[T] {
	for _, node := range t.children {
		if t.eq(payload, node.payload) {
			return node
		}
	}
	return nil
}

// Return the payloads on the path from the root to this node, root first.
func (t *Tree[T]) Path() []T {
	out := make([]T, t.depth+1)
	for node := t; node != nil; node = node.parent {
		out[node.depth] = node.payload
	}
	return out
}

// String representation of a TreeNode
func (t *Tree[T]) String() string {
	out := strings.Builder{}
	for i := 0; i < t.Depth(); i++ {
		out.WriteString("-")
	}
	out.WriteString(fmt.Sprintf("%v\n", t.Payload()))
	for _, child := range t.Children() {
		out.WriteString(fmt.Sprintf("%v", child))
	}
	return out.String()
}

func (t *Tree[T]) IsRoot() bool {
	return t.Parent() == nil
}

func (t *Tree[T]) IsLeafNode() bool {
	return len(t.Children()) == 0
}

// Returns a slice of all leaf nodes that are a descendent of this tree node
func (t *Tree[T]) GetAllLeafNodes() []*Tree[T] {
	leafNodes := []*Tree[T]{}
	if t.IsLeafNode() {
		leafNodes = append(leafNodes, t)
		return leafNodes
	}
	for _, child := range t.Children() {
		leafNodes = append(leafNodes, child.GetAllLeafNodes()...)
	}
	return leafNodes
}

// Returns the first node, in depth first order, whose payload satisfies the search function.
// Returns nil if there is no such node.
func (t *Tree[T]) Find(search func(T) bool) *Tree[T] {
	if search(t.payload) {
		return t
	}
	for _, child := range t.children {
		if found := child.Find(search); found != nil {
			return found
		}
	}
	return nil
}

func (t *Tree[T]) Payload() T {
	return t.payload
}

func (t *Tree[T]) Parent() *Tree[T] {
	return t.parent
}

func (t *Tree[T]) Depth() int {
	return t.depth
}

func (t *Tree[T]) Children() []*Tree[T] {
	return t.children
}

// Return the Newick representation of the tree.
//
// label is used to create the label of each node.
func (t *Tree[T]) Newick(label func(T) string) string {
	out := strings.Builder{}
	t.newick(&out, label)
	out.WriteString(";")
	return out.String()
}

func (t *Tree[T]) newick(out *strings.Builder, label func(T) string) {
	if len(t.children) > 0 {
		out.WriteString("(")
		for i, child := range t.children {
			if i > 0 {
				out.WriteString(",")
			}
			child.newick(out, label)
		}
		out.WriteString(")")
	}
	out.WriteString(fmt.Sprintf("%q", label(t.payload)))
}
