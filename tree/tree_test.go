package tree

import (
	"testing"

	"golang.org/x/exp/slices"
)

func eq(a, b string) bool { return a == b }

func TestTreeAddChild(t *testing.T) {
	// Basic test to make sure that it works. Add some nodes and check some basic properties to ensure that they have been added correctly
	tree := New("Tree 1", eq)
	tree.AddChild("Tree 1-1")
	child := tree.AddChild("Tree 1-2")
	child.AddChild("Tree 1-2-1")

	if !tree.IsRoot() {
		t.Fatalf("Tree should be root node")
	}
	if tree.Len() != 4 {
		t.Fatalf("Added four elements to the tree. Has length: %v", tree.Len())
	}
	if len(tree.Children()) != 2 {
		t.Fatalf("Added two children to the tree. Got: %v", len(tree.Children()))
	}
	if child.IsRoot() {
		t.Fatalf("This should be a child node. IsRoot(): %v", child.IsRoot())
	}
	if !tree.HasChild("Tree 1-2") || tree.HasChild("Tree 1-2-1") {
		t.Fatalf("HasChild should only look at direct children")
	}
	if len(tree.GetAllLeafNodes()) != 2 {
		t.Fatalf("Expected two leaf nodes. Got: %v", len(tree.GetAllLeafNodes()))
	}
}

func TestTreePath(t *testing.T) {
	tree := New("a", eq)
	leaf := tree.AddChild("b").AddChild("c")
	tree.AddChild("d")

	if leaf.Depth() != 2 {
		t.Fatalf("Expected depth 2. Got: %v", leaf.Depth())
	}
	if !slices.Equal(leaf.Path(), []string{"a", "b", "c"}) {
		t.Fatalf("Unexpected path: %v", leaf.Path())
	}
	if !slices.Equal(tree.Path(), []string{"a"}) {
		t.Fatalf("The path of the root is the root. Got: %v", tree.Path())
	}
}

func TestTreeFind(t *testing.T) {
	tree := New("a", eq)
	tree.AddChild("b").AddChild("c")

	found := tree.Find(func(s string) bool { return s == "c" })
	if found == nil || found.Payload() != "c" {
		t.Fatalf("Expected to find c. Got: %v", found)
	}
	if tree.Find(func(s string) bool { return s == "x" }) != nil {
		t.Fatalf("Found a payload that is not in the tree")
	}
}

func TestTreeNewick(t *testing.T) {
	tree := New("a", eq)
	b := tree.AddChild("b")
	b.AddChild("c")
	tree.AddChild("d")

	out := tree.Newick(func(s string) string { return s })
	expected := `(("c")"b","d")"a";`
	if out != expected {
		t.Fatalf("Unexpected Newick representation. Got: %v, expected: %v", out, expected)
	}
}
