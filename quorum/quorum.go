// Package quorum contains the majority arithmetic the protocol relies on.
//
// All functions are pure.
package quorum

import "golang.org/x/exp/slices"

// Size returns the majority threshold ⌊n/2⌋+1 for a system of n nodes.
func Size(n int) int {
	return n/2 + 1
}

// Reached reports whether votes out of n nodes form a quorum.
func Reached(votes, n int) bool {
	return votes >= Size(n)
}

// MaxTolerable returns the largest number of crashed nodes that still leaves a quorum of correct nodes.
func MaxTolerable(n int) int {
	return n - Size(n)
}

// Intersection returns the ids present in both a and b, sorted.
func Intersection(a, b []int) []int {
	in := make(map[int]bool, len(a))
	for _, id := range a {
		in[id] = true
	}
	out := []int{}
	for _, id := range b {
		if in[id] {
			out = append(out, id)
			delete(in, id)
		}
	}
	slices.Sort(out)
	return out
}

// Subsets returns every subset of ids with exactly k members.
func Subsets(ids []int, k int) [][]int {
	out := [][]int{}
	if k < 0 || k > len(ids) {
		return out
	}
	cur := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(cur) == k {
			out = append(out, slices.Clone(cur))
			return
		}
		for i := start; i <= len(ids)-(k-len(cur)); i++ {
			cur = append(cur, ids[i])
			walk(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	walk(0)
	return out
}

// AllIntersect checks that every pair of quorum-sized subsets of ids shares at least one member.
//
// Supersets of a quorum contain a quorum-sized subset, so checking the minimal quorums is enough.
// Returns a counterexample pair if the property does not hold.
func AllIntersect(ids []int) (bool, [2][]int) {
	quorums := Subsets(ids, Size(len(ids)))
	for i := range quorums {
		for j := i; j < len(quorums); j++ {
			if len(Intersection(quorums[i], quorums[j])) == 0 {
				return false, [2][]int{quorums[i], quorums[j]}
			}
		}
	}
	return true, [2][]int{}
}
