package network

import (
	"math/rand"
	"sort"

	"golang.org/x/exp/maps"
)

// Bag is the in-flight message channel of the system.
//
// It is an unordered multiset: identical messages may be present several times and no delivery order is observable.
// Any present message may be taken next, including a message sent after another message from the same sender.
// A Bag is not safe for concurrent use. Snapshots that share a Bag must Clone it before mutating.
type Bag[M comparable] struct {
	counts map[M]int
	size   int

	// Total order used when listing the content of the bag.
	// It only fixes the order of the listing, never the order of delivery.
	less func(a, b M) bool
}

// Create a new empty Bag.
//
// less is a strict total order over messages used by Messages and Distinct to provide a canonical listing.
func NewBag[M comparable](less func(a, b M) bool) *Bag[M] {
	return &Bag[M]{
		counts: make(map[M]int),
		less:   less,
	}
}

// Add one copy of the message to the bag.
func (b *Bag[M]) Enqueue(m M) {
	b.counts[m]++
	b.size++
}

// Remove exactly one copy of the message.
//
// Returns false if the message is not present.
func (b *Bag[M]) Remove(m M) bool {
	n, ok := b.counts[m]
	if !ok {
		return false
	}
	if n == 1 {
		delete(b.counts, m)
	} else {
		b.counts[m] = n - 1
	}
	b.size--
	return true
}

// Number of copies of the message currently in the bag
func (b *Bag[M]) Count(m M) int {
	return b.counts[m]
}

// Total number of messages in the bag, counting duplicates
func (b *Bag[M]) Len() int {
	return b.size
}

func (b *Bag[M]) Empty() bool {
	return b.size == 0
}

// Return the distinct messages in the bag sorted by the total order of the bag.
func (b *Bag[M]) Distinct() []M {
	out := maps.Keys(b.counts)
	sort.Slice(out, func(i, j int) bool { return b.less(out[i], out[j]) })
	return out
}

// Return every message in the bag, duplicates included, sorted by the total order of the bag.
func (b *Bag[M]) Messages() []M {
	out := make([]M, 0, b.size)
	for _, m := range b.Distinct() {
		for i := 0; i < b.counts[m]; i++ {
			out = append(out, m)
		}
	}
	return out
}

// Take one message out of the bag.
//
// Every copy present in the bag is equally likely to be selected.
// Returns false if the bag is empty.
// The message is removed from the bag; the caller decides whether it is delivered or lost.
func (b *Bag[M]) TakeOne(r *rand.Rand) (M, bool) {
	var zero M
	if b.size == 0 {
		return zero, false
	}
	// Walk the canonical listing so that a given seed always picks the same message.
	idx := r.Intn(b.size)
	for _, m := range b.Distinct() {
		if idx < b.counts[m] {
			b.Remove(m)
			return m, true
		}
		idx -= b.counts[m]
	}
	return zero, false
}

// Create an independent copy of the bag.
func (b *Bag[M]) Clone() *Bag[M] {
	return &Bag[M]{
		counts: maps.Clone(b.counts),
		size:   b.size,
		less:   b.less,
	}
}

// Returns true if both bags hold the same messages with the same multiplicity.
func (b *Bag[M]) Equal(o *Bag[M]) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.size == o.size && maps.Equal(b.counts, o.counts)
}
