package network

import (
	"math/rand"
	"testing"

	"golang.org/x/exp/slices"
)

func intLess(a, b int) bool { return a < b }

func TestBagDuplicates(t *testing.T) {
	bag := NewBag(intLess)
	bag.Enqueue(3)
	bag.Enqueue(1)
	bag.Enqueue(3)

	if bag.Len() != 3 {
		t.Fatalf("Added three messages. Got length: %v", bag.Len())
	}
	if bag.Count(3) != 2 {
		t.Fatalf("Identical messages should not be deduplicated. Got count: %v", bag.Count(3))
	}
	if !slices.Equal(bag.Messages(), []int{1, 3, 3}) {
		t.Fatalf("Unexpected listing of the bag: %v", bag.Messages())
	}
	if !slices.Equal(bag.Distinct(), []int{1, 3}) {
		t.Fatalf("Unexpected distinct listing of the bag: %v", bag.Distinct())
	}
}

func TestBagRemove(t *testing.T) {
	bag := NewBag(intLess)
	bag.Enqueue(2)
	bag.Enqueue(2)

	if !bag.Remove(2) {
		t.Fatalf("Expected to remove a present message")
	}
	if bag.Count(2) != 1 || bag.Len() != 1 {
		t.Fatalf("Remove should only remove one copy. Count: %v, Len: %v", bag.Count(2), bag.Len())
	}
	if bag.Remove(5) {
		t.Fatalf("Removed a message that was never added")
	}
	bag.Remove(2)
	if !bag.Empty() {
		t.Fatalf("Bag should be empty after removing all messages. Got: %v", bag.Messages())
	}
}

func TestBagTakeOneDrainsBag(t *testing.T) {
	bag := NewBag(intLess)
	added := []int{4, 1, 1, 7, 2}
	for _, m := range added {
		bag.Enqueue(m)
	}
	r := rand.New(rand.NewSource(42))
	taken := []int{}
	for {
		m, ok := bag.TakeOne(r)
		if !ok {
			break
		}
		taken = append(taken, m)
	}
	slices.Sort(taken)
	slices.Sort(added)
	if !slices.Equal(taken, added) {
		t.Fatalf("Every message should be taken exactly once. Got: %v, expected: %v", taken, added)
	}
}

func TestBagTakeOneIsReproducible(t *testing.T) {
	fill := func() *Bag[int] {
		bag := NewBag(intLess)
		for i := 0; i < 20; i++ {
			bag.Enqueue(i % 7)
		}
		return bag
	}
	a, b := fill(), fill()
	ra, rb := rand.New(rand.NewSource(1)), rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		ma, _ := a.TakeOne(ra)
		mb, _ := b.TakeOne(rb)
		if ma != mb {
			t.Fatalf("Same seed picked different messages at step %v: %v and %v", i, ma, mb)
		}
	}
}

func TestBagCloneIsIndependent(t *testing.T) {
	bag := NewBag(intLess)
	bag.Enqueue(1)
	clone := bag.Clone()
	clone.Enqueue(2)
	clone.Remove(1)

	if !slices.Equal(bag.Messages(), []int{1}) {
		t.Fatalf("Mutating the clone changed the original: %v", bag.Messages())
	}
	if bag.Equal(clone) {
		t.Fatalf("Bags with different content should not be equal")
	}
	clone.Enqueue(1)
	clone.Remove(2)
	if !bag.Equal(clone) {
		t.Fatalf("Bags with the same content should be equal")
	}
}
