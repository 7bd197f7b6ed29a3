package stateManager

import (
	"io"
	"sync"

	"consensusmc/state"
	"consensusmc/tree"
)

// Organizes the discovered StateSpace as a tree structure
//
// Collect the discovered runs as a tree with the initial state as the root.
// A path from the root to a leaf node is one run.
// Every snapshot is also indexed by its canonical key,
// so that the exhaustive search can skip snapshots that have already been reached through another run.
type TreeStateManager struct {
	sync.RWMutex
	stateRoot *tree.Tree[state.GlobalState]

	// The first tree node that reached each canonical key
	visited map[string]*tree.Tree[state.GlobalState]
}

func NewTreeStateManager() *TreeStateManager {
	return &TreeStateManager{
		visited: make(map[string]*tree.Tree[state.GlobalState]),
	}
}

func globalStateEq(a, b state.GlobalState) bool {
	if a.Evt.Id != b.Evt.Id {
		return false
	}
	return a.System.Equal(b.System)
}

// Adds the run to the discovered state space.
//
// Runs sharing a prefix of events and snapshots share the same branch of the tree.
// Is safe to call from multiple goroutines.
func (sm *TreeStateManager) AddRun(run state.Trace) {
	sm.Lock()
	defer sm.Unlock()

	if len(run) < 1 {
		return
	}

	currentTree := sm.stateRoot
	// If the tree has not been initialized:
	// Initialize it with the initial state as the root
	if currentTree == nil {
		currentTree = sm.initStateTree(run[0])
	}
	for _, gs := range run[1:] {
		// If the state already is a child of the current state, retrieve it and set it as the next state
		if nextState := currentTree.GetChild(gs); nextState != nil {
			currentTree = nextState
			continue
		}
		// Otherwise add it as a child to the state tree
		currentTree = currentTree.AddChild(gs)
		sm.index(currentTree)
	}
}

// Add the state reached from parent to the state space, unless a state with the same canonical key has already been discovered.
//
// If parent is nil the state becomes the root, replacing the current state space.
// Returns the tree node holding the state and true if the state is new.
// If the state has been discovered before, returns the node that first reached it and false.
// Is safe to call from multiple goroutines.
func (sm *TreeStateManager) Discover(parent *tree.Tree[state.GlobalState], gs state.GlobalState) (*tree.Tree[state.GlobalState], bool) {
	sm.Lock()
	defer sm.Unlock()

	if parent == nil {
		sm.visited = make(map[string]*tree.Tree[state.GlobalState])
		return sm.initStateTree(gs), true
	}
	if node, ok := sm.visited[gs.Key()]; ok {
		return node, false
	}
	node := parent.AddChild(gs)
	sm.index(node)
	return node, true
}

// Returns true if a state with the canonical key has been discovered
func (sm *TreeStateManager) Visited(key string) bool {
	sm.RLock()
	defer sm.RUnlock()
	_, ok := sm.visited[key]
	return ok
}

// The number of distinct snapshots discovered
func (sm *TreeStateManager) Len() int {
	sm.RLock()
	defer sm.RUnlock()
	return len(sm.visited)
}

// Initializes the state tree with the provided state as the initial state
func (sm *TreeStateManager) initStateTree(gs state.GlobalState) *tree.Tree[state.GlobalState] {
	sm.stateRoot = tree.New(gs, globalStateEq)
	sm.index(sm.stateRoot)
	return sm.stateRoot
}

func (sm *TreeStateManager) index(node *tree.Tree[state.GlobalState]) {
	key := node.Payload().Key()
	if _, ok := sm.visited[key]; !ok {
		sm.visited[key] = node
	}
}

// Create a RunStateManager to be used to collect the state of the new run
func (sm *TreeStateManager) GetRunStateManager() *RunStateManager {
	return NewRunStateManager(sm)
}

// Returns the discovered state space. Returns nil if no state has been discovered.
func (sm *TreeStateManager) State() state.StateSpace {
	sm.RLock()
	defer sm.RUnlock()
	if sm.stateRoot == nil {
		return nil
	}
	return state.TreeStateSpace{Tree: sm.stateRoot}
}

// Write the Newick representation of the state tree to the writer
func (sm *TreeStateManager) Export(wrt io.Writer) {
	sm.RLock()
	defer sm.RUnlock()
	state.TreeStateSpace{Tree: sm.stateRoot}.Export(wrt)
}

// Forget the discovered state space
func (sm *TreeStateManager) Reset() {
	sm.Lock()
	defer sm.Unlock()
	sm.stateRoot = nil
	sm.visited = make(map[string]*tree.Tree[state.GlobalState])
}
