package stateManager

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"testing"

	"consensusmc/event"
	"consensusmc/model"
	"consensusmc/state"
)

type mockEvent struct {
	id int
}

func (me mockEvent) Id() event.EventId { return event.EventId(strconv.Itoa(me.id)) }
func (me mockEvent) Execute(sys *model.System) (*model.System, error) {
	return sys, nil
}
func (me mockEvent) Target() int          { return 0 }
func (me mockEvent) Action() event.Action { return "Mock" }
func (me mockEvent) String() string       { return "Mock " + strconv.Itoa(me.id) }

// Generate a snapshot for the step. The content of the snapshot is not important, what is important is that it is properly stored
func generateMockData(numNodes, i int) (*model.System, event.Event) {
	ids := make([]int, numNodes)
	for id := range ids {
		ids[id] = id
	}
	sys := model.NewSystem(ids, []model.Value{"v1"}, 0, model.UnlimitedLosses)
	sys.Lost = i
	return sys, mockEvent{i}
}

func TestStateMangerMerge(t *testing.T) {
	for i, test := range mergeTest {
		sm := NewTreeStateManager()
		inChan := make(chan []int)
		var wait sync.WaitGroup
		wait.Add(len(test.runs))
		for j := 0; j < test.numProcesses; j++ {
			go func(numNodes int) {
				for run := range inChan {
					rsm := sm.GetRunStateManager()
					for _, k := range run {
						sys, evt := generateMockData(numNodes, k)
						rsm.UpdateGlobalState(sys, evt)
					}
					rsm.EndRun()
					wait.Done()
				}
			}(test.numNodes)
		}
		for _, run := range test.runs {
			inChan <- run
		}
		wait.Wait()
		close(inChan)
		space := sm.State().(state.TreeStateSpace)
		size := space.Len()
		if size != test.expectedLen {
			var buffer bytes.Buffer
			space.Export(&buffer)
			t.Errorf("Test %v: Unexpected Size of the state tree. Got %v. Expected %v. Tree: %v", i, size, test.expectedLen, buffer.String())
		}
	}
}

var mergeTest = []struct {
	numProcesses int
	numNodes     int
	runs         [][]int // A slice of runs, where a run is represented by a slice of the ordered ids in the run
	expectedLen  int
}{
	{
		numProcesses: 1,
		numNodes:     3,
		runs:         [][]int{{0, 1, 2, 3, 4}, {0, 1, 2, 3, 4}},
		expectedLen:  5,
	},
	{
		numProcesses: 3,
		numNodes:     3,
		runs:         [][]int{{}, {0}, {0}},
		expectedLen:  1,
	},
	{
		numProcesses: 5,
		numNodes:     3,
		runs:         [][]int{{}, {0}, {0}},
		expectedLen:  1,
	},
	{
		numProcesses: 5,
		numNodes:     3,
		runs:         [][]int{{0, 1, 2, 3, 4}, {0, 1, 2, 7, 8}, {0, 1, 2, 9, 10}},
		expectedLen:  9,
	},
}

func TestDiscoverDeduplicates(t *testing.T) {
	sm := NewTreeStateManager()
	initial, _ := generateMockData(3, 0)
	root, isNew := sm.Discover(nil, state.New(initial, state.CreateEventRecord(nil)))
	if !isNew || !root.IsRoot() {
		t.Fatalf("The first state should become the root")
	}
	sysA, evtA := generateMockData(3, 1)
	a, isNew := sm.Discover(root, state.New(sysA, state.CreateEventRecord(evtA)))
	if !isNew {
		t.Fatalf("Expected the state to be new")
	}
	// Reach the same snapshot through another event
	sysB, _ := generateMockData(3, 1)
	b, isNew := sm.Discover(a, state.New(sysB, state.CreateEventRecord(mockEvent{7})))
	if isNew || b != a {
		t.Fatalf("Expected the state to be recognized as already discovered")
	}
	if sm.Len() != 2 {
		t.Fatalf("Expected 2 distinct states. Got: %v", sm.Len())
	}
	if !sm.Visited(sysA.Key()) {
		t.Fatalf("Expected the key to be marked as visited")
	}

	var buffer bytes.Buffer
	sm.Export(&buffer)
	if !strings.HasSuffix(buffer.String(), ";") || !strings.Contains(buffer.String(), "Mock 1") {
		t.Errorf("Unexpected Newick export: %v", buffer.String())
	}

	sm.Reset()
	if sm.Len() != 0 || sm.State() != nil {
		t.Errorf("Expected an empty state space after Reset")
	}
}
