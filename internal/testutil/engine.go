package testutil

import (
	"sync"

	"github.com/coral-mesh/heatline/internal/profiler"
)

// FakeNode is a CallTreeNode with settable fields.
type FakeNode struct {
	NodeName     string
	Resource     string
	LineNo       int
	ColumnNo     int
	Hits         int64
	UID          uint32
	Lines        map[int]int64
	Kids         []profiler.CallTreeNode
	ChildrenCall int
}

func (n *FakeNode) Name() string            { return n.NodeName }
func (n *FakeNode) ResourceName() string    { return n.Resource }
func (n *FakeNode) Line() int               { return n.LineNo }
func (n *FakeNode) Column() int             { return n.ColumnNo }
func (n *FakeNode) HitCount() int64         { return n.Hits }
func (n *FakeNode) CallUID() uint32         { return n.UID }
func (n *FakeNode) HitLines() map[int]int64 { return n.Lines }

func (n *FakeNode) Children() []profiler.CallTreeNode {
	n.ChildrenCall++
	return n.Kids
}

// Leaf returns a FakeNode without children.
func Leaf(name string, hits int64) *FakeNode {
	return &FakeNode{NodeName: name, Resource: name + ".go", LineNo: 1, Hits: hits}
}

// Branch returns a FakeNode with the given children.
func Branch(name string, children ...profiler.CallTreeNode) *FakeNode {
	return &FakeNode{NodeName: name, Resource: name + ".go", LineNo: 1, Kids: children}
}

// FakeEngine records calls and returns configurable results.
type FakeEngine struct {
	mu sync.Mutex

	Root        profiler.CallTreeNode
	StartErr    error
	StopErr     error
	IntervalErr error

	StartCalls    int
	StopCalls     int
	IntervalCalls int
	Interval      int
}

// NewFakeEngine returns an engine whose Stop yields a small tree.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Root: Branch("(root)",
			Branch("main.main", Leaf("main.work", 3)),
			Leaf("runtime.gcBgMarkWorker", 1),
		),
	}
}

func (e *FakeEngine) SetSamplingInterval(micros int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.IntervalCalls++
	if e.IntervalErr != nil {
		return e.IntervalErr
	}
	e.Interval = micros
	return nil
}

func (e *FakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StartCalls++
	return e.StartErr
}

func (e *FakeEngine) Stop() (profiler.CallTreeNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StopCalls++
	if e.StopErr != nil {
		return nil, e.StopErr
	}
	return e.Root, nil
}

// SetStopErr changes the Stop error under the engine lock.
func (e *FakeEngine) SetStopErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StopErr = err
}

// Calls returns the start and stop call counts.
func (e *FakeEngine) Calls() (starts, stops int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.StartCalls, e.StopCalls
}
