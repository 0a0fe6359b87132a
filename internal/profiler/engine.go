package profiler

// CallTreeNode is a read-only view of one call site in a profile.
//
// Children are reported in the engine's internal order, which is not
// necessarily sorted.
type CallTreeNode interface {
	// Name is the function name.
	Name() string
	// ResourceName is the source file of the function.
	ResourceName() string
	// Line is the 1-based line of the function, 0 when unknown.
	Line() int
	// Column is the 1-based column of the function, 0 when unknown.
	Column() int
	// HitCount is the number of samples attributed directly to this node.
	HitCount() int64
	// CallUID identifies this call site, stable across the whole tree.
	CallUID() uint32
	// HitLines maps source line to the number of samples hitting it.
	HitLines() map[int]int64
	// Children returns the callees of this node.
	Children() []CallTreeNode
}

// Engine is a sampling CPU profiler.
//
// Engines have undefined behavior when started twice or stopped while idle;
// callers go through Session, which rules that out.
type Engine interface {
	// SetSamplingInterval sets the interval between samples in microseconds.
	SetSamplingInterval(micros int) error
	// Start begins sampling.
	Start() error
	// Stop ends sampling and returns the root of the collected call tree.
	Stop() (CallTreeNode, error)
}
