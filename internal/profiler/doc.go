// Package profiler owns the sampling CPU profiler used by heatline.
//
// An Engine is the external sampling engine: it can be configured with a
// sampling interval, started, and stopped, and on stop it yields the root of
// a call tree exposed only through the read-only CallTreeNode interface.
//
// Session is the single authority that calls an Engine's Start and Stop. It
// enforces the Idle -> Running -> Idle lifecycle so the engine is never
// started twice or stopped while idle, and it only changes its status after
// the engine call succeeded.
//
// PprofEngine is the default Engine. It drives the Go runtime profiler via
// runtime/pprof, decodes the result with github.com/google/pprof/profile and
// folds the samples into a call tree.
package profiler
