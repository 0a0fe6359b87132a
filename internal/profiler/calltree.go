package profiler

import (
	"fmt"
	"strconv"

	"github.com/google/pprof/profile"
	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/heatline/internal/constants"
)

// callNode is the CallTreeNode produced by BuildCallTree.
type callNode struct {
	name     string
	resource string
	line     int
	column   int
	hits     int64
	uid      uint32
	hitLines map[int]int64
	children []*callNode
	index    map[frameKey]int
}

// frameKey identifies a function under a given parent.
type frameKey struct {
	name      string
	file      string
	startLine int64
}

// frame is one resolved stack entry, innermost inline expansion last.
type frame struct {
	key    frameKey
	line   int64
	column int64
}

func newCallNode(key frameKey, column int64) *callNode {
	return &callNode{
		name:     key.name,
		resource: key.file,
		line:     int(key.startLine),
		column:   int(column),
		uid:      callUID(key),
		hitLines: make(map[int]int64),
	}
}

func (n *callNode) Name() string            { return n.name }
func (n *callNode) ResourceName() string    { return n.resource }
func (n *callNode) Line() int               { return n.line }
func (n *callNode) Column() int             { return n.column }
func (n *callNode) HitCount() int64         { return n.hits }
func (n *callNode) CallUID() uint32         { return n.uid }
func (n *callNode) HitLines() map[int]int64 { return n.hitLines }

func (n *callNode) Children() []CallTreeNode {
	out := make([]CallTreeNode, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// child returns the child for key, appending it in first-seen order.
func (n *callNode) child(f frame) *callNode {
	if n.index == nil {
		n.index = make(map[frameKey]int)
	}
	if i, ok := n.index[f.key]; ok {
		return n.children[i]
	}
	c := newCallNode(f.key, f.column)
	n.index[f.key] = len(n.children)
	n.children = append(n.children, c)
	return c
}

// callUID hashes the function identity so equal functions share a uid.
func callUID(key frameKey) uint32 {
	h := xxh3.HashString(key.name + "\x00" + key.file + "\x00" + strconv.FormatInt(key.startLine, 10))
	return uint32(h ^ (h >> 32))
}

// EmptyCallTree returns a root node with no samples.
func EmptyCallTree() CallTreeNode {
	return newCallNode(frameKey{name: constants.RootNodeName}, 0)
}

// BuildCallTree folds the samples of p into a call tree rooted at "(root)".
//
// Every sample contributes its sample count to the leaf function of its
// stack, both as a hit and on the sampled source line. Functions are merged
// per parent, keeping the order in which they were first seen.
func BuildCallTree(p *profile.Profile) CallTreeNode {
	root := newCallNode(frameKey{name: constants.RootNodeName}, 0)
	if p == nil {
		return root
	}

	valueIndex := sampleValueIndex(p)
	for _, s := range p.Sample {
		if valueIndex >= len(s.Value) {
			continue
		}
		count := s.Value[valueIndex]
		if count == 0 {
			continue
		}

		node := root
		var leaf *frame
		frames := stackFrames(s)
		for i := range frames {
			node = node.child(frames[i])
			leaf = &frames[i]
		}

		node.hits += count
		if leaf != nil && leaf.line > 0 {
			node.hitLines[int(leaf.line)] += count
		}
	}

	return root
}

// sampleValueIndex picks the sample count column, falling back to the first one.
func sampleValueIndex(p *profile.Profile) int {
	for i, st := range p.SampleType {
		if st.Type == "samples" {
			return i
		}
	}
	return 0
}

// stackFrames returns the frames of s from the outermost caller to the leaf.
func stackFrames(s *profile.Sample) []frame {
	var frames []frame
	// pprof stores the leaf location first, and the innermost inlined line
	// first within a location.
	for i := len(s.Location) - 1; i >= 0; i-- {
		loc := s.Location[i]
		if loc == nil {
			continue
		}
		if len(loc.Line) == 0 {
			frames = append(frames, addressFrame(loc))
			continue
		}
		for j := len(loc.Line) - 1; j >= 0; j-- {
			frames = append(frames, lineFrame(loc, loc.Line[j]))
		}
	}
	return frames
}

func lineFrame(loc *profile.Location, ln profile.Line) frame {
	fn := ln.Function
	if fn == nil {
		f := addressFrame(loc)
		f.line = ln.Line
		return f
	}
	name := fn.Name
	if name == "" {
		name = fn.SystemName
	}
	return frame{
		key: frameKey{
			name:      name,
			file:      fn.Filename,
			startLine: fn.StartLine,
		},
		line:   ln.Line,
		column: ln.Column,
	}
}

func addressFrame(loc *profile.Location) frame {
	var file string
	if loc.Mapping != nil {
		file = loc.Mapping.File
	}
	return frame{
		key: frameKey{
			name: fmt.Sprintf("0x%x", loc.Address),
			file: file,
		},
	}
}
