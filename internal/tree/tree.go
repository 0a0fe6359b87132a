// Package tree converts profiler call trees into plain, JSON-ready nodes.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coral-mesh/heatline/internal/profiler"
)

// ErrTooManyNodes is returned by SerializeLimit when the tree exceeds the limit.
var ErrTooManyNodes = errors.New("call tree exceeds node limit")

// Node is a materialized call-tree node.
type Node struct {
	Name         string        `json:"name"`
	ResourceName string        `json:"resourceName"`
	Line         int           `json:"line"`
	Column       int           `json:"column"`
	Hits         int64         `json:"hits"`
	CallUID      uint32        `json:"callUid"`
	HitLines     map[int]int64 `json:"hitLines"`
	Children     []*Node       `json:"children"`
}

// Serialize copies the tree rooted at root, preserving child order.
// A nil root yields nil.
func Serialize(root profiler.CallTreeNode) *Node {
	n, _ := SerializeLimit(root, 0)
	return n
}

// SerializeLimit is Serialize with an upper bound on the number of nodes.
// A maxNodes of zero disables the bound.
//
// Every accessor of every source node is read exactly once. The walk keeps
// its own stack, so deep trees do not grow the goroutine stack, and the
// bound guarantees termination on cyclic input.
func SerializeLimit(root profiler.CallTreeNode, maxNodes int) (*Node, error) {
	if root == nil {
		return nil, nil
	}

	type pending struct {
		src profiler.CallTreeNode
		dst *Node
	}

	out := copyScalars(root)
	count := 1
	stack := []pending{{src: root, dst: out}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := p.src.Children()
		p.dst.Children = make([]*Node, 0, len(children))
		first := len(stack)

		for _, c := range children {
			if c == nil {
				continue
			}
			count++
			if maxNodes > 0 && count > maxNodes {
				return nil, fmt.Errorf("%w (%d)", ErrTooManyNodes, maxNodes)
			}
			n := copyScalars(c)
			p.dst.Children = append(p.dst.Children, n)
			stack = append(stack, pending{src: c, dst: n})
		}

		// Reverse the pushed siblings so the first child is visited next.
		for i, j := first, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
	}

	return out, nil
}

func copyScalars(src profiler.CallTreeNode) *Node {
	lines := src.HitLines()
	hitLines := make(map[int]int64, len(lines))
	for line, hits := range lines {
		hitLines[line] = hits
	}

	return &Node{
		Name:         src.Name(),
		ResourceName: src.ResourceName(),
		Line:         src.Line(),
		Column:       src.Column(),
		Hits:         src.HitCount(),
		CallUID:      src.CallUID(),
		HitLines:     hitLines,
	}
}

// Walk visits n and its descendants depth-first, parents before children.
// The path holds the ancestors of the visited node, root first.
func (n *Node) Walk(fn func(node *Node, path []*Node)) {
	if n == nil {
		return
	}

	type frame struct {
		node  *Node
		depth int
	}

	var path []*Node
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path = path[:f.depth]
		fn(f.node, path)
		path = append(path, f.node)

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], depth: f.depth + 1})
		}
	}
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, []*Node) { count++ })
	return count
}

// TotalHits returns the sum of hits over the tree.
func (n *Node) TotalHits() int64 {
	var total int64
	n.Walk(func(node *Node, _ []*Node) { total += node.Hits })
	return total
}

// Folded renders the tree as folded stacks ("a;b;c hits"), one line per
// node with direct hits, excluding the synthetic root.
func (n *Node) Folded() []string {
	var lines []string
	n.Walk(func(node *Node, path []*Node) {
		if node.Hits == 0 || len(path) == 0 {
			return
		}
		names := make([]string, 0, len(path))
		for _, p := range path[1:] {
			names = append(names, p.Name)
		}
		names = append(names, node.Name)
		lines = append(lines, fmt.Sprintf("%s %d", strings.Join(names, ";"), node.Hits))
	})
	return lines
}
