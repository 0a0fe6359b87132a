package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/coral-mesh/heatline/internal/tree"
)

var (
	nameStyle = lipgloss.NewStyle().
			Bold(true)

	hitsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	resourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

type renderFunc func(w io.Writer, root *tree.Node) error

func rendererFor(format string, maxDepth int) (renderFunc, error) {
	switch format {
	case "json", "":
		return renderJSON, nil
	case "folded":
		return renderFolded, nil
	case "tree":
		return func(w io.Writer, root *tree.Node) error {
			return renderTree(w, root, maxDepth)
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json, folded or tree)", format)
	}
}

func renderJSON(w io.Writer, root *tree.Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

// renderFolded prints folded stacks: frame1;frame2;frame3 count.
func renderFolded(w io.Writer, root *tree.Node) error {
	for _, line := range root.Folded() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// renderTree prints one line per node with self and total hits, indented
// by depth. Nodes deeper than maxDepth are skipped when maxDepth > 0.
func renderTree(w io.Writer, root *tree.Node, maxDepth int) error {
	totals := subtreeHits(root)

	var err error
	root.Walk(func(node *tree.Node, path []*tree.Node) {
		if err != nil || (maxDepth > 0 && len(path) > maxDepth) {
			return
		}

		location := node.ResourceName
		if node.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, node.Line)
		}

		_, err = fmt.Fprintf(w, "%s%s %s %s\n",
			strings.Repeat("  ", len(path)),
			nameStyle.Render(node.Name),
			hitsStyle.Render(fmt.Sprintf("[self %d, total %d]", node.Hits, totals[node])),
			resourceStyle.Render(location),
		)
	})
	return err
}

// subtreeHits returns the hits of every node including its descendants.
func subtreeHits(root *tree.Node) map[*tree.Node]int64 {
	var (
		order   []*tree.Node
		parents = make(map[*tree.Node]*tree.Node)
	)
	root.Walk(func(node *tree.Node, path []*tree.Node) {
		order = append(order, node)
		if len(path) > 0 {
			parents[node] = path[len(path)-1]
		}
	})

	totals := make(map[*tree.Node]int64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		totals[node] += node.Hits
		if parent, ok := parents[node]; ok {
			totals[parent] += totals[node]
		}
	}
	return totals
}
