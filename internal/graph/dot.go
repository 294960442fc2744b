package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes the citation graph in Graphviz DOT format. Nodes are
// labeled with article names and edges follow citation direction. The output
// renders with any Graphviz tool (dot, neato, sfdp).
func (g *CitationGraph) WriteDOT(w io.Writer, graphName string) error {
	if graphName == "" {
		graphName = "citations"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", graphName)
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tnode [shape=box, fontsize=10];\n")

	for i, a := range g.articles {
		label := a.Name
		if label == "" {
			label = a.Link
		}
		// The hierarchy path surfaces as a hover tooltip in SVG output.
		if path := a.HierarchyPath(); path != "" {
			fmt.Fprintf(&b, "\tn%d [label=%q, tooltip=%q];\n", i, label, path)
			continue
		}
		fmt.Fprintf(&b, "\tn%d [label=%q];\n", i, label)
	}

	// Walk references in document order so output is deterministic, but
	// emit each directed edge only once.
	seen := make(map[[2]int64]bool)
	for from, a := range g.articles {
		for _, ref := range a.References {
			to, ok := g.index[ref]
			if !ok || to == int64(from) {
				continue
			}
			key := [2]int64{int64(from), to}
			if seen[key] {
				continue
			}
			seen[key] = true
			fmt.Fprintf(&b, "\tn%d -> n%d;\n", from, to)
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
