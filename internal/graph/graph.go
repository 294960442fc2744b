package graph

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/lexgraph/lexgraph/internal/model"
)

// CitationGraph is a directed graph of citations between legal articles.
// Node IDs map one-to-one onto dataset positions, so the i-th article of the
// dataset is node i. References pointing at articles outside the dataset
// (dangling references) are counted but never materialized as nodes.
//
// Design decision: We keep both the directed gonum graph and an undirected
// neighbor index. Citation direction matters for PageRank (who cites whom),
// but the classic degree and eigenvector measures on legal-citation networks
// treat a citation as a symmetric relation between two articles.
type CitationGraph struct {
	// directed holds the citation edges as extracted, from citing to cited.
	directed *simple.DirectedGraph

	// articles are the graph's nodes in node-ID order.
	articles []*model.Article

	// index maps article links to node IDs.
	index map[string]int64

	// neighbors is the undirected adjacency: for each node, the set of
	// nodes connected by at least one citation in either direction.
	neighbors []map[int64]struct{}

	// edgeCount is the number of distinct directed edges.
	edgeCount int

	// dangling counts references that pointed outside the dataset.
	dangling int
}

// Build constructs a citation graph from a dataset. Self-citations and
// duplicate references are dropped.
func Build(dataset *model.Dataset) *CitationGraph {
	articles := dataset.Articles()

	g := &CitationGraph{
		directed:  simple.NewDirectedGraph(),
		articles:  articles,
		index:     make(map[string]int64, len(articles)),
		neighbors: make([]map[int64]struct{}, len(articles)),
	}

	for i, a := range articles {
		id := int64(i)
		g.index[a.Link] = id
		g.directed.AddNode(simple.Node(id))
		g.neighbors[i] = make(map[int64]struct{})
	}

	for i, a := range articles {
		from := int64(i)
		for _, ref := range a.References {
			to, ok := g.index[ref]
			if !ok {
				g.dangling++
				continue
			}
			if to == from {
				continue
			}
			if g.directed.HasEdgeFromTo(from, to) {
				continue
			}
			g.directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			g.edgeCount++
			g.neighbors[from][to] = struct{}{}
			g.neighbors[to][from] = struct{}{}
		}
	}

	return g
}

// NodeCount returns the number of articles in the graph.
func (g *CitationGraph) NodeCount() int {
	return len(g.articles)
}

// EdgeCount returns the number of distinct directed citation edges.
func (g *CitationGraph) EdgeCount() int {
	return g.edgeCount
}

// DanglingReferences returns the number of references that pointed at
// articles outside the dataset.
func (g *CitationGraph) DanglingReferences() int {
	return g.dangling
}

// Article returns the article at the given node ID.
func (g *CitationGraph) Article(id int64) *model.Article {
	return g.articles[id]
}

// Articles returns the graph's articles in node-ID order.
func (g *CitationGraph) Articles() []*model.Article {
	return g.articles
}

// undirectedDegree returns the number of distinct neighbors of a node,
// ignoring citation direction.
func (g *CitationGraph) undirectedDegree(id int64) int {
	return len(g.neighbors[id])
}

// HierarchyCounts returns the number of articles per top-level hierarchy
// segment (book). Articles without hierarchy are grouped under "".
func (g *CitationGraph) HierarchyCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range g.articles {
		counts[a.Book()]++
	}
	return counts
}
