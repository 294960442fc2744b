// Package graph builds citation graphs from article datasets and computes
// centrality measures over them (degree, eigenvector, PageRank). Graphs can
// be exported in Graphviz DOT format for external visualization.
package graph
