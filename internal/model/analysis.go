package model

import (
	"sort"
	"time"
)

// Centrality measure names as used in reports and stored analyses.
const (
	MeasureDegree      = "degree"
	MeasureEigenvector = "eigenvector"
	MeasurePageRank    = "pagerank"
)

// Ranking is one article's score under a centrality measure.
type Ranking struct {
	// Link identifies the article.
	Link string `json:"link"`

	// Name is the article heading, for display.
	Name string `json:"name"`

	// Score is the centrality value. The scale depends on the measure:
	// degree centrality is in [0,1], PageRank scores sum to 1 across the
	// graph, eigenvector scores are L2-normalized.
	Score float64 `json:"score"`
}

// AnalysisReport holds the result of a citation graph analysis.
type AnalysisReport struct {
	// Sources are the law source slugs the dataset was loaded from.
	Sources []string `json:"sources"`

	// Filters are the link prefixes used to carve a sub-network, empty
	// for whole-graph analysis.
	Filters []string `json:"filters,omitempty"`

	// DateAnalyzed is when the analysis ran.
	DateAnalyzed time.Time `json:"date_analyzed"`

	// NodeCount is the number of articles in the graph.
	NodeCount int `json:"node_count"`

	// EdgeCount is the number of resolved citation edges.
	EdgeCount int `json:"edge_count"`

	// DanglingReferences counts references pointing outside the dataset.
	// These are not materialized as nodes.
	DanglingReferences int `json:"dangling_references"`

	// Degree, Eigenvector, and PageRank hold the per-measure rankings,
	// sorted by descending score.
	Degree      []Ranking `json:"degree"`
	Eigenvector []Ranking `json:"eigenvector,omitempty"`
	PageRank    []Ranking `json:"pagerank"`

	// EigenvectorError is set when eigenvector centrality failed to
	// converge; the other measures remain valid.
	EigenvectorError string `json:"eigenvector_error,omitempty"`

	// HierarchyCounts maps top-level hierarchy segments (books) to the
	// number of articles under them. Used for report breakdowns.
	HierarchyCounts map[string]int `json:"hierarchy_counts,omitempty"`
}

// NewAnalysisReport creates an analysis report for the given sources.
func NewAnalysisReport(sources, filters []string) *AnalysisReport {
	return &AnalysisReport{
		Sources:      sources,
		Filters:      filters,
		DateAnalyzed: time.Now().UTC(),
	}
}

// SortRankings sorts a ranking slice by descending score, breaking ties by
// link for deterministic output.
func SortRankings(rs []Ranking) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].Link < rs[j].Link
	})
}

// TopN returns the first n rankings, or all of them when n <= 0 or exceeds
// the length.
func TopN(rs []Ranking, n int) []Ranking {
	if n <= 0 || n >= len(rs) {
		return rs
	}
	return rs[:n]
}

// RankOf returns the 1-based position of link in the rankings, or 0 when
// the link is absent.
func RankOf(rs []Ranking, link string) int {
	for i, r := range rs {
		if r.Link == link {
			return i + 1
		}
	}
	return 0
}
