package graph

import (
	"math"
	"strings"
	"testing"

	"github.com/lexgraph/lexgraph/internal/model"
)

// buildDataset assembles a dataset from (link, references) pairs.
// Names are derived from links for readability in failures.
func buildDataset(t *testing.T, entries map[string][]string, order []string) *model.Dataset {
	t.Helper()

	dataset := model.NewDataset()
	for _, link := range order {
		dataset.Add(&model.Article{
			Link:       link,
			Source:     "codice-civile",
			Name:       strings.TrimSuffix(strings.TrimPrefix(link, "/codice-civile/"), ".html"),
			Hierarchy:  model.HierarchyFromLink(link),
			References: entries[link],
		})
	}
	return dataset
}

// TestBuild tests graph construction from a dataset.
func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("resolves references and counts dangling ones", func(t *testing.T) {
		t.Parallel()

		order := []string{
			"/codice-civile/art1.html",
			"/codice-civile/art2.html",
			"/codice-civile/art3.html",
		}
		dataset := buildDataset(t, map[string][]string{
			"/codice-civile/art1.html": {
				"/codice-civile/art2.html",
				"/codice-penale/art100.html", // outside the dataset
			},
			"/codice-civile/art2.html": {"/codice-civile/art3.html"},
		}, order)

		g := Build(dataset)

		if g.NodeCount() != 3 {
			t.Errorf("NodeCount = %d, want 3", g.NodeCount())
		}
		if g.EdgeCount() != 2 {
			t.Errorf("EdgeCount = %d, want 2", g.EdgeCount())
		}
		if g.DanglingReferences() != 1 {
			t.Errorf("DanglingReferences = %d, want 1", g.DanglingReferences())
		}
	})

	t.Run("drops self-citations and duplicates", func(t *testing.T) {
		t.Parallel()

		order := []string{"/codice-civile/art1.html", "/codice-civile/art2.html"}
		dataset := buildDataset(t, map[string][]string{
			"/codice-civile/art1.html": {
				"/codice-civile/art1.html", // self
				"/codice-civile/art2.html",
				"/codice-civile/art2.html", // duplicate
			},
		}, order)

		g := Build(dataset)

		if g.EdgeCount() != 1 {
			t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
		}
		if g.DanglingReferences() != 0 {
			t.Errorf("DanglingReferences = %d, want 0", g.DanglingReferences())
		}
	})

	t.Run("node IDs follow dataset order", func(t *testing.T) {
		t.Parallel()

		order := []string{"/codice-civile/art2.html", "/codice-civile/art1.html"}
		g := Build(buildDataset(t, nil, order))

		if g.Article(0).Link != "/codice-civile/art2.html" {
			t.Errorf("Article(0) = %q, want art2", g.Article(0).Link)
		}
		if g.Article(1).Link != "/codice-civile/art1.html" {
			t.Errorf("Article(1) = %q, want art1", g.Article(1).Link)
		}
	})
}

// TestDegreeCentrality tests normalized degree on a star graph, where the
// hub must score 1 and every leaf 1/(n-1).
func TestDegreeCentrality(t *testing.T) {
	t.Parallel()

	order := []string{
		"/codice-civile/hub.html",
		"/codice-civile/leaf1.html",
		"/codice-civile/leaf2.html",
		"/codice-civile/leaf3.html",
	}
	dataset := buildDataset(t, map[string][]string{
		"/codice-civile/hub.html": {
			"/codice-civile/leaf1.html",
			"/codice-civile/leaf2.html",
			"/codice-civile/leaf3.html",
		},
	}, order)

	rankings := Build(dataset).DegreeCentrality()

	if len(rankings) != 4 {
		t.Fatalf("got %d rankings, want 4", len(rankings))
	}
	if rankings[0].Link != "/codice-civile/hub.html" {
		t.Errorf("top ranked = %q, want hub", rankings[0].Link)
	}
	if math.Abs(rankings[0].Score-1.0) > 1e-9 {
		t.Errorf("hub score = %f, want 1.0", rankings[0].Score)
	}
	wantLeaf := 1.0 / 3.0
	for _, r := range rankings[1:] {
		if math.Abs(r.Score-wantLeaf) > 1e-9 {
			t.Errorf("leaf %s score = %f, want %f", r.Link, r.Score, wantLeaf)
		}
	}
}

// TestEigenvectorCentrality tests eigenvector centrality on a triangle,
// where symmetry forces all scores equal, and on a star, where the hub
// must dominate.
func TestEigenvectorCentrality(t *testing.T) {
	t.Parallel()

	t.Run("triangle is symmetric", func(t *testing.T) {
		t.Parallel()

		order := []string{
			"/codice-civile/art1.html",
			"/codice-civile/art2.html",
			"/codice-civile/art3.html",
		}
		dataset := buildDataset(t, map[string][]string{
			"/codice-civile/art1.html": {"/codice-civile/art2.html"},
			"/codice-civile/art2.html": {"/codice-civile/art3.html"},
			"/codice-civile/art3.html": {"/codice-civile/art1.html"},
		}, order)

		rankings, err := Build(dataset).EigenvectorCentrality()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rankings) != 3 {
			t.Fatalf("got %d rankings, want 3", len(rankings))
		}

		want := 1.0 / math.Sqrt(3)
		for _, r := range rankings {
			if math.Abs(r.Score-want) > 1e-4 {
				t.Errorf("%s score = %f, want %f", r.Link, r.Score, want)
			}
		}
	})

	t.Run("hub dominates a star", func(t *testing.T) {
		t.Parallel()

		order := []string{
			"/codice-civile/hub.html",
			"/codice-civile/leaf1.html",
			"/codice-civile/leaf2.html",
		}
		dataset := buildDataset(t, map[string][]string{
			"/codice-civile/hub.html": {
				"/codice-civile/leaf1.html",
				"/codice-civile/leaf2.html",
			},
		}, order)

		rankings, err := Build(dataset).EigenvectorCentrality()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rankings[0].Link != "/codice-civile/hub.html" {
			t.Errorf("top ranked = %q, want hub", rankings[0].Link)
		}
		if rankings[0].Score <= rankings[1].Score {
			t.Errorf("hub score %f should exceed leaf score %f",
				rankings[0].Score, rankings[1].Score)
		}
	})

	t.Run("edgeless graph reports zeros", func(t *testing.T) {
		t.Parallel()

		order := []string{"/codice-civile/art1.html", "/codice-civile/art2.html"}
		rankings, err := Build(buildDataset(t, nil, order)).EigenvectorCentrality()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, r := range rankings {
			if r.Score != 0 {
				t.Errorf("%s score = %f, want 0", r.Link, r.Score)
			}
		}
	})
}

// TestPageRankCentrality tests PageRank on a graph where one article is
// cited by all others, and that scores sum to 1.
func TestPageRankCentrality(t *testing.T) {
	t.Parallel()

	order := []string{
		"/codice-civile/cited.html",
		"/codice-civile/art1.html",
		"/codice-civile/art2.html",
		"/codice-civile/art3.html",
	}
	dataset := buildDataset(t, map[string][]string{
		"/codice-civile/art1.html": {"/codice-civile/cited.html"},
		"/codice-civile/art2.html": {"/codice-civile/cited.html"},
		"/codice-civile/art3.html": {"/codice-civile/cited.html"},
	}, order)

	rankings := Build(dataset).PageRankCentrality()

	if rankings[0].Link != "/codice-civile/cited.html" {
		t.Errorf("top ranked = %q, want the universally cited article", rankings[0].Link)
	}

	sum := 0.0
	for _, r := range rankings {
		sum += r.Score
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("PageRank scores sum to %f, want 1.0", sum)
	}
}

// TestAnalyze tests the combined analysis report.
func TestAnalyze(t *testing.T) {
	t.Parallel()

	order := []string{
		"/codice-civile/libro-primo/art1.html",
		"/codice-civile/libro-primo/art2.html",
		"/codice-civile/libro-quarto/art1414.html",
	}
	dataset := buildDataset(t, map[string][]string{
		"/codice-civile/libro-primo/art1.html": {
			"/codice-civile/libro-quarto/art1414.html",
			"/costituzione/art1.html", // dangling
		},
	}, order)

	report := Build(dataset).Analyze([]string{"codice-civile"}, nil)

	if report.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", report.NodeCount)
	}
	if report.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", report.EdgeCount)
	}
	if report.DanglingReferences != 1 {
		t.Errorf("DanglingReferences = %d, want 1", report.DanglingReferences)
	}
	if len(report.Degree) != 3 || len(report.PageRank) != 3 {
		t.Error("expected rankings for every node")
	}
	if report.EigenvectorError != "" {
		t.Errorf("unexpected eigenvector error: %s", report.EigenvectorError)
	}
	if report.HierarchyCounts["libro-primo"] != 2 {
		t.Errorf("HierarchyCounts[libro-primo] = %d, want 2", report.HierarchyCounts["libro-primo"])
	}
	if report.HierarchyCounts["libro-quarto"] != 1 {
		t.Errorf("HierarchyCounts[libro-quarto] = %d, want 1", report.HierarchyCounts["libro-quarto"])
	}
}

// TestWriteDOT tests DOT export.
func TestWriteDOT(t *testing.T) {
	t.Parallel()

	order := []string{"/codice-civile/art1.html", "/codice-civile/art2.html"}
	dataset := buildDataset(t, map[string][]string{
		"/codice-civile/art1.html": {
			"/codice-civile/art2.html",
			"/codice-civile/art2.html", // duplicate must not emit twice
		},
	}, order)

	var sb strings.Builder
	if err := Build(dataset).WriteDOT(&sb, "civil-code"); err != nil {
		t.Fatalf("failed to write DOT: %v", err)
	}
	out := sb.String()

	if !strings.HasPrefix(out, `digraph "civil-code" {`) {
		t.Errorf("output should open a named digraph, got %q", out[:30])
	}
	if !strings.Contains(out, `n0 [label="art1"]`) {
		t.Errorf("output missing node label for art1:\n%s", out)
	}
	if strings.Count(out, "n0 -> n1;") != 1 {
		t.Errorf("expected exactly one n0 -> n1 edge:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("output should close the digraph")
	}
}

// TestWriteDOTHierarchyTooltip tests that deep articles carry their
// hierarchy path as a node tooltip.
func TestWriteDOTHierarchyTooltip(t *testing.T) {
	t.Parallel()

	order := []string{
		"/codice-civile/libro-quarto/titolo-ii/art1414.html",
		"/codice-civile/art1.html",
	}
	dataset := buildDataset(t, map[string][]string{}, order)

	var sb strings.Builder
	if err := Build(dataset).WriteDOT(&sb, ""); err != nil {
		t.Fatalf("failed to write DOT: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, `tooltip="libro-quarto/titolo-ii"`) {
		t.Errorf("output missing hierarchy tooltip:\n%s", out)
	}
	if strings.Count(out, "tooltip") != 1 {
		t.Errorf("root-level articles should carry no tooltip:\n%s", out)
	}
}
