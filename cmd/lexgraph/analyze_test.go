package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/model"
)

// seedDatabase creates a database with a small citation network:
// art1 -> art2, art2 -> art3, art3 -> art2. Art. 2 is the hub.
func seedDatabase(t *testing.T) string {
	t.Helper()

	dbDir := t.TempDir()
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.UpsertSource(ctx, "codice-civile"); err != nil {
		t.Fatalf("failed to upsert source: %v", err)
	}

	articles := []*model.Article{
		{
			Link:       "/codice-civile/libro-primo/art1.html",
			Source:     "codice-civile",
			Name:       "Art. 1",
			Hierarchy:  []string{"libro-primo"},
			Text:       "Capacità giuridica",
			References: []string{"/codice-civile/libro-primo/art2.html"},
			FetchedAt:  time.Now().UTC(),
		},
		{
			Link:       "/codice-civile/libro-primo/art2.html",
			Source:     "codice-civile",
			Name:       "Art. 2",
			Hierarchy:  []string{"libro-primo"},
			Text:       "Maggiore età",
			References: []string{"/codice-civile/libro-quarto/art3.html"},
			FetchedAt:  time.Now().UTC(),
		},
		{
			Link:      "/codice-civile/libro-quarto/art3.html",
			Source:    "codice-civile",
			Name:      "Art. 3",
			Hierarchy: []string{"libro-quarto"},
			Text:      "Obbligazioni",
			References: []string{
				"/codice-civile/libro-primo/art2.html",
			},
			FetchedAt: time.Now().UTC(),
		},
	}
	for _, a := range articles {
		if err := db.UpsertArticle(ctx, a); err != nil {
			t.Fatalf("failed to upsert article: %v", err)
		}
	}

	return dbDir
}

// TestNewAnalyzeCmd tests the analyze command creation.
func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "analyze [source...]" {
			t.Errorf("expected use 'analyze [source...]', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"filter", "top", "json", "markdown", "output", "db-dir", "no-save"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunAnalyze runs the analyze command end to end against a seeded database.
func TestRunAnalyze(t *testing.T) {
	t.Run("whole graph", func(t *testing.T) {
		dbDir := seedDatabase(t)
		reportPath := filepath.Join(t.TempDir(), "analysis.json")

		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"analyze",
			"--db-dir", dbDir,
			"--json",
			"--output", reportPath,
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(reportPath) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var analysis model.AnalysisReport
		if err := json.Unmarshal(data, &analysis); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}

		if analysis.NodeCount != 3 {
			t.Errorf("expected 3 nodes, got %d", analysis.NodeCount)
		}
		if analysis.EdgeCount != 3 {
			t.Errorf("expected 3 edges, got %d", analysis.EdgeCount)
		}
		if len(analysis.Degree) != 3 {
			t.Errorf("expected 3 degree rankings, got %d", len(analysis.Degree))
		}
		if len(analysis.PageRank) != 3 {
			t.Errorf("expected 3 pagerank rankings, got %d", len(analysis.PageRank))
		}
		// Art. 2 is cited by both others and cites one: highest degree
		if analysis.Degree[0].Link != "/codice-civile/libro-primo/art2.html" {
			t.Errorf("expected art2 to top degree ranking, got %q", analysis.Degree[0].Link)
		}

		// The analysis is stored in the database
		db, err := database.Open(dbDir, database.Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		stored, err := db.ListAnalyses(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list analyses: %v", err)
		}
		if len(stored) != 1 {
			t.Errorf("expected 1 stored analysis, got %d", len(stored))
		}
	})

	t.Run("filtered sub-network", func(t *testing.T) {
		dbDir := seedDatabase(t)
		reportPath := filepath.Join(t.TempDir(), "analysis.json")

		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"analyze",
			"--db-dir", dbDir,
			"--filter", "/codice-civile/libro-primo",
			"--json",
			"--output", reportPath,
			"--no-save",
			"codice-civile",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(reportPath) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var analysis model.AnalysisReport
		if err := json.Unmarshal(data, &analysis); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}

		if analysis.NodeCount != 2 {
			t.Errorf("expected 2 nodes after filtering, got %d", analysis.NodeCount)
		}
		// art2 -> art3 now points outside the sub-network
		if analysis.DanglingReferences == 0 {
			t.Error("expected dangling references after filtering")
		}
		if len(analysis.Filters) != 1 {
			t.Errorf("expected filters to be recorded, got %v", analysis.Filters)
		}

		// --no-save keeps the database free of analyses
		db, err := database.Open(dbDir, database.Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		stored, err := db.ListAnalyses(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list analyses: %v", err)
		}
		if len(stored) != 0 {
			t.Errorf("expected no stored analyses with --no-save, got %d", len(stored))
		}
	})

	t.Run("missing database", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"analyze", "--db-dir", t.TempDir()})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when database does not exist")
		}
	})

	t.Run("no matching articles", func(t *testing.T) {
		dbDir := seedDatabase(t)

		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"analyze",
			"--db-dir", dbDir,
			"--filter", "/codice-penale",
		})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when no articles match the filter")
		}
	})
}
