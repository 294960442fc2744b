package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/model"
)

// newTestSite builds an httptest server mimicking the Brocardi page
// structure for a tiny "codice-civile" with one book and two articles.
// The root path answers 200 so the connection check passes.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "<html><body>Brocardi</body></html>")
	})
	mux.HandleFunc("/fonti.html", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<div class="content-box content-ext-guide">
			<a href="/codice-civile/">Codice Civile</a>
			<a href="/costituzione/">Costituzione</a>
		</div>`)
	})
	mux.HandleFunc("/codice-civile/", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<div class="section_content content-box content-ext-guide">
			<a href="/codice-civile/libro-primo/">Libro Primo</a>
		</div>`)
	})
	mux.HandleFunc("/codice-civile/libro-primo/", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<body>
			<a href="/codice-civile/libro-primo/art1.html">Art. 1</a>
			<a href="/codice-civile/libro-primo/art2.html">Art. 2</a>
		</body>`)
	})
	mux.HandleFunc("/codice-civile/libro-primo/art1.html", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<h1 class="hbox-header">Art. 1</h1>
			<div class="corpoDelTesto">Capacità giuridica
			<a href="/codice-civile/libro-primo/art2.html">art. 2</a></div>`)
	})
	mux.HandleFunc("/codice-civile/libro-primo/art2.html", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<h1 class="hbox-header">Art. 2</h1>
			<div class="corpoDelTesto">Maggiore età</div>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestNewScrapeCmd tests the scrape command creation.
func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scrape [source...]" {
			t.Errorf("expected use 'scrape [source...]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		shorthands := map[string]string{
			"base-url":     "",
			"timeout":      "t",
			"delay":        "d",
			"max-articles": "p",
			"scope":        "s",
			"store-pages":  "",
			"from-store":   "",
			"user-agent":   "",
			"batch":        "b",
			"config":       "c",
			"db-dir":       "",
			"json":         "j",
			"markdown":     "m",
			"output":       "o",
		}
		for name, shorthand := range shorthands {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != shorthand {
				t.Errorf("expected %s shorthand %q, got %q", name, shorthand, flag.Shorthand)
			}
		}
	})
}

// TestBuildScrapeConfig tests config construction from flags.
func TestBuildScrapeConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildScrapeConfig(cmd, []string{"codice-civile"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.BaseURL != config.DefaultBaseURL {
			t.Errorf("expected base URL %q, got %q", config.DefaultBaseURL, cfg.BaseURL)
		}
		if cfg.Delay != config.DefaultDelay {
			t.Errorf("expected delay %s, got %s", config.DefaultDelay, cfg.Delay)
		}
		if cfg.ReferenceScope != config.ScopeAll {
			t.Errorf("expected scope %q, got %q", config.ScopeAll, cfg.ReferenceScope)
		}
		if cfg.DBDir == "" {
			t.Error("expected db dir to default to XDG data directory")
		}
		if len(cfg.Sources) != 1 || cfg.Sources[0] != "codice-civile" {
			t.Errorf("expected sources [codice-civile], got %v", cfg.Sources)
		}
	})

	t.Run("flag overrides", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		args := []string{
			"--base-url", "http://localhost:8080",
			"--delay", "2s",
			"--max-articles", "100",
			"--scope", "same-source",
			"--store-pages",
			"--batch", "2",
			"--db-dir", "/tmp/lexgraph-test",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildScrapeConfig(cmd, []string{"codice-penale"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.BaseURL != "http://localhost:8080" {
			t.Errorf("unexpected base URL %q", cfg.BaseURL)
		}
		if cfg.Delay != 2*time.Second {
			t.Errorf("expected delay 2s, got %s", cfg.Delay)
		}
		if cfg.MaxArticles != 100 {
			t.Errorf("expected max articles 100, got %d", cfg.MaxArticles)
		}
		if cfg.ReferenceScope != config.ScopeSameSource {
			t.Errorf("expected same-source scope, got %q", cfg.ReferenceScope)
		}
		if !cfg.StorePages {
			t.Error("expected store-pages to be enabled")
		}
		if cfg.BatchSize != 2 {
			t.Errorf("expected batch size 2, got %d", cfg.BatchSize)
		}
		if cfg.DBDir != "/tmp/lexgraph-test" {
			t.Errorf("unexpected db dir %q", cfg.DBDir)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		missing := filepath.Join(t.TempDir(), "nope.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildScrapeConfig(cmd, []string{"codice-civile"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

// TestRunScrape runs the scrape command end to end against a fake site.
func TestRunScrape(t *testing.T) {
	srv := newTestSite(t)
	dbDir := t.TempDir()
	reportPath := filepath.Join(t.TempDir(), "report.json")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"scrape",
		"--base-url", srv.URL,
		"--db-dir", dbDir,
		"--delay", "0s",
		"--batch", "1",
		"--json",
		"--output", reportPath,
		"codice-civile",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The JSON report describes the scrape
	data, err := os.ReadFile(reportPath) //nolint:gosec // Test-controlled path
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var scrapeReport model.ScrapeReport
	if err := json.Unmarshal(data, &scrapeReport); err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}
	if scrapeReport.Source != "codice-civile" {
		t.Errorf("expected source codice-civile, got %q", scrapeReport.Source)
	}
	if scrapeReport.ArticlesStored != 2 {
		t.Errorf("expected 2 articles stored, got %d", scrapeReport.ArticlesStored)
	}

	// The articles land in the database
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	count, err := db.CountArticles(ctx, "codice-civile")
	if err != nil {
		t.Fatalf("failed to count articles: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 articles in database, got %d", count)
	}

	article, err := db.GetArticle(ctx, "/codice-civile/libro-primo/art1.html")
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if article == nil {
		t.Fatal("expected article to be stored")
	}
	if article.Name != "Art. 1" {
		t.Errorf("expected name 'Art. 1', got %q", article.Name)
	}
	if len(article.References) != 1 {
		t.Errorf("expected 1 reference, got %d", len(article.References))
	}
}

// TestRunScrapeFromStore re-parses stored page snapshots without touching
// the network.
func TestRunScrapeFromStore(t *testing.T) {
	srv := newTestSite(t)
	dbDir := t.TempDir()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"scrape",
		"--base-url", srv.URL,
		"--db-dir", dbDir,
		"--delay", "0s",
		"--store-pages",
		"codice-civile",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("initial scrape failed: %v", err)
	}

	// The site is gone, but the snapshots remain.
	srv.Close()

	reportPath := filepath.Join(t.TempDir(), "report.json")
	cmd = NewRootCmd()
	cmd.SetArgs([]string{
		"scrape",
		"--from-store",
		"--db-dir", dbDir,
		"--json",
		"--output", reportPath,
		"codice-civile",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("from-store scrape failed: %v", err)
	}

	data, err := os.ReadFile(reportPath) //nolint:gosec // Test-controlled path
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var scrapeReport model.ScrapeReport
	if err := json.Unmarshal(data, &scrapeReport); err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}
	if scrapeReport.ArticlesStored != 2 {
		t.Errorf("expected 2 articles re-parsed, got %d", scrapeReport.ArticlesStored)
	}

	t.Run("empty store", func(t *testing.T) {
		// Failures are reported per source, not fatal; the source just
		// yields no articles.
		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"scrape",
			"--from-store",
			"--db-dir", dbDir,
			"costituzione",
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(dbDir, database.Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		count, err := db.CountArticles(context.Background(), "costituzione")
		if err != nil {
			t.Fatalf("failed to count articles: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no articles for costituzione, got %d", count)
		}
	})
}

// TestRunScrapeInvalidInput tests argument validation failures.
func TestRunScrapeInvalidInput(t *testing.T) {
	t.Parallel()

	t.Run("no sources", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetArgs([]string{"scrape", "--db-dir", t.TempDir()})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when no sources are given")
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetArgs([]string{"scrape", "--json", "--markdown", "codice-civile"})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error for conflicting formats")
		}
		if !strings.Contains(err.Error(), "conflicting report formats") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid scope", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetArgs([]string{"scrape", "--scope", "bogus", "codice-civile"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for invalid scope")
		}
	})

	t.Run("invalid source slug", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cmd := NewRootCmd()
		cmd.SetArgs([]string{
			"scrape",
			"--base-url", srv.URL,
			"--db-dir", t.TempDir(),
			"not a slug!",
		})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for invalid source slug")
		}
	})
}
