package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lexgraph/lexgraph/internal/model"
)

// createScrapeReport creates a scrape report with sample data for testing.
func createScrapeReport() *model.ScrapeReport {
	report := model.NewScrapeReport("codice-civile")
	report.BookLinks = []string{"/codice-civile/libro-primo/"}
	report.ArticleLinks = []string{
		"/codice-civile/libro-primo/art1.html",
		"/codice-civile/libro-primo/art2.html",
		"/codice-civile/libro-primo/art404.html",
	}
	report.Articles = []*model.Article{
		{Link: "/codice-civile/libro-primo/art1.html", Source: "codice-civile", Name: "Art. 1"},
		{Link: "/codice-civile/libro-primo/art2.html", Source: "codice-civile", Name: "Art. 2"},
	}
	report.ArticlesStored = 2
	report.Missing = []string{"/codice-civile/libro-primo/art404.html"}
	report.Elapsed = 3 * time.Second
	return report
}

// createAnalysisReport creates an analysis report with sample data.
func createAnalysisReport() *model.AnalysisReport {
	report := model.NewAnalysisReport([]string{"codice-civile"}, nil)
	report.NodeCount = 3
	report.EdgeCount = 2
	report.DanglingReferences = 1
	report.Degree = []model.Ranking{
		{Link: "/codice-civile/art1414.html", Name: "Art. 1414 Codice Civile", Score: 1.0},
		{Link: "/codice-civile/art1415.html", Name: "Art. 1415 Codice Civile", Score: 0.5},
	}
	report.Eigenvector = []model.Ranking{
		{Link: "/codice-civile/art1414.html", Name: "Art. 1414 Codice Civile", Score: 0.707107},
	}
	report.PageRank = []model.Ranking{
		{Link: "/codice-civile/art1414.html", Name: "Art. 1414 Codice Civile", Score: 0.6},
		{Link: "/codice-civile/art1415.html", Name: "Art. 1415 Codice Civile", Score: 0.4},
	}
	report.HierarchyCounts = map[string]int{"libro-quarto": 2}
	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes scrape report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteScrape(createScrapeReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SCRAPE REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "codice-civile") {
			t.Error("expected output to contain the law source")
		}
		if !strings.Contains(output, "Articles Parsed: 2") {
			t.Errorf("expected parsed count, got:\n%s", output)
		}
		if !strings.Contains(output, "Articles Stored: 2") {
			t.Errorf("expected stored count, got:\n%s", output)
		}
		if !strings.Contains(output, "Status:          Complete") {
			t.Errorf("expected complete status, got:\n%s", output)
		}
	})

	t.Run("verbose lists missing articles", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.WriteScrape(createScrapeReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "art404.html") {
			t.Error("verbose output should list missing articles")
		}
	})

	t.Run("reports errors and cancellation", func(t *testing.T) {
		t.Parallel()

		report := createScrapeReport()
		report.Error = errors.New("site unreachable")
		report.ErrorMessage = report.Error.Error()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteScrape(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - site unreachable") {
			t.Error("expected error status in output")
		}
	})

	t.Run("writes analysis report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.WriteAnalysis(createAnalysisReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"CITATION NETWORK ANALYSIS",
			"DEGREE CENTRALITY",
			"EIGENVECTOR CENTRALITY",
			"PAGERANK",
			"Art. 1414 Codice Civile",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("top-N limits rankings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithTopN(1))

		if _, err := w.WriteAnalysis(createAnalysisReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "Art. 1415 Codice Civile") {
			t.Error("second-ranked article should be cut by top-N")
		}
	})

	t.Run("reports eigenvector failure", func(t *testing.T) {
		t.Parallel()

		report := createAnalysisReport()
		report.Eigenvector = nil
		report.EigenvectorError = "eigenvector centrality did not converge"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteAnalysis(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "did not converge") {
			t.Error("expected eigenvector failure notice")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid scrape JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.WriteScrape(createScrapeReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.ScrapeReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Source != "codice-civile" {
			t.Errorf("Source = %q, want codice-civile", decoded.Source)
		}
		if decoded.ArticlesStored != 2 {
			t.Errorf("ArticlesStored = %d, want 2", decoded.ArticlesStored)
		}
	})

	t.Run("writes valid analysis JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.WriteAnalysis(createAnalysisReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.AnalysisReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.NodeCount != 3 {
			t.Errorf("NodeCount = %d, want 3", decoded.NodeCount)
		}
		if len(decoded.PageRank) != 2 {
			t.Errorf("PageRank has %d entries, want 2", len(decoded.PageRank))
		}

		// Pretty print uses indentation.
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes scrape markdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.WriteScrape(createScrapeReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Scrape Report") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "`codice-civile`") {
			t.Error("expected law source in table")
		}
		if !strings.Contains(output, "## Missing Articles") {
			t.Error("expected missing articles section")
		}
	})

	t.Run("writes analysis markdown with rankings and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.WriteAnalysis(createAnalysisReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Citation Network Analysis",
			"## Degree Centrality",
			"## PageRank",
			"mermaid",
			"libro-quarto",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// TestMultiWriter tests writing to multiple destinations.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, jsonBuf bytes.Buffer
	mw := NewMultiWriter(
		NewSimpleWriter(&text),
		NewJSONWriter(&jsonBuf),
	)

	if _, err := mw.WriteAnalysis(createAnalysisReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text.Len() == 0 || jsonBuf.Len() == 0 {
		t.Error("both writers should receive output")
	}
}

// TestTruncateString tests the display truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"a longer string than allowed", 10, "a longe..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
