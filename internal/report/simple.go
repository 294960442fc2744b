package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lexgraph/lexgraph/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// topN limits how many ranked articles are shown per measure.
	// Zero shows all of them.
	topN int

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopN limits the number of ranked articles shown per measure.
func WithTopN(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.topN = n
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteScrape outputs the scrape report in human-readable format.
func (w *SimpleWriter) WriteScrape(report *model.ScrapeReport) (int, error) {
	var sb strings.Builder

	w.writeRule(&sb, "=")
	sb.WriteString("                         SCRAPE REPORT\n")
	w.writeRule(&sb, "=")
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Law Source:      %s\n", report.Source))
	sb.WriteString(fmt.Sprintf("Scrape Date:     %s\n", report.DateScraped.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Books:           %d\n", len(report.BookLinks)))
	sb.WriteString(fmt.Sprintf("Article Links:   %d\n", len(report.ArticleLinks)))
	sb.WriteString(fmt.Sprintf("Articles Parsed: %d\n", report.ArticleCount()))
	sb.WriteString(fmt.Sprintf("Articles Stored: %d\n", report.ArticlesStored))
	sb.WriteString(fmt.Sprintf("Missing:         %d\n", len(report.Missing)))
	if report.Elapsed > 0 {
		sb.WriteString(fmt.Sprintf("Elapsed:         %s\n", report.Elapsed.Round(10*time.Millisecond)))
	}

	switch {
	case report.TimedOut:
		sb.WriteString("Status:          CANCELLED (partial results)\n")
	case report.ErrorMessage != "":
		sb.WriteString(fmt.Sprintf("Status:          ERROR - %s\n", report.ErrorMessage))
	default:
		sb.WriteString("Status:          Complete\n")
	}

	if len(report.Missing) > 0 && w.verbose {
		sb.WriteString("\n")
		w.writeRule(&sb, "-")
		sb.WriteString("MISSING ARTICLES\n")
		w.writeRule(&sb, "-")
		for _, link := range report.Missing {
			sb.WriteString(fmt.Sprintf("  - %s\n", link))
		}
	}

	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

// WriteAnalysis outputs the analysis report in human-readable format.
func (w *SimpleWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	var sb strings.Builder

	w.writeRule(&sb, "=")
	sb.WriteString("                    CITATION NETWORK ANALYSIS\n")
	w.writeRule(&sb, "=")
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Sources:    %s\n", strings.Join(report.Sources, ", ")))
	if len(report.Filters) > 0 {
		sb.WriteString(fmt.Sprintf("Filters:    %s\n", strings.Join(report.Filters, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Analyzed:   %s\n", report.DateAnalyzed.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Articles:   %d\n", report.NodeCount))
	sb.WriteString(fmt.Sprintf("Citations:  %d\n", report.EdgeCount))
	sb.WriteString(fmt.Sprintf("Dangling:   %d\n", report.DanglingReferences))
	sb.WriteString("\n")

	w.writeRankings(&sb, "DEGREE CENTRALITY", report.Degree)
	if report.EigenvectorError != "" {
		w.writeRule(&sb, "-")
		sb.WriteString("EIGENVECTOR CENTRALITY\n")
		w.writeRule(&sb, "-")
		sb.WriteString(fmt.Sprintf("  unavailable: %s\n\n", report.EigenvectorError))
	} else {
		w.writeRankings(&sb, "EIGENVECTOR CENTRALITY", report.Eigenvector)
	}
	w.writeRankings(&sb, "PAGERANK", report.PageRank)

	if len(report.HierarchyCounts) > 0 && w.verbose {
		w.writeHierarchy(&sb, report.HierarchyCounts)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeRankings writes one centrality measure's top articles.
func (w *SimpleWriter) writeRankings(sb *strings.Builder, title string, rankings []model.Ranking) {
	w.writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	w.writeRule(sb, "-")

	if len(rankings) == 0 {
		sb.WriteString("  No articles\n\n")
		return
	}

	for i, r := range model.TopN(rankings, w.topN) {
		name := r.Name
		if name == "" {
			name = r.Link
		}
		sb.WriteString(fmt.Sprintf("  %3d. %-50s %.6f\n", i+1, name, r.Score))
	}
	sb.WriteString("\n")
}

// writeHierarchy writes the per-book article counts.
func (w *SimpleWriter) writeHierarchy(sb *strings.Builder, counts map[string]int) {
	w.writeRule(sb, "-")
	sb.WriteString("ARTICLES PER BOOK\n")
	w.writeRule(sb, "-")

	books := make([]string, 0, len(counts))
	for book := range counts {
		books = append(books, book)
	}
	sort.Strings(books)

	for _, book := range books {
		label := book
		if label == "" {
			label = "(root)"
		}
		sb.WriteString(fmt.Sprintf("  %-40s %d\n", label, counts[book]))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}
