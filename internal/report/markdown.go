package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/lexgraph/lexgraph/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// topN limits how many ranked articles are shown per measure.
	// Zero shows all of them.
	topN int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTopN limits the number of ranked articles shown per measure.
func WithMarkdownTopN(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.topN = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteScrape outputs the scrape report in Markdown format.
func (w *MarkdownWriter) WriteScrape(report *model.ScrapeReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scrape Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Law Source", "`" + report.Source + "`"},
			{"Scrape Date", report.DateScraped.Format("2006-01-02 15:04:05 MST")},
			{"Books", strconv.Itoa(len(report.BookLinks))},
			{"Article Links", strconv.Itoa(len(report.ArticleLinks))},
			{"Articles Stored", strconv.Itoa(report.ArticlesStored)},
			{"Missing", strconv.Itoa(len(report.Missing))},
			{"Status", w.scrapeStatusText(report)},
		},
	})
	md.PlainText("")

	if len(report.Missing) > 0 {
		md.H2("Missing Articles")
		md.PlainText("")
		md.BulletList(report.Missing...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// scrapeStatusText returns the status text based on report state.
func (w *MarkdownWriter) scrapeStatusText(report *model.ScrapeReport) string {
	if report.TimedOut {
		return "⚠️ Cancelled (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// WriteAnalysis outputs the analysis report in Markdown format.
func (w *MarkdownWriter) WriteAnalysis(report *model.AnalysisReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Citation Network Analysis")
	md.PlainText("")

	filters := strings.Join(report.Filters, ", ")
	if filters == "" {
		filters = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Sources", strings.Join(report.Sources, ", ")},
			{"Filters", filters},
			{"Analyzed", report.DateAnalyzed.Format("2006-01-02 15:04:05 MST")},
			{"Articles", strconv.Itoa(report.NodeCount)},
			{"Citations", strconv.Itoa(report.EdgeCount)},
			{"Dangling References", strconv.Itoa(report.DanglingReferences)},
		},
	})
	md.PlainText("")

	w.writeRankingTable(md, "Degree Centrality", report.Degree)
	if report.EigenvectorError != "" {
		md.H2("Eigenvector Centrality")
		md.PlainText("")
		md.Warningf("Eigenvector centrality unavailable: %s", report.EigenvectorError)
		md.PlainText("")
	} else {
		w.writeRankingTable(md, "Eigenvector Centrality", report.Eigenvector)
	}
	w.writeRankingTable(md, "PageRank", report.PageRank)

	if len(report.HierarchyCounts) > 0 {
		w.writePieChart(md, report.HierarchyCounts)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeRankingTable writes one centrality measure as a ranked table.
func (w *MarkdownWriter) writeRankingTable(md *markdown.Markdown, title string, rankings []model.Ranking) {
	md.H2(title)
	md.PlainText("")

	if len(rankings) == 0 {
		md.PlainText("No articles.")
		md.PlainText("")
		return
	}

	top := model.TopN(rankings, w.topN)
	rows := make([][]string, len(top))
	for i, r := range top {
		name := r.Name
		if name == "" {
			name = r.Link
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateString(name, 60),
			"`" + r.Link + "`",
			fmt.Sprintf("%.6f", r.Score),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Article", "Link", "Score"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of articles per book.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[string]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Articles per Book"),
		piechart.WithShowData(true),
	)

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
		chart.LabelAndIntValue(label, uint64(counts[book]))
	}

	md.H2("Structure")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [lexgraph](https://github.com/lexgraph/lexgraph)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
