package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/model"
	"github.com/spf13/cobra"
)

// rankMovementCap bounds how many rank movements are listed per measure.
const rankMovementCap = 20

// NewCompareCmd creates the compare command.
// This command compares two stored analyses and reports how article
// rankings shifted between them.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two stored citation network analyses",
		Long: `Compare displays differences between two analyses stored in the database.

By default the two most recent analyses are compared. The comparison shows:
- Changes in node and edge counts
- Articles whose rank moved under each centrality measure
- Articles that entered or left the rankings

Run 'lexgraph analyze' at least twice (for example before and after
re-scraping a source) to produce analyses to compare.

Examples:
  # Compare the two most recent analyses
  lexgraph compare

  # List all stored analyses
  lexgraph compare --list

  # Compare the latest analysis with a specific one by ID
  lexgraph compare --with-id 3

  # Compare two specific analyses
  lexgraph compare --with-id 3 --against-id 7

  # Output comparison in JSON format
  lexgraph compare --json`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List stored analyses in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare against a specific analysis by ID (use --list to see available IDs)")
	cmd.Flags().Int64P("against-id", "a", 0,
		"Use a specific analysis by ID as the current side (default: latest)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	// Database location
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'lexgraph analyze' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	listAnalyses, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listAnalyses {
		return listStoredAnalyses(ctx, db)
	}

	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	againstID, err := cmd.Flags().GetInt64("against-id")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, withID, againstID, jsonOutput, markdownOutput)
}

// listStoredAnalyses lists all analyses stored in the database.
func listStoredAnalyses(ctx context.Context, db *database.LawDB) error {
	analyses, err := db.ListAnalyses(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	if len(analyses) == 0 {
		fmt.Println("No analyses found in the database.")
		fmt.Println("\nUse 'lexgraph analyze' to analyze scraped sources.")
		return nil
	}

	fmt.Printf("Stored analyses (%d):\n\n", len(analyses))
	fmt.Printf("  %-6s  %-20s  %-8s  %-8s  %s\n", "ID", "Date", "Nodes", "Edges", "Scope")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, meta := range analyses {
		scope := strings.Join(meta.Sources, ",")
		if len(meta.Filters) > 0 {
			scope += " [" + strings.Join(meta.Filters, ",") + "]"
		}
		fmt.Printf("  %-6d  %-20s  %-8d  %-8d  %s\n",
			meta.ID,
			meta.CreatedAt.Format("2006-01-02 15:04:05"),
			meta.NodeCount,
			meta.EdgeCount,
			scope,
		)
	}

	fmt.Println("\nUse 'lexgraph compare' to compare the latest two analyses.")
	fmt.Println("Use 'lexgraph compare --with-id <id>' to compare against a specific analysis.")

	return nil
}

// runComparison performs the actual comparison between stored analyses.
func runComparison(ctx context.Context, db *database.LawDB, withID, againstID int64, jsonOutput, markdownOutput bool) error {
	var current, previous *model.AnalysisReport
	var err error

	if againstID > 0 {
		current, err = db.GetAnalysisByID(ctx, againstID)
		if err != nil {
			return fmt.Errorf("failed to get analysis with ID %d: %w", againstID, err)
		}
		if current == nil {
			return fmt.Errorf("analysis with ID %d not found", againstID)
		}
	}

	if withID > 0 {
		previous, err = db.GetAnalysisByID(ctx, withID)
		if err != nil {
			return fmt.Errorf("failed to get analysis with ID %d: %w", withID, err)
		}
		if previous == nil {
			return fmt.Errorf("analysis with ID %d not found", withID)
		}
	}

	// Fill in missing sides from the latest stored analyses
	if current == nil || previous == nil {
		latest, err := db.LatestAnalyses(ctx)
		if err != nil {
			return fmt.Errorf("failed to get latest analyses: %w", err)
		}
		if current == nil {
			if len(latest) == 0 {
				return fmt.Errorf("no analyses found in the database")
			}
			current = latest[0]
		}
		if previous == nil {
			if len(latest) < 2 {
				return fmt.Errorf("at least 2 analyses are required for comparison (found %d)", len(latest))
			}
			previous = latest[1]
		}
	}

	comparison := compareAnalyses(previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two analyses.
type ComparisonResult struct {
	// Sources are the law sources covered by the current analysis.
	Sources []string `json:"sources"`

	// PreviousAnalysis contains metadata about the previous analysis.
	PreviousAnalysis AnalysisSummary `json:"previous_analysis"`

	// CurrentAnalysis contains metadata about the current analysis.
	CurrentAnalysis AnalysisSummary `json:"current_analysis"`

	// NodeDelta is the change in article count between the analyses.
	NodeDelta int `json:"node_delta"`

	// EdgeDelta is the change in citation edge count.
	EdgeDelta int `json:"edge_delta"`

	// Movements holds per-measure rank movements, keyed by measure name.
	Movements map[string][]RankMovement `json:"movements"`
}

// AnalysisSummary contains metadata about an analysis for comparison display.
type AnalysisSummary struct {
	// DateAnalyzed is when the analysis ran.
	DateAnalyzed string `json:"date_analyzed"`

	// NodeCount is the number of articles in the graph.
	NodeCount int `json:"node_count"`

	// EdgeCount is the number of citation edges.
	EdgeCount int `json:"edge_count"`

	// Filters are the sub-network prefixes, empty for whole-graph runs.
	Filters []string `json:"filters,omitempty"`
}

// RankMovement describes one article's rank change under a measure.
type RankMovement struct {
	// Link identifies the article.
	Link string `json:"link"`

	// Name is the article heading, for display.
	Name string `json:"name"`

	// CurrentRank is the 1-based rank in the current analysis.
	CurrentRank int `json:"current_rank"`

	// PreviousRank is the 1-based rank in the previous analysis,
	// 0 when the article was not ranked before.
	PreviousRank int `json:"previous_rank"`
}

// compareAnalyses compares two analyses and generates a comparison result.
func compareAnalyses(previous, current *model.AnalysisReport) *ComparisonResult {
	result := &ComparisonResult{
		Sources: current.Sources,
		PreviousAnalysis: AnalysisSummary{
			DateAnalyzed: previous.DateAnalyzed.Format("2006-01-02 15:04:05"),
			NodeCount:    previous.NodeCount,
			EdgeCount:    previous.EdgeCount,
			Filters:      previous.Filters,
		},
		CurrentAnalysis: AnalysisSummary{
			DateAnalyzed: current.DateAnalyzed.Format("2006-01-02 15:04:05"),
			NodeCount:    current.NodeCount,
			EdgeCount:    current.EdgeCount,
			Filters:      current.Filters,
		},
		NodeDelta: current.NodeCount - previous.NodeCount,
		EdgeDelta: current.EdgeCount - previous.EdgeCount,
		Movements: make(map[string][]RankMovement),
	}

	measures := []struct {
		name     string
		previous []model.Ranking
		current  []model.Ranking
	}{
		{model.MeasureDegree, previous.Degree, current.Degree},
		{model.MeasureEigenvector, previous.Eigenvector, current.Eigenvector},
		{model.MeasurePageRank, previous.PageRank, current.PageRank},
	}

	for _, m := range measures {
		movements := rankMovements(m.previous, m.current)
		if len(movements) > 0 {
			result.Movements[m.name] = movements
		}
	}

	return result
}

// rankMovements lists the articles whose rank changed between two rankings,
// walking the current ranking from the top. Articles absent from the
// previous ranking report a previous rank of 0.
func rankMovements(previous, current []model.Ranking) []RankMovement {
	movements := make([]RankMovement, 0, rankMovementCap)

	for i, r := range current {
		if len(movements) >= rankMovementCap {
			break
		}
		prevRank := model.RankOf(previous, r.Link)
		if prevRank == i+1 {
			continue
		}
		movements = append(movements, RankMovement{
			Link:         r.Link,
			Name:         r.Name,
			CurrentRank:  i + 1,
			PreviousRank: prevRank,
		})
	}

	return movements
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Analysis Comparison: %s\n\n", strings.Join(result.Sources, ", "))

	fmt.Println("## Summary")
	fmt.Println()
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousAnalysis.DateAnalyzed,
		result.CurrentAnalysis.DateAnalyzed)
	fmt.Printf("| Articles | %d | %d | %s |\n",
		result.PreviousAnalysis.NodeCount,
		result.CurrentAnalysis.NodeCount,
		formatDelta(result.NodeDelta))
	fmt.Printf("| Citations | %d | %d | %s |\n",
		result.PreviousAnalysis.EdgeCount,
		result.CurrentAnalysis.EdgeCount,
		formatDelta(result.EdgeDelta))

	for _, measure := range []string{model.MeasureDegree, model.MeasureEigenvector, model.MeasurePageRank} {
		movements := result.Movements[measure]
		if len(movements) == 0 {
			continue
		}

		fmt.Printf("\n## Rank Movements: %s\n\n", measure)
		fmt.Println("| Article | Previous Rank | Current Rank |")
		fmt.Println("|---------|---------------|--------------|")
		for _, mv := range movements {
			fmt.Printf("| %s | %s | %d |\n", mv.Name, formatPreviousRank(mv.PreviousRank), mv.CurrentRank)
		}
	}

	if len(result.Movements) == 0 {
		fmt.Println("\n*No rank movements between the two analyses.*")
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Analysis Comparison: %s\n", strings.Join(result.Sources, ", "))
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nPrevious analysis: %s\n", result.PreviousAnalysis.DateAnalyzed)
	fmt.Printf("Current analysis:  %s\n", result.CurrentAnalysis.DateAnalyzed)

	fmt.Println("\nGraph Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Articles",
		result.PreviousAnalysis.NodeCount, result.CurrentAnalysis.NodeCount,
		formatDelta(result.NodeDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Citations",
		result.PreviousAnalysis.EdgeCount, result.CurrentAnalysis.EdgeCount,
		formatDelta(result.EdgeDelta))

	for _, measure := range []string{model.MeasureDegree, model.MeasureEigenvector, model.MeasurePageRank} {
		movements := result.Movements[measure]
		if len(movements) == 0 {
			continue
		}

		fmt.Printf("\nRank Movements (%s):\n", measure)
		for _, mv := range movements {
			fmt.Printf("  %s -> %-4d %s\n", formatPreviousRank(mv.PreviousRank), mv.CurrentRank, mv.Name)
		}
	}

	if len(result.Movements) == 0 {
		fmt.Println("\nNo rank movements between the two analyses.")
	}

	return nil
}

// formatPreviousRank formats a previous rank, using "new" for articles that
// were not ranked before.
func formatPreviousRank(rank int) string {
	if rank == 0 {
		return "new"
	}
	return strconv.Itoa(rank)
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
