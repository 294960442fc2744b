package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/graph"
	"github.com/lexgraph/lexgraph/internal/log"
	"github.com/lexgraph/lexgraph/internal/model"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [source...]",
		Short: "Analyze the citation network of stored law sources",
		Long: `Analyze builds a citation graph from articles stored in the database and
computes three centrality measures over it:

- Degree centrality: how many distinct articles each article is connected to
- Eigenvector centrality: connectedness to well-connected articles
- PageRank: importance under the random-surfer model of citations

Without arguments every stored source is analyzed together, so cross-code
citations become edges. Use --filter to restrict the analysis to a
sub-network by link prefix (for example a single book of a code).

Each analysis is saved to the database; use 'lexgraph compare' to diff two
analyses.

Examples:
  # Analyze everything stored in the database
  lexgraph analyze

  # Analyze a single code
  lexgraph analyze codice-civile

  # Analyze only book four of the civil code
  lexgraph analyze --filter /codice-civile/libro-quarto codice-civile

  # Show the top 50 articles per measure in Markdown
  lexgraph analyze --top 50 --markdown codice-civile`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	// Sub-network selection flags
	cmd.Flags().StringSliceP("filter", "f", nil,
		"Link prefixes restricting the analysis to a sub-network (repeatable)")

	// Output flags
	cmd.Flags().IntP("top", "n", config.DefaultTopN,
		"Number of ranked articles shown per measure (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Database location
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	// Persistence
	cmd.Flags().Bool("no-save", false,
		"Do not store the analysis result in the database")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()

	var err error
	cfg.Filters, err = cmd.Flags().GetStringSlice("filter")
	if err != nil {
		return err
	}
	cfg.TopN, err = cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	// Normalize source arguments; empty means all stored sources
	for i, source := range args {
		normalized, err := model.NormalizeSource(source)
		if err != nil {
			return fmt.Errorf("invalid law source %q: %w", source, err)
		}
		args[i] = normalized
	}
	cfg.Sources = args

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	return runAnalyze(cmd.Context(), cfg, !noSave, logger)
}

// runAnalyze loads the dataset, builds the citation graph, and outputs the
// analysis report.
func runAnalyze(ctx context.Context, cfg *config.Config, save bool, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'lexgraph scrape' first): %w", err)
	}
	defer db.Close()

	sources := cfg.Sources
	if len(sources) == 0 {
		sources, err = db.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}
		if len(sources) == 0 {
			return errors.New("no scraped sources in the database (run 'lexgraph scrape' first)")
		}
	}

	dataset, err := db.LoadDataset(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	logger.Info("dataset loaded", "sources", sources, "articles", dataset.Len())

	if len(cfg.Filters) > 0 {
		dataset = dataset.FilterByPrefix(cfg.Filters)
		logger.Info("sub-network selected", "filters", cfg.Filters, "articles", dataset.Len())
	}

	if dataset.Len() == 0 {
		return errors.New("no articles matched the requested sources and filters")
	}

	g := graph.Build(dataset)
	analysis := g.Analyze(sources, cfg.Filters)

	if save {
		id, err := db.SaveAnalysis(ctx, analysis)
		if err != nil {
			return fmt.Errorf("failed to save analysis: %w", err)
		}
		logger.Info("analysis saved", "id", id)
	}

	output, closer, err := openReportOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closer()

	writer := selectWriter(cfg, output)
	_, err = writer.WriteAnalysis(analysis)
	return err
}
