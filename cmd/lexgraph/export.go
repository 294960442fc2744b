package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/graph"
	"github.com/lexgraph/lexgraph/internal/model"
	"github.com/spf13/cobra"
)

// Export format names accepted by --format.
const (
	exportFormatDOT  = "dot"
	exportFormatJSON = "json"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [source...]",
		Short: "Export the citation graph or dataset",
		Long: `Export writes the stored citation network in a machine-readable format.

Two formats are supported:
- dot:  Graphviz DOT of the citation graph, one node per article.
        Render it with 'dot -Tsvg' or any Graphviz-compatible tool.
- json: the raw dataset (articles with hierarchy, body, and references).

Without arguments every stored source is exported together. Use --filter
to restrict the export to a sub-network by link prefix.

Examples:
  # Export the whole citation graph as DOT
  lexgraph export --output graph.dot

  # Export one code and render it
  lexgraph export codice-civile -o codice-civile.dot

  # Export book four of the civil code only
  lexgraph export --filter /codice-civile/libro-quarto codice-civile

  # Dump the dataset as JSON
  lexgraph export --format json codice-civile`,
		Args: cobra.ArbitraryArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("format", "f", exportFormatDOT,
		"Export format: dot or json")
	cmd.Flags().StringSlice("filter", nil,
		"Link prefixes restricting the export to a sub-network (repeatable)")
	cmd.Flags().StringP("output", "o", "",
		"Write export to specified file path (default: stdout)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != exportFormatDOT && format != exportFormatJSON {
		return fmt.Errorf("unsupported export format %q (use dot or json)", format)
	}

	filters, err := cmd.Flags().GetStringSlice("filter")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	for i, source := range args {
		normalized, err := model.NormalizeSource(source)
		if err != nil {
			return fmt.Errorf("invalid law source %q: %w", source, err)
		}
		args[i] = normalized
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return runExport(ctx, dbDir, args, filters, format, outputPath)
}

// runExport loads the dataset and writes it in the requested format.
func runExport(ctx context.Context, dbDir string, sources, filters []string, format, outputPath string) error {
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'lexgraph scrape' first): %w", err)
	}
	defer db.Close()

	if len(sources) == 0 {
		sources, err = db.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}
		if len(sources) == 0 {
			return fmt.Errorf("no scraped sources in the database (run 'lexgraph scrape' first)")
		}
	}

	dataset, err := db.LoadDataset(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if len(filters) > 0 {
		dataset = dataset.FilterByPrefix(filters)
	}
	if dataset.Len() == 0 {
		return fmt.Errorf("no articles matched the requested sources and filters")
	}

	output, closer, err := openReportOutput(outputPath)
	if err != nil {
		return err
	}
	defer closer()

	if format == exportFormatJSON {
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dataset.Articles())
	}

	g := graph.Build(dataset)
	return g.WriteDOT(output, graphName(sources))
}

// graphName derives a DOT graph name from the exported sources.
func graphName(sources []string) string {
	if len(sources) == 1 {
		return sources[0]
	}
	return "citations"
}
