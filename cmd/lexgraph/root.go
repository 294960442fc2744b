package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lexgraph.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexgraph",
		Short: "Citation network analyzer for Italian legal texts",
		Long: `lexgraph scrapes Italian legal codes from www.brocardi.it and builds a
citation network between articles: every cross-reference in an article body
becomes an edge in a directed graph.

The scraped articles are stored in a local SQLite database. The analyze
command computes degree, eigenvector, and PageRank centrality over the
stored dataset, optionally restricted to a sub-network by link prefix.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewSourcesCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
