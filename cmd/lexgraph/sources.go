package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lexgraph/lexgraph/internal/brocardi"
	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/log"
	"github.com/lexgraph/lexgraph/internal/scraper"
	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the sources command.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List available law sources",
		Long: `Sources lists the law source slugs that can be scraped.

By default it fetches the source index from www.brocardi.it and prints
every available code and law. With --stored it instead lists the sources
already scraped into the local database, with their article counts.

Examples:
  # List all sources available on the site
  lexgraph sources

  # List sources already stored locally
  lexgraph sources --stored`,
		Args: cobra.NoArgs,
		RunE: runSourcesCmd,
	}

	cmd.Flags().Bool("stored", false,
		"List sources stored in the local database instead of the site index")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Base URL of the site to scrape (override for mirrors)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runSourcesCmd executes the sources command.
func runSourcesCmd(cmd *cobra.Command, _ []string) error {
	stored, err := cmd.Flags().GetBool("stored")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	if stored {
		return listStoredSources(ctx, cmd, dbDir)
	}

	return listSiteSources(ctx, cmd, dbDir)
}

// listSiteSources fetches and prints the source index from the site, and
// records the discovered slugs in the database so later commands can refer
// to them.
func listSiteSources(ctx context.Context, cmd *cobra.Command, dbDir string) error {
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))

	client, err := brocardi.NewClient(baseURL, timeout,
		brocardi.WithUserAgent(config.DefaultUserAgent),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	spider := scraper.NewSpider(client, scraper.WithLogger(logger))
	sources, err := spider.SourceList(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch source index: %w", err)
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Available law sources (%d):\n\n", len(sources))
	for _, source := range sources {
		if err := db.UpsertSource(ctx, source); err != nil {
			return fmt.Errorf("failed to record source %s: %w", source, err)
		}
		fmt.Fprintf(out, "  %s\n", source)
	}
	fmt.Fprintln(out, "\nUse 'lexgraph scrape <source>' to scrape a source.")

	return nil
}

// listStoredSources prints the sources in the local database with their
// article counts.
func listStoredSources(ctx context.Context, cmd *cobra.Command, dbDir string) error {
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'lexgraph scrape' first): %w", err)
	}
	defer db.Close()

	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sources) == 0 {
		fmt.Fprintln(out, "No scraped sources found in the database.")
		fmt.Fprintln(out, "\nUse 'lexgraph scrape <source>' to scrape a source.")
		return nil
	}

	fmt.Fprintf(out, "Stored law sources (%d):\n\n", len(sources))
	fmt.Fprintf(out, "  %-40s  %s\n", "Source", "Articles")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 52))
	for _, source := range sources {
		count, err := db.CountArticles(ctx, source)
		if err != nil {
			return fmt.Errorf("failed to count articles for %s: %w", source, err)
		}
		fmt.Fprintf(out, "  %-40s  %d\n", source, count)
	}

	return nil
}
