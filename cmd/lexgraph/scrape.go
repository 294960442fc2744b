package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/lexgraph/lexgraph/internal/brocardi"
	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/log"
	"github.com/lexgraph/lexgraph/internal/model"
	"github.com/lexgraph/lexgraph/internal/pipeline"
	"github.com/lexgraph/lexgraph/internal/report"
	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [source...]",
		Short: "Scrape law sources from Brocardi and store their articles",
		Long: `Scrape downloads the articles of one or more law sources from
www.brocardi.it, extracts their cross-references, and stores everything in a
local SQLite database for later analysis.

For each source it discovers the book index pages, collects the article
links, fetches every article with a politeness delay, parses the heading,
hierarchy, body, and references, and persists the result.

Examples:
  # Scrape the civil code
  lexgraph scrape codice-civile

  # Scrape several codes concurrently
  lexgraph scrape codice-civile codice-penale costituzione

  # Keep only references within each source
  lexgraph scrape --scope same-source codice-civile

  # Slow down fetching and cap the article count
  lexgraph scrape --delay 2s --max-articles 500 codice-civile

  # Output a JSON scrape report
  lexgraph scrape --json codice-civile

Configuration file (.lexgraph) example:
  defaults:
    delay: 1s
  sources:
    codice-civile:
      maxArticles: 3500
    codice-penale:
      referenceScope: same-source`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Fetch behavior flags
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Base URL of the site to scrape (override for mirrors)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Politeness delay between page fetches")
	cmd.Flags().IntP("max-articles", "p", config.DefaultMaxArticles,
		"Maximum number of articles to fetch per source")
	cmd.Flags().StringP("scope", "s", config.ScopeAll,
		"Reference extraction scope: all or same-source")
	cmd.Flags().Bool("store-pages", false,
		"Store raw page snapshots in the database alongside parsed articles")
	cmd.Flags().Bool("from-store", false,
		"Re-parse sources from stored page snapshots instead of fetching")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with HTTP requests")

	// Batch scraping flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent source scrapes")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .lexgraph in current or home directory)")

	// Database location
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScrapeConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScrape(ctx, cfg, logger)
}

// buildScrapeConfig creates a Config from cobra command flags.
func buildScrapeConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.BaseURL, err = cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxArticles, err = cmd.Flags().GetInt("max-articles")
	if err != nil {
		return nil, err
	}

	cfg.ReferenceScope, err = cmd.Flags().GetString("scope")
	if err != nil {
		return nil, err
	}

	cfg.StorePages, err = cmd.Flags().GetBool("store-pages")
	if err != nil {
		return nil, err
	}

	cfg.FromStore, err = cmd.Flags().GetBool("from-store")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-source configurations from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SourceConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SourceConfigs = &config.File{
			Sources: make(map[string]config.SourceConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the law source slugs
	cfg.Sources = args

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runScrape executes the scrape.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"sources", cfg.Sources,
		"baseURL", cfg.BaseURL,
		"batchSize", cfg.BatchSize,
		"scope", cfg.ReferenceScope,
	)

	// Validate and normalize all source slugs before touching the network
	for i, source := range cfg.Sources {
		normalized, err := model.NormalizeSource(source)
		if err != nil {
			return fmt.Errorf("invalid law source %q: %w", source, err)
		}
		cfg.Sources[i] = normalized
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "dir", cfg.DBDir)

	var factory func(source string) *pipeline.Pipeline
	if cfg.FromStore {
		// Re-parse from stored snapshots: no network involved.
		factory = func(source string) *pipeline.Pipeline {
			return pipeline.ReparsePipeline(db, cfg, source, logger)
		}
	} else {
		client, err := brocardi.NewClient(cfg.BaseURL, cfg.Timeout,
			brocardi.WithUserAgent(cfg.UserAgent),
		)
		if err != nil {
			return fmt.Errorf("failed to create HTTP client: %w", err)
		}

		if status := client.CheckConnection(ctx); status != brocardi.SiteStatusOK {
			return fmt.Errorf("site check failed for %s: %s", cfg.BaseURL, status)
		}
		logger.Info("site connection verified", "baseURL", cfg.BaseURL)

		// Per-source clients so custom headers from the config file apply
		// only to the source they were configured for.
		clients, err := buildSourceClients(cfg, client)
		if err != nil {
			return err
		}
		factory = func(source string) *pipeline.Pipeline {
			return pipeline.DefaultScrapePipeline(clients[source], db, cfg, source, logger)
		}
	}

	// Open the report destination once so batch scrapes append their
	// per-source reports to the same file instead of clobbering it.
	output, closer, err := openReportOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closer()
	writer := selectWriter(cfg, output)

	if len(cfg.Sources) > 1 && cfg.BatchSize > 1 {
		return runBatchScrape(ctx, cfg, writer, factory, logger)
	}

	return runSequentialScrape(ctx, cfg, writer, factory, logger)
}

// buildSourceClients returns one client per source. Sources without custom
// headers share the base client.
func buildSourceClients(cfg *config.Config, base *brocardi.Client) (map[string]*brocardi.Client, error) {
	clients := make(map[string]*brocardi.Client, len(cfg.Sources))
	for _, source := range cfg.Sources {
		clients[source] = base

		if cfg.SourceConfigs == nil {
			continue
		}
		srcCfg := cfg.SourceConfigs.GetSourceConfig(source)
		if len(srcCfg.Headers) == 0 {
			continue
		}

		c, err := brocardi.NewClient(cfg.BaseURL, cfg.Timeout,
			brocardi.WithUserAgent(cfg.UserAgent),
			brocardi.WithHeaders(srcCfg.Headers),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for %s: %w", source, err)
		}
		clients[source] = c
	}
	return clients, nil
}

// runSequentialScrape scrapes sources one at a time.
func runSequentialScrape(ctx context.Context, cfg *config.Config, writer report.Writer, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	for _, source := range cfg.Sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := factory(source)
		scrapeReport := model.NewScrapeReport(source)

		fmt.Printf("Scraping %s...\n", source)
		startTime := time.Now()

		if err := p.Execute(ctx, scrapeReport); err != nil {
			logger.Error("scrape failed", "source", source, "error", err)
			fmt.Fprintf(os.Stderr, "Scrape error for %s: %v\n", source, err)
			continue
		}

		scrapeReport.Elapsed = time.Since(startTime)
		fmt.Printf("Scrape completed in %s\n\n", scrapeReport.Elapsed.Round(time.Millisecond))

		if _, err := writer.WriteScrape(scrapeReport); err != nil {
			logger.Error("report failed", "source", source, "error", err)
		}
	}

	return nil
}

// runBatchScrape scrapes multiple sources concurrently using BatchProcessor.
func runBatchScrape(ctx context.Context, cfg *config.Config, writer report.Writer, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	fmt.Printf("Starting batch scrape of %d sources (concurrency: %d)...\n\n",
		len(cfg.Sources), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Sources, func(scrapeReport *model.ScrapeReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Scrape completed: %s\n", index+1, len(cfg.Sources), scrapeReport.Source)

		if _, err := writer.WriteScrape(scrapeReport); err != nil {
			logger.Error("report failed", "source", scrapeReport.Source, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch scrape completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// openReportOutput returns the report destination: the given file (creating
// parent directories as needed) or stdout when path is empty.
func openReportOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// selectWriter picks the report writer matching the configured format.
func selectWriter(cfg *config.Config, output *os.File) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output, report.WithMarkdownTopN(cfg.TopN))
	default:
		return report.NewSimpleWriter(output,
			report.WithTopN(cfg.TopN),
			report.WithVerbose(cfg.Verbose),
		)
	}
}
