package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/lexgraph/lexgraph/internal/brocardi"
	"github.com/lexgraph/lexgraph/internal/config"
	"github.com/lexgraph/lexgraph/internal/database"
	"github.com/lexgraph/lexgraph/internal/model"
	"github.com/lexgraph/lexgraph/internal/scraper"
)

// FetchIndexStep discovers the structure of a law source: the book index
// links on the source page and the article links listed on each book page.
//
// Design decision: Index discovery is a separate step from article fetching
// because:
// 1. It produces the work list the fetch step consumes
// 2. A dry scrape can stop here to preview what would be fetched
// 3. Index pages and article pages have different failure modes
type FetchIndexStep struct {
	// spider performs the actual HTTP traversal.
	spider *scraper.Spider

	// logger for structured logging.
	logger *slog.Logger
}

// FetchIndexStepOption configures a FetchIndexStep.
type FetchIndexStepOption func(*FetchIndexStep)

// WithIndexLogger sets a custom logger for the index step.
func WithIndexLogger(logger *slog.Logger) FetchIndexStepOption {
	return func(s *FetchIndexStep) {
		s.logger = logger
	}
}

// NewFetchIndexStep creates a new index discovery step.
func NewFetchIndexStep(spider *scraper.Spider, opts ...FetchIndexStepOption) *FetchIndexStep {
	s := &FetchIndexStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *FetchIndexStep) Name() string {
	return "fetch_index"
}

// Do executes the index discovery step.
func (s *FetchIndexStep) Do(ctx context.Context, report *model.ScrapeReport) error {
	books, err := s.spider.BookLinks(ctx, report.Source)
	if err != nil {
		return fmt.Errorf("failed to discover book links for %s: %w", report.Source, err)
	}
	report.BookLinks = books

	links, err := s.spider.ArticleLinks(ctx, report.Source, books)
	if err != nil {
		return fmt.Errorf("failed to collect article links for %s: %w", report.Source, err)
	}
	report.ArticleLinks = links

	s.logger.Info("index discovered",
		"source", report.Source,
		"books", len(books),
		"articles", len(links),
	)

	return nil
}

// FetchArticlesStep downloads the article pages listed in the report.
// Pages that cannot be fetched are recorded as missing and skipped; the
// Brocardi indexes occasionally link to pages that no longer exist.
type FetchArticlesStep struct {
	// spider performs the actual HTTP traversal.
	spider *scraper.Spider

	// logger for structured logging.
	logger *slog.Logger
}

// FetchArticlesStepOption configures a FetchArticlesStep.
type FetchArticlesStepOption func(*FetchArticlesStep)

// WithFetchLogger sets a custom logger for the fetch step.
func WithFetchLogger(logger *slog.Logger) FetchArticlesStepOption {
	return func(s *FetchArticlesStep) {
		s.logger = logger
	}
}

// NewFetchArticlesStep creates a new article fetching step.
func NewFetchArticlesStep(spider *scraper.Spider, opts ...FetchArticlesStepOption) *FetchArticlesStep {
	s := &FetchArticlesStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *FetchArticlesStep) Name() string {
	return "fetch_articles"
}

// Do executes the article fetching step.
func (s *FetchArticlesStep) Do(ctx context.Context, report *model.ScrapeReport) error {
	pages, missing, err := s.spider.FetchArticles(ctx, report.Source, report.ArticleLinks)

	// Keep what was fetched even on cancellation so later steps can
	// persist a partial scrape.
	report.Pages = pages
	report.Missing = missing

	if err != nil {
		return fmt.Errorf("failed to fetch articles for %s: %w", report.Source, err)
	}

	s.logger.Info("articles fetched",
		"source", report.Source,
		"pages", len(pages),
		"missing", len(missing),
	)

	return nil
}

// ParseStep extracts articles from the fetched pages: the article name, the
// cleaned body text, the hierarchy, and the references to other articles.
type ParseStep struct {
	// scope controls whether references to other law sources are kept.
	scope string

	// logger for structured logging.
	logger *slog.Logger
}

// ParseStepOption configures a ParseStep.
type ParseStepOption func(*ParseStep)

// WithReferenceScope sets the reference scope (config.ScopeAll or
// config.ScopeSameSource).
func WithReferenceScope(scope string) ParseStepOption {
	return func(s *ParseStep) {
		s.scope = scope
	}
}

// WithParseLogger sets a custom logger for the parse step.
func WithParseLogger(logger *slog.Logger) ParseStepOption {
	return func(s *ParseStep) {
		s.logger = logger
	}
}

// NewParseStep creates a new article parsing step.
func NewParseStep(opts ...ParseStepOption) *ParseStep {
	s := &ParseStep{
		scope:  config.ScopeAll,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parsing step. Pages that fail to parse are logged and
// recorded as missing rather than aborting the scrape.
func (s *ParseStep) Do(ctx context.Context, report *model.ScrapeReport) error {
	parserOpts := []scraper.ParserOption{}
	if s.scope == config.ScopeSameSource {
		parserOpts = append(parserOpts, scraper.WithSameSourceReferences())
	}
	parser := scraper.NewParser(report.Source, parserOpts...)

	for _, page := range report.Pages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		article, err := parser.ParseArticle(page.URL, bytes.NewReader(page.Raw))
		if err != nil {
			s.logger.Warn("failed to parse article",
				"url", page.URL,
				"error", err,
			)
			report.Missing = append(report.Missing, page.URL)
			continue
		}
		article.FetchedAt = page.FetchedAt
		report.Articles = append(report.Articles, article)
	}

	s.logger.Info("articles parsed",
		"source", report.Source,
		"parsed", len(report.Articles),
		"pages", len(report.Pages),
	)

	return nil
}

// StoreStep persists the scrape results: the law source, the parsed
// articles with their references, and optionally the raw page snapshots.
// Pages are released from the report after storing to bound memory.
type StoreStep struct {
	// db is the storage backend.
	db *database.LawDB

	// storePages controls whether raw page snapshots are kept.
	storePages bool

	// logger for structured logging.
	logger *slog.Logger
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithStorePages enables storing raw page snapshots alongside articles.
// Snapshots allow re-parsing without re-fetching when extraction rules
// change, at the cost of database size.
func WithStorePages(store bool) StoreStepOption {
	return func(s *StoreStep) {
		s.storePages = store
	}
}

// WithStoreLogger sets a custom logger for the store step.
func WithStoreLogger(logger *slog.Logger) StoreStepOption {
	return func(s *StoreStep) {
		s.logger = logger
	}
}

// NewStoreStep creates a new storage step.
func NewStoreStep(db *database.LawDB, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do executes the storage step.
func (s *StoreStep) Do(ctx context.Context, report *model.ScrapeReport) error {
	if err := s.db.UpsertSource(ctx, report.Source); err != nil {
		return fmt.Errorf("failed to record source %s: %w", report.Source, err)
	}

	if s.storePages {
		for _, page := range report.Pages {
			if _, err := s.db.InsertPage(ctx, page); err != nil {
				return fmt.Errorf("failed to store page %s: %w", page.URL, err)
			}
		}
	}
	report.Pages = nil

	for _, article := range report.Articles {
		if err := s.db.UpsertArticle(ctx, article); err != nil {
			return fmt.Errorf("failed to store article %s: %w", article.Link, err)
		}
		report.ArticlesStored++
	}

	s.logger.Info("scrape stored",
		"source", report.Source,
		"articles", report.ArticlesStored,
	)

	return nil
}

// LoadPagesStep loads previously stored page snapshots for the report's
// source instead of fetching them from the site. It feeds the same parse
// and store steps as a live scrape, so a source can be re-parsed after a
// parser fix without re-downloading thousands of pages.
type LoadPagesStep struct {
	// db provides the stored page snapshots.
	db *database.LawDB

	// logger for structured logging.
	logger *slog.Logger
}

// LoadPagesStepOption configures a LoadPagesStep.
type LoadPagesStepOption func(*LoadPagesStep)

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadPagesStepOption {
	return func(s *LoadPagesStep) {
		s.logger = logger
	}
}

// NewLoadPagesStep creates a new stored-page loading step.
func NewLoadPagesStep(db *database.LawDB, opts ...LoadPagesStepOption) *LoadPagesStep {
	s := &LoadPagesStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadPagesStep) Name() string {
	return "load_pages"
}

// Do executes the load step.
func (s *LoadPagesStep) Do(ctx context.Context, report *model.ScrapeReport) error {
	pages, err := s.db.ListPages(ctx, report.Source)
	if err != nil {
		return fmt.Errorf("failed to load stored pages for %s: %w", report.Source, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no stored pages for %s (scrape with --store-pages first)", report.Source)
	}

	report.Pages = pages
	for _, page := range pages {
		report.ArticleLinks = append(report.ArticleLinks, page.URL)
	}

	s.logger.Info("stored pages loaded",
		"source", report.Source,
		"pages", len(pages),
	)

	return nil
}

// DefaultScrapePipeline assembles the standard scrape pipeline for one law
// source: index discovery, article fetching, parsing, and storage.
func DefaultScrapePipeline(client *brocardi.Client, db *database.LawDB, cfg *config.Config, source string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	var srcCfg config.SourceConfig
	if cfg.SourceConfigs != nil {
		srcCfg = cfg.SourceConfigs.GetSourceConfig(source)
	}

	delay := cfg.Delay
	if srcCfg.Delay > 0 {
		delay = srcCfg.Delay
	}
	maxArticles := cfg.MaxArticles
	if srcCfg.MaxArticles > 0 {
		maxArticles = srcCfg.MaxArticles
	}
	scope := cfg.ReferenceScope
	if srcCfg.ReferenceScope != "" {
		scope = srcCfg.ReferenceScope
	}

	spider := scraper.NewSpider(client,
		scraper.WithDelay(delay),
		scraper.WithMaxArticles(maxArticles),
		scraper.WithMaxBodySize(cfg.MaxBodySize),
		scraper.WithIgnorePatterns(srcCfg.IgnorePatterns),
		scraper.WithLogger(logger),
	)

	p := New(WithLogger(logger))
	p.AddSteps(
		NewFetchIndexStep(spider, WithIndexLogger(logger)),
		NewFetchArticlesStep(spider, WithFetchLogger(logger)),
		NewParseStep(WithReferenceScope(scope), WithParseLogger(logger)),
		NewStoreStep(db, WithStorePages(cfg.StorePages), WithStoreLogger(logger)),
	)
	return p
}

// ReparsePipeline assembles a pipeline that re-parses a source from stored
// page snapshots: no network traffic, same parse and store semantics as a
// live scrape.
func ReparsePipeline(db *database.LawDB, cfg *config.Config, source string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	scope := cfg.ReferenceScope
	if cfg.SourceConfigs != nil {
		if srcCfg := cfg.SourceConfigs.GetSourceConfig(source); srcCfg.ReferenceScope != "" {
			scope = srcCfg.ReferenceScope
		}
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewLoadPagesStep(db, WithLoadLogger(logger)),
		NewParseStep(WithReferenceScope(scope), WithParseLogger(logger)),
		NewStoreStep(db, WithStoreLogger(logger)),
	)
	return p
}
