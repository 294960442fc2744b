package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexgraph/lexgraph/internal/model"
)

// BatchProcessor handles concurrent scraping of multiple law sources.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-source execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each law source.
	// The factory receives the source slug so per-source configuration
	// (delay, article cap, reference scope) can be applied.
	pipelineFactory func(source string) *Pipeline

	// concurrency is the maximum number of sources scraped concurrently.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed scrape reports.
	// Access is synchronized via mutex.
	results []*model.ScrapeReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrently scraped sources.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each law source to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between sources and lets each source get its own spider configuration.
func NewBatchProcessor(pipelineFactory func(source string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.ScrapeReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scrapes multiple law sources concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each source gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for sources that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.ScrapeReport, error) {
	bp.logger.Info("starting batch scrape",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.ScrapeReport, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("scraping source",
				"source", source,
				"index", i+1,
				"total", len(sources),
			)

			report := model.NewScrapeReport(source)

			scrapeStart := time.Now()
			pipeline := bp.pipelineFactory(source)
			err := pipeline.Execute(ctx, report)
			report.Elapsed = time.Since(scrapeStart)

			// Store result regardless of error; the report carries the
			// error information when the scrape failed.
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("scrape failed",
					"source", source,
					"error", err,
				)
				// Don't return the error to errgroup so other sources
				// keep scraping. It is recorded in the report.
				return nil
			}

			bp.logger.Info("scrape completed",
				"source", source,
				"articles", report.ArticlesStored,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch scrape complete",
		"total_sources", len(sources),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback scrapes multiple sources and calls a callback
// for each completed scrape. This is useful for streaming results.
//
// The callback receives the report and the index of the source in the
// original slice. The callback is called from the goroutine that completed
// the scrape, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(report *model.ScrapeReport, index int),
) error {
	bp.logger.Info("starting batch scrape with callback",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewScrapeReport(source)
			scrapeStart := time.Now()
			pipeline := bp.pipelineFactory(source)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report
			report.Elapsed = time.Since(scrapeStart)

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
