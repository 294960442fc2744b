package model

import "time"

// ScrapeReport accumulates the outcome of scraping one law source.
// It is passed through the scrape pipeline; each step reads what earlier
// steps produced and records its own results.
//
// Design decision: Intermediate crawl state (book links, article links,
// fetched pages) lives on the report rather than on the steps so that
// pipeline steps stay stateless and reusable across sources.
type ScrapeReport struct {
	// Source is the law source slug being scraped.
	Source string `json:"source"`

	// DateScraped is when the scrape started.
	DateScraped time.Time `json:"date_scraped"`

	// BookLinks are the book index links discovered on the source page.
	BookLinks []string `json:"book_links,omitempty"`

	// ArticleLinks are the article links collected from the book pages.
	ArticleLinks []string `json:"article_links,omitempty"`

	// Pages are the fetched article pages. Cleared once persisted to bound
	// memory during large scrapes.
	Pages []*Page `json:"-"`

	// Articles are the parsed articles.
	Articles []*Article `json:"-"`

	// Missing lists article links that could not be fetched. These are
	// recorded and skipped, never fatal: Brocardi indexes occasionally
	// link to pages that no longer exist.
	Missing []string `json:"missing,omitempty"`

	// ArticlesStored is the number of articles persisted to the database.
	ArticlesStored int `json:"articles_stored"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`

	// TimedOut is true when the scrape was cancelled before completing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the first step error, if any. Not serialized; the
	// message is carried separately.
	Error error `json:"-"`

	// ErrorMessage is the human-readable form of Error.
	ErrorMessage string `json:"error_message,omitempty"`

	// Elapsed is the total scrape duration.
	Elapsed time.Duration `json:"elapsed"`
}

// NewScrapeReport creates a report for the given law source.
func NewScrapeReport(source string) *ScrapeReport {
	return &ScrapeReport{
		Source:      source,
		DateScraped: time.Now().UTC(),
	}
}

// ArticleCount returns the number of parsed articles.
func (r *ScrapeReport) ArticleCount() int {
	return len(r.Articles)
}

// Succeeded reports whether the scrape completed without a fatal error.
func (r *ScrapeReport) Succeeded() bool {
	return r.Error == nil && !r.TimedOut
}
