package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behavior of the original Brocardi scraping scripts where
// applicable (politeness delay, reference extraction scope).
const (
	// DefaultBaseURL is the root of the Brocardi website.
	DefaultBaseURL = "https://www.brocardi.it"

	// DefaultTimeout is the per-request timeout. Brocardi is a fast clearnet
	// site; 30 seconds covers slow mirrors without hanging scrapes forever.
	DefaultTimeout = 30 * time.Second

	// DefaultDelay is the politeness delay between page fetches.
	// 500ms matches the original scraper's pacing and keeps the load on
	// the site negligible.
	DefaultDelay = 500 * time.Millisecond

	// DefaultMaxArticles caps articles fetched per law source.
	// The largest code on the site (codice civile) has around 3000 articles,
	// so 5000 never cuts a legitimate scrape short while still stopping
	// runaway crawls if the index extraction ever misfires.
	DefaultMaxArticles = 5000

	// DefaultBatchSize is the number of law sources scraped concurrently.
	// Scraping is delay-bound, not CPU-bound; 4 keeps total request rate
	// against the site modest even when many sources are queued.
	DefaultBatchSize = 4

	// DefaultMaxBodySize limits the response body size to read.
	// Article pages are well under 1MB; 5MB leaves room for heavy index pages.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies lexgraph in HTTP requests so the site
	// operator can attribute the traffic.
	DefaultUserAgent = "lexgraph/1.0 (+https://github.com/lexgraph/lexgraph)"

	// DefaultTopN is the number of ranked articles shown per centrality
	// measure in analysis reports.
	DefaultTopN = 20

	// AppName is the application name used for XDG directory paths.
	AppName = "lexgraph"
)

// ReferenceScope selects which extracted references are kept.
const (
	// ScopeAll keeps every reference in an article body regardless of the
	// law source it points to. Cross-code citations become dangling edges
	// unless the target source is also in the dataset.
	ScopeAll = "all"

	// ScopeSameSource keeps only references within the article's own source.
	ScopeSameSource = "same-source"
)

// Config holds all configuration options for lexgraph.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// BaseURL is the root URL of the site to scrape.
	// Overridable for tests and mirrors.
	BaseURL string

	// Timeout is the per-request timeout for HTTP fetches.
	Timeout time.Duration

	// Delay is the politeness delay between page fetches.
	Delay time.Duration

	// MaxArticles caps the number of articles fetched per law source.
	MaxArticles int

	// BatchSize is the number of law sources processed concurrently.
	BatchSize int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .lexgraph in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SourceConfigs holds per-source configurations loaded from the
	// config file.
	SourceConfigs *File

	// ReferenceScope is the default reference extraction scope
	// (ScopeAll or ScopeSameSource). Per-source config can override it.
	ReferenceScope string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for reports. When set, reports
	// are written there instead of stdout.
	ReportFile string

	// StorePages enables storing raw page snapshots in the database
	// alongside parsed articles, allowing re-parsing without re-fetching.
	StorePages bool

	// FromStore re-parses sources from stored page snapshots instead of
	// fetching them from the site.
	FromStore bool

	// Sources is the list of law source slugs to process.
	Sources []string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// TopN is the number of ranked articles per measure in analysis output.
	// Zero means all.
	TopN int

	// Filters are link prefixes restricting analysis to a sub-network.
	Filters []string
}

// NewConfig creates a Config with default values.
// Callers override specific fields from CLI flags after creation.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		Delay:          DefaultDelay,
		MaxArticles:    DefaultMaxArticles,
		BatchSize:      DefaultBatchSize,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
		ReferenceScope: ScopeAll,
		TopN:           DefaultTopN,
	}
}

// XDGDataDir returns the XDG data directory for lexgraph.
// On Linux: ~/.local/share/lexgraph
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lexgraph.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for lexgraph.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first error found; fixing one error often makes the
// rest irrelevant.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSource
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ReferenceScope != ScopeAll && c.ReferenceScope != ScopeSameSource {
		return ErrInvalidReferenceScope
	}
	return nil
}
