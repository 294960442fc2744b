package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexgraph/lexgraph/internal/brocardi"
	"github.com/lexgraph/lexgraph/internal/model"
)

// sourceListPath is the page listing all law sources on the site.
const sourceListPath = "/fonti.html"

// Spider walks the Brocardi page structure for one or more law sources.
// It paces requests with a politeness delay and tolerates individual page
// failures: a book index that 404s loses its articles, an article that
// 404s is recorded as missing, and the scrape continues.
type Spider struct {
	// client fetches pages and handles retries.
	client *brocardi.Client

	// delay is the politeness delay between page fetches.
	delay time.Duration

	// maxArticles caps the number of article pages fetched per source.
	maxArticles int

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// ignorePatterns are link glob patterns to skip when collecting
	// article links.
	ignorePatterns []string

	// logger for structured logging.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the politeness delay between fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithMaxArticles caps the number of article pages fetched per source.
func WithMaxArticles(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.maxArticles = n
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns sets link glob patterns to skip while collecting
// article links (e.g. "*/abrogato*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider using the given site client.
func NewSpider(client *brocardi.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		delay:       500 * time.Millisecond,
		maxArticles: 5000,
		maxBodySize: 5 * 1024 * 1024,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceList fetches the site's source index and returns law source slugs.
func (s *Spider) SourceList(ctx context.Context) ([]string, error) {
	page, err := s.fetchPage(ctx, sourceListPath, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source list: %w", err)
	}
	if page.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source list returned status %d", page.StatusCode)
	}

	sources, err := ParseSourceList(strings.NewReader(string(page.Raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse source list: %w", err)
	}

	s.logger.Info("source list fetched", "count", len(sources))
	return sources, nil
}

// BookLinks fetches a law source's index page and returns its book links.
func (s *Spider) BookLinks(ctx context.Context, source string) ([]string, error) {
	page, err := s.fetchPage(ctx, "/"+source+"/", source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index for %s: %w", source, err)
	}
	if page.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index for %s returned status %d", source, page.StatusCode)
	}

	books, err := NewParser(source).ParseBookLinks(strings.NewReader(string(page.Raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index for %s: %w", source, err)
	}

	s.logger.Info("book links scraped", "source", source, "count", len(books))
	return books, nil
}

// ArticleLinks fetches the given book pages and collects article links,
// deduplicated across books and filtered by ignore patterns.
func (s *Spider) ArticleLinks(ctx context.Context, source string, books []string) ([]string, error) {
	parser := NewParser(source)
	seen := make(map[string]bool)
	links := make([]string, 0)

	for _, book := range books {
		if err := s.pause(ctx); err != nil {
			return links, err
		}

		page, err := s.fetchPage(ctx, book, source)
		if err != nil {
			s.logger.Warn("failed to fetch book page", "source", source, "book", book, "error", err)
			continue
		}
		if page.StatusCode != http.StatusOK {
			s.logger.Warn("book page returned error status", "source", source, "book", book, "status", page.StatusCode)
			continue
		}

		found, err := parser.ParseArticleLinks(strings.NewReader(string(page.Raw)))
		if err != nil {
			s.logger.Warn("failed to parse book page", "source", source, "book", book, "error", err)
			continue
		}

		for _, link := range found {
			if seen[link] || s.ignored(link) {
				continue
			}
			seen[link] = true
			links = append(links, link)
		}
	}

	s.logger.Info("article links scraped", "source", source, "count", len(links))
	return links, nil
}

// FetchArticles fetches article pages one by one with the politeness delay.
// It returns the fetched pages and the links that could not be fetched.
// Fetching stops early when the per-source article cap is reached or the
// context is cancelled.
func (s *Spider) FetchArticles(ctx context.Context, source string, links []string) ([]*model.Page, []string, error) {
	pages := make([]*model.Page, 0, len(links))
	missing := make([]string, 0)

	for i, link := range links {
		if s.maxArticles > 0 && len(pages) >= s.maxArticles {
			s.logger.Warn("article cap reached", "source", source, "cap", s.maxArticles)
			break
		}

		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return pages, missing, err
			}
		}

		page, err := s.fetchPage(ctx, link, source)
		if err != nil {
			if ctx.Err() != nil {
				return pages, missing, ctx.Err()
			}
			s.logger.Warn("article not found", "source", source, "link", link, "error", err)
			missing = append(missing, link)
			continue
		}
		if page.StatusCode != http.StatusOK {
			s.logger.Warn("article returned error status", "source", source, "link", link, "status", page.StatusCode)
			missing = append(missing, link)
			continue
		}

		pages = append(pages, page)
	}

	s.logger.Info("article contents scraped",
		"source", source,
		"fetched", len(pages),
		"missing", len(missing),
	)
	return pages, missing, nil
}

// fetchPage fetches a single page and wraps it in a model.Page.
func (s *Spider) fetchPage(ctx context.Context, link, source string) (*model.Page, error) {
	resp, err := s.client.Get(ctx, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		URL:         link,
		Source:      source,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Raw:         body,
		FetchedAt:   time.Now().UTC(),
	}
	page.TruncateRaw()
	page.ComputeHash()
	return page, nil
}

// pause waits the politeness delay, honoring context cancellation.
func (s *Spider) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
		return nil
	}
}

// ignored reports whether a link matches any ignore pattern.
func (s *Spider) ignored(link string) bool {
	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, link) {
			return true
		}
	}
	return false
}

// matchPattern checks if a link matches a glob pattern.
// Patterns can use:
//   - "/prefix/*" to match anything under a path prefix
//   - "*.ext" to match by file extension
//   - standard filepath.Match syntax otherwise
func matchPattern(pattern, link string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(link, prefix+"/") || link == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(link, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, link)
	if err == nil && matched {
		return true
	}

	// Match against the file name alone for patterns without separators.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(link))
		if err == nil && matched {
			return true
		}
	}

	return false
}
