package brocardi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// checkSiteTimeout is the timeout for the reachability probe. This is just a
// connectivity check against the site root, not an actual scrape request.
const checkSiteTimeout = 10 * time.Second

// Client fetches pages from the Brocardi website.
// It owns the underlying *http.Client, resolves site-relative links against
// the base URL, and retries transient failures.
//
// Design decision: The scraper takes a *Client rather than building its own
// HTTP client because:
//  1. Retry and pacing policy belongs with the site, not the crawl logic
//  2. Tests can point the client at an httptest server via WithBaseURL
//  3. All requests share one connection pool and cookie jar
type Client struct {
	// httpClient is the underlying HTTP client.
	httpClient *http.Client

	// baseURL is the root of the site, e.g. https://www.brocardi.it.
	baseURL *url.URL

	// userAgent is the User-Agent header sent with every request.
	userAgent string

	// headers are extra headers sent with every request.
	headers map[string]string

	// maxRetries is the number of retries for transient failures.
	maxRetries int

	// retryWait is the base wait between retries; it doubles per attempt.
	retryWait time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders sets extra headers included in every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithMaxRetries sets the number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryWait sets the base wait between retries.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		c.retryWait = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used in tests to
// inject transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client for the given base URL with the given
// per-request timeout.
//
// The constructor validates the base URL but performs no network I/O;
// call CheckConnection to verify the site is reachable.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		baseURL:    u,
		userAgent:  "lexgraph (+https://github.com/lexgraph/lexgraph)",
		maxRetries: 2,
		retryWait:  time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the configured base URL string without trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.baseURL.String(), "/")
}

// ResolveURL resolves a site-relative link against the base URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return c.baseURL.ResolveReference(u).String()
}

// Get fetches a site-relative path (or absolute URL) and returns the
// response. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff; the last error is returned once retries are spent.
//
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, link string) (*http.Response, error) {
	target := c.ResolveURL(link)
	if target == "" {
		return nil, fmt.Errorf("cannot resolve link %q", link)
	}

	var lastErr error
	wait := c.retryWait

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.5")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Context cancellation is not transient.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Best effort drain
			_ = resp.Body.Close()                                       //nolint:errcheck // Best effort close
			lastErr = fmt.Errorf("server returned %s for %s", resp.Status, target)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// isRetryableStatus reports whether an HTTP status indicates a transient
// server condition worth retrying.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// CheckConnection verifies that the site is reachable by fetching its root.
// It returns a SiteStatus describing the result.
//
// Design decision: We fetch the root page rather than issuing a HEAD
// request because some CDN configurations answer HEAD differently from GET,
// and the root page is tiny anyway.
func (c *Client) CheckConnection(ctx context.Context) SiteStatus {
	ctx, cancel := context.WithTimeout(ctx, checkSiteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return SiteStatusUnreachable
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return SiteStatusTimeout
		}
		return SiteStatusUnreachable
	}
	defer resp.Body.Close()

	// Drain a little so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Best effort drain

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SiteStatusBadResponse
	}
	return SiteStatusOK
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
