// Package brocardi provides HTTP connectivity to the Brocardi website.
// It constructs the HTTP client used by the scraper, joins site-relative
// links against the base URL, retries transient failures with backoff,
// and verifies that the site is reachable before a scrape starts.
package brocardi
