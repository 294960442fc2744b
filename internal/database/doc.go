// Package database provides SQLite-based storage for scraped legal data.
// It persists law sources, raw page snapshots, parsed articles with their
// cross-references, and stored analysis reports for historical comparison.
package database
