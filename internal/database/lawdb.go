package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lexgraph/lexgraph/internal/model"
)

// LawDB provides SQLite-based storage for scraped legal data: law sources,
// raw page snapshots, parsed articles with their references, and stored
// analysis reports.
//
// Design decision: We use a single database file holding all law sources
// rather than one file per source. Cross-source citations (the codice civile
// referencing the costituzione, for instance) live in one graph, so keeping
// everything in one file makes dataset loading and backup trivial.
type LawDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures LawDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a LawDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*LawDB, error) {
	dbPath := filepath.Join(dbDir, "lexgraph.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer, and scrape runs are write-heavy.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ldb := &LawDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ldb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ldb, nil
}

// Close closes the database connection.
func (ldb *LawDB) Close() error {
	return ldb.db.Close()
}

// Path returns the path of the underlying database file.
func (ldb *LawDB) Path() string {
	return ldb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (ldb *LawDB) createTables() error {
	schema := `
	-- Law sources discovered from the source index page
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Raw page snapshots, kept for re-parsing without re-fetching
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		source TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		raw BLOB,
		raw_hash TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, source)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_source ON pages(source);

	-- Parsed articles keyed by their site-relative link
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		name TEXT NOT NULL,
		hierarchy TEXT,
		body TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);

	-- Citation edges extracted from article bodies.
	-- position preserves document order of references within an article.
	CREATE TABLE IF NOT EXISTS refs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_link TEXT NOT NULL,
		href TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_refs_from ON refs(from_link);
	CREATE INDEX IF NOT EXISTS idx_refs_href ON refs(href);

	-- Stored analysis reports as JSON, for history and comparison
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sources TEXT NOT NULL,
		filters TEXT,
		report_json TEXT NOT NULL,
		node_count INTEGER,
		edge_count INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
	`

	_, err := ldb.db.ExecContext(context.Background(), schema)
	return err
}

// UpsertSource records a law source slug. Re-inserting an existing slug is a
// no-op that preserves the original discovery time.
func (ldb *LawDB) UpsertSource(ctx context.Context, slug string) error {
	query := `
	INSERT INTO sources (slug) VALUES (?)
	ON CONFLICT(slug) DO NOTHING
	`

	if _, err := ldb.db.ExecContext(ctx, query, slug); err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

// ListSources returns all recorded law source slugs in alphabetical order.
func (ldb *LawDB) ListSources(ctx context.Context) ([]string, error) {
	query := `SELECT slug FROM sources ORDER BY slug`

	rows, err := ldb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		slugs = append(slugs, slug)
	}

	return slugs, rows.Err()
}

// InsertPage inserts or updates a page snapshot.
// Uses UPSERT to handle duplicates (same URL + source).
func (ldb *LawDB) InsertPage(ctx context.Context, page *model.Page) (int64, error) {
	query := `
	INSERT INTO pages (url, source, status_code, content_type, raw, raw_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, source) DO UPDATE SET
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		raw = excluded.raw,
		raw_hash = excluded.raw_hash,
		fetched_at = excluded.fetched_at
	`

	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	result, err := ldb.db.ExecContext(ctx, query,
		page.URL,
		page.Source,
		page.StatusCode,
		page.ContentType,
		page.Raw,
		page.Hash,
		fetchedAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert page: %w", err)
	}

	return result.LastInsertId()
}

// ListPages retrieves all stored page snapshots for a source in insertion
// order. Used to re-parse a source without re-fetching it.
func (ldb *LawDB) ListPages(ctx context.Context, source string) ([]*model.Page, error) {
	query := `
	SELECT url, source, status_code, content_type, raw, raw_hash, fetched_at
	FROM pages
	WHERE source = ?
	ORDER BY id
	`

	rows, err := ldb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]*model.Page, 0)
	for rows.Next() {
		var page model.Page
		var fetchedAt string
		if err := rows.Scan(
			&page.URL,
			&page.Source,
			&page.StatusCode,
			&page.ContentType,
			&page.Raw,
			&page.Hash,
			&fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.FetchedAt = parseTimestamp(fetchedAt)
		pages = append(pages, &page)
	}
	return pages, rows.Err()
}

// GetPage retrieves a page snapshot by URL and source. Returns nil when the
// page has not been stored.
func (ldb *LawDB) GetPage(ctx context.Context, url, source string) (*model.Page, error) {
	query := `
	SELECT url, source, status_code, content_type, raw, raw_hash, fetched_at
	FROM pages
	WHERE url = ? AND source = ?
	`

	var page model.Page
	var fetchedAt string

	err := ldb.db.QueryRowContext(ctx, query, url, source).Scan(
		&page.URL,
		&page.Source,
		&page.StatusCode,
		&page.ContentType,
		&page.Raw,
		&page.Hash,
		&fetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page.FetchedAt = parseTimestamp(fetchedAt)
	return &page, nil
}

// UpsertArticle inserts or updates an article and replaces its reference
// rows. The article row and its refs are written in one transaction so a
// cancelled scrape never leaves an article with half its citations.
func (ldb *LawDB) UpsertArticle(ctx context.Context, article *model.Article) error {
	hierarchyJSON, err := json.Marshal(article.Hierarchy)
	if err != nil {
		return fmt.Errorf("failed to serialize hierarchy: %w", err)
	}

	fetchedAt := article.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	tx, err := ldb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO articles (link, source, name, hierarchy, body, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(link) DO UPDATE SET
		source = excluded.source,
		name = excluded.name,
		hierarchy = excluded.hierarchy,
		body = excluded.body,
		fetched_at = excluded.fetched_at
	`

	if _, err := tx.ExecContext(ctx, query,
		article.Link,
		article.Source,
		article.Name,
		string(hierarchyJSON),
		article.Text,
		fetchedAt.Format("2006-01-02 15:04:05"),
	); err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE from_link = ?`, article.Link); err != nil {
		return fmt.Errorf("failed to clear references: %w", err)
	}

	for i, href := range article.References {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO refs (from_link, href, position) VALUES (?, ?, ?)`,
			article.Link, href, i,
		); err != nil {
			return fmt.Errorf("failed to insert reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article and its references by link.
// Returns nil when the article is not stored.
func (ldb *LawDB) GetArticle(ctx context.Context, link string) (*model.Article, error) {
	query := `
	SELECT link, source, name, hierarchy, body, fetched_at
	FROM articles
	WHERE link = ?
	`

	article, err := ldb.scanArticleRow(ldb.db.QueryRowContext(ctx, query, link))
	if err != nil || article == nil {
		return article, err
	}

	refs, err := ldb.referencesFor(ctx, link)
	if err != nil {
		return nil, err
	}
	article.References = refs
	return article, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func (ldb *LawDB) scanArticleRow(row rowScanner) (*model.Article, error) {
	var article model.Article
	var hierarchyJSON sql.NullString
	var fetchedAt string

	err := row.Scan(
		&article.Link,
		&article.Source,
		&article.Name,
		&hierarchyJSON,
		&article.Text,
		&fetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	article.FetchedAt = parseTimestamp(fetchedAt)

	if hierarchyJSON.Valid && hierarchyJSON.String != "" {
		if err := json.Unmarshal([]byte(hierarchyJSON.String), &article.Hierarchy); err != nil {
			return nil, fmt.Errorf("failed to parse hierarchy: %w", err)
		}
	}

	return &article, nil
}

func (ldb *LawDB) referencesFor(ctx context.Context, link string) ([]string, error) {
	rows, err := ldb.db.QueryContext(ctx,
		`SELECT href FROM refs WHERE from_link = ? ORDER BY position`, link)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var href string
		if err := rows.Scan(&href); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, href)
	}

	return refs, rows.Err()
}

// LoadDataset loads all stored articles for the given sources into a dataset.
// An empty source list loads every stored article. Articles come back in
// insertion order, so graphs built from the dataset are deterministic.
func (ldb *LawDB) LoadDataset(ctx context.Context, sources []string) (*model.Dataset, error) {
	query := `
	SELECT link, source, name, hierarchy, body, fetched_at
	FROM articles
	`
	args := make([]any, 0, len(sources))

	if len(sources) > 0 {
		placeholders := strings.Repeat("?,", len(sources))
		query += " WHERE source IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, s := range sources {
			args = append(args, s)
		}
	}

	query += " ORDER BY id"

	rows, err := ldb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	defer rows.Close()

	dataset := model.NewDataset()
	for rows.Next() {
		article, err := ldb.scanArticleRow(rows)
		if err != nil {
			return nil, err
		}
		dataset.Add(article)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach references in a second pass. A single join would interleave
	// article and ref rows; two simple queries keep the scanning code flat.
	refRows, err := ldb.db.QueryContext(ctx,
		`SELECT from_link, href FROM refs ORDER BY from_link, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	defer refRows.Close()

	for refRows.Next() {
		var fromLink, href string
		if err := refRows.Scan(&fromLink, &href); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		if a := dataset.ByLink(fromLink); a != nil {
			a.References = append(a.References, href)
		}
	}

	return dataset, refRows.Err()
}

// CountArticles returns the number of stored articles for a source.
// An empty source counts all articles.
func (ldb *LawDB) CountArticles(ctx context.Context, source string) (int, error) {
	query := `SELECT COUNT(*) FROM articles`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}

	var count int
	if err := ldb.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// SaveAnalysis stores a complete analysis report as JSON.
func (ldb *LawDB) SaveAnalysis(ctx context.Context, report *model.AnalysisReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize analysis: %w", err)
	}

	sourcesJSON, _ := json.Marshal(report.Sources) //nolint:errcheck,errchkjson // string slice; Marshal won't fail
	filtersJSON, _ := json.Marshal(report.Filters) //nolint:errcheck,errchkjson // string slice; Marshal won't fail

	query := `
	INSERT INTO analyses (sources, filters, report_json, node_count, edge_count)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := ldb.db.ExecContext(ctx, query,
		string(sourcesJSON),
		string(filtersJSON),
		string(reportJSON),
		report.NodeCount,
		report.EdgeCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save analysis: %w", err)
	}

	return result.LastInsertId()
}

// AnalysisMetadata contains summary information about a stored analysis.
// This is used for displaying analysis history without loading full reports.
type AnalysisMetadata struct {
	// ID is the unique identifier of the analysis in the database.
	ID int64

	// Sources are the law source slugs the analysis covered.
	Sources []string

	// Filters are the sub-network prefixes, empty for whole-graph runs.
	Filters []string

	// NodeCount and EdgeCount describe the analyzed graph.
	NodeCount int
	EdgeCount int

	// CreatedAt is when the analysis was stored.
	CreatedAt time.Time
}

// ListAnalyses retrieves metadata for stored analyses, newest first.
// A limit <= 0 returns all of them.
func (ldb *LawDB) ListAnalyses(ctx context.Context, limit int) ([]AnalysisMetadata, error) {
	query := `
	SELECT id, sources, filters, node_count, edge_count, created_at
	FROM analyses
	ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ldb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var results []AnalysisMetadata
	for rows.Next() {
		var meta AnalysisMetadata
		var sourcesJSON, filtersJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&meta.ID, &sourcesJSON, &filtersJSON,
			&meta.NodeCount, &meta.EdgeCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis metadata: %w", err)
		}

		meta.CreatedAt = parseTimestamp(createdAt)

		if sourcesJSON.Valid && sourcesJSON.String != "" {
			_ = json.Unmarshal([]byte(sourcesJSON.String), &meta.Sources) //nolint:errcheck // written by SaveAnalysis
		}
		if filtersJSON.Valid && filtersJSON.String != "" {
			_ = json.Unmarshal([]byte(filtersJSON.String), &meta.Filters) //nolint:errcheck // written by SaveAnalysis
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetAnalysisByID retrieves a stored analysis report by its database ID.
// Returns nil when no analysis with that ID exists.
func (ldb *LawDB) GetAnalysisByID(ctx context.Context, id int64) (*model.AnalysisReport, error) {
	query := `SELECT report_json FROM analyses WHERE id = ?`

	var reportJSON string
	err := ldb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var report model.AnalysisReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	return &report, nil
}

// LatestAnalyses retrieves the two most recent stored analysis reports,
// newest first. Used for run-over-run comparison; fewer than two stored
// analyses return a shorter slice.
func (ldb *LawDB) LatestAnalyses(ctx context.Context) ([]*model.AnalysisReport, error) {
	query := `
	SELECT report_json FROM analyses
	ORDER BY id DESC
	LIMIT 2
	`

	rows, err := ldb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var reports []*model.AnalysisReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		var report model.AnalysisReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
