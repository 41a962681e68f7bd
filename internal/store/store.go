// Package store implements the durable page store on a file-backed SQLite
// database. All writes are serialized through a single logical writer: the
// store is safe to call from multiple goroutines but offers no finer
// concurrency than one writer at a time.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	url TEXT PRIMARY KEY,
	added_at INTEGER NOT NULL,
	lastmod INTEGER NOT NULL,
	html TEXT NOT NULL,
	title TEXT NULL,
	text TEXT NULL,
	summary TEXT NULL
)`

// Store provides database operations for persisted page content.
type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	preexisting bool
}

// Open creates or opens the SQLite database at path and ensures the schema
// exists. It records whether a database file was already present, which
// drives the cold-start behavior of the diff resolver and reconciliation.
func Open(path string) (*Store, error) {
	_, statErr := os.Stat(path)
	preexisting := statErr == nil

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the single-writer contract at the pool level too.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, preexisting: preexisting}, nil
}

// Preexisting reports whether the database file existed before Open.
func (s *Store) Preexisting() bool {
	return s.preexisting
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// ListURLs returns every URL known to the store.
func (s *Store) ListURLs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT url FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}
	return urls, nil
}

// GetPage returns the full row for url, or nil when the store has no record.
func (s *Store) GetPage(url string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT url, added_at, lastmod, html, title, text, summary FROM pages WHERE url = ?`, url)

	var (
		p                    Page
		addedAt, lastmod     int64
		title, text, summary sql.NullString
	)
	err := row.Scan(&p.URL, &addedAt, &lastmod, &p.HTML, &title, &text, &summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	p.AddedAt = time.Unix(addedAt, 0).UTC()
	p.LastMod = time.Unix(lastmod, 0).UTC()
	p.Title = title.String
	p.Text = text.String
	p.Summary = summary.String
	return &p, nil
}

// UpsertPage stores the full row for page.URL, replacing any existing row.
func (s *Store) UpsertPage(p *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pages (url, added_at, lastmod, html, title, text, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.URL,
		p.AddedAt.Unix(),
		p.LastMod.Unix(),
		p.HTML,
		nullable(p.Title),
		nullable(p.Text),
		nullable(p.Summary),
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

// UpdateText sets the extracted text for url.
func (s *Store) UpdateText(url, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE pages SET text = ? WHERE url = ?`, text, url); err != nil {
		return fmt.Errorf("update text: %w", err)
	}
	return nil
}

// UpdateSummary sets the generated summary for url.
func (s *Store) UpdateSummary(url, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE pages SET summary = ? WHERE url = ?`, summary, url); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

// RemovePage deletes the row for url, if any.
func (s *Store) RemovePage(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM pages WHERE url = ?`, url); err != nil {
		return fmt.Errorf("remove page: %w", err)
	}
	return nil
}

// GetLastmod returns the stored lastmod timestamp for url. The second return
// value is false when the store has no record for the URL.
func (s *Store) GetLastmod(url string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastmod int64
	err := s.db.QueryRow(`SELECT lastmod FROM pages WHERE url = ?`, url).Scan(&lastmod)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get lastmod: %w", err)
	}
	return time.Unix(lastmod, 0).UTC(), true, nil
}

// FetchUnsummarized returns up to limit (url, text) pairs whose summary is
// NULL or empty, oldest first so early-discovered content is summarized
// first.
func (s *Store) FetchUnsummarized(limit int) ([]PageText, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT url, text FROM pages
		 WHERE summary IS NULL OR summary = ''
		 ORDER BY added_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unsummarized: %w", err)
	}
	defer rows.Close()
	return scanPageTexts(rows)
}

// FetchPages returns up to limit (url, text) pairs starting at offset,
// ordered by added_at ascending. Used by the "summarize all" mode to
// paginate the full table.
func (s *Store) FetchPages(limit, offset int) ([]PageText, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT url, text FROM pages ORDER BY added_at ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch pages: %w", err)
	}
	defer rows.Close()
	return scanPageTexts(rows)
}

// removeUnvisitedChunk is the insert batch size for the temp visited table.
const removeUnvisitedChunk = 100

// RemoveUnvisited deletes every row whose URL is absent from visited and
// returns the number of rows removed. The delete runs as one set-difference
// statement against a temporary table rather than per-row deletes.
func (s *Store) RemoveUnvisited(visited map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin remove unvisited: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`CREATE TEMPORARY TABLE temp_visited_urls (url TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("create temp table: %w", err)
	}

	urls := make([]string, 0, len(visited))
	for url := range visited {
		urls = append(urls, url)
	}
	for start := 0; start < len(urls); start += removeUnvisitedChunk {
		end := min(start+removeUnvisitedChunk, len(urls))
		chunk := urls[start:end]

		placeholders := make([]byte, 0, len(chunk)*5)
		args := make([]any, 0, len(chunk))
		for i, url := range chunk {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, "(?)"...)
			args = append(args, url)
		}
		query := "INSERT INTO temp_visited_urls (url) VALUES " + string(placeholders)
		if _, err := tx.Exec(query, args...); err != nil {
			return 0, fmt.Errorf("fill temp table: %w", err)
		}
	}

	res, err := tx.Exec(`DELETE FROM pages WHERE url NOT IN (SELECT url FROM temp_visited_urls)`)
	if err != nil {
		return 0, fmt.Errorf("delete unvisited: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted: %w", err)
	}

	if _, err := tx.Exec(`DROP TABLE temp_visited_urls`); err != nil {
		return 0, fmt.Errorf("drop temp table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit remove unvisited: %w", err)
	}
	return int(deleted), nil
}

func scanPageTexts(rows *sql.Rows) ([]PageText, error) {
	var pages []PageText
	for rows.Next() {
		var (
			url  string
			text sql.NullString
		)
		if err := rows.Scan(&url, &text); err != nil {
			return nil, fmt.Errorf("scan page text: %w", err)
		}
		pages = append(pages, PageText{URL: url, Text: text.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page texts: %w", err)
	}
	return pages, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
