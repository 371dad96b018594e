// Package store keeps scan history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/menusweep/internal/model"
)

// ErrNotFound is returned when a scan ID is unknown
var ErrNotFound = errors.New("scan not found")

// Schema for the scan history tables. Applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	source_url TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	item_count INTEGER NOT NULL,
	category_count INTEGER NOT NULL,
	completeness INTEGER NOT NULL,
	confidence TEXT NOT NULL,
	report_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_fetched ON scans(fetched_at);
CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(source_url);

CREATE TABLE IF NOT EXISTS items (
	scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	price TEXT,
	media_ref TEXT,
	PRIMARY KEY (scan_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
`

// ScanSummary is one row of scan history
type ScanSummary struct {
	ID            string
	Subject       string
	SourceURL     string
	FetchedAt     time.Time
	Duration      time.Duration
	ItemCount     int
	CategoryCount int
	Completeness  int
	Confidence    string
}

// Store persists reports and their items
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" keeps everything in process.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores report and its items, assigning a scan ID when it has none.
// It returns the scan ID.
func (s *Store) SaveReport(ctx context.Context, report *model.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("save report: nil report")
	}
	if report.ScanID == "" {
		report.ScanID = uuid.NewString()
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	categories := 0
	if report.Result.Categories != nil {
		categories = report.Result.Categories.Len()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO scans
		(id, subject, source_url, fetched_at, duration_ms, item_count, category_count, completeness, confidence, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ScanID, report.Subject, report.SourceURL, report.FetchedAt.UnixMilli(), report.Duration.Milliseconds(),
		report.Result.ItemCount(), categories, report.Diagnostics.Index, report.Diagnostics.Confidence, string(raw))
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE scan_id = ?`, report.ScanID); err != nil {
		return "", fmt.Errorf("clear items: %w", err)
	}

	if report.Result.Categories != nil {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (scan_id, seq, category, name, price, media_ref) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("prepare items: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, item := range report.Result.Categories.All() {
			if _, err := stmt.ExecContext(ctx, report.ScanID, i, item.Category, item.Name, item.Price, item.MediaRef); err != nil {
				return "", fmt.Errorf("insert item %q: %w", item.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return report.ScanID, nil
}

// Recent returns the latest scans, newest first. A non-empty url narrows to that page.
func (s *Store) Recent(ctx context.Context, url string, limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, subject, source_url, fetched_at, duration_ms, item_count, category_count, completeness, confidence
		FROM scans`
	args := []interface{}{}
	if url != "" {
		query += ` WHERE source_url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY fetched_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ScanSummary
	for rows.Next() {
		var (
			sum        ScanSummary
			fetchedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&sum.ID, &sum.Subject, &sum.SourceURL, &fetchedMs, &durationMs,
			&sum.ItemCount, &sum.CategoryCount, &sum.Completeness, &sum.Confidence); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.FetchedAt = time.UnixMilli(fetchedMs).UTC()
		sum.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return out, nil
}

// Load returns the full stored report for id
func (s *Store) Load(ctx context.Context, id string) (*model.Report, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM scans WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// FindItems returns items whose name contains term across all scans, newest scan first
func (s *Store) FindItems(ctx context.Context, term string, limit int) ([]model.CategorizedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT i.category, i.name, COALESCE(i.price, ''), COALESCE(i.media_ref, '')
		FROM items i JOIN scans s ON s.id = i.scan_id
		WHERE i.name LIKE '%' || ? || '%'
		ORDER BY s.fetched_at DESC, i.seq
		LIMIT ?`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CategorizedItem
	for rows.Next() {
		var item model.CategorizedItem
		if err := rows.Scan(&item.Category, &item.Name, &item.Price, &item.MediaRef); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
