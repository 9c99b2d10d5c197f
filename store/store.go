// Package store is the SQLite persistence layer: monitored pages, page
// snapshots, kind-tagged detected signals, extracted products and the
// append-only change-event log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/centinela-io/centinela/diff"
	"github.com/centinela-io/centinela/signal"
)

// Schema is applied on Open. Snapshot inserts are keyed by
// (page_id, observed_at) so re-delivered scans are absorbed rather than
// duplicated.
const Schema = `
CREATE TABLE IF NOT EXISTS monitored_pages (
	id TEXT PRIMARY KEY,
	competitor_id TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL DEFAULT 'OTHER',
	active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS page_snapshots (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL REFERENCES monitored_pages(id),
	platform TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	observed_at INTEGER NOT NULL,
	UNIQUE(page_id, observed_at)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_page ON page_snapshots(page_id, observed_at DESC);

CREATE TABLE IF NOT EXISTS detected_signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id TEXT NOT NULL REFERENCES page_snapshots(id),
	kind TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_signals_snapshot ON detected_signals(snapshot_id);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id TEXT NOT NULL REFERENCES page_snapshots(id),
	sku TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	category_path TEXT NOT NULL DEFAULT '',
	list_price REAL NOT NULL DEFAULT 0,
	sale_price REAL NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT '',
	in_stock INTEGER NOT NULL DEFAULT 0,
	installments TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_snapshot ON products(snapshot_id);

CREATE TABLE IF NOT EXISTS product_variants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL REFERENCES products(id),
	sku TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	sale_price REAL NOT NULL DEFAULT 0,
	list_price REAL NOT NULL DEFAULT 0,
	in_stock INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS change_events (
	id TEXT PRIMARY KEY,
	competitor_id TEXT NOT NULL,
	page_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	detected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_competitor ON change_events(competitor_id, detected_at DESC);
`

// Page is one monitored competitor page.
type Page struct {
	ID           string
	CompetitorID string
	URL          string
	Kind         string
	Active       bool
}

// Snapshot is one timestamped observation of a page.
type Snapshot struct {
	ID          string
	PageID      string
	Platform    signal.Platform
	ContentHash string
	ObservedAt  time.Time
}

// Store is the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path, applies WAL mode
// and the schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// modernc sqlite is single-writer; serialize access at the pool.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPage registers a page to monitor, updating kind and active flag
// when the URL is already known.
func (s *Store) UpsertPage(ctx context.Context, p Page) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitored_pages (id, competitor_id, url, kind, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET kind = excluded.kind, active = excluded.active`,
		p.ID, p.CompetitorID, p.URL, p.Kind, boolInt(p.Active), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upserting page %s: %w", p.URL, err)
	}
	return nil
}

// PageByURL returns the monitored page registered for url.
func (s *Store) PageByURL(ctx context.Context, url string) (Page, error) {
	var p Page
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, competitor_id, url, kind, active
		FROM monitored_pages WHERE url = ?`, url).
		Scan(&p.ID, &p.CompetitorID, &p.URL, &p.Kind, &active)
	if err != nil {
		return Page{}, fmt.Errorf("loading page %s: %w", url, err)
	}
	p.Active = active != 0
	return p, nil
}

// ActivePages returns every page flagged for monitoring.
func (s *Store) ActivePages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, competitor_id, url, kind, active
		FROM monitored_pages WHERE active = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing active pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		var active int
		if err := rows.Scan(&p.ID, &p.CompetitorID, &p.URL, &p.Kind, &active); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Active = active != 0
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// SaveSnapshot persists a snapshot and its extraction result in one
// transaction. A snapshot that already exists for (page, observed-at) is
// a no-op, which makes redelivered scans idempotent.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot, res *signal.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer tx.Rollback()

	inserted, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO page_snapshots (id, page_id, platform, content_hash, observed_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.PageID, snap.Platform.String(), snap.ContentHash, snap.ObservedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	if n, err := inserted.RowsAffected(); err == nil && n == 0 {
		return nil // already observed
	}

	if res != nil {
		if err := insertSignals(ctx, tx, snap.ID, res); err != nil {
			return err
		}
		if err := insertProducts(ctx, tx, snap.ID, res.Products); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func insertSignals(ctx context.Context, tx *sql.Tx, snapshotID string, res *signal.Result) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detected_signals (snapshot_id, kind, raw_text, confidence)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing signal insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind signal.Kind, text string, confidence float64) error {
		if text == "" {
			return nil
		}
		if _, err := stmt.ExecContext(ctx, snapshotID, string(kind), text, confidence); err != nil {
			return fmt.Errorf("inserting %s signal: %w", kind, err)
		}
		return nil
	}

	for _, p := range res.Promos {
		if err := insert(signal.KindPromo, p.RawText, p.Confidence); err != nil {
			return err
		}
	}
	for _, f := range res.Financing {
		if err := insert(signal.KindFinancing, f.RawText, f.Confidence); err != nil {
			return err
		}
	}
	for _, c := range res.CTAs {
		if err := insert(signal.KindCTA, c.Text, 0); err != nil {
			return err
		}
	}
	if res.HeroBanner != nil {
		if err := insert(signal.KindBrandHighlight, res.HeroBanner.Headline, 0); err != nil {
			return err
		}
	}
	return nil
}

func insertProducts(ctx context.Context, tx *sql.Tx, snapshotID string, products []signal.Product) error {
	for _, p := range products {
		row, err := tx.ExecContext(ctx, `
			INSERT INTO products (snapshot_id, sku, title, url, brand, category_path,
				list_price, sale_price, currency, in_stock, installments, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshotID, p.SKU, p.Title, p.URL, p.Brand, p.CategoryPath,
			p.ListPrice, p.SalePrice, p.Currency, boolInt(p.InStock), p.Installments, p.ImageURL)
		if err != nil {
			return fmt.Errorf("inserting product %q: %w", p.Title, err)
		}
		productID, err := row.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading product id: %w", err)
		}

		for _, v := range p.Variants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO product_variants (product_id, sku, title, sale_price, list_price, in_stock)
				VALUES (?, ?, ?, ?, ?, ?)`,
				productID, v.SKU, v.Title, v.SalePrice, v.ListPrice, boolInt(v.InStock)); err != nil {
				return fmt.Errorf("inserting variant %q: %w", v.SKU, err)
			}
		}
	}
	return nil
}

// SignalTexts returns the raw signal texts of the page's most recent
// snapshots, newest first, up to limit snapshots. It satisfies the diff
// engine's SnapshotSource.
func (s *Store) SignalTexts(ctx context.Context, pageID string, limit int) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM page_snapshots
		WHERE page_id = ? ORDER BY observed_at DESC LIMIT ?`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for page %s: %w", pageID, err)
	}
	defer rows.Close()

	var snapshotIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning snapshot id: %w", err)
		}
		snapshotIDs = append(snapshotIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	observations := make([][]string, 0, len(snapshotIDs))
	for _, id := range snapshotIDs {
		texts, err := s.snapshotTexts(ctx, id)
		if err != nil {
			return nil, err
		}
		observations = append(observations, texts)
	}
	return observations, nil
}

func (s *Store) snapshotTexts(ctx context.Context, snapshotID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raw_text FROM detected_signals WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("listing signals for snapshot %s: %w", snapshotID, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning signal text: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// AppendEvents writes change events to the append-only log.
func (s *Store) AppendEvents(ctx context.Context, events []diff.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning event tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO change_events
			(id, competitor_id, page_id, event_type, severity, old_value, new_value, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.CompetitorID, e.PageID,
			string(e.Type), string(e.Severity), e.OldValue, e.NewValue, e.DetectedAt.Unix()); err != nil {
			return fmt.Errorf("inserting event %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing events: %w", err)
	}
	return nil
}

// RecentEvents returns the latest change events for a competitor, newest
// first.
func (s *Store) RecentEvents(ctx context.Context, competitorID string, limit int) ([]diff.ChangeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, competitor_id, page_id, event_type, severity, old_value, new_value, detected_at
		FROM change_events WHERE competitor_id = ?
		ORDER BY detected_at DESC, id LIMIT ?`, competitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", competitorID, err)
	}
	defer rows.Close()

	var events []diff.ChangeEvent
	for rows.Next() {
		var e diff.ChangeEvent
		var eventType, severity string
		var detectedAt int64
		if err := rows.Scan(&e.ID, &e.CompetitorID, &e.PageID, &eventType, &severity,
			&e.OldValue, &e.NewValue, &detectedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = diff.EventType(eventType)
		e.Severity = diff.Severity(severity)
		e.DetectedAt = time.Unix(detectedAt, 0).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
