package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrCacheMiss is returned when no payload is cached for a window.
var ErrCacheMiss = errors.New("store: payload cache miss")

// PayloadCache keeps the last-known-good API payload per fetch window so
// calendar views keep rendering while the API is down. It is the
// server-side analog of the service worker's offline cache.
type PayloadCache struct {
	db *sql.DB
}

// CachedPayload is one stored window of records, as raw JSON.
type CachedPayload struct {
	Window      string
	Body        []byte
	Fingerprint string
	FetchedAt   time.Time
}

func OpenPayloadCache(ctx context.Context, dir string) (*PayloadCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "payloads.sqlite"))
	if err != nil {
		return nil, err
	}
	// WAL lets the refresh goroutine write while request handlers read;
	// busy_timeout avoids "database is locked" flakiness.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS payloads (
		window TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		fingerprint TEXT NOT NULL,
		fetched_at_unixms INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PayloadCache{db: db}, nil
}

func (c *PayloadCache) Close() error { return c.db.Close() }

// Put upserts the payload for a window key ("2026-03-02/2026-03-08").
func (c *PayloadCache) Put(ctx context.Context, window string, body []byte, fingerprint string, fetchedAt time.Time) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO payloads (window, body, fingerprint, fetched_at_unixms)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(window) DO UPDATE SET
		   body = excluded.body,
		   fingerprint = excluded.fingerprint,
		   fetched_at_unixms = excluded.fetched_at_unixms`,
		window, body, fingerprint, fetchedAt.UnixMilli())
	return err
}

func (c *PayloadCache) Get(ctx context.Context, window string) (CachedPayload, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT body, fingerprint, fetched_at_unixms FROM payloads WHERE window = ?`, window)

	var p CachedPayload
	var ms int64
	if err := row.Scan(&p.Body, &p.Fingerprint, &ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CachedPayload{}, ErrCacheMiss
		}
		return CachedPayload{}, err
	}
	p.Window = window
	p.FetchedAt = time.UnixMilli(ms)
	return p, nil
}

// Fingerprint returns the stored fingerprint for a window, empty on miss.
func (c *PayloadCache) Fingerprint(ctx context.Context, window string) string {
	row := c.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM payloads WHERE window = ?`, window)
	var fp string
	if err := row.Scan(&fp); err != nil {
		return ""
	}
	return fp
}

// Clear drops every cached window.
func (c *PayloadCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM payloads`)
	return err
}

// Stats reports window count and total body bytes, for the doctor and
// state commands.
func (c *PayloadCache) Stats(ctx context.Context) (windows int, bytes int64, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM payloads`)
	err = row.Scan(&windows, &bytes)
	return windows, bytes, err
}
