package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	cached_at    DATETIME NOT NULL
);
`

// CachedClient answers repeated addresses from a SQLite table and calls next
// only on a miss. Only successful results are stored.
type CachedClient struct {
	next Client
	db   *sql.DB

	hits   atomic.Int64
	misses atomic.Int64

	nowFunc func() time.Time
}

// NewCachedClient opens (or creates) the cache database at path and wraps next.
func NewCachedClient(ctx context.Context, next Client, path string) (*CachedClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache: open")
	}
	// Single connection: concurrent callers share one writer.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		cacheMigration,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "geocode cache: exec %q", firstLine(stmt))
		}
	}

	return &CachedClient{next: next, db: db, nowFunc: time.Now}, nil
}

// Geocode returns the cached coordinates for addr or delegates to next.
// Cache read and write failures are logged and never fail the call.
func (c *CachedClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)

	res, err := c.lookup(ctx, key)
	switch {
	case err == nil:
		c.hits.Add(1)
		return res, nil
	case !errors.Is(err, sql.ErrNoRows):
		zap.L().Warn("geocode cache: lookup failed", zap.Error(err))
	}
	c.misses.Add(1)

	res, err = c.next.Geocode(ctx, addr)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, key, res); err != nil {
		zap.L().Warn("geocode cache: store failed", zap.Error(err))
	}
	return res, nil
}

// Hits returns the number of calls answered from the cache.
func (c *CachedClient) Hits() int64 { return c.hits.Load() }

// Misses returns the number of calls delegated to the wrapped client.
func (c *CachedClient) Misses() int64 { return c.misses.Load() }

// Close closes the cache database.
func (c *CachedClient) Close() error {
	return eris.Wrap(c.db.Close(), "geocode cache: close")
}

func (c *CachedClient) lookup(ctx context.Context, key string) (*Result, error) {
	var r Result
	err := c.db.QueryRowContext(ctx,
		"SELECT latitude, longitude FROM geocode_cache WHERE address_hash = ?", key,
	).Scan(&r.Latitude, &r.Longitude)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *CachedClient) store(ctx context.Context, key string, r *Result) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			cached_at = excluded.cached_at`,
		key, r.Latitude, r.Longitude, c.nowFunc().UTC().Format(time.RFC3339),
	)
	return eris.Wrap(err, "geocode cache: upsert")
}

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(addr AddressInput) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(addr.Street)),
		strings.ToLower(strings.TrimSpace(addr.StreetNumber)),
		strings.TrimSpace(addr.Zip),
		strings.ToLower(strings.TrimSpace(addr.Locality)),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
