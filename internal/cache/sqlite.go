package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a persisted key/value table shared by typed SQLite caches.
// Entries survive process restarts.
type SQLiteStore struct {
	conn    *sql.DB
	writeMu sync.Mutex
	logger  zerolog.Logger
	now     func() time.Time
}

// OpenSQLite opens (or creates) the cache database at path.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("opened sqlite estimate cache")

	return &SQLiteStore{conn: conn, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx, `DELETE FROM estimate_cache WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// SQLite is a typed view over a SQLiteStore. Values are stored as JSON under
// "{namespace}:{key}".
type SQLite[T any] struct {
	store     *SQLiteStore
	namespace string
	ttl       time.Duration
}

// NewSQLite creates a typed cache in the given namespace.
func NewSQLite[T any](store *SQLiteStore, namespace string, ttl time.Duration) *SQLite[T] {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SQLite[T]{store: store, namespace: namespace, ttl: ttl}
}

func (c *SQLite[T]) key(k string) string {
	return c.namespace + ":" + k
}

// Get returns the cached value for key. Read and decode failures are misses.
func (c *SQLite[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	var raw string
	err := c.store.conn.QueryRowContext(ctx,
		`SELECT value FROM estimate_cache WHERE key = ? AND expires_at > ?`,
		c.key(key), c.store.now().UnixMilli(),
	).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.store.logger.Warn().Err(err).Str("namespace", c.namespace).Msg("estimate cache read failed")
		}
		return zero, false
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		c.store.logger.Warn().Err(err).Str("namespace", c.namespace).Msg("discarding undecodable cache entry")
		return zero, false
	}
	return value, true
}

// Set stores value under key. Write failures are logged and dropped.
func (c *SQLite[T]) Set(ctx context.Context, key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.store.logger.Warn().Err(err).Str("namespace", c.namespace).Msg("estimate cache encode failed")
		return
	}

	c.store.writeMu.Lock()
	defer c.store.writeMu.Unlock()

	_, err = c.store.conn.ExecContext(ctx,
		`INSERT INTO estimate_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		c.key(key), string(raw), c.store.now().Add(c.ttl).UnixMilli(),
	)
	if err != nil {
		c.store.logger.Warn().Err(err).Str("namespace", c.namespace).Msg("estimate cache write failed")
	}
}
