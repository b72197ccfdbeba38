package cache

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

type sqliteCache struct {
	db        *sql.DB
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Backend = (*sqliteCache)(nil)

// NewSQLite returns a new Backend backed by SQLite.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (Backend, error) {
	cfg := applyOptions(opts)
	if cfg.expiryCheck <= 0 {
		cfg.expiryCheck = time.Minute
	}
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "cache: open sqlite")
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: enable wal")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: create table")
	}

	// Create index on expires_at for efficient cleanup.
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: create index")
	}

	childCtx, cancel := context.WithCancel(ctx)
	c := &sqliteCache{
		db:     db,
		ctx:    childCtx,
		cancel: cancel,
		cfg:    cfg,
	}
	c.waitGroup.Add(1)
	go c.run()
	return c, nil
}

func (c *sqliteCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *sqliteCache) Get(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := c.db.QueryRowContext(qctx,
		`SELECT value FROM cache WHERE key = ? AND expires_at >= ?`, key, time.Now().UnixNano(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrap(err, "cache: sqlite get")
	}
	return true, Raw(data), nil
}

func (c *sqliteCache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	result := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, time.Now().UnixNano())
	for _, key := range keys {
		args = append(args, key)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	rows, err := c.db.QueryContext(qctx,
		`SELECT key, value FROM cache WHERE expires_at >= ? AND key IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "cache: sqlite get many")
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, errors.Wrap(err, "cache: sqlite scan")
		}
		result[key] = Raw(data)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "cache: sqlite get many")
	}
	return result, nil
}

func (c *sqliteCache) Has(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var one int
	err := c.db.QueryRowContext(qctx,
		`SELECT 1 FROM cache WHERE key = ? AND expires_at >= ?`, key, time.Now().UnixNano(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cache: sqlite has")
	}
	return true, nil
}

func (c *sqliteCache) Set(ctx context.Context, key string, val any, expires time.Duration) error {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	data, err := encode(val)
	if err != nil {
		return err
	}
	if err := c.cfg.checkSize(data); err != nil {
		return err
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	_, err = c.db.ExecContext(qctx,
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, []byte(data), time.Now().Add(expires).UnixNano(),
	)
	if err != nil {
		return errors.Wrap(err, "cache: sqlite set")
	}
	return nil
}

func (c *sqliteCache) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	result, err := c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return false, errors.Wrap(err, "cache: sqlite delete")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (c *sqliteCache) Close() error {
	var dbErr error
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
		dbErr = c.db.Close()
	})
	return dbErr
}

func (c *sqliteCache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.db.Exec(`DELETE FROM cache WHERE expires_at < ?`, time.Now().UnixNano())
		}
	}
}
