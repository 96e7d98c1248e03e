package cache

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    _ "modernc.org/sqlite"
)

// SQLite is a Store persisted to a single-file database, so cached quotes and
// news survive a restart.
type SQLite struct {
    db  *sql.DB
    now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
    if path == "" {
        path = "data/cache.db"
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, fmt.Errorf("create db dir: %w", err)
    }
    db, err := sql.Open("sqlite", path)
    if err != nil {
        return nil, fmt.Errorf("open sqlite: %w", err)
    }
    for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=3000;"} {
        if _, err := db.ExecContext(ctx, pragma); err != nil {
            _ = db.Close()
            return nil, fmt.Errorf("%s: %w", pragma, err)
        }
    }
    if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache_entries (
        key TEXT PRIMARY KEY,
        data BLOB NOT NULL,
        expires_at INTEGER NOT NULL
    );`); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("migrate sqlite: %w", err)
    }
    return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
    var (
        data      []byte
        expiresAt int64
    )
    err := s.db.QueryRowContext(ctx, `SELECT data, expires_at FROM cache_entries WHERE key = ?`, key).Scan(&data, &expiresAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
    }
    if s.now().UnixNano() >= expiresAt {
        return nil, false, nil
    }
    return data, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if ttl <= 0 { return nil }
    expiresAt := s.now().Add(ttl).UnixNano()
    if _, err := s.db.ExecContext(ctx,
        `INSERT OR REPLACE INTO cache_entries (key, data, expires_at) VALUES (?, ?, ?)`,
        key, value, expiresAt,
    ); err != nil {
        return fmt.Errorf("sqlite set %s: %w", key, err)
    }
    return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
    res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, s.now().UnixNano())
    if err != nil {
        return 0, fmt.Errorf("sqlite purge: %w", err)
    }
    return res.RowsAffected()
}

func (s *SQLite) Close() error {
    if s == nil || s.db == nil {
        return nil
    }
    return s.db.Close()
}
