// Package cache stores upstream responses for a bounded time.
//
// Values are opaque bytes; GetJSON and SetJSON handle encoding. A Store may be
// shared by concurrent goroutines. Writes are idempotent and the last writer wins.
package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "slices"
    "strings"
    "time"
)

// Store is a TTL key-value cache.
type Store interface {
    // Get returns the value for key and whether it was present and unexpired.
    Get(ctx context.Context, key string) ([]byte, bool, error)
    // Set stores value under key for ttl. A non-positive ttl is a no-op.
    Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
    Close() error
}

// QuoteKey is the cache key of a single-symbol quote.
func QuoteKey(symbol string) string { return "stock_" + symbol }

// NewsKey is the cache key of the news list for one symbol.
func NewsKey(symbol string) string { return "news_" + symbol }

// GeneralNewsKey is the cache key of the general market news list.
const GeneralNewsKey = "general_news"

// CombinedNewsKey is the cache key of a batch news query. It depends only on
// the set of symbols, not their order.
func CombinedNewsKey(symbols []string) string {
    sorted := slices.Clone(symbols)
    slices.Sort(sorted)
    return "combined_news_" + strings.Join(sorted, "_")
}

// GetJSON reads key from s and decodes it into a T.
// A value that no longer decodes is reported as a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
    var v T
    raw, ok, err := s.Get(ctx, key)
    if err != nil || !ok {
        return v, false, err
    }
    if err := json.Unmarshal(raw, &v); err != nil {
        var zero T
        return zero, false, nil
    }
    return v, true, nil
}

// SetJSON encodes v and stores it under key for ttl.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
    raw, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("encoding %s: %w", key, err)
    }
    return s.Set(ctx, key, raw, ttl)
}

const (
    BackendMemory = "memory"
    BackendRedis  = "redis"
    BackendSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
    Backend     string
    MaxItems    int
    RedisURL    string
    RedisPrefix string
    SQLitePath  string
}

// Open builds the Store named by opts.Backend. An empty backend means memory.
func Open(ctx context.Context, opts Options) (Store, error) {
    switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
    case "", BackendMemory:
        return NewMemory(opts.MaxItems), nil
    case BackendRedis:
        r, err := OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix)
        if err != nil { return nil, err }
        return r, nil
    case BackendSQLite:
        s, err := OpenSQLite(ctx, opts.SQLitePath)
        if err != nil { return nil, err }
        return s, nil
    default:
        return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
    }
}
