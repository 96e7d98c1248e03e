package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Server struct {
    Port               string   `json:"port" yaml:"port"`
    ReadTimeoutSec     int      `json:"read_timeout_sec" yaml:"read_timeout_sec"`
    WriteTimeoutSec    int      `json:"write_timeout_sec" yaml:"write_timeout_sec"`
    MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes"`
    CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
}

// Upstream configures one third-party API.
type Upstream struct {
    APIKey                string `json:"api_key" yaml:"api_key"`
    BaseURL               string `json:"base_url" yaml:"base_url"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
    Burst                 int    `json:"burst" yaml:"burst"`
    MinRequestIntervalMS  int    `json:"min_request_interval_ms" yaml:"min_request_interval_ms"`
}

type Cache struct {
    Backend        string `json:"backend" yaml:"backend"`
    MaxItems       int    `json:"max_items" yaml:"max_items"`
    QuoteTTLSec    int    `json:"quote_ttl_sec" yaml:"quote_ttl_sec"`
    NewsTTLSec     int    `json:"news_ttl_sec" yaml:"news_ttl_sec"`
    RedisURL       string `json:"redis_url" yaml:"redis_url"`
    RedisPrefix    string `json:"redis_prefix" yaml:"redis_prefix"`
    SQLitePath     string `json:"sqlite_path" yaml:"sqlite_path"`
}

type Log struct {
    Level  string `json:"level" yaml:"level"`
    // Format is "json" or "pretty".
    Format string `json:"format" yaml:"format"`
    // File, when set, receives logs through a rotating writer.
    File       string `json:"file" yaml:"file"`
    MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
    MaxBackups int    `json:"max_backups" yaml:"max_backups"`
    MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

type Config struct {
    Server             Server   `json:"server" yaml:"server"`
    AlphaVantage       Upstream `json:"alpha_vantage" yaml:"alpha_vantage"`
    NewsAPI            Upstream `json:"news_api" yaml:"news_api"`
    UpstreamTimeoutSec int      `json:"upstream_timeout_sec" yaml:"upstream_timeout_sec"`
    MaxSymbols         int      `json:"max_symbols" yaml:"max_symbols"`
    Cache              Cache    `json:"cache" yaml:"cache"`
    Log                Log      `json:"log" yaml:"log"`
}

func Default() Config {
    return Config{
        Server: Server{
            Port:               "8080",
            ReadTimeoutSec:     10,
            WriteTimeoutSec:    30,
            MaxBodyBytes:       1 << 20,
            CORSAllowedOrigins: []string{"*"},
        },
        AlphaVantage:       Upstream{BaseURL: "https://www.alphavantage.co", Burst: 1},
        NewsAPI:            Upstream{BaseURL: "https://newsapi.org", Burst: 1},
        UpstreamTimeoutSec: 3,
        MaxSymbols:         10,
        Cache: Cache{
            Backend:     "memory",
            MaxItems:    10000,
            QuoteTTLSec: 300,
            NewsTTLSec:  900,
            RedisPrefix: "stocknews:",
            SQLitePath:  "data/cache.db",
        },
        Log: Log{Level: "info", Format: "json", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
    }
}

// Load builds the configuration from defaults, an optional config file, an
// optional .env file and the environment, in increasing precedence.
//
// If path is empty, config.yaml, config.yml and config.json are tried in the
// working directory. A missing file is not an error. The file format follows
// its extension; anything other than .yaml/.yml is read as JSON.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        for _, candidate := range []string{"config.yaml", "config.yml", "config.json"} {
            if _, err := os.Stat(candidate); err == nil {
                path = candidate
                break
            }
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := decode(path, b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    // Variables already set in the environment win over .env.
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        return cfg, fmt.Errorf("load .env: %w", err)
    }
    applyEnv(&cfg)
    return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".yaml", ".yml":
        return yaml.Unmarshal(b, cfg)
    default:
        return json.Unmarshal(b, cfg)
    }
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" { cfg.Server.CORSAllowedOrigins = splitCSV(v) }

    if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" { cfg.AlphaVantage.APIKey = v }
    if v := os.Getenv("ALPHA_VANTAGE_BASE_URL"); v != "" { cfg.AlphaVantage.BaseURL = v }
    envInt("ALPHA_VANTAGE_MAX_RPM", 0, &cfg.AlphaVantage.MaxRequestsPerMinute)
    envInt("ALPHA_VANTAGE_BURST", 1, &cfg.AlphaVantage.Burst)
    envInt("ALPHA_VANTAGE_MIN_INTERVAL_MS", 0, &cfg.AlphaVantage.MinRequestIntervalMS)

    if v := os.Getenv("NEWS_API_KEY"); v != "" { cfg.NewsAPI.APIKey = v }
    if v := os.Getenv("NEWS_API_BASE_URL"); v != "" { cfg.NewsAPI.BaseURL = v }
    envInt("NEWS_API_MAX_RPM", 0, &cfg.NewsAPI.MaxRequestsPerMinute)
    envInt("NEWS_API_BURST", 1, &cfg.NewsAPI.Burst)

    envInt("UPSTREAM_TIMEOUT_SEC", 1, &cfg.UpstreamTimeoutSec)
    envInt("MAX_SYMBOLS", 1, &cfg.MaxSymbols)

    if v := os.Getenv("CACHE_BACKEND"); v != "" { cfg.Cache.Backend = strings.ToLower(v) }
    envInt("CACHE_MAX_ITEMS", 0, &cfg.Cache.MaxItems)
    envInt("QUOTE_CACHE_TTL_SEC", 1, &cfg.Cache.QuoteTTLSec)
    envInt("NEWS_CACHE_TTL_SEC", 1, &cfg.Cache.NewsTTLSec)
    if v := os.Getenv("REDIS_URL"); v != "" { cfg.Cache.RedisURL = v }
    if v := os.Getenv("REDIS_PREFIX"); v != "" { cfg.Cache.RedisPrefix = v }
    if v := os.Getenv("SQLITE_PATH"); v != "" { cfg.Cache.SQLitePath = v }

    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = v }
    if v := os.Getenv("LOG_FILE"); v != "" { cfg.Log.File = v }
}

// envInt sets *dst from the integer variable name when it parses and is >= floor.
func envInt(name string, floor int, dst *int) {
    v := os.Getenv(name)
    if v == "" { return }
    var x int
    if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= floor {
        *dst = x
    }
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

// Validate reports every problem that should stop the server from starting.
func (c Config) Validate() error {
    var errs []error
    if c.AlphaVantage.APIKey == "" {
        errs = append(errs, errors.New("missing ALPHA_VANTAGE_API_KEY"))
    }
    if c.NewsAPI.APIKey == "" {
        errs = append(errs, errors.New("missing NEWS_API_KEY"))
    }
    switch c.Cache.Backend {
    case "", "memory", "sqlite":
    case "redis":
        if c.Cache.RedisURL == "" {
            errs = append(errs, errors.New("cache backend redis requires REDIS_URL"))
        }
    default:
        errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
    }
    if c.MaxSymbols <= 0 {
        errs = append(errs, fmt.Errorf("max_symbols must be positive, got %d", c.MaxSymbols))
    }
    return errors.Join(errs...)
}

func (c Config) UpstreamTimeout() time.Duration { return seconds(c.UpstreamTimeoutSec) }

func (c Cache) QuoteTTL() time.Duration { return seconds(c.QuoteTTLSec) }

func (c Cache) NewsTTL() time.Duration { return seconds(c.NewsTTLSec) }

func (u Upstream) MinInterval() time.Duration {
    return time.Duration(u.MinRequestIntervalMS) * time.Millisecond
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
