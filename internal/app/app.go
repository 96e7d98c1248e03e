// Package app wires configuration into the fetchers and aggregator shared by
// the server and the CLI.
package app

import (
    "context"
    "fmt"

    "github.com/rs/zerolog/log"

    "stocknews/internal/aggregate"
    "stocknews/internal/cache"
    "stocknews/internal/config"
    "stocknews/internal/fetcher"
    "stocknews/internal/httpx"
    "stocknews/internal/provider/alphavantage"
    "stocknews/internal/provider/newsapi"
    "stocknews/internal/provider/ratelimit"
)

type App struct {
    Store      cache.Store
    Quotes     *fetcher.QuoteFetcher
    News       *fetcher.NewsFetcher
    Aggregator *aggregate.Aggregator
}

// New builds the application graph from cfg. Callers must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
    if err := cfg.Validate(); err != nil {
        return nil, fmt.Errorf("config: %w", err)
    }

    // One pooled client for both upstreams.
    httpClient := httpx.New(cfg.UpstreamTimeout())

    av, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
        alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
        alphavantage.WithHTTPClient(ratelimit.Wrap(httpClient, limits(cfg.AlphaVantage))),
    )
    if err != nil {
        return nil, fmt.Errorf("alpha vantage client: %w", err)
    }
    na, err := newsapi.NewClient(cfg.NewsAPI.APIKey,
        newsapi.WithBaseURL(cfg.NewsAPI.BaseURL),
        newsapi.WithHTTPClient(ratelimit.Wrap(httpClient, limits(cfg.NewsAPI))),
    )
    if err != nil {
        return nil, fmt.Errorf("news api client: %w", err)
    }

    store, err := cache.Open(ctx, cache.Options{
        Backend:     cfg.Cache.Backend,
        MaxItems:    cfg.Cache.MaxItems,
        RedisURL:    cfg.Cache.RedisURL,
        RedisPrefix: cfg.Cache.RedisPrefix,
        SQLitePath:  cfg.Cache.SQLitePath,
    })
    if err != nil {
        return nil, fmt.Errorf("cache: %w", err)
    }
    log.Info().Str("backend", cfg.Cache.Backend).Msg("cache ready")

    quotes := fetcher.NewQuoteFetcher(av, store, cfg.Cache.QuoteTTL(), cfg.UpstreamTimeout())
    news := fetcher.NewNewsFetcher(na, store, cfg.Cache.NewsTTL(), cfg.UpstreamTimeout())
    return &App{
        Store:  store,
        Quotes: quotes,
        News:   news,
        Aggregator: &aggregate.Aggregator{
            Quotes:     quotes,
            News:       news,
            MaxSymbols: cfg.MaxSymbols,
        },
    }, nil
}

func limits(u config.Upstream) ratelimit.Options {
    return ratelimit.Options{
        RequestsPerMinute: u.MaxRequestsPerMinute,
        Burst:             u.Burst,
        MinInterval:       u.MinInterval(),
    }
}

func (a *App) Close() error {
    if a == nil || a.Store == nil {
        return nil
    }
    return a.Store.Close()
}
