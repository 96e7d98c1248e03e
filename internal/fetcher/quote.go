// Package fetcher puts a cache and a timeout in front of the upstream providers.
package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"stocknews/internal/cache"
	"stocknews/internal/provider"
)

const (
	DefaultTimeout  = 3 * time.Second
	DefaultQuoteTTL = 5 * time.Minute
	DefaultNewsTTL  = 15 * time.Minute
)

// QuoteFetcher serves quotes from the cache, falling back to the provider.
// Concurrent misses for the same symbol share one upstream call.
type QuoteFetcher struct {
	provider provider.QuoteProvider
	store    cache.Store
	ttl      time.Duration
	timeout  time.Duration
	group    singleflight.Group
}

// NewQuoteFetcher returns a QuoteFetcher. Non-positive durations take the defaults.
func NewQuoteFetcher(p provider.QuoteProvider, store cache.Store, ttl, timeout time.Duration) *QuoteFetcher {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &QuoteFetcher{provider: p, store: store, ttl: ttl, timeout: timeout}
}

// Quote returns the quote for an already normalized symbol.
// Failures are returned as *QuoteError; nothing is cached on failure.
func (f *QuoteFetcher) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	key := cache.QuoteKey(symbol)
	if q, ok := lookup[provider.Quote](ctx, f.store, key); ok {
		log.Debug().Str("symbol", symbol).Msg("quote cache hit")
		return q, nil
	}

	ch := f.group.DoChan(key, func() (_ any, err error) {
		defer recoverCall(f.provider.Name(), key, &err)

		// Detached so one caller leaving does not fail the others sharing the call.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		q, err := f.provider.Quote(callCtx, symbol)
		if err != nil {
			return nil, err
		}
		store(ctx, f.store, key, q, f.ttl)
		return q, nil
	})

	select {
	case <-ctx.Done():
		return provider.Quote{}, &QuoteError{Symbol: symbol, Provider: f.provider.Name(), Err: &provider.TransportError{Provider: f.provider.Name(), Err: ctx.Err()}}
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("symbol", symbol).Str("provider", f.provider.Name()).Msg("quote fetch failed")
			return provider.Quote{}, &QuoteError{Symbol: symbol, Provider: f.provider.Name(), Err: res.Err}
		}
		return res.Val.(provider.Quote), nil
	}
}

func lookup[T any](ctx context.Context, s cache.Store, key string) (T, bool) {
	v, ok, err := cache.GetJSON[T](ctx, s, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return v, false
	}
	return v, ok
}

func store(ctx context.Context, s cache.Store, key string, v any, ttl time.Duration) {
	if err := cache.SetJSON(context.WithoutCancel(ctx), s, key, v, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
