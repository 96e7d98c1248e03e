package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"stocknews/internal/cache"
	"stocknews/internal/provider"
)

// NewsRequest is one cached news search.
type NewsRequest struct {
	// Key is the cache key the result is stored under.
	Key   string
	Query provider.NewsQuery
	// Limit caps the number of articles kept, in provider order.
	Limit int
}

// NewsFetcher serves article lists from the cache, falling back to the provider.
type NewsFetcher struct {
	provider provider.NewsProvider
	store    cache.Store
	ttl      time.Duration
	timeout  time.Duration
	group    singleflight.Group
}

// NewNewsFetcher returns a NewsFetcher. Non-positive durations take the defaults.
func NewNewsFetcher(p provider.NewsProvider, store cache.Store, ttl, timeout time.Duration) *NewsFetcher {
	if ttl <= 0 {
		ttl = DefaultNewsTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NewsFetcher{provider: p, store: store, ttl: ttl, timeout: timeout}
}

// News returns at most req.Limit articles. The slice is never nil on success.
// Failures are returned as *NewsError.
func (f *NewsFetcher) News(ctx context.Context, req NewsRequest) ([]provider.Article, error) {
	if articles, ok := lookup[[]provider.Article](ctx, f.store, req.Key); ok && articles != nil {
		log.Debug().Str("key", req.Key).Msg("news cache hit")
		return articles, nil
	}

	ch := f.group.DoChan(req.Key, func() (_ any, err error) {
		defer recoverCall(f.provider.Name(), req.Key, &err)

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		articles, err := f.provider.Search(callCtx, req.Query)
		if err != nil {
			return nil, err
		}
		if req.Limit > 0 && len(articles) > req.Limit {
			articles = articles[:req.Limit]
		}
		if articles == nil {
			articles = []provider.Article{}
		}
		store(ctx, f.store, req.Key, articles, f.ttl)
		return articles, nil
	})

	select {
	case <-ctx.Done():
		return nil, &NewsError{Query: req.Query.Query, Err: &provider.TransportError{Provider: f.provider.Name(), Err: ctx.Err()}}
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("query", req.Query.Query).Msg("news fetch failed")
			return nil, &NewsError{Query: req.Query.Query, Err: res.Err}
		}
		return res.Val.([]provider.Article), nil
	}
}
