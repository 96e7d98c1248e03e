package aggregate

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "stocknews/internal/cache"
    "stocknews/internal/fetcher"
    "stocknews/internal/provider"
)

// DefaultMaxSymbols is the largest batch accepted when none is configured.
const DefaultMaxSymbols = 10

var (
    ErrInvalidRequest = errors.New("invalid request format")
    ErrEmptyInput     = errors.New("no symbols provided")
    ErrTooManySymbols = errors.New("too many symbols")
    ErrInternal       = errors.New("internal error processing batch")
)

const (
    batchNewsLimit  = 5
    singleNewsLimit = 10
    topicQualifier  = "(stock OR shares OR company OR market OR earnings)"
)

// ParseRequest extracts the symbols field from a batch request body of the form
// {"symbols":"AAPL,MSFT"}. A missing field is an empty list; a body that is not
// a non-empty JSON object, or a non-string field, is ErrInvalidRequest.
func ParseRequest(body []byte) (string, error) {
    var fields map[string]json.RawMessage
    if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
        return "", ErrInvalidRequest
    }
    raw, ok := fields["symbols"]
    if !ok {
        return "", nil
    }
    var symbols string
    if err := json.Unmarshal(raw, &symbols); err != nil {
        return "", ErrInvalidRequest
    }
    return symbols, nil
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
    return strings.ToUpper(strings.TrimSpace(s))
}

// ParseSymbols splits a comma-separated list into distinct normalized symbols.
// Blanks are dropped and the first occurrence of each symbol fixes its position.
// limit <= 0 means DefaultMaxSymbols.
func ParseSymbols(raw string, limit int) ([]string, error) {
    if limit <= 0 { limit = DefaultMaxSymbols }
    seen := make(map[string]struct{})
    out := make([]string, 0)
    for _, part := range strings.Split(raw, ",") {
        s := NormalizeSymbol(part)
        if s == "" { continue }
        if _, dup := seen[s]; dup { continue }
        seen[s] = struct{}{}
        out = append(out, s)
    }
    if len(out) == 0 {
        return nil, ErrEmptyInput
    }
    if len(out) > limit {
        return nil, fmt.Errorf("%w: %d distinct, maximum %d", ErrTooManySymbols, len(out), limit)
    }
    return out, nil
}

// ExpandSymbols adds the base ticker of every class share ("BRK.A" adds "BRK")
// so that company-level news is matched too. The result has no duplicates.
func ExpandSymbols(symbols []string) []string {
    seen := make(map[string]struct{}, len(symbols))
    out := make([]string, 0, len(symbols))
    add := func(s string) {
        if s == "" { return }
        if _, dup := seen[s]; dup { return }
        seen[s] = struct{}{}
        out = append(out, s)
    }
    for _, s := range symbols {
        add(s)
        if base, _, ok := strings.Cut(s, "."); ok {
            add(base)
        }
    }
    return out
}

// BatchNews is the single combined news search made for a batch. The cache key
// comes from the requested symbols, not the expanded list.
func BatchNews(symbols []string) fetcher.NewsRequest {
    return fetcher.NewsRequest{
        Key: cache.CombinedNewsKey(symbols),
        Query: provider.NewsQuery{
            Query:    fmt.Sprintf("(%s) %s", strings.Join(ExpandSymbols(symbols), " OR "), topicQualifier),
            SearchIn: []string{"title", "description"},
            PageSize: batchNewsLimit,
        },
        Limit: batchNewsLimit,
    }
}

// SymbolNews is the news search behind GET /api/news/{symbol}.
func SymbolNews(symbol string) fetcher.NewsRequest {
    return fetcher.NewsRequest{
        Key:   cache.NewsKey(symbol),
        Query: provider.NewsQuery{Query: symbol + " stock", PageSize: singleNewsLimit},
        Limit: singleNewsLimit,
    }
}

// GeneralNews is the news search behind GET /api/news.
func GeneralNews() fetcher.NewsRequest {
    return fetcher.NewsRequest{
        Key:   cache.GeneralNewsKey,
        Query: provider.NewsQuery{Query: "finance stock market", PageSize: singleNewsLimit},
        Limit: singleNewsLimit,
    }
}

type QuoteFetcher interface {
    Quote(ctx context.Context, symbol string) (provider.Quote, error)
}

type NewsFetcher interface {
    News(ctx context.Context, req fetcher.NewsRequest) ([]provider.Article, error)
}

// Result is the body of a successful batch response.
type Result struct {
    StockData    []provider.Quote   `json:"stock_data"`
    NewsData     []provider.Article `json:"news_data"`
    Errors       []string           `json:"errors"`
    ResponseTime string             `json:"response_time"`
}

// Aggregator answers batch requests: one combined news search followed by a
// concurrent quote lookup per symbol.
type Aggregator struct {
    Quotes     QuoteFetcher
    News       NewsFetcher
    MaxSymbols int
}

// Batch runs a batch for the comma-separated symbols in raw.
//
// Upstream failures never fail the batch; they are reported in Result.Errors,
// news first, then quotes in symbol order. Only validation (ErrEmptyInput,
// ErrTooManySymbols) and ErrInternal are returned as errors.
func (a *Aggregator) Batch(ctx context.Context, raw string) (Result, error) {
    start := time.Now()

    symbols, err := ParseSymbols(raw, a.MaxSymbols)
    if err != nil {
        return Result{}, err
    }

    res := Result{
        StockData: make([]provider.Quote, 0, len(symbols)),
        NewsData:  make([]provider.Article, 0, batchNewsLimit),
        Errors:    make([]string, 0),
    }

    articles, err := a.News.News(ctx, BatchNews(symbols))
    if errors.Is(err, fetcher.ErrPanic) {
        return Result{}, fmt.Errorf("%w: combined news", ErrInternal)
    }
    if err != nil {
        res.Errors = append(res.Errors, err.Error())
    }
    for _, art := range articles {
        res.NewsData = append(res.NewsData, provider.Article{Title: art.Title, Description: art.Description, URL: art.URL})
    }

    type slot struct {
        quote provider.Quote
        err   error
    }
    slots := make([]slot, len(symbols))

    var g errgroup.Group
    g.SetLimit(len(symbols))
    for i, sym := range symbols {
        g.Go(func() (err error) {
            defer func() {
                if r := recover(); r != nil {
                    log.Error().Str("symbol", sym).Interface("panic", r).Msg("quote task panicked")
                    err = fmt.Errorf("%w: quote task for %s panicked", ErrInternal, sym)
                }
            }()
            q, qerr := a.Quotes.Quote(ctx, sym)
            if errors.Is(qerr, fetcher.ErrPanic) {
                return fmt.Errorf("%w: quote for %s", ErrInternal, sym)
            }
            slots[i] = slot{quote: q, err: qerr}
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return Result{}, err
    }

    for _, s := range slots {
        if s.err != nil {
            res.Errors = append(res.Errors, s.err.Error())
            continue
        }
        res.StockData = append(res.StockData, s.quote)
    }

    res.ResponseTime = fmt.Sprintf("%.2fs", time.Since(start).Seconds())
    log.Info().
        Strs("symbols", symbols).
        Int("quotes", len(res.StockData)).
        Int("articles", len(res.NewsData)).
        Int("errors", len(res.Errors)).
        Str("response_time", res.ResponseTime).
        Msg("batch complete")
    return res, nil
}
