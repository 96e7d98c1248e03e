package provider

import (
    "context"
    "errors"
    "fmt"
)

// Quote is the normalized shape returned by quote providers.
// Values stay strings as delivered upstream; nil means the provider omitted the field.
type Quote struct {
    Symbol *string `json:"symbol"`
    Price  *string `json:"price"`
    Change *string `json:"change"`
    Volume *string `json:"volume"`
}

// Article is the normalized shape returned by news providers.
type Article struct {
    Title       *string `json:"title"`
    Description *string `json:"description"`
    URL         *string `json:"url"`
    PublishedAt *string `json:"publishedAt,omitempty"`
}

// NewsQuery describes one search against a news provider.
type NewsQuery struct {
    Query    string
    SearchIn []string
    PageSize int
}

//go:generate mockgen -destination=mock/provider.go -package=mock . QuoteProvider,NewsProvider

// QuoteProvider looks up the latest quote for one symbol.
type QuoteProvider interface {
    Name() string
    Quote(ctx context.Context, symbol string) (Quote, error)
}

// NewsProvider runs a free-text article search.
type NewsProvider interface {
    Name() string
    Search(ctx context.Context, q NewsQuery) ([]Article, error)
}

// ErrNoData is returned when a response carries neither a usable payload
// nor a provider-reported error.
var ErrNoData = errors.New("no data")

// ProviderError is an error message reported by the upstream itself
// (bad symbol, rate limit note, non-ok status).
type ProviderError struct {
    Provider string
    Message  string
}

func (e *ProviderError) Error() string {
    return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// TransportError wraps network, timeout and HTTP status failures.
type TransportError struct {
    Provider string
    Err      error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// String returns a pointer to s, used to build optional fields.
func String(s string) *string { return &s }

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
    if p == nil { return "" }
    return *p
}
