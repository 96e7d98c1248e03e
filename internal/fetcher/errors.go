package fetcher

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"stocknews/internal/provider"
)

// ErrPanic is wrapped by fetch errors whose provider call panicked.
// Callers treat it as an internal fault, never as an upstream answer.
var ErrPanic = errors.New("provider call panicked")

// recoverCall turns a panic in a provider call into an ErrPanic error.
// singleflight re-raises panics on a goroutine of its own, where no caller
// could recover them, so they are stopped inside the call.
func recoverCall(providerName, key string, err *error) {
	if r := recover(); r != nil {
		log.Error().Str("provider", providerName).Str("key", key).Interface("panic", r).Msg("provider call panicked")
		*err = fmt.Errorf("%w: %s", ErrPanic, providerName)
	}
}

// QuoteError reports a failed quote lookup for one symbol.
// Its message is the one shown to API clients.
type QuoteError struct {
	Symbol   string
	Provider string
	Err      error
}

func (e *QuoteError) Error() string {
	var providerErr *provider.ProviderError
	switch {
	case errors.As(e.Err, &providerErr):
		return fmt.Sprintf("%s Error for %s: %s", providerErr.Provider, e.Symbol, providerErr.Message)
	case errors.Is(e.Err, ErrPanic):
		return fmt.Sprintf("Error fetching stock data for %s: internal error", e.Symbol)
	case errors.Is(e.Err, provider.ErrNoData):
		return fmt.Sprintf("No data found for %s from %s.", e.Symbol, e.Provider)
	default:
		return fmt.Sprintf("Error fetching stock data for %s: %v", e.Symbol, e.Err)
	}
}

func (e *QuoteError) Unwrap() error { return e.Err }

// NewsError reports a failed news search.
type NewsError struct {
	Query string
	Err   error
}

func (e *NewsError) Error() string {
	var providerErr *provider.ProviderError
	if errors.As(e.Err, &providerErr) {
		return fmt.Sprintf("%s Error: %s", providerErr.Provider, providerErr.Message)
	}
	if errors.Is(e.Err, ErrPanic) {
		return "Error fetching news: internal error"
	}
	return fmt.Sprintf("Error fetching news: %v", e.Err)
}

func (e *NewsError) Unwrap() error { return e.Err }

// IsTransport reports whether err came from the network rather than from the
// upstream's own answer.
func IsTransport(err error) bool {
	var transportErr *provider.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var providerErr *provider.ProviderError
	return !errors.As(err, &providerErr) && !errors.Is(err, provider.ErrNoData)
}
