package fetcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"stocknews/internal/cache"
	"stocknews/internal/fetcher"
	"stocknews/internal/provider"
	"stocknews/internal/provider/mock"
)

func newQuoteProvider(t *testing.T) *mock.MockQuoteProvider {
	t.Helper()
	p := mock.NewMockQuoteProvider(gomock.NewController(t))
	p.EXPECT().Name().Return("Alpha Vantage").AnyTimes()
	return p
}

func aapl() provider.Quote {
	return provider.Quote{
		Symbol: provider.String("AAPL"),
		Price:  provider.String("150.00"),
		Change: provider.String("2.50"),
		Volume: provider.String("1000000"),
	}
}

func TestQuote_CachesSuccess(t *testing.T) {
	t.Parallel()

	// Arrange: the provider may only be called once.
	p := newQuoteProvider(t)
	p.EXPECT().Quote(gomock.Any(), "AAPL").Return(aapl(), nil).Times(1)
	store := cache.NewMemory(0)
	f := fetcher.NewQuoteFetcher(p, store, 0, 0)

	// Act
	first, err := f.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	second, err := f.Quote(t.Context(), "AAPL")
	require.NoError(t, err)

	// Assert
	require.Equal(t, first, second)
	require.Equal(t, "150.00", provider.Value(second.Price))

	cached, ok, err := cache.GetJSON[provider.Quote](t.Context(), store, "stock_AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, cached)
}

func TestQuote_PreservesNullFields(t *testing.T) {
	t.Parallel()

	p := newQuoteProvider(t)
	p.EXPECT().Quote(gomock.Any(), "IBM").Return(provider.Quote{Symbol: provider.String("IBM")}, nil).Times(1)
	f := fetcher.NewQuoteFetcher(p, cache.NewMemory(0), 0, 0)

	_, err := f.Quote(t.Context(), "IBM")
	require.NoError(t, err)
	q, err := f.Quote(t.Context(), "IBM")
	require.NoError(t, err)
	require.Nil(t, q.Price)
	require.Nil(t, q.Volume)
}

func TestQuote_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "provider error",
			err:     &provider.ProviderError{Provider: "Alpha Vantage", Message: "Invalid API call."},
			message: "Alpha Vantage Error for XYZ: Invalid API call.",
		},
		{
			name:    "no data",
			err:     provider.ErrNoData,
			message: "No data found for XYZ from Alpha Vantage.",
		},
		{
			name:    "transport",
			err:     &provider.TransportError{Provider: "Alpha Vantage", Err: errors.New("performing request: connection refused")},
			message: "Error fetching stock data for XYZ: performing request: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: failures are never cached, so both calls reach the provider.
			p := newQuoteProvider(t)
			p.EXPECT().Quote(gomock.Any(), "XYZ").Return(provider.Quote{}, tt.err).Times(2)
			f := fetcher.NewQuoteFetcher(p, cache.NewMemory(0), 0, 0)

			for range 2 {
				_, err := f.Quote(t.Context(), "XYZ")

				var quoteErr *fetcher.QuoteError
				require.ErrorAs(t, err, &quoteErr)
				require.Equal(t, "XYZ", quoteErr.Symbol)
				require.EqualError(t, err, tt.message)
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestQuote_Timeout(t *testing.T) {
	t.Parallel()

	p := newQuoteProvider(t)
	p.EXPECT().
		Quote(gomock.Any(), "SLOW").
		DoAndReturn(func(ctx context.Context, symbol string) (provider.Quote, error) {
			<-ctx.Done()
			return provider.Quote{}, &provider.TransportError{Provider: "Alpha Vantage", Err: ctx.Err()}
		}).
		Times(1)
	f := fetcher.NewQuoteFetcher(p, cache.NewMemory(0), 0, 20*time.Millisecond)

	start := time.Now()
	_, err := f.Quote(t.Context(), "SLOW")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, fetcher.IsTransport(err))
	require.Less(t, time.Since(start), time.Second)
}

func TestQuote_CoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := newQuoteProvider(t)
	p.EXPECT().
		Quote(gomock.Any(), "AAPL").
		DoAndReturn(func(ctx context.Context, symbol string) (provider.Quote, error) {
			<-release
			return aapl(), nil
		}).
		Times(1)
	f := fetcher.NewQuoteFetcher(p, cache.NewMemory(0), 0, 0)

	var wg sync.WaitGroup
	results := make([]provider.Quote, 5)
	errs := make([]error, 5)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.Quote(t.Context(), "AAPL")
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range 5 {
		require.NoError(t, errs[i])
		require.Equal(t, "AAPL", provider.Value(results[i].Symbol))
	}
}

func TestIsTransport(t *testing.T) {
	t.Parallel()

	require.True(t, fetcher.IsTransport(&fetcher.QuoteError{Err: &provider.TransportError{Err: errors.New("x")}}))
	require.True(t, fetcher.IsTransport(errors.New("unclassified")))
	require.False(t, fetcher.IsTransport(&fetcher.QuoteError{Err: provider.ErrNoData}))
	require.False(t, fetcher.IsTransport(&fetcher.QuoteError{Err: &provider.ProviderError{Message: "bad"}}))
}

func TestQuote_ProviderPanic(t *testing.T) {
	t.Parallel()

	// Arrange: the first call panics, the retry succeeds.
	p := newQuoteProvider(t)
	first := p.EXPECT().
		Quote(gomock.Any(), "AAPL").
		DoAndReturn(func(context.Context, string) (provider.Quote, error) {
			panic("provider boom")
		}).
		Times(1)
	p.EXPECT().Quote(gomock.Any(), "AAPL").Return(aapl(), nil).Times(1).After(first)
	store := cache.NewMemory(0)
	f := fetcher.NewQuoteFetcher(p, store, 0, 0)

	// Act
	_, err := f.Quote(t.Context(), "AAPL")

	// Assert: the panic is an error, not a crash, and nothing was cached.
	require.ErrorIs(t, err, fetcher.ErrPanic)
	require.EqualError(t, err, "Error fetching stock data for AAPL: internal error")
	require.Zero(t, store.Len())

	q, err := f.Quote(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, aapl(), q)
}
