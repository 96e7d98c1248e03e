package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"stocknews/internal/cache"
	"stocknews/internal/fetcher"
	"stocknews/internal/provider"
	"stocknews/internal/provider/mock"
)

func newNewsProvider(t *testing.T) *mock.MockNewsProvider {
	t.Helper()
	p := mock.NewMockNewsProvider(gomock.NewController(t))
	p.EXPECT().Name().Return("News API").AnyTimes()
	return p
}

func articles(n int) []provider.Article {
	out := make([]provider.Article, 0, n)
	for i := range n {
		out = append(out, provider.Article{
			Title: provider.String(fmt.Sprintf("title %d", i)),
			URL:   provider.String(fmt.Sprintf("https://news.example/%d", i)),
		})
	}
	return out
}

func TestNews_LimitAndCache(t *testing.T) {
	t.Parallel()

	// Arrange
	query := provider.NewsQuery{Query: "AAPL stock", PageSize: 10}
	p := newNewsProvider(t)
	p.EXPECT().Search(gomock.Any(), query).Return(articles(12), nil).Times(1)
	f := fetcher.NewNewsFetcher(p, cache.NewMemory(0), 0, 0)
	req := fetcher.NewsRequest{Key: cache.NewsKey("AAPL"), Query: query, Limit: 10}

	// Act
	first, err := f.News(t.Context(), req)
	require.NoError(t, err)
	second, err := f.News(t.Context(), req)
	require.NoError(t, err)

	// Assert: capped, provider order kept, second call served from cache.
	require.Len(t, first, 10)
	require.Equal(t, "title 0", provider.Value(first[0].Title))
	require.Equal(t, "title 9", provider.Value(first[9].Title))
	require.Equal(t, first, second)
}

func TestNews_EmptyResultIsNotNil(t *testing.T) {
	t.Parallel()

	p := newNewsProvider(t)
	p.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)
	f := fetcher.NewNewsFetcher(p, cache.NewMemory(0), 0, 0)

	got, err := f.News(t.Context(), fetcher.NewsRequest{Key: cache.GeneralNewsKey, Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestNews_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "provider error",
			err:     &provider.ProviderError{Provider: "News API", Message: "rate limited"},
			message: "News API Error: rate limited",
		},
		{
			name:    "transport",
			err:     &provider.TransportError{Provider: "News API", Err: errors.New("performing request: EOF")},
			message: "Error fetching news: performing request: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newNewsProvider(t)
			p.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, tt.err).Times(2)
			store := cache.NewMemory(0)
			f := fetcher.NewNewsFetcher(p, store, 0, 0)
			req := fetcher.NewsRequest{Key: "combined_news_AAPL", Query: provider.NewsQuery{Query: "(AAPL) (stock)"}, Limit: 5}

			for range 2 {
				got, err := f.News(t.Context(), req)
				require.Nil(t, got)
				require.EqualError(t, err, tt.message)

				var newsErr *fetcher.NewsError
				require.ErrorAs(t, err, &newsErr)
				require.Equal(t, "(AAPL) (stock)", newsErr.Query)
			}
			require.Zero(t, store.Len())
		})
	}
}

func TestNews_ProviderPanic(t *testing.T) {
	t.Parallel()

	p := newNewsProvider(t)
	p.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, provider.NewsQuery) ([]provider.Article, error) {
			panic("provider boom")
		}).
		Times(1)
	store := cache.NewMemory(0)
	f := fetcher.NewNewsFetcher(p, store, 0, 0)

	got, err := f.News(t.Context(), fetcher.NewsRequest{Key: "general_news", Query: provider.NewsQuery{Query: "finance stock market"}, Limit: 10})

	require.Nil(t, got)
	require.ErrorIs(t, err, fetcher.ErrPanic)
	require.EqualError(t, err, "Error fetching news: internal error")
	require.Zero(t, store.Len())
}
