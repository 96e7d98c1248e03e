// Package api is the HTTP surface: the JSON endpoints, the index page and static assets.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"stocknews/internal/aggregate"
	"stocknews/internal/fetcher"
	"stocknews/internal/provider"
	"stocknews/web"
)

type QuoteService interface {
	Quote(ctx context.Context, symbol string) (provider.Quote, error)
}

type NewsService interface {
	News(ctx context.Context, req fetcher.NewsRequest) ([]provider.Article, error)
}

type BatchService interface {
	Batch(ctx context.Context, raw string) (aggregate.Result, error)
}

// Config wires the router to its services.
type Config struct {
	Quotes QuoteService
	News   NewsService
	Batch  BatchService

	// MaxSymbols is only used to word the "too many symbols" error.
	MaxSymbols     int
	MaxBodyBytes   int64
	AllowedOrigins []string
	Title          string
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	if cfg.MaxSymbols <= 0 {
		cfg.MaxSymbols = aggregate.DefaultMaxSymbols
	}
	if cfg.Title == "" {
		cfg.Title = "Stock News"
	}
	h := &handlers{cfg: cfg}

	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(accessLog)
	r.Use(withGzip)
	r.Use(recoverPanic)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.index)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stock/{symbol}", h.stock)
		r.Get("/news", h.generalNews)
		r.Get("/news/{symbol}", h.symbolNews)
	})
	r.Post("/get_stock_data", h.batch)

	return r
}
