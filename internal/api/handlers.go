package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"stocknews/internal/aggregate"
	"stocknews/internal/fetcher"
	"stocknews/internal/provider"
	"stocknews/web"
)

type handlers struct {
	cfg Config
}

type articlesBody struct {
	Articles []provider.Article `json:"articles"`
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Index.Execute(w, web.Page{Title: h.cfg.Title, MaxSymbols: h.cfg.MaxSymbols}); err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("rendering index")
	}
}

// GET /api/stock/{symbol}
func (h *handlers) stock(w http.ResponseWriter, r *http.Request) {
	symbol := aggregate.NormalizeSymbol(chi.URLParam(r, "symbol"))
	q, err := h.cfg.Quotes.Quote(r.Context(), symbol)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, q)
	case errors.Is(err, fetcher.ErrPanic):
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
	case fetcher.IsTransport(err):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("No data found for %s", symbol))
	}
}

// GET /api/news
func (h *handlers) generalNews(w http.ResponseWriter, r *http.Request) {
	articles, err := h.cfg.News.News(r.Context(), aggregate.GeneralNews())
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, articlesBody{Articles: articles})
	case errors.Is(err, fetcher.ErrPanic):
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
	case fetcher.IsTransport(err):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch news")
	}
}

// GET /api/news/{symbol}
func (h *handlers) symbolNews(w http.ResponseWriter, r *http.Request) {
	symbol := aggregate.NormalizeSymbol(chi.URLParam(r, "symbol"))
	articles, err := h.cfg.News.News(r.Context(), aggregate.SymbolNews(symbol))
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, articlesBody{Articles: articles})
	case errors.Is(err, fetcher.ErrPanic):
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
	case fetcher.IsTransport(err):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("No news found for %s", symbol))
	}
}

// POST /get_stock_data
func (h *handlers) batch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	raw, err := aggregate.ParseRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	res, err := h.cfg.Batch.Batch(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, res)
	case errors.Is(err, aggregate.ErrEmptyInput):
		writeError(w, r, http.StatusBadRequest, "No symbols provided")
	case errors.Is(err, aggregate.ErrTooManySymbols):
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Too many symbols. Maximum %d allowed.", h.cfg.MaxSymbols))
	default:
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("batch failed")
		writeError(w, r, http.StatusInternalServerError, "Server error processing request")
	}
}
