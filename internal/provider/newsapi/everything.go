package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"stocknews/internal/httpx"
	"stocknews/internal/provider"
)

const maxBodyBytes = 4 << 20

// Everything is the body of a /v2/everything response.
type Everything struct {
	Status       string    `json:"status"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Article is one entry of Everything.Articles.
type Article struct {
	Source *struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	} `json:"source,omitempty"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt *string `json:"publishedAt"`
	Content     *string `json:"content"`
}

// Search runs q against /v2/everything. Results are English and sorted by relevancy.
//
// The body is decoded whatever the HTTP status, since the upstream reports
// errors such as rate limits as {"status":"error","message":...} with a 4xx.
func (c *Client) Search(ctx context.Context, q provider.NewsQuery) ([]provider.Article, error) {
	query := maps.Clone(c.query)
	query.Set("q", q.Query)
	query.Set("language", "en")
	query.Set("sortBy", "relevancy")
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if len(q.SearchIn) > 0 {
		query.Set("searchIn", strings.Join(q.SearchIn, ","))
	}

	url := fmt.Sprintf("%s/v2/everything?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &provider.TransportError{Provider: Name, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header = c.header.Clone()

	log.Debug().Str("provider", Name).Str("url", httpx.RedactURL(req.URL)).Msg("upstream news request")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Provider: Name, Err: fmt.Errorf("performing request: %w", httpx.RequestError(err))}
	}
	defer res.Body.Close()

	var body Everything
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes)).Decode(&body); err != nil {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, &provider.TransportError{Provider: Name, Err: fmt.Errorf("unexpected status code: %d", res.StatusCode)}
		}
		return nil, &provider.TransportError{Provider: Name, Err: fmt.Errorf("decoding response: %w", err)}
	}

	log.Debug().Str("provider", Name).Str("status", body.Status).Int("articles", len(body.Articles)).Msg("upstream news response")

	if body.Status != "ok" {
		message := body.Message
		if message == "" {
			message = "Unknown error"
		}
		return nil, &provider.ProviderError{Provider: Name, Message: message}
	}

	articles := make([]provider.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		articles = append(articles, provider.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
