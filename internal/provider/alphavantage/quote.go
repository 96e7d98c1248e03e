package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stocknews/internal/httpx"
	"stocknews/internal/provider"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// GlobalQuote is the "Global Quote" envelope returned by function=GLOBAL_QUOTE.
type GlobalQuote struct {
	Symbol           *string `json:"01. symbol"`
	Open             *string `json:"02. open"`
	High             *string `json:"03. high"`
	Low              *string `json:"04. low"`
	Price            *string `json:"05. price"`
	Volume           *string `json:"06. volume"`
	LatestTradingDay *string `json:"07. latest trading day"`
	PreviousClose    *string `json:"08. previous close"`
	Change           *string `json:"09. change"`
	ChangePercent    *string `json:"10. change percent"`
}

type globalQuoteResponse struct {
	GlobalQuote  *GlobalQuote `json:"Global Quote"`
	ErrorMessage string       `json:"Error Message"`
	// Note and Information carry rate-limit and plan messages.
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Quote retrieves the latest quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	query := maps.Clone(c.query)
	query.Set("function", "GLOBAL_QUOTE")
	query.Set("symbol", symbol)

	url := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return provider.Quote{}, &provider.TransportError{Provider: Name, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header = c.header.Clone()

	log.Debug().Str("provider", Name).Str("url", httpx.RedactURL(req.URL)).Msg("upstream quote request")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Quote{}, &provider.TransportError{Provider: Name, Err: fmt.Errorf("performing request: %w", httpx.RequestError(err))}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return provider.Quote{}, &provider.TransportError{Provider: Name, Err: fmt.Errorf("unexpected status code: %d", res.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return provider.Quote{}, &provider.TransportError{Provider: Name, Err: fmt.Errorf("reading response: %w", err)}
	}
	return ParseGlobalQuote(body)
}

// ParseGlobalQuote validates a GLOBAL_QUOTE response body.
// It returns the quote, a *provider.ProviderError when the upstream reported a
// problem, or an error wrapping provider.ErrNoData when the body holds neither.
func ParseGlobalQuote(body []byte) (provider.Quote, error) {
	var resp globalQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.Quote{}, fmt.Errorf("%w: decoding response: %v", provider.ErrNoData, err)
	}

	if gq := resp.GlobalQuote; gq != nil && strings.TrimSpace(provider.Value(gq.Symbol)) != "" {
		for field, v := range map[string]*string{"price": gq.Price, "change": gq.Change, "volume": gq.Volume} {
			if v == nil {
				continue
			}
			if _, err := decimal.NewFromString(strings.TrimSpace(*v)); err != nil {
				return provider.Quote{}, fmt.Errorf("%w: malformed %s %q", provider.ErrNoData, field, *v)
			}
		}
		return provider.Quote{
			Symbol: gq.Symbol,
			Price:  gq.Price,
			Change: gq.Change,
			Volume: gq.Volume,
		}, nil
	}

	switch {
	case resp.ErrorMessage != "":
		return provider.Quote{}, &provider.ProviderError{Provider: Name, Message: resp.ErrorMessage}
	case resp.Note != "":
		return provider.Quote{}, &provider.ProviderError{Provider: Name, Message: resp.Note}
	case resp.Information != "":
		return provider.Quote{}, &provider.ProviderError{Provider: Name, Message: resp.Information}
	}
	return provider.Quote{}, provider.ErrNoData
}
