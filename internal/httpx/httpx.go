package httpx

import (
    "errors"
    "fmt"
    "net"
    "net/http"
    "net/url"
    "strings"
    "time"
)

// DefaultTimeout bounds every upstream call made through a Client.
const DefaultTimeout = 3 * time.Second

// Client is a small wrapper around http.Client shared by all upstream providers
// so connections to the same host are reused across requests.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

func New(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = DefaultTimeout }
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          100,
        MaxIdleConnsPerHost:   20,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   timeout,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: timeout,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "stocknews/1.0"}
}

// Do sends req, filling in the default User-Agent and headers when unset.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}

// secretParams are query parameters never written to logs.
var secretParams = []string{"apikey", "api_key", "token"}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
    if u == nil { return "" }
    q := u.Query()
    for k := range q {
        for _, s := range secretParams {
            if strings.EqualFold(k, s) {
                q.Set(k, "REDACTED")
            }
        }
    }
    cp := *u
    cp.RawQuery = q.Encode()
    return cp.String()
}

// RequestError drops the request URL that net/http embeds in a *url.Error.
// The URL carries the API key in its query, so the redacted form is kept instead.
func RequestError(err error) error {
    var ue *url.Error
    if !errors.As(err, &ue) { return err }
    u, perr := url.Parse(ue.URL)
    if perr != nil {
        return fmt.Errorf("%s: %w", ue.Op, ue.Err)
    }
    return fmt.Errorf("%s %q: %w", ue.Op, RedactURL(u), ue.Err)
}
