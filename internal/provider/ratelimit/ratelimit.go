package ratelimit

import (
    "net/http"
    "sync"
    "time"
)

// HTTPClient is satisfied by *http.Client and by the provider clients' transports.
type HTTPClient interface {
    Do(req *http.Request) (*http.Response, error)
}

// MinInterval spaces requests at least Interval apart.
// Concurrent callers each claim the next free slot, or return early if the
// request context is canceled.
type MinInterval struct {
    Next     HTTPClient
    Interval time.Duration

    mu   sync.Mutex
    next time.Time
}

func (m *MinInterval) Do(req *http.Request) (*http.Response, error) {
    if m.Interval > 0 {
        m.mu.Lock()
        now := time.Now()
        slot := m.next
        if slot.Before(now) {
            slot = now
        }
        m.next = slot.Add(m.Interval)
        m.mu.Unlock()

        if wait := time.Until(slot); wait > 0 {
            t := time.NewTimer(wait)
            defer t.Stop()
            select {
            case <-req.Context().Done():
                return nil, req.Context().Err()
            case <-t.C:
            }
        }
    }
    return m.Next.Do(req)
}

// Options configures Wrap. Zero values disable the matching limiter.
// A token bucket takes precedence over a minimum interval.
type Options struct {
    RequestsPerMinute int
    Burst             int
    MinInterval       time.Duration
}

// Wrap decorates next with the limiters enabled in opts.
func Wrap(next HTTPClient, opts Options) HTTPClient {
    if opts.RequestsPerMinute > 0 {
        return &TokenBucketClient{Next: next, TB: PerMinute(opts.RequestsPerMinute, opts.Burst)}
    } else if opts.MinInterval > 0 {
        return &MinInterval{Next: next, Interval: opts.MinInterval}
    }
    return next
}
