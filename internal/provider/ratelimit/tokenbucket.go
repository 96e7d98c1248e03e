package ratelimit

import (
    "context"
    "net/http"
    "sync"
    "time"
)

// TokenBucket is a token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
    rate     float64
    capacity float64
    now      func() time.Time

    mu     sync.Mutex
    tokens float64
    last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
    if tokensPerSecond <= 0 { tokensPerSecond = 0.0000001 }
    if burst <= 0 { burst = 1 }
    return &TokenBucket{
        rate:     tokensPerSecond,
        capacity: float64(burst),
        now:      time.Now,
        tokens:   float64(burst),
        last:     time.Now(),
    }
}

// PerMinute builds a bucket allowing rpm requests per minute with the given burst.
func PerMinute(rpm, burst int) *TokenBucket {
    return NewTokenBucket(float64(rpm)/60, burst)
}

// reserve takes a token if one is available, otherwise it reports how long
// until the next one.
func (tb *TokenBucket) reserve() time.Duration {
    tb.mu.Lock()
    defer tb.mu.Unlock()
    now := tb.now()
    if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
        tb.tokens += elapsed * tb.rate
        if tb.tokens > tb.capacity {
            tb.tokens = tb.capacity
        }
        tb.last = now
    }
    if tb.tokens >= 1 {
        tb.tokens -= 1
        return 0
    }
    d := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
    if d <= 0 { d = time.Millisecond }
    return d
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
    for {
        d := tb.reserve()
        if d == 0 {
            return nil
        }
        timer := time.NewTimer(d)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
    }
}

// TokenBucketClient gates an HTTPClient with a token bucket. The wait honours
// the request context, so an upstream timeout also bounds time spent queued.
type TokenBucketClient struct {
    Next HTTPClient
    TB   *TokenBucket
}

func (t *TokenBucketClient) Do(req *http.Request) (*http.Response, error) {
    if t.TB != nil {
        if err := t.TB.Wait(req.Context()); err != nil { return nil, err }
    }
    return t.Next.Do(req)
}
