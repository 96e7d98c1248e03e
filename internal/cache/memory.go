package cache

import (
    "context"
    "slices"
    "sync"
    "time"
)

type entry struct {
    expiresAt time.Time
    value     []byte
}

// Memory is an in-process Store. MaxItems bounds the number of entries;
// expired entries are evicted first, then arbitrary ones.
type Memory struct {
    MaxItems int
    // Now is the clock used for expiry. Defaults to time.Now.
    Now func() time.Time

    mu    sync.RWMutex
    items map[string]entry
}

func NewMemory(maxItems int) *Memory {
    return &Memory{MaxItems: maxItems, Now: time.Now, items: make(map[string]entry)}
}

func (m *Memory) now() time.Time {
    if m.Now == nil { return time.Now() }
    return m.Now()
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
    m.mu.RLock()
    e, ok := m.items[key]
    m.mu.RUnlock()
    if !ok || !m.now().Before(e.expiresAt) {
        return nil, false, nil
    }
    return slices.Clone(e.value), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
    if ttl <= 0 { return nil }
    now := m.now()

    m.mu.Lock()
    defer m.mu.Unlock()
    if m.items == nil { m.items = make(map[string]entry) }
    m.items[key] = entry{expiresAt: now.Add(ttl), value: slices.Clone(value)}

    if m.MaxItems > 0 && len(m.items) > m.MaxItems {
        for k, v := range m.items {
            if len(m.items) <= m.MaxItems { break }
            if !now.Before(v.expiresAt) {
                delete(m.items, k)
            }
        }
        for k := range m.items {
            if len(m.items) <= m.MaxItems { break }
            if k == key { continue }
            delete(m.items, k)
        }
    }
    return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return len(m.items)
}

func (m *Memory) Close() error { return nil }
