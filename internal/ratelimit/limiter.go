// Package ratelimit bounds how many intents a single connection may submit
// per window. It is the only anti-cheat measure the server carries.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter answers whether a connection may perform another action right now.
// Implementations must treat unknown connections as fresh windows.
type Limiter interface {
	// Allow records one action for id and reports whether it stays within
	// the per-window budget.
	Allow(ctx context.Context, id string) bool
	// Forget drops all state held for id. Called when the owning connection
	// disconnects.
	Forget(ctx context.Context, id string)
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory is the default in-process fixed-window limiter: one counter and one
// reset deadline per connection.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*window

	limit  int
	period time.Duration
	now    func() time.Time
}

// NewMemory returns a limiter allowing at most limit actions per period.
func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.entries[id]
	if !ok || now.After(w.resetAt) {
		m.entries[id] = &window{count: 1, resetAt: now.Add(m.period)}
		return m.limit >= 1
	}
	w.count++
	return w.count <= m.limit
}

func (m *Memory) Forget(_ context.Context, id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}
