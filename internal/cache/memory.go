package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/edustack/campus-api/internal/apperr"
)

// Memory is an in-process Cache with a logical clock, intended for tests and
// local development. TTL expiry is driven by Advance, not wall time, so
// hit/miss/expiry behavior is deterministic.
type Memory struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	raw []byte
	exp time.Time // zero means no expiry
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty cache with its clock at a fixed epoch.
func NewMemory() *Memory {
	return &Memory{
		now:     time.Unix(0, 0).UTC(),
		entries: make(map[string]memoryEntry),
	}
}

// Advance moves the logical clock forward, expiring entries accordingly.
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Len reports the number of live (unexpired) entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.exp.IsZero() || m.now.Before(e.exp) {
			n++
		}
	}
	return n
}

// Has reports whether key holds a live entry.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return ok && (e.exp.IsZero() || m.now.Before(e.exp))
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.exp.IsZero() && !m.now.Before(e.exp) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dst); err != nil {
		return false, &apperr.CacheError{Op: "decode", Err: err}
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &apperr.CacheError{Op: "encode", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{raw: raw}
	if ttl > 0 {
		e.exp = m.now.Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
