package doccache

import (
	"context"
	"sync"
	"time"
)

// Memory is a map-backed Cache for tests and short-lived processes.
//
// It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries map[Kind]map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	writtenAt time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the expiration window. Defaults to DefaultTTL.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-memory document cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[Kind]map[string]memoryEntry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// Get returns the cached document, or ok=false when missing or expired.
// Expired entries are left in place.
func (m *Memory) Get(_ context.Context, kind Kind, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[kind][key]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(entry.writtenAt) >= m.ttl {
		return nil, false, nil
	}
	doc := make([]byte, len(entry.data))
	copy(doc, entry.data)
	return doc, true, nil
}

// Put stores the document, overwriting any prior entry for the key.
func (m *Memory) Put(_ context.Context, kind Kind, key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[kind] == nil {
		m.entries[kind] = make(map[string]memoryEntry)
	}
	data := make([]byte, len(doc))
	copy(data, doc)
	m.entries[kind][key] = memoryEntry{data: data, writtenAt: m.now()}
	return nil
}

// Delete removes the entry for the key if present.
func (m *Memory) Delete(_ context.Context, kind Kind, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries[kind], key)
	return nil
}

// Len reports the number of live (unexpired) entries for a kind.
func (m *Memory) Len(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, entry := range m.entries[kind] {
		if m.now().Sub(entry.writtenAt) < m.ttl {
			n++
		}
	}
	return n
}

var _ Cache = (*Memory)(nil)
