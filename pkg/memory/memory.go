// Package memory is a bounded transcript buffer agents carry between turns.
package memory

import "sync"

type Memory struct {
	entries  []string
	capacity int
	mu       sync.RWMutex
}

func NewMemory(capacity int) *Memory {
	return &Memory{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Store appends one entry, evicting the oldest when over capacity.
func (m *Memory) Store(entry string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[1:]
	}
}

// All returns a copy of the stored entries, oldest first.
func (m *Memory) All() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear drops everything, e.g. between episodes.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = m.entries[:0]
}
