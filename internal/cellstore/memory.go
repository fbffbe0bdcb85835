package cellstore

import (
	"sort"
	"sync"
)

// Memory is an in-memory implementation of Store. A single RWMutex guards
// the map; the key space of one cells object is small and reads dominate.
type Memory struct {
	mutex   sync.RWMutex
	entries map[string]slot
	seq     uint64
}

type slot struct {
	entry Entry
	seq   uint64
}

// New creates a new, empty in-memory cell store.
func New() *Memory {
	return &Memory{entries: make(map[string]slot)}
}

var _ Store = (*Memory)(nil)

// Get retrieves the entry stored under key.
func (m *Memory) Get(key string) (Entry, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.entries[key]
	return s.entry, ok
}

// Put records an entry. Replacing an entry keeps its enumeration position.
func (m *Memory) Put(e Entry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, ok := m.entries[e.Key]; ok {
		m.entries[e.Key] = slot{entry: e, seq: s.seq}
		return
	}
	m.seq++
	m.entries[e.Key] = slot{entry: e, seq: m.seq}
}

// Delete removes the entry under key.
func (m *Memory) Delete(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	return true
}

// Clear removes every entry.
func (m *Memory) Clear() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	keys := make([]string, 0, len(m.entries))
	for _, s := range m.sorted() {
		keys = append(keys, s.entry.Key)
	}
	m.entries = make(map[string]slot)
	return keys
}

// Entries returns a copy of all entries in insertion order.
func (m *Memory) Entries() []Entry {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, s := range m.sorted() {
		out = append(out, s.entry)
	}
	return out
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entries)
}

// sorted must be called with the mutex held.
func (m *Memory) sorted() []slot {
	slots := make([]slot, 0, len(m.entries))
	for _, s := range m.entries {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })
	return slots
}
