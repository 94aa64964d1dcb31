package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is the single-process Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	index   map[string]map[string]struct{}
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		index:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key Key, dest interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key.String()]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key.String())
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key Key, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.String()] = memoryEntry{payload: payload, expiresAt: s.now().Add(ttl)}
	idx := IndexKey(key.TenantID, key.Resource)
	if s.index[idx] == nil {
		s.index[idx] = make(map[string]struct{})
	}
	s.index[idx][key.String()] = struct{}{}
	return nil
}

func (s *MemoryStore) InvalidateResource(_ context.Context, tenantID string, resource Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := IndexKey(tenantID, resource)
	for k := range s.index[idx] {
		delete(s.entries, k)
	}
	delete(s.index, idx)
	return nil
}

// Len reports live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if s.now().Before(e.expiresAt) {
			n++
		}
	}
	return n
}
