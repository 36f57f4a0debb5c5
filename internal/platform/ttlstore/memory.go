package ttlstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned when Set is called with a non-positive TTL.
var ErrInvalidTTL = errors.New("ttl must be positive")

// defaultJanitorInterval is how often the memory store sweeps expired
// entries so the map does not grow without bound between reads.
const defaultJanitorInterval = time.Minute

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are treated as
// missing on read and physically removed by a background janitor. All state
// is lost on process restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	timeFunc func() time.Time // injectable for testing
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore and starts its janitor goroutine.
// Callers own the store's lifecycle and must Close it.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:  make(map[string]memoryEntry),
		timeFunc: time.Now,
		stopCh:   make(chan struct{}),
	}

	go s.janitor(defaultJanitorInterval)

	return s
}

// Set implements Store.Set.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: s.timeFunc().Add(ttl),
	}
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !s.timeFunc().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	return nil
}

// Len returns the number of live entries. Test and metrics helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.timeFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
