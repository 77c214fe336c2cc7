package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/shadow-auth/domain"
)

// MemoryAttemptStore implements AttemptStore using ttlcache.
type MemoryAttemptStore struct {
	// mu serializes Update so that concurrent attempts for one identifier are not lost.
	mu    sync.Mutex
	cache *ttlcache.Cache[string, domain.LoginAttemptRecord]
	once  sync.Once
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)

// NewMemoryAttemptStore creates a new in-memory attempt store with automatic cleanup.
// defaultTTL applies to records written without an explicit ttl.
func NewMemoryAttemptStore(defaultTTL time.Duration) *MemoryAttemptStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, domain.LoginAttemptRecord](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, domain.LoginAttemptRecord](),
	)

	go cache.Start()

	return &MemoryAttemptStore{
		cache: cache,
	}
}

// Get implements AttemptStore.Get.
func (s *MemoryAttemptStore) Get(_ context.Context, identifier string) (*domain.LoginAttemptRecord, error) {
	return s.get(identifier), nil
}

func (s *MemoryAttemptStore) get(identifier string) *domain.LoginAttemptRecord {
	item := s.cache.Get(identifier)
	if item == nil {
		return nil
	}

	record := item.Value()
	return &record
}

// Update implements AttemptStore.Update.
func (s *MemoryAttemptStore) Update(_ context.Context, identifier string, ttl time.Duration, fn AttemptUpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := fn(s.get(identifier))
	if !changed {
		return nil
	}
	if next == nil {
		s.cache.Delete(identifier)
		return nil
	}

	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	next.Identifier = identifier
	s.cache.Set(identifier, *next, ttl)

	return nil
}

// Delete implements AttemptStore.Delete.
func (s *MemoryAttemptStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(identifier)

	return nil
}

// Count counts the number of records in the cache.
func (s *MemoryAttemptStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryAttemptStore) Close() error {
	s.once.Do(s.cache.Stop)

	return nil
}
