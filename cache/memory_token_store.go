package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/shadow-auth/domain"
	serrors "github.com/pilab-dev/shadow-auth/errors"
)

// MemoryRefreshTokenStore implements domain.RefreshTokenRepository using ttlcache.
// Records are keyed by token ID and expire with their refresh token.
type MemoryRefreshTokenStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, domain.RefreshTokenRecord]
	once  sync.Once
	now   func() time.Time
}

var _ domain.RefreshTokenRepository = (*MemoryRefreshTokenStore)(nil)

// NewMemoryRefreshTokenStore creates a new in-memory refresh token store with automatic cleanup.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, domain.RefreshTokenRecord](),
	)

	go cache.Start()

	return &MemoryRefreshTokenStore{
		cache: cache,
		now:   time.Now,
	}
}

// StoreRefreshToken implements domain.RefreshTokenRepository.
func (s *MemoryRefreshTokenStore) StoreRefreshToken(_ context.Context, record *domain.RefreshTokenRecord) error {
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(record.TokenID, *record, ttl)

	return nil
}

// GetRefreshToken implements domain.RefreshTokenRepository.
func (s *MemoryRefreshTokenStore) GetRefreshToken(_ context.Context, tokenID string) (*domain.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(tokenID)
	if item == nil {
		return nil, serrors.ErrNotFound
	}

	record := item.Value()
	return &record, nil
}

// RevokeRefreshToken implements domain.RefreshTokenRepository.
func (s *MemoryRefreshTokenStore) RevokeRefreshToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(tokenID)
	if item == nil {
		return serrors.ErrNotFound
	}
	s.revoke(item)

	return nil
}

// RevokeAllForSubject implements domain.RefreshTokenRepository.
func (s *MemoryRefreshTokenStore) RevokeAllForSubject(_ context.Context, subjectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for _, item := range s.cache.Items() {
		record := item.Value()
		if record.SubjectID != subjectID || record.IsRevoked {
			continue
		}
		s.revoke(item)
		revoked++
	}

	return revoked, nil
}

// revoke rewrites the item as revoked, keeping its remaining lifetime.
func (s *MemoryRefreshTokenStore) revoke(item *ttlcache.Item[string, domain.RefreshTokenRecord]) {
	record := item.Value()
	if record.IsRevoked {
		return
	}

	now := s.now()
	record.IsRevoked = true
	record.RevokedAt = &now

	ttl := time.Until(item.ExpiresAt())
	if ttl <= 0 {
		return
	}
	s.cache.Set(item.Key(), record, ttl)
}

// DeleteExpired removes all expired records from the cache.
func (s *MemoryRefreshTokenStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.cache.Len()
	s.cache.DeleteExpired()

	return before - s.cache.Len(), nil
}

// Count counts the number of records in the cache.
func (s *MemoryRefreshTokenStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryRefreshTokenStore) Close() error {
	s.once.Do(s.cache.Stop)

	return nil
}
