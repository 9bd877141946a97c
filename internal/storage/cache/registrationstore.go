// --- File: internal/storage/cache/registrationstore.go ---
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedRegistrationStore is a Decorator that adds Read-Aside caching to any
// RegistrationStore. Only found, well-formed records are cached; absence and
// store failures always go through to the real store, so the tri-state Get
// contract survives the decoration.
type CachedRegistrationStore struct {
	realStore dispatch.RegistrationStore
	cache     CacheClient
	ttl       time.Duration
}

// NewCachedRegistrationStore creates the decorator.
func NewCachedRegistrationStore(realStore dispatch.RegistrationStore, cache CacheClient, ttl time.Duration) *CachedRegistrationStore {
	return &CachedRegistrationStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- WRITE PATH (Invalidate-on-Write) ---

func (s *CachedRegistrationStore) Put(ctx context.Context, record invitation.Registration) error {
	// 1. Write to Source of Truth
	if err := s.realStore.Put(ctx, record); err != nil {
		return err
	}
	// 2. Invalidate Cache. The next Get is forced back to the real store, so
	// a re-registration from a new device takes effect immediately.
	return s.cache.Del(ctx, s.cacheKey(record.UserID))
}

// --- READ PATH (Read-Aside) ---

func (s *CachedRegistrationStore) Get(ctx context.Context, userID string) (*invitation.Registration, bool, error) {
	key := s.cacheKey(userID)

	// 1. Try Cache
	var cached invitation.Registration
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, true, nil
	}

	// 2. Fallback to Real Store
	record, found, err := s.realStore.Get(ctx, userID)
	if err != nil || !found {
		return record, found, err
	}

	// 3. Populate Cache (Fire and Forget)
	// Caching is an optimization, not a transaction. If Redis is down we
	// just keep serving from the real store.
	_ = s.cache.Set(ctx, key, record, s.ttl)

	return record, true, nil
}

func (s *CachedRegistrationStore) cacheKey(userID string) string {
	return fmt.Sprintf("invite:reg:%s", userID)
}
