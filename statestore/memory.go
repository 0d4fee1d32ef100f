package statestore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store backed by go-cache. Suitable for
// single-instance hosts and tests; state does not survive restarts and is
// not shared across replicas.
type MemoryStore struct {
	mu    sync.Mutex // serializes SetNX check-then-set
	cache *gocache.Cache
}

// NewMemoryStore creates an in-process store. Expired entries are purged
// every five minutes.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

// Get returns the value for key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

// Set stores value under key for ttl.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.cache.Set(key, value, ttl)
	return nil
}

// SetNX stores value under key only when absent.
func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Add(key, value, ttl); err != nil {
		return ErrKeyExists
	}
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
