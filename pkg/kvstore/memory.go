package kvstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps state in-process; it is lost on exit.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemory creates an empty in-process store.
// Entries never expire here; TTLs are enforced by the callers on read.
func NewMemory() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if x, found := m.cache.Get(key); found {
		return x.(string), nil
	}
	return "", ErrNotFound
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
