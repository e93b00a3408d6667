package memory

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/patrickmn/go-cache"
)

// KVStore is an in-process stand-in for Redis with the same TTL semantics.
type KVStore struct {
	cache *cache.Cache
}

func NewKVStore() *KVStore {
	// Purge expired items every 10 minutes
	c := cache.New(cache.NoExpiration, 10*time.Minute)
	return &KVStore{
		cache: c,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if x, found := s.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (s *KVStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *KVStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	_, exp, found := s.cache.GetWithExpiration(key)
	if !found || exp.IsZero() {
		return 0, false, nil
	}
	return time.Until(exp), true, nil
}

func (s *KVStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		s.cache.Delete(k)
	}
	return nil
}

func (s *KVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range s.cache.Items() {
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *KVStore) Info(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"redis_version":     "in-process",
		"connected_clients": "1",
		"used_memory_human": fmt.Sprintf("%d keys", s.cache.ItemCount()),
	}, nil
}
