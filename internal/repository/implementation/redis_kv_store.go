package implementation

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"

	"agentic-rag-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) contract.KVStore {
	return &RedisKVStore{client: client}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisKVStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.SetEx(ctx, key, value, ttl).Err()
}

func (s *RedisKVStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	// -2 for a missing key, -1 without expiry
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

func (s *RedisKVStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Keys walks the keyspace with SCAN instead of the blocking KEYS command.
func (s *RedisKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisKVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisKVStore) Info(ctx context.Context) (map[string]string, error) {
	raw, err := s.client.Info(ctx, "server", "clients", "memory").Result()
	if err != nil {
		return nil, err
	}
	return parseInfo(raw), nil
}

func parseInfo(raw string) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if ok {
			info[k] = v
		}
	}
	return info
}
