package contract

import (
	"context"
	"time"
)

// KVStore is the TTL key-value capability memory is persisted in.
type KVStore interface {
	// Get reports found=false for a missing or expired key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// TTL reports ok=false when the key is missing or has no expiry.
	TTL(ctx context.Context, key string) (remaining time.Duration, ok bool, err error)
	Del(ctx context.Context, keys ...string) error
	// Keys lists keys matching a glob pattern such as "long_term:u1:*".
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
	Info(ctx context.Context) (map[string]string, error)
}
