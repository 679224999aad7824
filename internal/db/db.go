package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	HashStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	// HSetAtomic applies all items in one MULTI/EXEC transaction: either every hash is written or none.
	HSetAtomic(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// CounterStore keeps expiring integer counters.
type CounterStore interface {
	// IncrWithTTL adds delta to key and returns the new value. The key gets ttl only if it has
	// no expiry yet, so a busy counter still rolls over.
	IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// Counter reads key. A missing key is 0.
	Counter(ctx context.Context, key string) (int64, error)
}
