package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kailas-cloud/spendguard/internal/domain/activity"
)

// store is the consumer interface for activity counters (ISP).
type store interface {
	IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

// Store keeps per-account daily counters on top of DB (INCRBY + EXPIRE NX, GET).
type Store struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates an activity store.
// ttl is the lifetime of a daily key (recommended: 48h).
func New(s store, prefix string, ttl time.Duration) *Store {
	return &Store{store: s, prefix: prefix, ttl: ttl}
}

// Incr bumps the outcome counter of acc for day. The key expires ttl after its first write.
func (s *Store) Incr(ctx context.Context, acc common.Address, day string, o activity.Outcome) error {
	key := s.key(acc, day, o)
	if _, err := s.store.IncrWithTTL(ctx, key, 1, s.ttl); err != nil {
		return fmt.Errorf("activity incr %s: %w", key, err)
	}
	return nil
}

// Get returns the outcome counter of acc for day, 0 if nothing was counted.
func (s *Store) Get(ctx context.Context, acc common.Address, day string, o activity.Outcome) (int64, error) {
	key := s.key(acc, day, o)
	val, err := s.store.Counter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("activity get %s: %w", key, err)
	}
	return val, nil
}

// Keys follow the pattern {prefix}activity:{account}:daily:{YYYY-MM-DD}:{outcome}
func (s *Store) key(acc common.Address, day string, o activity.Outcome) string {
	return fmt.Sprintf("%sactivity:%s:daily:%s:%s", s.prefix, strings.ToLower(acc.Hex()), day, o)
}
