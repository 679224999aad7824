// Package memory is an in-process db.Store for tests, the embedded SDK and the memory driver.
package memory

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/spendguard/internal/db"
)

var _ db.Store = (*Store)(nil)

type entry struct {
	hash     map[string]string
	counter  int64
	expireAt time.Time
}

// Store keeps hashes and counters in a map guarded by one mutex.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]*entry), now: time.Now}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// HSetAtomic merges every item under a single lock acquisition.
func (s *Store) HSetAtomic(_ context.Context, items []db.HashSetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.hset(item.Key, item.Fields)
	}
	return nil
}

// HGetAll returns a copy of the hash at key, empty if missing.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hgetAll(key), nil
}

// HGetAllMulti returns copies of every hash, in key order.
func (s *Store) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = s.hgetAll(k)
	}
	return out, nil
}

// Scan returns every key matching the glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if s.get(k) == nil {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// IncrWithTTL adds delta to the counter at key; ttl applies only to a key without expiry.
func (s *Store) IncrWithTTL(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(key)
	if e == nil {
		e = &entry{}
		s.data[key] = e
	}
	e.counter += delta
	if e.expireAt.IsZero() {
		e.expireAt = s.now().Add(ttl)
	}
	return e.counter, nil
}

// Counter returns the counter at key, 0 if missing or expired.
func (s *Store) Counter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.get(key); e != nil {
		return e.counter, nil
	}
	return 0, nil
}

func (s *Store) get(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *Store) hset(key string, fields map[string]string) {
	e := s.get(key)
	if e == nil {
		e = &entry{}
		s.data[key] = e
	}
	if e.hash == nil {
		e.hash = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		e.hash[k] = v
	}
}

func (s *Store) hgetAll(key string) map[string]string {
	out := map[string]string{}
	e := s.get(key)
	if e == nil {
		return out
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out
}
