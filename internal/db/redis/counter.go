package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/spendguard/internal/db"
)

// IncrWithTTL sends INCRBY and EXPIRE NX in one DoMulti round-trip.
func (s *Store) IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	results := s.client.DoMulti(ctx,
		s.b().Incrby().Key(key).Increment(delta).Build(),
		s.b().Expire().Key(key).Seconds(int64(ttl/time.Second)).Nx().Build(),
	)

	val, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	if err := results[1].Error(); err != nil {
		return val, &db.Error{Op: db.OpExpire, Err: err}
	}
	return val, nil
}

// Counter reads an integer counter; nil replies count as 0.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	raw, err := s.do(ctx, s.b().Get().Key(key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	return val, nil
}
