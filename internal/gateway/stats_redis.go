package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore persists rate-limit counters in Redis: a cumulative total
// hash plus minute-bucketed time series with a TTL.
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl applies to time-series and per-key hashes; the total is cumulative
	// and never expires.
	ttl time.Duration

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "gateway:ratelimit",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()

	totalKey := s.prefix + ":total"
	pipe.HIncrBy(ctx, totalKey, field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if ev.Method != "" || ev.Path != "" {
		routeField := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
		if routeField != "" {
			pipe.HIncrBy(ctx, s.prefix+":route", routeField+":"+field, 1)
		}
	}

	if s.trackKeys {
		if key := strings.TrimSpace(ev.Key); key != "" {
			keyKey := s.prefix + ":key:" + key
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
