// Package cache provides the Redis-backed sunset cache.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sunsets caches computed sunset instants keyed by ZIP code and local
// date. Lookups are best-effort: backend errors are logged and treated
// as misses so the pipeline never depends on Redis being up.
type Sunsets struct {
	c   *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewSunsets connects to Redis at addr.
func NewSunsets(addr string, db int, ttl time.Duration, log *zap.Logger) *Sunsets {
	return &Sunsets{
		c:   redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl: ttl,
		log: log,
	}
}

// Close releases the underlying client.
func (s *Sunsets) Close() error { return s.c.Close() }

func key(zip string, date time.Time) string {
	return "sunset:" + zip + ":" + date.Format("2006-01-02")
}

func (s *Sunsets) Get(ctx context.Context, zip string, date time.Time) (time.Time, bool) {
	v, err := s.c.Get(ctx, key(zip, date)).Result()
	if err == redis.Nil {
		return time.Time{}, false
	}
	if err != nil {
		s.log.Warn("sunset cache get", zap.String("zip", zip), zap.Error(err))
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		s.log.Warn("sunset cache parse", zap.String("zip", zip), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}

func (s *Sunsets) Put(ctx context.Context, zip string, date time.Time, sunset time.Time) {
	if err := s.c.Set(ctx, key(zip, date), sunset.UTC().Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		s.log.Warn("sunset cache put", zap.String("zip", zip), zap.Error(err))
	}
}
