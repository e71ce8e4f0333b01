// Package slotlock serializes bookings of one provider's day across service
// replicas with a Redis lease.
package slotlock

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
)

// Client is the subset of redis.UniversalClient the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a newer holder's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type Config struct {
	Prefix string
	// TTL bounds how long a crashed holder can block the slot.
	TTL time.Duration
	// Wait is how long Lock retries before giving up.
	Wait time.Duration
	// Retry is the pause between attempts.
	Retry time.Duration
}

type RedisLocker struct {
	rdb    Client
	cfg    Config
	logger *slog.Logger
}

func NewRedisLocker(rdb Client, cfg Config, logger *slog.Logger) *RedisLocker {
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = "slotlock"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisLocker{rdb: rdb, cfg: cfg, logger: logger}
}

// Lock acquires the lease for key, retrying until cfg.Wait elapses. A timeout
// is reported as apperr.Unavailable.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.cfg.Prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, apperr.Unavailable("slot lock unavailable").With("cause", err.Error())
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, apperr.Unavailable("the slot is being booked by another request, try again")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.Retry):
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.rdb.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
		l.logger.Warn("slot lock release failed", "key", redisKey, "err", err)
	}
}
