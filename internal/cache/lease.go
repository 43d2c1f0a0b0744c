// internal/cache/lease.go
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Renew and release only act while the key still names the caller.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLease stores the host lease of each match as a key with a TTL.
type RedisLease struct {
	rdb *redis.Client
}

func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb}
}

func leaseKey(matchID uuid.UUID) string {
	return "twentynine:match:" + matchID.String() + ":host"
}

func (l *RedisLease) Acquire(ctx context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, leaseKey(matchID), holder, ttl).Result()
	if err != nil || ok {
		return ok, err
	}
	return l.Renew(ctx, matchID, holder, ttl)
}

func (l *RedisLease) Renew(ctx context.Context, matchID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, l.rdb, []string{leaseKey(matchID)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLease) Release(ctx context.Context, matchID uuid.UUID, holder string) error {
	return releaseScript.Run(ctx, l.rdb, []string{leaseKey(matchID)}, holder).Err()
}
