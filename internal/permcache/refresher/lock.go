package refresher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ispreport/internal/config"
)

var (
	errLockUnconfigured = errors.New("refresh_lock_unconfigured")
	errLockKey          = errors.New("refresh_lock_key_empty")
	errLockTTL          = errors.New("refresh_lock_ttl_invalid")
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// Locker lets one replica at a time run a refresh. The holder is identified
// by a random token so an expired holder cannot release a newer lease.
type Locker struct {
	client redis.UniversalClient
}

// NewRedisLocker is nil without REDIS_ADDR; every replica then refreshes on its own.
func NewRedisLocker(cfg config.Config) *Locker {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil
	}
	return NewLocker(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}))
}

func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// TryLock returns the lease token and whether the lease was taken.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errLockUnconfigured
	case key == "":
		return "", false, errLockKey
	case ttl <= 0:
		return "", false, errLockTTL
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return "", false, err
	}
	return token, true, nil
}

// Release is a no-op for an empty token or a lease now held by someone else.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return compareAndDelete.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *Locker) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
