package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const orderLockRetry = 50 * time.Millisecond

// OrderLock serializes callback processing per order reference across
// instances. It satisfies systempay.Locker.
type OrderLock struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewOrderLock creates a lock whose keys expire after ttl.
func NewOrderLock(redis *RedisClient, ttl time.Duration) *OrderLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OrderLock{redis: redis, ttl: ttl}
}

func (l *OrderLock) key(reference string) string {
	return "systempay:lock:" + reference
}

// Lock blocks until the reference is free or ctx is done.
func (l *OrderLock) Lock(ctx context.Context, reference string) (func(), error) {
	key := l.key(reference)
	token := uuid.NewString()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-time.After(orderLockRetry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *OrderLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	released, err := l.redis.DeleteIfEquals(ctx, key, token)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to release order lock")
		return
	}
	if !released {
		log.Warn().Str("key", key).Dur("ttl", l.ttl).Msg("Order lock expired before release")
	}
}
