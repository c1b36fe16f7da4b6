package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/model"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisSlotLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisSlotLocker(client *redis.Client) SlotLocker {
	return &redisSlotLocker{
		client: client,
		prefix: "roombook:",
	}
}

func (r *redisSlotLocker) Acquire(ctx context.Context, lock *model.BookingLock) error {
	lock.CreatedAt = time.Now()
	ttl := time.Until(lock.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := r.client.SetNX(ctx, r.prefix+lock.ID, lock.Owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrLockHeld, lock.ID)
	}
	return nil
}

func (r *redisSlotLocker) Release(ctx context.Context, lock *model.BookingLock) error {
	return releaseScript.Run(ctx, r.client, []string{r.prefix + lock.ID}, lock.Owner).Err()
}
