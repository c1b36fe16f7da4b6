package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/model"
)

// SlotLocker serialises booking creation per (room, date). Acquire returns
// ErrLockHeld when another owner holds an unexpired lock with the same ID.
// Release only removes a lock still owned by lock.Owner.
type SlotLocker interface {
	Acquire(ctx context.Context, lock *model.BookingLock) error
	Release(ctx context.Context, lock *model.BookingLock) error
}

func SlotLockID(room, date string) string {
	return fmt.Sprintf("booking_lock_%s_%s", room, date)
}

// LocalSlotLocker guards a single process.
type LocalSlotLocker struct {
	mu    sync.Mutex
	locks map[string]model.BookingLock
	now   func() time.Time
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{
		locks: make(map[string]model.BookingLock),
		now:   time.Now,
	}
}

func (l *LocalSlotLocker) Acquire(ctx context.Context, lock *model.BookingLock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[lock.ID]; ok && now.Before(held.ExpiresAt) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrLockHeld, lock.ID)
	}

	lock.CreatedAt = now
	l.locks[lock.ID] = *lock
	return nil
}

func (l *LocalSlotLocker) Release(_ context.Context, lock *model.BookingLock) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[lock.ID]; ok && held.Owner == lock.Owner {
		delete(l.locks, lock.ID)
	}
	return nil
}
