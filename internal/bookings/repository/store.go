package repository

import (
	"context"
	"time"

	"roombook/pkg/model"
)

// BookingStore owns the durable booking records.
//
// LoadAll returns records in append order. UpdateStatus targets the Active
// record with the ID, falling back to any record with it, and is a no-op when
// the status already matches. Remove deletes the most recently appended Active
// record with the ID and returns nil when there is none.
type BookingStore interface {
	LoadAll(ctx context.Context) ([]*model.Booking, error)
	Append(ctx context.Context, booking *model.Booking) error
	UpdateStatus(ctx context.Context, id int, status model.BookingStatus) error
	Remove(ctx context.Context, id int) error
	Ping(ctx context.Context) error
}

// withTimeout shortens ctx to timeout unless its deadline is already sooner.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}
