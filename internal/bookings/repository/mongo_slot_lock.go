package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/config"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

type mongoSlotLocker struct {
	collection *mongo.Collection
}

// NewMongoSlotLocker stores locks in a collection whose _id is the lock ID.
// A TTL index on expires_at removes abandoned locks.
func NewMongoSlotLocker(cfg *config.Config) SlotLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLocker{
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoSlotLocker) Acquire(ctx context.Context, lock *model.BookingLock) error {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so clear an expired holder here.
	result, delErr := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lte": lock.CreatedAt},
	})
	if delErr != nil || result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrLockHeld, lock.ID)
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrLockHeld, lock.ID)
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return nil
}

func (r *mongoSlotLocker) Release(ctx context.Context, lock *model.BookingLock) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "owner": lock.Owner})
	return err
}
