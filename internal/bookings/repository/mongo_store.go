package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/config"
	"roombook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Bookings"

type mongoBookingStore struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingStore(cfg *config.Config) BookingStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingStore{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// LoadAll sorts by _id, which grows with insertion time.
func (r *mongoBookingStore) LoadAll(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingStore) Append(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingStore) UpdateStatus(ctx context.Context, id int, status model.BookingStatus) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"booking_id": id, "status": model.Active}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetProjection(bson.M{"_id": 1, "status": 1})
	var existing recordRef
	if err := r.collection.FindOne(ctx, bson.M{"booking_id": id}, opts).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %d", bookingserrors.ErrNotFound, id)
		}
		return fmt.Errorf("failed to find booking: %w", err)
	}
	if existing.Status == status {
		return nil
	}

	_, err = r.collection.UpdateOne(ctx, existing.filter(), update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// recordRef pins one stored document. Several documents may share a
// booking_id once cancelled records are kept, so updates address _id.
type recordRef struct {
	ObjectID primitive.ObjectID  `bson:"_id"`
	Status   model.BookingStatus `bson:"status"`
}

func (r recordRef) filter() bson.M {
	return bson.M{"_id": r.ObjectID}
}

func (r *mongoBookingStore) Remove(ctx context.Context, id int) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "_id", Value: -1}})
	err := r.collection.FindOneAndDelete(ctx, bson.M{"booking_id": id, "status": model.Active}, opts).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to remove booking: %w", err)
	}
	return nil
}

func (r *mongoBookingStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.collection.Database().Client().Ping(ctx, nil)
}
