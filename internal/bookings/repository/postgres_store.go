package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/config"
	"roombook/pkg/model"

	"github.com/uptrace/bun"
)

// BookingRow is the bookings table. Seq records append order.
type BookingRow struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	Seq       int64     `bun:"seq,pk,autoincrement"`
	BookingID int       `bun:"booking_id,notnull"`
	Date      string    `bun:"date,notnull"`
	StartTime string    `bun:"start_time,notnull"`
	EndTime   string    `bun:"end_time,notnull"`
	Room      string    `bun:"room,notnull"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	Title     string    `bun:"description,notnull"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func rowFromBooking(b *model.Booking) *BookingRow {
	return &BookingRow{
		BookingID: b.ID,
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Room:      b.Room,
		Name:      b.Name,
		Email:     b.Email,
		Title:     b.Title,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
}

func (r *BookingRow) toBooking() *model.Booking {
	status, ok := model.ParseStatus(r.Status)
	if !ok {
		status = model.BookingStatus(r.Status)
	}
	return &model.Booking{
		ID:        r.BookingID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Room:      r.Room,
		Name:      r.Name,
		Email:     r.Email,
		Title:     r.Title,
		Status:    status,
		CreatedAt: r.CreatedAt,
	}
}

type postgresBookingStore struct {
	cfg *config.Config
	db  *bun.DB
}

func NewPostgresBookingStore(cfg *config.Config) BookingStore {
	return &postgresBookingStore{
		cfg: cfg,
		db:  cfg.Client.Postgres,
	}
}

func (r *postgresBookingStore) LoadAll(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var rows []BookingRow
	if err := r.db.NewSelect().Model(&rows).OrderExpr("seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, rows[i].toBooking())
	}
	return bookings, nil
}

func (r *postgresBookingStore) Append(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(rowFromBooking(booking)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresBookingStore) UpdateStatus(ctx context.Context, id int, status model.BookingStatus) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row BookingRow
		err := tx.NewSelect().
			Model(&row).
			Where("booking_id = ?", id).
			OrderExpr("(status = ?) DESC, seq DESC", string(model.Active)).
			Limit(1).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return fmt.Errorf("%w: %d", bookingserrors.ErrNotFound, id)
			}
			return fmt.Errorf("failed to find booking: %w", err)
		}
		if row.Status == string(status) {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*BookingRow)(nil)).
			Set("status = ?", string(status)).
			Where("seq = ?", row.Seq).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		return nil
	})
}

func (r *postgresBookingStore) Remove(ctx context.Context, id int) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	latest := r.db.NewSelect().
		Model((*BookingRow)(nil)).
		Column("seq").
		Where("booking_id = ?", id).
		Where("status = ?", string(model.Active)).
		OrderExpr("seq DESC").
		Limit(1)

	_, err := r.db.NewDelete().
		Model((*BookingRow)(nil)).
		Where("seq = (?)", latest).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove booking: %w", err)
	}
	return nil
}

func (r *postgresBookingStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
