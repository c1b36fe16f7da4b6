package postgres

import (
	"context"
	"fmt"

	"roombook/internal/bookings/repository"
	"roombook/pkg/logger"

	"github.com/uptrace/bun"
)

type index struct {
	name    string
	columns []string
}

var BookingsIndexes = []index{
	{name: "bookings_room_date_status_idx", columns: []string{"room", "date", "status"}},
	{name: "bookings_booking_id_idx", columns: []string{"booking_id"}},
}

// RunMigration creates the bookings table and its indexes. It is safe to
// run repeatedly.
func RunMigration(ctx context.Context, db bun.IDB, log *logger.Logger) error {
	log.Info("Running PostgreSQL migrations")

	if _, err := db.NewCreateTable().
		Model((*repository.BookingRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	for _, idx := range BookingsIndexes {
		q := db.NewCreateIndex().
			Model((*repository.BookingRow)(nil)).
			Index(idx.name).
			IfNotExists()
		for _, col := range idx.columns {
			q = q.Column(col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Info("Ensured index", "index", idx.name)
	}

	log.Info("All PostgreSQL migrations applied")
	return nil
}
