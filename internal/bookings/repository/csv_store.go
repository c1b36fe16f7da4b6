package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	colID          = "booking_id"
	colDate        = "date"
	colStartTime   = "start_time"
	colEndTime     = "end_time"
	colRoom        = "room"
	colName        = "name"
	colEmail       = "email"
	colDescription = "description"
	colStatus      = "status"
)

var csvHeader = []string{colID, colDate, colStartTime, colEndTime, colRoom, colName, colEmail, colDescription, colStatus}

// CSVBookingStore keeps bookings in a single CSV file and rewrites the whole
// file on every mutation. With hardDelete a cancellation removes the row
// instead of flipping its status.
type CSVBookingStore struct {
	mu         sync.Mutex
	path       string
	hardDelete bool
	log        *logger.Logger
}

func NewCSVBookingStore(path string, hardDelete bool, log *logger.Logger) *CSVBookingStore {
	return &CSVBookingStore{
		path:       path,
		hardDelete: hardDelete,
		log:        log,
	}
}

func (s *CSVBookingStore) LoadAll(ctx context.Context) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

func (s *CSVBookingStore) Append(ctx context.Context, booking *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	bookings, err := s.read()
	if err != nil {
		return err
	}
	return s.write(append(bookings, booking))
}

func (s *CSVBookingStore) UpdateStatus(ctx context.Context, id int, status model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	bookings, err := s.read()
	if err != nil {
		return err
	}

	idx := findByID(bookings, id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", bookingserrors.ErrNotFound, id)
	}

	if s.hardDelete && status == model.Cancelled {
		if !bookings[idx].IsActive() {
			return nil
		}
		return s.write(append(bookings[:idx], bookings[idx+1:]...))
	}

	if bookings[idx].Status == status {
		return nil
	}
	bookings[idx].Status = status
	return s.write(bookings)
}

func (s *CSVBookingStore) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	bookings, err := s.read()
	if err != nil {
		return err
	}

	for i := len(bookings) - 1; i >= 0; i-- {
		if bookings[i].ID == id && bookings[i].IsActive() {
			return s.write(append(bookings[:i], bookings[i+1:]...))
		}
	}
	return nil
}

// Ping checks that the file, or its directory when the file does not exist
// yet, is reachable.
func (s *CSVBookingStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// findByID prefers the Active record, then the latest record with the ID.
func findByID(bookings []*model.Booking, id int) int {
	found := -1
	for i, b := range bookings {
		if b.ID != id {
			continue
		}
		if b.IsActive() {
			return i
		}
		found = i
	}
	return found
}

func (s *CSVBookingStore) read() ([]*model.Booking, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open booking file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read booking file header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvHeader[:len(csvHeader)-1] {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrStoreHeader, required)
		}
	}

	var bookings []*model.Booking
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read booking file line %d: %w", line, err)
		}

		b, err := parseRecord(record, cols)
		if err != nil {
			s.log.Warn("Skipping malformed booking row", "path", s.path, "line", line, "error", err)
			continue
		}
		bookings = append(bookings, b)
	}

	return bookings, nil
}

func parseRecord(record []string, cols map[string]int) (*model.Booking, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id, err := strconv.Atoi(field(colID))
	if err != nil {
		return nil, fmt.Errorf("%w: booking_id %q", bookingserrors.ErrMalformedRecord, field(colID))
	}
	status, ok := model.ParseStatus(field(colStatus))
	if !ok {
		return nil, fmt.Errorf("%w: status %q", bookingserrors.ErrMalformedRecord, field(colStatus))
	}

	return &model.Booking{
		ID:        id,
		Date:      field(colDate),
		StartTime: field(colStartTime),
		EndTime:   field(colEndTime),
		Room:      field(colRoom),
		Name:      field(colName),
		Email:     field(colEmail),
		Title:     field(colDescription),
		Status:    status,
	}, nil
}

// write replaces the file atomically through a temp file in the same directory.
func (s *CSVBookingStore) write(bookings []*model.Booking) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create booking directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bookings-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp booking file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write booking header: %w", err)
	}
	for _, b := range bookings {
		row := []string{
			strconv.Itoa(b.ID), b.Date, b.StartTime, b.EndTime,
			b.Room, b.Name, b.Email, b.Title, string(b.Status),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write booking %d: %w", b.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush booking file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync booking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close booking file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace booking file: %w", err)
	}
	return nil
}
