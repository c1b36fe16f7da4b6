package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/notifier"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	"roombook/pkg/availability"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"roombook/pkg/slots"

	"github.com/google/uuid"
)

const (
	MinBookingID = 1000
	MaxBookingID = 9999

	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond

	// Appends that lost an ID race are retried with a fresh ID this many times.
	writeAttempts = 3
)

type BookingService interface {
	Create(ctx context.Context, input *model.BookingInput) (*CreateResult, error)
	Cancel(ctx context.Context, id int, email string) (*CancelResult, error)
	List(ctx context.Context, filter model.ListFilter) ([]*model.Booking, error)
	AvailableRooms(ctx context.Context, date, start, end string) ([]model.Room, error)
	StartTimes(ctx context.Context, date string) ([]string, error)
	EndTimes(start string) ([]string, error)
	Rooms() []model.Room
}

// CreateResult carries the stored booking. NotificationError is set when the
// booking was saved but the participants could not be told about it.
type CreateResult struct {
	Booking           *model.Booking
	NotificationError error
}

func (r *CreateResult) Warnings() []string {
	return warnings(r.NotificationError)
}

type CancelResult struct {
	Booking           *model.Booking
	NotificationError error
}

func (r *CancelResult) Warnings() []string {
	return warnings(r.NotificationError)
}

func warnings(notificationErr error) []string {
	if notificationErr == nil {
		return nil
	}
	return []string{apperrors.CodeNotificationFailed + ": " + notificationErr.Error()}
}

type bookingService struct {
	store     repository.BookingStore
	locker    repository.SlotLocker
	notifier  notifier.Notifier
	validator *validator.BookingValidator
	cfg       *config.Config

	now    func() time.Time
	randID func() int
}

func NewBookingService(
	store repository.BookingStore,
	locker repository.SlotLocker,
	notifier notifier.Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		store:     store,
		locker:    locker,
		notifier:  notifier,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
		randID: func() int {
			return MinBookingID + rand.Intn(MaxBookingID-MinBookingID+1)
		},
	}
}

func (s *bookingService) Create(ctx context.Context, input *model.BookingInput) (*CreateResult, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("Booking input cannot be empty")
	}

	valid, err := s.validator.Validate(input, s.now())
	if err != nil {
		return nil, s.validationError("Booking validation failed", err)
	}
	booking := valid.Booking()

	_, idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if !idx.IsAvailable(booking.Date, booking.Room, valid.Interval) {
		return nil, s.unavailable(booking, valid.Interval)
	}

	lock, err := s.acquireSlotLock(ctx, booking.Room, booking.Date)
	if err != nil {
		return nil, err
	}
	defer s.releaseSlotLock(lock)

	if err := s.write(ctx, booking, valid.Interval); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"room", booking.Room,
		"date", booking.Date,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	return &CreateResult{
		Booking:           booking,
		NotificationError: s.notify(ctx, s.notifier.NotifyCreated, booking),
	}, nil
}

// write appends booking under the slot lock and then re-reads the store to
// catch writers that bypassed the lock. The younger of two clashing records
// yields.
func (s *bookingService) write(ctx context.Context, booking *model.Booking, iv availability.Interval) error {
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		bookings, idx, err := s.loadIndex(ctx)
		if err != nil {
			return err
		}
		if !idx.IsAvailable(booking.Date, booking.Room, iv) {
			return s.unavailable(booking, iv)
		}

		id, err := s.allocateID(bookings)
		if err != nil {
			return err
		}
		booking.ID = id
		booking.CreatedAt = s.now().UTC()

		if err := s.store.Append(ctx, booking); err != nil {
			s.cfg.Log.Error("Failed to append booking", "booking_id", id, "error", err)
			return apperrors.StoreFailure("Failed to save booking", err)
		}

		clash, err := s.verifyWrite(ctx, booking, iv)
		if err != nil {
			return err
		}
		switch clash {
		case clashNone:
			return nil
		case clashSlot:
			if err := s.rollback(ctx, booking); err != nil {
				return apperrors.StoreFailure("Failed to withdraw a booking that lost its slot", err).
					WithDetails(rollbackDetails(booking.ID, err))
			}
			return s.unavailable(booking, iv)
		case clashID:
			s.cfg.Log.Warn("Booking ID collided with a concurrent write, retrying",
				"booking_id", id,
				"attempt", attempt,
			)
			if err := s.rollback(ctx, booking); err != nil {
				return apperrors.StoreFailure("Failed to withdraw a booking with a duplicate ID", err).
					WithDetails(rollbackDetails(booking.ID, err))
			}
		}
	}

	return apperrors.IDExhausted("Could not assign a unique booking ID")
}

type clash int

const (
	clashNone clash = iota
	clashSlot
	clashID
)

func (s *bookingService) verifyWrite(ctx context.Context, booking *model.Booking, iv availability.Interval) (clash, error) {
	bookings, err := s.store.LoadAll(ctx)
	if err != nil {
		rbErr := s.rollback(ctx, booking)
		return clashNone, apperrors.StoreFailure("Failed to verify saved booking", err).
			WithDetails(rollbackDetails(booking.ID, rbErr))
	}

	self := -1
	for i := len(bookings) - 1; i >= 0; i-- {
		if sameRecord(bookings[i], booking) {
			self = i
			break
		}
	}
	if self < 0 {
		rbErr := s.rollback(ctx, booking)
		return clashNone, apperrors.StoreFailure("Saved booking could not be read back", nil).
			WithDetails(rollbackDetails(booking.ID, rbErr))
	}

	for _, other := range bookings[:self] {
		if !other.IsActive() {
			continue
		}
		if other.ID == booking.ID {
			return clashID, nil
		}
		if other.Date != booking.Date || sanitizer.NormalizeKey(other.Room) != sanitizer.NormalizeKey(booking.Room) {
			continue
		}
		otherIv, err := availability.NewInterval(other.StartTime, other.EndTime)
		if err != nil {
			continue
		}
		if availability.Overlaps(otherIv, iv) {
			return clashSlot, nil
		}
	}
	return clashNone, nil
}

func sameRecord(a, b *model.Booking) bool {
	return a.IsActive() &&
		a.ID == b.ID &&
		a.Date == b.Date &&
		a.Room == b.Room &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		a.Email == b.Email
}

// rollback removes a record this request appended. It outlives the request
// deadline so an abandoned request does not leave the slot held.
func (s *bookingService) rollback(ctx context.Context, booking *model.Booking) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LockTTL)
	defer cancel()

	if err := s.store.Remove(rctx, booking.ID); err != nil {
		s.cfg.Log.Error("Failed to roll back booking", "booking_id", booking.ID, "error", err)
		return err
	}
	return nil
}

func rollbackDetails(id int, err error) map[string]any {
	details := map[string]any{"booking_id": id, "rolled_back": err == nil}
	if err != nil {
		details["rollback_error"] = err.Error()
	}
	return details
}

// allocateID draws random IDs first and falls back to a scan so a crowded ID
// space still yields a free ID when one exists.
func (s *bookingService) allocateID(bookings []*model.Booking) (int, error) {
	used := make(map[int]struct{}, len(bookings))
	for _, b := range bookings {
		if b.IsActive() {
			used[b.ID] = struct{}{}
		}
	}

	for i := 0; i < s.cfg.IDMaxAttempts; i++ {
		id := s.randID()
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}

	for id := MinBookingID; id <= MaxBookingID; id++ {
		if _, taken := used[id]; !taken {
			s.cfg.Log.Warn("Random booking ID attempts exhausted, fell back to scan", "booking_id", id)
			return id, nil
		}
	}

	s.cfg.Log.Error("No free booking IDs left", "active_bookings", len(used))
	return 0, apperrors.IDExhausted(fmt.Sprintf("All booking IDs between %d and %d are in use", MinBookingID, MaxBookingID))
}

func (s *bookingService) Cancel(ctx context.Context, id int, email string) (*CancelResult, error) {
	bookings, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var target *model.Booking
	for _, b := range bookings {
		if b.ID == id && b.IsActive() {
			target = b
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}

	if sanitizer.NormalizeEmail(email) != sanitizer.NormalizeEmail(target.Email) {
		s.cfg.Log.Warn("Booking cancellation rejected, email mismatch", "booking_id", id)
		return nil, apperrors.Forbidden("Email does not match the booking")
	}

	if err := s.store.UpdateStatus(ctx, id, model.Cancelled); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to cancel booking", "booking_id", id, "error", err)
		return nil, apperrors.StoreFailure("Failed to cancel booking", err)
	}
	target.Status = model.Cancelled

	s.cfg.Log.Info("Booking cancelled successfully", "booking_id", id, "room", target.Room, "date", target.Date)

	return &CancelResult{
		Booking:           target,
		NotificationError: s.notify(ctx, s.notifier.NotifyCancelled, target),
	}, nil
}

func (s *bookingService) List(ctx context.Context, filter model.ListFilter) ([]*model.Booking, error) {
	bookings, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.validator.Location())
	out := make([]*model.Booking, 0, len(bookings))

	for _, b := range bookings {
		switch filter {
		case model.FilterAll, "":
			out = append(out, b)
		case model.FilterActive:
			if b.IsActive() {
				out = append(out, b)
			}
		case model.FilterUpcoming, model.FilterPast:
			start, ok := s.startOf(b)
			if !ok {
				s.cfg.Log.Warn("Skipping booking with unreadable date or time", "booking_id", b.ID)
				continue
			}
			if filter == model.FilterUpcoming && b.IsActive() && start.After(now) {
				out = append(out, b)
			}
			// Past includes cancelled bookings.
			if filter == model.FilterPast && !start.After(now) {
				out = append(out, b)
			}
		default:
			return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown filter %q", filter))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})

	s.cfg.Log.Debug("Bookings listed", "filter", filter, "count", len(out))
	return out, nil
}

func (s *bookingService) startOf(b *model.Booking) (time.Time, bool) {
	loc := s.validator.Location()
	day, err := slots.ParseDate(b.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	start, err := slots.Parse(b.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	return start.On(day, loc), true
}

func (s *bookingService) AvailableRooms(ctx context.Context, date, start, end string) ([]model.Room, error) {
	day, iv, err := s.validator.ValidateSlot(date, start, end, s.now())
	if err != nil {
		return nil, s.validationError("Invalid time slot", err)
	}

	_, idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	rooms := idx.FreeRooms(day.Format(slots.DateLayout), iv, s.validator.Catalog().Rooms())
	s.cfg.Log.Debug("Available rooms computed", "date", date, "interval", iv.String(), "count", len(rooms))
	return rooms, nil
}

func (s *bookingService) StartTimes(_ context.Context, date string) ([]string, error) {
	loc := s.validator.Location()
	now := s.now().In(loc)

	day, err := slots.ParseDate(date, loc)
	if err != nil {
		return nil, apperrors.Validation("date must be in YYYY-MM-DD format", single("date", "date must be in YYYY-MM-DD format"))
	}
	if day.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)) {
		return nil, apperrors.Validation("date cannot be in the past", single("date", "date cannot be in the past"))
	}

	return shortTimes(s.validator.Generator().StartTimesFrom(day, now)), nil
}

func (s *bookingService) EndTimes(start string) ([]string, error) {
	g := s.validator.Generator()
	t, err := slots.Parse(start)
	if err != nil || !g.Aligned(t) {
		msg := fmt.Sprintf("start_time must be HH:MM on a %d-minute boundary", g.Granularity)
		return nil, apperrors.Validation(msg, single("start_time", msg))
	}
	return shortTimes(g.EndTimes(t)), nil
}

func (s *bookingService) Rooms() []model.Room {
	return s.validator.Catalog().Rooms()
}

// --- Helpers ---

func (s *bookingService) loadAll(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := s.store.LoadAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "error", err)
		return nil, apperrors.StoreFailure("Failed to load bookings", err)
	}
	return bookings, nil
}

// loadIndex rebuilds the availability index from the store. Problem records
// are logged and left out.
func (s *bookingService) loadIndex(ctx context.Context) ([]*model.Booking, *availability.Index, error) {
	bookings, err := s.loadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	idx, problems := availability.Build(bookings)
	for _, p := range problems {
		s.cfg.Log.Warn("Ignoring booking while building availability", "error", p)
	}
	return bookings, idx, nil
}

func (s *bookingService) acquireSlotLock(ctx context.Context, room, date string) (*model.BookingLock, error) {
	lock := &model.BookingLock{
		ID:    repository.SlotLockID(room, date),
		Owner: uuid.New().String(),
	}

	for attempt := 1; ; attempt++ {
		lock.ExpiresAt = time.Now().Add(s.cfg.LockTTL)

		err := s.locker.Acquire(ctx, lock)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			s.cfg.Log.Error("Failed to acquire booking lock", "lock_id", lock.ID, "error", err)
			return nil, apperrors.StoreFailure("Failed to acquire booking lock", err)
		}
		if attempt == lockAttempts {
			return nil, apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Timeout("Timed out waiting for the booking lock")
		case <-time.After(lockRetryDelay * time.Duration(attempt)):
		}
	}
}

func (s *bookingService) releaseSlotLock(lock *model.BookingLock) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
	defer cancel()

	if err := s.locker.Release(ctx, lock); err != nil {
		s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lock.ID, "error", err)
	}
}

// notify runs outside the request deadline so that a slow client does not
// cost participants their email.
func (s *bookingService) notify(ctx context.Context, send func(context.Context, *model.Booking) error, booking *model.Booking) error {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := send(nctx, booking); err != nil {
		s.cfg.Log.Warn("Booking notification failed", "booking_id", booking.ID, "error", err)
		return err
	}
	return nil
}

func (s *bookingService) unavailable(booking *model.Booking, iv availability.Interval) error {
	s.cfg.Log.Info("Booking rejected, slot unavailable",
		"room", booking.Room,
		"date", booking.Date,
		"interval", iv.String(),
	)
	return apperrors.SlotUnavailable(
		fmt.Sprintf("%s is already booked on %s between %s and %s", booking.Room, booking.Date, iv.Start.Short(), iv.End.Short()),
		map[string]any{"room": booking.Room, "date": booking.Date, "start_time": iv.Start.Short(), "end_time": iv.End.Short()},
	)
}

func (s *bookingService) validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		s.cfg.Log.Warn(message, "field", verrs[0].Field, "error", verrs[0].Message)
		return apperrors.Validation(verrs[0].Message, verrs.Details())
	}
	return apperrors.Internal(message, err)
}

func single(field, message string) map[string]any {
	return validator.ValidationErrors{{Field: field, Message: message}}.Details()
}

func shortTimes(times []slots.TimeOfDay) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Short()
	}
	return out
}
