package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"roombook/pkg/availability"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"roombook/pkg/slots"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors for an API error payload.
func (v ValidationErrors) Details() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return map[string]any{"fields": fields}
}

func single(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// ValidBooking is a request that passed every check except availability.
type ValidBooking struct {
	Date     time.Time
	Interval availability.Interval
	Room     model.Room
	Name     string
	Email    string
	Title    string
}

// Booking renders the record that will be stored.
func (vb *ValidBooking) Booking() *model.Booking {
	return &model.Booking{
		Date:      vb.Date.Format(slots.DateLayout),
		StartTime: vb.Interval.Start.String(),
		EndTime:   vb.Interval.End.String(),
		Room:      vb.Room.Label(),
		Name:      vb.Name,
		Email:     vb.Email,
		Title:     vb.Title,
		Status:    model.Active,
	}
}

// BookingValidator checks booking requests in a fixed order and reports only
// the first failing rule.
type BookingValidator struct {
	validate  *validator.Validate
	generator *slots.Generator
	catalog   *model.Catalog
	loc       *time.Location
	logger    *logger.Logger
}

func NewBookingValidator(generator *slots.Generator, catalog *model.Catalog, loc *time.Location, log *logger.Logger) *BookingValidator {
	v := validator.New()

	slot := func(fl validator.FieldLevel) bool {
		t, err := slots.Parse(fl.Field().String())
		return err == nil && generator.Aligned(t)
	}
	if err := v.RegisterValidation("slot", slot); err != nil {
		log.Fatal("Failed to register 'slot' validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate:  v,
		generator: generator,
		catalog:   catalog,
		loc:       loc,
		logger:    log,
	}
}

// ValidateSlot runs the date and time checks shared by booking creation and
// room search.
func (v *BookingValidator) ValidateSlot(date, start, end string, now time.Time) (time.Time, availability.Interval, error) {
	now = now.In(v.loc)

	if err := v.validate.Var(date, "required,datetime=2006-01-02"); err != nil {
		return time.Time{}, availability.Interval{}, single("date", "date must be in YYYY-MM-DD format")
	}
	day, err := slots.ParseDate(date, v.loc)
	if err != nil {
		return time.Time{}, availability.Interval{}, single("date", "date must be in YYYY-MM-DD format")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	if day.Before(today) {
		return time.Time{}, availability.Interval{}, single("date", "date cannot be in the past")
	}

	if err := v.validate.Var(start, "required,slot"); err != nil {
		return time.Time{}, availability.Interval{}, v.translateVar("start_time", err)
	}
	if err := v.validate.Var(end, "required,slot"); err != nil {
		return time.Time{}, availability.Interval{}, v.translateVar("end_time", err)
	}
	s := slots.MustParse(start)
	e := slots.MustParse(end)

	if day.Equal(today) && s.On(day, v.loc).Before(now) {
		return time.Time{}, availability.Interval{}, single("start_time", "start_time cannot be in the past")
	}
	if e <= s {
		return time.Time{}, availability.Interval{}, single("end_time", "end_time must be after start_time")
	}
	if !v.generator.IsStart(s) {
		return time.Time{}, availability.Interval{}, single("start_time", fmt.Sprintf(
			"start_time must be between %s and %s", v.generator.Open.Short(), v.generator.Close.Short()))
	}
	if !v.generator.IsEnd(s, e) {
		return time.Time{}, availability.Interval{}, single("end_time", "end_time must end on the same day")
	}

	return day, availability.Interval{Start: s, End: e}, nil
}

// Validate checks a normalized copy of input; the caller's value is left as
// sent. now decides what "today" is.
func (v *BookingValidator) Validate(raw *model.BookingInput, now time.Time) (*ValidBooking, error) {
	in := *raw
	input := &in
	input.Name = sanitizer.NormalizeName(input.Name)
	input.Title = sanitizer.NormalizeTitle(input.Title)
	input.Email = sanitizer.NormalizeEmail(input.Email)

	day, iv, err := v.ValidateSlot(input.Date, input.StartTime, input.EndTime, now)
	if err != nil {
		return nil, err
	}

	room, ok := v.catalog.Lookup(input.Room)
	if !ok {
		return nil, single("room", fmt.Sprintf("unknown room %q", input.Room))
	}

	if err := v.validate.StructPartial(input, "Name", "Email", "Title"); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, v.translateValidationErrors(validationErrs)[:1]
		}
		return nil, err
	}

	return &ValidBooking{
		Date:     day,
		Interval: iv,
		Room:     room,
		Name:     input.Name,
		Email:    input.Email,
		Title:    input.Title,
	}, nil
}

func (v *BookingValidator) translateVar(field string, err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	switch validationErrs[0].Tag() {
	case "required":
		return single(field, fmt.Sprintf("%s is required", field))
	default:
		return single(field, fmt.Sprintf("%s must be HH:MM on a %d-minute boundary", field, v.generator.Granularity))
	}
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := jsonName(err.Field())
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

func jsonName(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "Title":
		return "title"
	}
	return strings.ToLower(field)
}

func (v *BookingValidator) Generator() *slots.Generator { return v.generator }

func (v *BookingValidator) Catalog() *model.Catalog { return v.catalog }

func (v *BookingValidator) Location() *time.Location { return v.loc }
