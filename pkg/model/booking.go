package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	Active    BookingStatus = "active"
	Cancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	return s == Active || s == Cancelled
}

// ParseStatus treats an empty value as Active so that legacy files
// without a status column load unchanged.
func ParseStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", Active:
		return Active, true
	case Cancelled:
		return Cancelled, true
	}
	return "", false
}

type Booking struct {
	ID        int           `json:"booking_id" bson:"booking_id"`
	Date      string        `json:"date" bson:"date"`
	StartTime string        `json:"start_time" bson:"start_time"`
	EndTime   string        `json:"end_time" bson:"end_time"`
	Room      string        `json:"room" bson:"room"`
	Name      string        `json:"name" bson:"name"`
	Email     string        `json:"email" bson:"email"`
	Title     string        `json:"description" bson:"description"`
	Status    BookingStatus `json:"status" bson:"status"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

func (b *Booking) IsActive() bool {
	return b.Status == Active
}

// BookingInput is what a requester submits to reserve a room.
type BookingInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,slot"`
	EndTime   string `json:"end_time" validate:"required,slot"`
	Room      string `json:"room" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Title     string `json:"title" validate:"required,max=200"`
}

type CancelInput struct {
	Email string `json:"email" validate:"required"`
}

type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterActive   ListFilter = "active"
	FilterUpcoming ListFilter = "upcoming"
	FilterPast     ListFilter = "past"
)

func ParseListFilter(s string) (ListFilter, bool) {
	switch f := ListFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterActive, FilterUpcoming, FilterPast:
		return f, true
	}
	return "", false
}
