package availability

import (
	"errors"
	"testing"

	"roombook/pkg/model"
	"roombook/pkg/slots"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	iv, err := NewInterval(start, end)
	if err != nil {
		t.Fatalf("NewInterval(%s, %s): %v", start, end, err)
	}
	return iv
}

func TestOverlaps_HalfOpen(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
		want bool
	}{
		{name: "touching end to start", a: [2]string{"09:00", "10:00"}, b: [2]string{"10:00", "11:00"}, want: false},
		{name: "partial overlap", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:30", "10:30"}, want: true},
		{name: "contained", a: [2]string{"09:00", "12:00"}, b: [2]string{"10:00", "10:15"}, want: true},
		{name: "identical", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:00", "10:00"}, want: true},
		{name: "disjoint", a: [2]string{"08:00", "08:15"}, b: [2]string{"17:00", "18:00"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustInterval(t, tt.a[0], tt.a[1])
			b := mustInterval(t, tt.b[0], tt.b[1])
			if got := Overlaps(a, b); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", a, b, got, tt.want)
			}
			if got := Overlaps(b, a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %s and %s", a, b)
			}
		})
	}
}

func TestNewInterval_RejectsEmptyOrInverted(t *testing.T) {
	if _, err := NewInterval("10:00", "10:00"); err == nil {
		t.Error("expected error for empty interval")
	}
	if _, err := NewInterval("11:00", "10:00"); err == nil {
		t.Error("expected error for inverted interval")
	}
	if _, err := NewInterval("aa", "10:00"); !errors.Is(err, slots.ErrInvalidTimeOfDay) {
		t.Errorf("expected ErrInvalidTimeOfDay, got %v", err)
	}
}

func TestIndex_EmptyIsAvailable(t *testing.T) {
	idx := New()
	for _, room := range model.DefaultCatalog().Rooms() {
		if !idx.IsAvailable("2030-01-01", room.Label(), mustInterval(t, "09:00", "10:00")) {
			t.Errorf("empty index should report %s available", room.Label())
		}
	}
}

func TestIndex_AddAndQuery(t *testing.T) {
	idx := New()
	room := "Annapurna - 1 Floor"
	date := "2030-01-01"

	if err := idx.Add(date, room, mustInterval(t, "09:00", "10:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.IsAvailable(date, room, mustInterval(t, "09:30", "10:30")) {
		t.Error("overlapping interval reported available")
	}
	if !idx.IsAvailable(date, room, mustInterval(t, "10:00", "11:00")) {
		t.Error("touching interval reported unavailable")
	}
	if !idx.IsAvailable("2030-01-02", room, mustInterval(t, "09:00", "10:00")) {
		t.Error("other date should not be affected")
	}
	if !idx.IsAvailable(date, "Everest - 2 Floor", mustInterval(t, "09:00", "10:00")) {
		t.Error("other room should not be affected")
	}

	err := idx.Add(date, room, mustInterval(t, "09:45", "10:15"))
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestIndex_KeepsOrder(t *testing.T) {
	idx := New()
	room, date := "Trishul - 3 Floor", "2030-01-01"

	for _, iv := range [][2]string{{"14:00", "15:00"}, {"08:00", "09:00"}, {"11:00", "11:30"}} {
		if err := idx.Add(date, room, mustInterval(t, iv[0], iv[1])); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	booked := idx.Booked(date, room)
	want := []string{"08:00-09:00", "11:00-11:30", "14:00-15:00"}
	if len(booked) != len(want) {
		t.Fatalf("expected %d intervals, got %d", len(want), len(booked))
	}
	for i, w := range want {
		if booked[i].String() != w {
			t.Errorf("index %d: expected %s, got %s", i, w, booked[i])
		}
	}
}

func TestIndex_Remove(t *testing.T) {
	idx := New()
	room, date := "Kailash - 1 Floor", "2030-01-01"
	iv := mustInterval(t, "09:00", "10:00")

	if err := idx.Add(date, room, iv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idx.Remove(date, room, iv) {
		t.Fatal("expected interval to be removed")
	}
	if !idx.IsAvailable(date, room, iv) {
		t.Error("interval should be available after removal")
	}
	if idx.Remove(date, room, iv) {
		t.Error("second removal should report false")
	}
}

func TestBuild_SkipsCancelled(t *testing.T) {
	bookings := []*model.Booking{
		{ID: 1001, Date: "2030-01-01", StartTime: "09:00:00", EndTime: "10:00:00", Room: "Everest - 2 Floor", Status: model.Active},
		{ID: 1002, Date: "2030-01-01", StartTime: "10:00:00", EndTime: "11:00:00", Room: "Everest - 2 Floor", Status: model.Cancelled},
		{ID: 1003, Date: "2030-01-01", StartTime: "bad", EndTime: "11:00:00", Room: "Everest - 2 Floor", Status: model.Active},
	}

	idx, problems := Build(bookings)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem for the malformed record, got %d", len(problems))
	}
	if idx.IsAvailable("2030-01-01", "Everest - 2 Floor", mustInterval(t, "09:30", "09:45")) {
		t.Error("active booking should block its interval")
	}
	if !idx.IsAvailable("2030-01-01", "Everest - 2 Floor", mustInterval(t, "10:00", "11:00")) {
		t.Error("cancelled booking must not block its interval")
	}
}

func TestBuild_KeepsOverlappingActiveRecords(t *testing.T) {
	date, room := "2030-01-01", "Annapurna - 1 Floor"
	bookings := []*model.Booking{
		{ID: 1001, Date: date, StartTime: "09:00:00", EndTime: "10:00:00", Room: room, Status: model.Active},
		{ID: 1002, Date: date, StartTime: "09:30:00", EndTime: "11:00:00", Room: room, Status: model.Active},
	}

	idx, problems := Build(bookings)
	if len(problems) != 1 || !errors.Is(problems[0], ErrOverlap) {
		t.Fatalf("expected one overlap problem, got %v", problems)
	}
	if got := len(idx.Booked(date, room)); got != 2 {
		t.Fatalf("expected both intervals indexed, got %d", got)
	}
	if idx.IsAvailable(date, room, mustInterval(t, "10:30", "11:00")) {
		t.Error("10:30-11:00 is held by booking 1002 and must not be available")
	}
	if !idx.IsAvailable(date, room, mustInterval(t, "11:00", "11:30")) {
		t.Error("11:00-11:30 should be free")
	}

	free := idx.FreeRooms(date, mustInterval(t, "10:30", "11:00"), model.DefaultCatalog().Rooms())
	for _, r := range free {
		if r.Label() == room {
			t.Error("occupied room listed as free")
		}
	}
}

func TestFreeRooms(t *testing.T) {
	catalog := model.DefaultCatalog()
	idx := New()
	date := "2030-01-01"
	iv := mustInterval(t, "09:00", "10:00")

	if err := idx.Add(date, "Himalaya - Basement", iv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	free := idx.FreeRooms(date, iv, catalog.Rooms())
	if len(free) != 9 {
		t.Fatalf("expected 9 free rooms, got %d", len(free))
	}
	for _, r := range free {
		if r.Label() == "Himalaya - Basement" {
			t.Error("booked room listed as free")
		}
	}
}
