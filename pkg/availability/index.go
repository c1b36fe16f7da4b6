package availability

import (
	"errors"
	"fmt"
	"sort"

	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"roombook/pkg/slots"
)

var ErrOverlap = errors.New("interval overlaps an existing booking")

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start slots.TimeOfDay `json:"start"`
	End   slots.TimeOfDay `json:"end"`
}

func NewInterval(start, end string) (Interval, error) {
	s, err := slots.Parse(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := slots.Parse(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("end %s must be after start %s", e, s)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps treats touching endpoints as free.
func Overlaps(a, b Interval) bool {
	return !(a.End <= b.Start || a.Start >= b.End)
}

func (iv Interval) String() string {
	return iv.Start.Short() + "-" + iv.End.Short()
}

type key struct {
	date string
	room string
}

// Room labels compare case-insensitively so hand-edited records still match.
func makeKey(date, room string) key {
	return key{date: date, room: sanitizer.NormalizeKey(room)}
}

// Index maps (room, date) to the ordered intervals of Active bookings.
// It is derived data and can always be rebuilt from the store.
type Index struct {
	booked map[key][]Interval
}

func New() *Index {
	return &Index{booked: make(map[key][]Interval)}
}

// Build indexes the Active bookings and skips Cancelled ones. Records that
// cannot be parsed are left out. Records that overlap an earlier one are
// still indexed, since they occupy the room, and are reported too. Both kinds
// come back as errors alongside the index so callers can log them.
func Build(bookings []*model.Booking) (*Index, []error) {
	idx := New()
	var problems []error

	for _, b := range bookings {
		if b == nil || !b.IsActive() {
			continue
		}
		iv, err := NewInterval(b.StartTime, b.EndTime)
		if err != nil {
			problems = append(problems, fmt.Errorf("booking %d: %w", b.ID, err))
			continue
		}
		if !idx.IsAvailable(b.Date, b.Room, iv) {
			problems = append(problems, fmt.Errorf("booking %d: %w: %s %s %s", b.ID, ErrOverlap, b.Room, b.Date, iv))
		}
		idx.insert(makeKey(b.Date, b.Room), iv)
	}

	return idx, problems
}

func (idx *Index) IsAvailable(date, room string, iv Interval) bool {
	for _, existing := range idx.booked[makeKey(date, room)] {
		if existing.Start >= iv.End {
			break
		}
		if Overlaps(existing, iv) {
			return false
		}
	}
	return true
}

// Add keeps the intervals ordered by start and rejects overlaps.
func (idx *Index) Add(date, room string, iv Interval) error {
	if !idx.IsAvailable(date, room, iv) {
		return fmt.Errorf("%w: %s %s %s", ErrOverlap, room, date, iv)
	}
	idx.insert(makeKey(date, room), iv)
	return nil
}

func (idx *Index) insert(k key, iv Interval) {
	list := idx.booked[k]
	pos := sort.Search(len(list), func(i int) bool { return list[i].Start >= iv.Start })
	list = append(list, Interval{})
	copy(list[pos+1:], list[pos:])
	list[pos] = iv
	idx.booked[k] = list
}

func (idx *Index) Remove(date, room string, iv Interval) bool {
	k := makeKey(date, room)
	list := idx.booked[k]
	for i, existing := range list {
		if existing == iv {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(idx.booked, k)
			} else {
				idx.booked[k] = list
			}
			return true
		}
	}
	return false
}

func (idx *Index) Booked(date, room string) []Interval {
	return append([]Interval(nil), idx.booked[makeKey(date, room)]...)
}

// FreeRooms returns the catalog rooms, in catalog order, that can host iv.
func (idx *Index) FreeRooms(date string, iv Interval, rooms []model.Room) []model.Room {
	var out []model.Room
	for _, r := range rooms {
		if idx.IsAvailable(date, r.Label(), iv) {
			out = append(out, r)
		}
	}
	return out
}
