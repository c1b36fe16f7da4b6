package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	MinutesPerDay = 24 * 60

	DefaultGranularity = 15
)

var (
	DefaultOpen     = MustParse("08:00")
	DefaultClose    = MustParse("20:00")
	DefaultDayLimit = MustParse("23:59")

	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrNotAligned       = errors.New("time is not aligned to slot granularity")
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// Parse accepts "HH:MM" or "HH:MM:SS". Seconds must be zero.
func Parse(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		values[i] = n
	}

	if values[0] > 23 || values[1] > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(values) == 3 && values[2] != 0 {
		return 0, fmt.Errorf("%w: seconds must be zero in %q", ErrInvalidTimeOfDay, s)
	}

	return TimeOfDay(values[0]*60 + values[1]), nil
}

func MustParse(s string) TimeOfDay {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromTime drops seconds and anything smaller.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the persisted form, HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute())
}

// Short renders HH:MM.
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On combines the time of day with a calendar date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// Generator produces the bookable start and end times of a day.
type Generator struct {
	Open        TimeOfDay
	Close       TimeOfDay
	DayLimit    TimeOfDay
	Granularity int
}

func NewGenerator(open, close, dayLimit TimeOfDay, granularity int) *Generator {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Generator{
		Open:        open,
		Close:       close,
		DayLimit:    dayLimit,
		Granularity: granularity,
	}
}

func DefaultGenerator() *Generator {
	return NewGenerator(DefaultOpen, DefaultClose, DefaultDayLimit, DefaultGranularity)
}

// Aligned reports whether t falls on a slot boundary.
func (g *Generator) Aligned(t TimeOfDay) bool {
	return int(t)%g.Granularity == 0
}

// StartTimes returns every boundary from Open to Close, both inclusive.
func (g *Generator) StartTimes() []TimeOfDay {
	var out []TimeOfDay
	for t := g.firstBoundaryFrom(g.Open); t <= g.Close; t += TimeOfDay(g.Granularity) {
		out = append(out, t)
	}
	return out
}

// StartTimesFrom drops start times that already passed when date is today.
func (g *Generator) StartTimesFrom(date, now time.Time) []TimeOfDay {
	all := g.StartTimes()
	if !sameDay(date, now) {
		return all
	}

	current := now.Hour()*60 + now.Minute()
	if now.Second() > 0 || now.Nanosecond() > 0 {
		current++
	}

	out := make([]TimeOfDay, 0, len(all))
	for _, t := range all {
		if int(t) >= current {
			out = append(out, t)
		}
	}
	return out
}

// EndTimes returns every boundary strictly after start up to DayLimit.
// The interval never crosses midnight.
func (g *Generator) EndTimes(start TimeOfDay) []TimeOfDay {
	limit := g.DayLimit
	if limit >= MinutesPerDay {
		limit = MinutesPerDay - 1
	}

	var out []TimeOfDay
	for t := g.firstBoundaryFrom(start + 1); t <= limit; t += TimeOfDay(g.Granularity) {
		out = append(out, t)
	}
	return out
}

func (g *Generator) IsStart(t TimeOfDay) bool {
	return g.Aligned(t) && t >= g.Open && t <= g.Close
}

func (g *Generator) IsEnd(start, end TimeOfDay) bool {
	limit := g.DayLimit
	if limit >= MinutesPerDay {
		limit = MinutesPerDay - 1
	}
	return g.Aligned(end) && end > start && end <= limit
}

func (g *Generator) firstBoundaryFrom(t TimeOfDay) TimeOfDay {
	step := TimeOfDay(g.Granularity)
	if rem := t % step; rem != 0 {
		return t + step - rem
	}
	return t
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
