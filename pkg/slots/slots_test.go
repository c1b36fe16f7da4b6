package slots

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "short form", input: "09:15", want: 9*60 + 15},
		{name: "long form", input: "20:00:00", want: 20 * 60},
		{name: "midnight", input: "00:00", want: 0},
		{name: "surrounding spaces", input: " 08:00 ", want: 8 * 60},
		{name: "non-zero seconds", input: "09:15:30", wantErr: true},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "single digit hour", input: "9:00", wantErr: true},
		{name: "garbage", input: "noon", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidTimeOfDay) {
					t.Errorf("expected ErrInvalidTimeOfDay, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if got := MustParse("09:05").String(); got != "09:05:00" {
		t.Errorf("expected 09:05:00, got %s", got)
	}
	if got := MustParse("17:45:00").Short(); got != "17:45" {
		t.Errorf("expected 17:45, got %s", got)
	}
}

func TestStartTimes_InclusiveClose(t *testing.T) {
	g := DefaultGenerator()
	starts := g.StartTimes()

	if len(starts) != 49 {
		t.Fatalf("expected 49 start times, got %d", len(starts))
	}
	if starts[0] != MustParse("08:00") {
		t.Errorf("expected first start 08:00, got %s", starts[0])
	}
	if starts[len(starts)-1] != MustParse("20:00") {
		t.Errorf("expected last start 20:00, got %s", starts[len(starts)-1])
	}
	for i := 1; i < len(starts); i++ {
		if starts[i]-starts[i-1] != 15 {
			t.Fatalf("expected 15 minute steps, got %s -> %s", starts[i-1], starts[i])
		}
	}
}

func TestStartTimes_UnalignedOpen(t *testing.T) {
	g := NewGenerator(MustParse("08:10"), MustParse("09:00"), DefaultDayLimit, 15)
	starts := g.StartTimes()

	want := []string{"08:15:00", "08:30:00", "08:45:00", "09:00:00"}
	if len(starts) != len(want) {
		t.Fatalf("expected %d start times, got %d", len(want), len(starts))
	}
	for i, w := range want {
		if starts[i].String() != w {
			t.Errorf("index %d: expected %s, got %s", i, w, starts[i])
		}
	}
}

func TestEndTimes(t *testing.T) {
	g := DefaultGenerator()

	tests := []struct {
		name      string
		start     string
		wantFirst string
		wantLast  string
		wantCount int
	}{
		{name: "morning start", start: "09:00", wantFirst: "09:15:00", wantLast: "23:45:00", wantCount: 59},
		{name: "start at close", start: "20:00", wantFirst: "20:15:00", wantLast: "23:45:00", wantCount: 15},
		{name: "start after close", start: "22:30", wantFirst: "22:45:00", wantLast: "23:45:00", wantCount: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ends := g.EndTimes(MustParse(tt.start))
			if len(ends) != tt.wantCount {
				t.Fatalf("expected %d end times, got %d", tt.wantCount, len(ends))
			}
			if ends[0].String() != tt.wantFirst {
				t.Errorf("expected first end %s, got %s", tt.wantFirst, ends[0])
			}
			if ends[len(ends)-1].String() != tt.wantLast {
				t.Errorf("expected last end %s, got %s", tt.wantLast, ends[len(ends)-1])
			}
		})
	}
}

func TestEndTimes_NothingAfterLastBoundary(t *testing.T) {
	g := DefaultGenerator()
	if ends := g.EndTimes(MustParse("23:45")); len(ends) != 0 {
		t.Errorf("expected no end times after 23:45, got %v", ends)
	}
}

func TestIsStartIsEnd(t *testing.T) {
	g := DefaultGenerator()

	if !g.IsStart(MustParse("20:00")) {
		t.Error("20:00 should be a valid start (inclusive close)")
	}
	if g.IsStart(MustParse("20:15")) {
		t.Error("20:15 should not be a valid start")
	}
	if g.IsStart(MustParse("07:45")) {
		t.Error("07:45 should not be a valid start")
	}
	if g.IsStart(MustParse("09:10")) {
		t.Error("09:10 is not aligned")
	}

	if !g.IsEnd(MustParse("09:00"), MustParse("09:15")) {
		t.Error("09:15 should be a valid end after 09:00")
	}
	if g.IsEnd(MustParse("09:00"), MustParse("09:00")) {
		t.Error("end equal to start must be rejected")
	}
	if g.IsEnd(MustParse("09:00"), MustParse("23:59")) {
		t.Error("23:59 is not aligned")
	}
}

func TestStartTimesFrom(t *testing.T) {
	loc := time.UTC
	g := DefaultGenerator()
	now := time.Date(2026, 3, 10, 9, 7, 30, 0, loc)

	today := g.StartTimesFrom(time.Date(2026, 3, 10, 0, 0, 0, 0, loc), now)
	if today[0] != MustParse("09:15") {
		t.Errorf("expected first start today 09:15, got %s", today[0])
	}

	tomorrow := g.StartTimesFrom(time.Date(2026, 3, 11, 0, 0, 0, 0, loc), now)
	if len(tomorrow) != 49 {
		t.Errorf("expected all 49 start times tomorrow, got %d", len(tomorrow))
	}

	onBoundary := time.Date(2026, 3, 10, 9, 15, 0, 0, loc)
	fromBoundary := g.StartTimesFrom(onBoundary, onBoundary)
	if fromBoundary[0] != MustParse("09:15") {
		t.Errorf("expected 09:15 to remain bookable at exactly 09:15, got %s", fromBoundary[0])
	}
}
