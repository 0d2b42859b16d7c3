package duration

import (
	"testing"
	"time"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"1h", 3600},
		{"1.5h", 5400},
		{"1,5h", 5400},
		{"30m", 1800},
		{"30min", 1800},
		{"1h30m", 5400},
		{"30m1h", 5400}, // token order does not matter
		{"1d", 27000},   // a workday is 7.5 hours
		{"7.5h", 27000},
		{"1w", 135000}, // a week is 5 workdays
		{"37.5h", 135000},
		{"1w1d1h1m", 135000 + 27000 + 3600 + 60},
		{"1.2d", 32400},
		{"0h", 0},
	}
	for _, tt := range tests {
		got, err := ParseSeconds(tt.expr)
		if err != nil {
			t.Errorf("ParseSeconds(%q): %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeconds(%q) = %d, want %d", tt.expr, got, tt.want)
		}
	}
}

func TestParseSecondsErrors(t *testing.T) {
	invalid := []string{
		"",
		"1",      // missing unit
		"h",      // missing quantity
		"1x",     // unknown unit
		"1.5m",   // fractional minutes
		"1,5m",   // fractional minutes, comma separator
		"1.5min", // fractional minutes, long unit
		"1h1h",   // duplicate unit
		"1..5h",  // malformed number
		"one h",
	}
	for _, expr := range invalid {
		if _, err := ParseSeconds(expr); err == nil {
			t.Errorf("ParseSeconds(%q) = nil error, want parse error", expr)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	for s, want := range map[string]time.Weekday{
		"mon": time.Monday,
		"Fri": time.Friday,
		"SUN": time.Sunday,
	} {
		got, err := ParseWeekday(s)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", s, got, want)
		}
	}

	if _, err := ParseWeekday("funday"); err == nil {
		t.Error("ParseWeekday(funday) = nil error, want error")
	}
}

func TestExpandAnchored(t *testing.T) {
	// A Wednesday.
	now := time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC)

	specs, err := Expand([]string{"Mon:1d", "tue:2h"}, now)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}

	wantMon := time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC)
	if !specs[0].Start.Equal(wantMon) {
		t.Errorf("specs[0].Start = %v, want %v", specs[0].Start, wantMon)
	}
	if specs[0].Seconds != 27000 {
		t.Errorf("specs[0].Seconds = %d, want 27000", specs[0].Seconds)
	}

	wantTue := time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC)
	if !specs[1].Start.Equal(wantTue) {
		t.Errorf("specs[1].Start = %v, want %v", specs[1].Start, wantTue)
	}
}

func TestExpandUnanchored(t *testing.T) {
	now := time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC)

	specs, err := Expand([]string{"1h30m"}, now)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("len(specs) = %d, want 1", len(specs))
	}
	if !specs[0].Start.IsZero() {
		t.Errorf("unanchored spec has Start = %v, want zero", specs[0].Start)
	}
	if specs[0].Seconds != 5400 {
		t.Errorf("Seconds = %d, want 5400", specs[0].Seconds)
	}
}

func TestExpandUnknownWeekday(t *testing.T) {
	now := time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC)
	if _, err := Expand([]string{"Fry:1d"}, now); err == nil {
		t.Error("Expand(Fry:1d) = nil error, want error")
	}
}

func TestLastWeekdaySameDay(t *testing.T) {
	// Asking for Wednesday on a Wednesday returns today at 08:00.
	now := time.Date(2024, 11, 6, 14, 30, 0, 0, time.UTC)
	got := LastWeekday(now, time.Wednesday)
	want := time.Date(2024, 11, 6, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("LastWeekday = %v, want %v", got, want)
	}
}

func TestParseDateTime(t *testing.T) {
	now := time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"08:30", time.Date(2024, 11, 6, 8, 30, 0, 0, time.UTC)},
		{"2024-11-04", time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC)},
		{"2024-11-04T09:15", time.Date(2024, 11, 4, 9, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDateTime(tt.in, now)
		if err != nil {
			t.Errorf("ParseDateTime(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDateTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDateTime("yesterday", now); err == nil {
		t.Error("ParseDateTime(yesterday) = nil error, want error")
	}
}

func TestCalculateStart(t *testing.T) {
	now := time.Date(2024, 11, 6, 14, 0, 0, 0, time.UTC)

	// No explicit start: now minus duration.
	got, err := CalculateStart(time.Time{}, 3600, now)
	if err != nil {
		t.Fatalf("CalculateStart: %v", err)
	}
	if want := now.Add(-time.Hour); !got.Equal(want) {
		t.Errorf("CalculateStart = %v, want %v", got, want)
	}

	// Explicit start in the past that fits before now.
	start := now.Add(-2 * time.Hour)
	got, err = CalculateStart(start, 3600, now)
	if err != nil {
		t.Fatalf("CalculateStart explicit: %v", err)
	}
	if !got.Equal(start) {
		t.Errorf("CalculateStart = %v, want %v", got, start)
	}

	// Explicit start whose end would pass now.
	if _, err := CalculateStart(now.Add(-30*time.Minute), 3600, now); err == nil {
		t.Error("CalculateStart with future end = nil error, want error")
	}
}
