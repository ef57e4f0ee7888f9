package leave

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDate_Normalization(t *testing.T) {
	// GIVEN: a timestamp with a time-of-day component
	// WHEN: truncated to a Date
	// THEN: it equals the plain calendar day

	ts := time.Date(2025, time.March, 10, 17, 45, 3, 0, time.UTC)
	if got, want := DateOf(ts), NewDate(2025, time.March, 10); !got.Equal(want) {
		t.Errorf("DateOf = %s, want %s", got, want)
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := ParseDate("2025-12-25")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-12-25" {
		t.Errorf("String = %s", d)
	}

	if _, err := ParseDate("25/12/2025"); err == nil {
		t.Error("expected error for non-ISO format")
	}
}

func TestDate_IsWeekend(t *testing.T) {
	cases := []struct {
		date    string
		weekend bool
	}{
		{"2025-06-06", false}, // Friday
		{"2025-06-07", true},  // Saturday
		{"2025-06-08", true},  // Sunday
		{"2025-06-09", false}, // Monday
	}
	for _, tc := range cases {
		if got := MustParseDate(tc.date).IsWeekend(); got != tc.weekend {
			t.Errorf("%s: IsWeekend = %v, want %v", tc.date, got, tc.weekend)
		}
	}
}

func TestDaysBetween_Inclusive(t *testing.T) {
	mon := MustParseDate("2025-06-09")
	wed := MustParseDate("2025-06-11")

	if got := DaysBetween(mon, wed); got != 3 {
		t.Errorf("DaysBetween = %d, want 3", got)
	}
	if got := DaysBetween(mon, mon); got != 1 {
		t.Errorf("single day = %d, want 1", got)
	}
	if got := DaysBetween(wed, mon); got != 0 {
		t.Errorf("reversed range = %d, want 0", got)
	}
}

func TestYearsBetween_QuarterDayBasis(t *testing.T) {
	// GIVEN: exactly 365.25 days worth of service in whole days
	// WHEN: converted to years
	// THEN: four standard years come out as exactly 4.0

	start := MustParseDate("2020-03-01")
	end := start.AddDays(1461) // 4 x 365.25

	years := YearsBetween(start, end)
	if !years.Equal(decimal.NewFromInt(4)) {
		t.Errorf("YearsBetween = %s, want 4", years)
	}
	if !YearsBetween(end, start).IsZero() {
		t.Error("negative span should clamp to zero")
	}
}

func TestDate_JSON(t *testing.T) {
	d := MustParseDate("2025-01-31")
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"2025-01-31"` {
		t.Errorf("Marshal = %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip mismatch: %s", back)
	}

	var null Date
	if err := json.Unmarshal([]byte("null"), &null); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if !null.IsZero() {
		t.Error("null should decode to zero date")
	}
}
