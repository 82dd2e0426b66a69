package clock

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	in := time.Date(2026, 10, 14, 17, 45, 12, 500, loc)
	got := StartOfDay(in)
	want := time.Date(2026, 10, 14, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStartOfWeek(t *testing.T) {
	// 2026-10-14 is a Wednesday.
	in := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	sunday := StartOfWeek(in, time.Sunday)
	if want := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC); !sunday.Equal(want) {
		t.Fatalf("sunday start: got %v, want %v", sunday, want)
	}

	monday := StartOfWeek(in, time.Monday)
	if want := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC); !monday.Equal(want) {
		t.Fatalf("monday start: got %v, want %v", monday, want)
	}
}

func TestFixed(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	if !c.Now().Equal(start) {
		t.Fatalf("unexpected now %v", c.Now())
	}
	if got := c.Advance(36 * time.Hour); !got.Equal(start.Add(36 * time.Hour)) {
		t.Fatalf("advance returned %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("set did not apply, now %v", c.Now())
	}
}

func TestParseWeekday(t *testing.T) {
	if d, err := ParseWeekday(""); err != nil || d != time.Sunday {
		t.Fatalf("default: %v %v", d, err)
	}
	if d, err := ParseWeekday("Monday"); err != nil || d != time.Monday {
		t.Fatalf("monday: %v %v", d, err)
	}
	if _, err := ParseWeekday("friday"); err == nil {
		t.Fatal("expected error for friday")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("07:05")
	if err != nil || h != 7 || m != 5 {
		t.Fatalf("got %d:%d %v", h, m, err)
	}
	for _, raw := range []string{"", "7", "24:00", "12:60", "ab:cd", "1:2:3"} {
		if _, _, err := ParseTimeOfDay(raw); err == nil {
			t.Errorf("ParseTimeOfDay(%q) should fail", raw)
		}
	}
}
