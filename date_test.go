package satsledger

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2023-03-01", NewDate(2023, time.March, 1)},
		{"2023-3-1", NewDate(2023, time.March, 1)},
		{"2024-12-31", NewDate(2024, time.December, 31)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, err := ParseDate("not a date"); err == nil {
		t.Error("ParseDate() = nil error, want failure")
	}
}

func TestDateOf(t *testing.T) {
	// 23:30 in UTC+2 is already the next day in local time, but Date is UTC.
	loc := time.FixedZone("UTC+2", 2*3600)
	got := DateOf(time.Date(2023, time.March, 2, 1, 30, 0, 0, loc))
	if want := NewDate(2023, time.March, 1); got != want {
		t.Errorf("DateOf() = %s, want %s", got, want)
	}
}

func TestDateAdd(t *testing.T) {
	tests := []struct {
		start Date
		days  int
		want  Date
	}{
		{NewDate(2023, time.March, 1), -1, NewDate(2023, time.February, 28)},
		{NewDate(2024, time.March, 1), -1, NewDate(2024, time.February, 29)},
		{NewDate(2023, time.December, 31), 1, NewDate(2024, time.January, 1)},
	}
	for _, tt := range tests {
		if got := tt.start.Add(tt.days); got != tt.want {
			t.Errorf("%s.Add(%d) = %s, want %s", tt.start, tt.days, got, tt.want)
		}
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2023, time.March, 1)
	b := NewDate(2023, time.March, 2)
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Errorf("ordering broken for %s and %s", a, b)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2023, time.March, 1)
	raw, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(raw) != `"2023-03-01"` {
		t.Errorf("MarshalJSON() = %s, want \"2023-03-01\"", raw)
	}
	var back Date
	if err := back.UnmarshalJSON(raw); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if back != d {
		t.Errorf("roundtrip = %s, want %s", back, d)
	}
}
