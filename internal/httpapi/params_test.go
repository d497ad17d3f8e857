package httpapi

import (
	"testing"
	"time"
)

func TestParseLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty means engine default", raw: "", want: 0},
		{name: "whitespace means engine default", raw: "  ", want: 0},
		{name: "valid", raw: "42", want: 42},
		{name: "max itself accepted", raw: "100", want: 100},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "negative rejected", raw: "-3", wantErr: true},
		{name: "above max rejected", raw: "101", wantErr: true},
		{name: "far above max rejected", raw: "500", wantErr: true},
		{name: "not a number", raw: "ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseLimit(tt.raw, 100)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLimit(%q) accepted, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLimit(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimeFilter(t *testing.T) {
	t.Parallel()

	got, err := parseTimeFilter("2026-06-12T19:00:00+02:00", false)
	if err != nil {
		t.Fatalf("parseTimeFilter() error = %v", err)
	}
	want := time.Date(2026, 6, 12, 17, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("parseTimeFilter() = %v, want %v", got, want)
	}
}

func TestParseTimeFilterDayOnly(t *testing.T) {
	t.Parallel()

	start, err := parseTimeFilter("2026-06-12", false)
	if err != nil {
		t.Fatalf("parseTimeFilter() error = %v", err)
	}
	end, err := parseTimeFilter("2026-06-12", true)
	if err != nil {
		t.Fatalf("parseTimeFilter() error = %v", err)
	}
	if start == nil || end == nil {
		t.Fatal("parseTimeFilter() returned nil for valid day")
	}
	if !start.Equal(time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	if !end.After(*start) || !end.Before(time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v, want inside the same day", end)
	}
}

func TestParseTimeFilterEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	got, err := parseTimeFilter("", false)
	if err != nil || got != nil {
		t.Fatalf("parseTimeFilter(empty) = %v, %v; want nil, nil", got, err)
	}
	if _, err := parseTimeFilter("next friday", false); err == nil {
		t.Fatal("parseTimeFilter() accepted garbage")
	}
}
