package query

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"soundcheck.se/encore/internal/db"
)

func TestClampLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero falls back to default", limit: 0, want: 20},
		{name: "negative falls back to default", limit: -5, want: 20},
		{name: "in range passes through", limit: 42, want: 42},
		{name: "above max clamped as backstop for direct callers", limit: 5000, want: 100},
		{name: "max itself is allowed", limit: 100, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := clampLimit(tt.limit, 20, 100); got != tt.want {
				t.Fatalf("clampLimit(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}

func syntheticEvents(n int) []db.CanonicalEvent {
	base := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	events := make([]db.CanonicalEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, db.CanonicalEvent{
			ID:   fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Date: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return events
}

func TestBuildPageLastPage(t *testing.T) {
	t.Parallel()

	page := buildPage(syntheticEvents(7), 10)
	if len(page.Events) != 7 {
		t.Fatalf("len(Events) = %d, want 7", len(page.Events))
	}
	if page.NextCursor != nil {
		t.Fatalf("NextCursor = %q, want nil on last page", *page.NextCursor)
	}
}

func TestBuildPageExactlyFullIsStillLast(t *testing.T) {
	t.Parallel()

	page := buildPage(syntheticEvents(10), 10)
	if len(page.Events) != 10 {
		t.Fatalf("len(Events) = %d, want 10", len(page.Events))
	}
	if page.NextCursor != nil {
		t.Fatalf("NextCursor = %q, want nil when no overfetch row came back", *page.NextCursor)
	}
}

func TestBuildPageOverfetchYieldsCursor(t *testing.T) {
	t.Parallel()

	events := syntheticEvents(11)
	page := buildPage(events, 10)
	if len(page.Events) != 10 {
		t.Fatalf("len(Events) = %d, want 10", len(page.Events))
	}
	if page.NextCursor == nil {
		t.Fatal("NextCursor nil, want cursor when more rows exist")
	}

	cursor, err := ParseCursor(*page.NextCursor)
	if err != nil {
		t.Fatalf("ParseCursor() error = %v", err)
	}
	last := page.Events[len(page.Events)-1]
	if cursor.ID != last.ID || !cursor.Date.Equal(last.Date) {
		t.Fatalf("cursor = %+v, want sort key of last returned row %s/%v", cursor, last.ID, last.Date)
	}
}

func TestPageJSONShape(t *testing.T) {
	t.Parallel()

	lastPage, err := json.Marshal(buildPage(syntheticEvents(2), 10))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(lastPage, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := decoded["events"]; !ok {
		t.Fatalf("page JSON %s missing events key", lastPage)
	}
	if raw, ok := decoded["next_cursor"]; !ok || string(raw) != "null" {
		t.Fatalf("page JSON %s, want next_cursor explicitly null on last page", lastPage)
	}

	midPage, err := json.Marshal(buildPage(syntheticEvents(11), 10))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := json.Unmarshal(midPage, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	var next string
	if err := json.Unmarshal(decoded["next_cursor"], &next); err != nil || next == "" {
		t.Fatalf("page JSON %s, want a string next_cursor when more rows exist", midPage)
	}
}

// Walks a synthetic 25-row table through buildPage the way the engine would,
// checking every row is seen exactly once and in order.
func TestPaginationWalkCoversAllRowsOnce(t *testing.T) {
	t.Parallel()

	all := syntheticEvents(25)
	const limit = 10

	// fetch mimics the keyset query: rows strictly after the cursor, limit+1.
	fetch := func(after *Cursor) []db.CanonicalEvent {
		var out []db.CanonicalEvent
		for _, event := range all {
			if after != nil {
				if event.Date.Before(after.Date) {
					continue
				}
				if event.Date.Equal(after.Date) && event.ID <= after.ID {
					continue
				}
			}
			out = append(out, event)
			if len(out) == limit+1 {
				break
			}
		}
		return out
	}

	var seen []db.CanonicalEvent
	var after *Cursor
	for pages := 0; ; pages++ {
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
		page := buildPage(fetch(after), limit)
		seen = append(seen, page.Events...)
		if page.NextCursor == nil {
			break
		}
		cursor, err := ParseCursor(*page.NextCursor)
		if err != nil {
			t.Fatalf("ParseCursor() error = %v", err)
		}
		after = &cursor
	}

	if len(seen) != len(all) {
		t.Fatalf("walk returned %d rows, want %d", len(seen), len(all))
	}
	for i := range all {
		if seen[i].ID != all[i].ID {
			t.Fatalf("row %d = %s, want %s", i, seen[i].ID, all[i].ID)
		}
	}
}
