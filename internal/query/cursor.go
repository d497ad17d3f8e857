package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor is an opaque pagination token encoding the (date, id) sort key of the
// last row the client saw. The wire form is "<RFC3339Nano>_<uuid>"; clients
// must treat it as opaque and hand it back unchanged.
type Cursor struct {
	Date time.Time
	ID   string
}

type CursorError struct {
	Raw    string
	Reason string
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("invalid cursor %q: %s", e.Raw, e.Reason)
}

func EncodeCursor(date time.Time, id string) string {
	return date.UTC().Format(time.RFC3339Nano) + "_" + id
}

// ParseCursor splits on the LAST underscore: RFC3339Nano never contains one,
// but being strict about the split keeps a malformed token from shifting the
// uuid into the timestamp.
func ParseCursor(raw string) (Cursor, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cursor{}, &CursorError{Raw: raw, Reason: "empty"}
	}

	split := strings.LastIndex(trimmed, "_")
	if split <= 0 || split == len(trimmed)-1 {
		return Cursor{}, &CursorError{Raw: raw, Reason: "expected <timestamp>_<id>"}
	}

	date, err := time.Parse(time.RFC3339Nano, trimmed[:split])
	if err != nil {
		return Cursor{}, &CursorError{Raw: raw, Reason: "timestamp is not RFC3339"}
	}

	id := trimmed[split+1:]
	if _, err := uuid.Parse(id); err != nil {
		return Cursor{}, &CursorError{Raw: raw, Reason: "id is not a uuid"}
	}

	return Cursor{Date: date.UTC(), ID: id}, nil
}
