package resolve

import (
	"fmt"
	"strings"
	"time"

	"soundcheck.se/encore/internal/taxonomy"
	payloadschema "soundcheck.se/encore/schema"
)

// CandidateEvent is an unresolved, producer-supplied event record. Venue and
// genre are expected to arrive already canonicalized; Normalized() makes both
// assumptions safe to rely on before resolution.
type CandidateEvent struct {
	Name           string
	Artist         string
	Venue          string
	Date           time.Time
	DisplayTime    *string
	Genre          string
	TicketURL      string
	Price          *string
	SourceID       string
	SourcePlatform string
}

// ValidationError marks a candidate rejected before it reaches the
// orchestrator. Such candidates are never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %s %s", e.Field, e.Reason)
}

// Normalized returns a copy with trimmed fields, the genre canonicalized into
// the closed taxonomy, and the date truncated to the minute in UTC. Minute
// truncation keeps near-miss timestamps from different sources off the
// (venue, date) uniqueness key.
func (c CandidateEvent) Normalized() CandidateEvent {
	normalized := c
	normalized.Name = strings.TrimSpace(c.Name)
	normalized.Artist = strings.TrimSpace(c.Artist)
	normalized.Venue = strings.TrimSpace(c.Venue)
	normalized.Genre = taxonomy.Canonicalize(c.Genre)
	normalized.TicketURL = strings.TrimSpace(c.TicketURL)
	normalized.SourceID = strings.TrimSpace(c.SourceID)
	normalized.SourcePlatform = strings.TrimSpace(strings.ToLower(c.SourcePlatform))
	if !c.Date.IsZero() {
		normalized.Date = c.Date.UTC().Truncate(time.Minute)
	}
	if c.Price != nil {
		price := strings.TrimSpace(*c.Price)
		if price == "" {
			normalized.Price = nil
		} else {
			normalized.Price = &price
		}
	}
	return normalized
}

// Validate checks the required fields of an already-normalized candidate.
func (c CandidateEvent) Validate() error {
	switch {
	case c.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case c.Artist == "":
		return &ValidationError{Field: "artist", Reason: "is required"}
	case c.Venue == "":
		return &ValidationError{Field: "venue", Reason: "is required"}
	case c.Date.IsZero():
		return &ValidationError{Field: "date", Reason: "is required"}
	case c.TicketURL == "":
		return &ValidationError{Field: "ticket_url", Reason: "is required"}
	case c.SourcePlatform == "":
		return &ValidationError{Field: "source_platform", Reason: "is required"}
	case c.SourceID == "":
		return &ValidationError{Field: "source_id", Reason: "is required"}
	}
	if !taxonomy.IsCanonical(c.Genre) {
		return &ValidationError{Field: "genre", Reason: fmt.Sprintf("%q is not in the taxonomy", c.Genre)}
	}
	return nil
}

// CandidateFromPayload converts a validated wire payload into a CandidateEvent.
func CandidateFromPayload(payload *payloadschema.CandidatePayload) (CandidateEvent, error) {
	if payload == nil {
		return CandidateEvent{}, &ValidationError{Field: "payload", Reason: "is nil"}
	}

	date, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.Date))
	if err != nil {
		return CandidateEvent{}, &ValidationError{Field: "date", Reason: "must be RFC3339"}
	}

	candidate := CandidateEvent{
		Name:           payload.Name,
		Artist:         payload.Artist,
		Venue:          payload.Venue,
		Date:           date,
		DisplayTime:    payload.Time,
		TicketURL:      payload.TicketURL,
		Price:          payload.Price,
		SourceID:       payload.SourceID,
		SourcePlatform: payload.SourcePlatform,
	}
	if payload.Genre != nil {
		candidate.Genre = *payload.Genre
	}
	return candidate.Normalized(), nil
}
