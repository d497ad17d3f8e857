package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TicketSource is one platform's ticket link for an event. An event carries at
// most one entry per platform; re-ingestion from the same platform refreshes
// the entry instead of appending a second one.
type TicketSource struct {
	Platform string    `json:"platform"`
	URL      string    `json:"url"`
	AddedAt  time.Time `json:"added_at"`
}

// TicketSources is stored as a jsonb column on encore.events.
type TicketSources []TicketSource

func (t TicketSources) Value() (driver.Value, error) {
	if t == nil {
		t = TicketSources{}
	}
	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket sources: %w", err)
	}
	return string(encoded), nil
}

func (t *TicketSources) Scan(src any) error {
	if t == nil {
		return fmt.Errorf("ticket sources scan target is nil")
	}
	switch value := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(value, t)
	case string:
		return json.Unmarshal([]byte(value), t)
	default:
		return fmt.Errorf("unsupported ticket sources source type %T", src)
	}
}

// CanonicalEvent maps encore.events: one row per resolved real-world event.
// Uniqueness is enforced on (venue, date); rows are mutated only through the
// merge engine or the resolution orchestrator.
type CanonicalEvent struct {
	ID             string        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name           string        `gorm:"column:name;type:text;not null" json:"name"`
	Artist         string        `gorm:"column:artist;type:text;not null" json:"artist"`
	Venue          string        `gorm:"column:venue;type:text;not null" json:"venue"`
	Date           time.Time     `gorm:"column:date;type:timestamptz;not null" json:"date"`
	DisplayTime    *string       `gorm:"column:display_time;type:text" json:"time,omitempty"`
	Genre          string        `gorm:"column:genre;type:text;not null" json:"genre"`
	TicketSources  TicketSources `gorm:"column:ticket_sources;type:jsonb;not null" json:"ticket_sources"`
	Price          *string       `gorm:"column:price;type:text" json:"price,omitempty"`
	SourceID       string        `gorm:"column:source_id;type:text;not null" json:"source_id"`
	SourcePlatform string        `gorm:"column:source_platform;type:text;not null" json:"source_platform"`
	CreatedAt      time.Time     `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"updated_at"`
}

func (CanonicalEvent) TableName() string { return "encore.events" }

// ReviewQueueItem maps encore.review_queue: one uncertain duplicate pairing
// awaiting a human decision. Status moves from pending to a terminal state
// exactly once.
type ReviewQueueItem struct {
	ID               string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID1         string     `gorm:"column:event_id_1;type:uuid;not null" json:"event_id_1"`
	EventID2         string     `gorm:"column:event_id_2;type:uuid;not null" json:"event_id_2"`
	ArtistSimilarity int        `gorm:"column:artist_similarity;type:integer;not null" json:"artist_similarity"`
	NameSimilarity   int        `gorm:"column:name_similarity;type:integer;not null" json:"name_similarity"`
	Status           string     `gorm:"column:status;type:text;not null;default:pending" json:"status"`
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	ReviewedAt       *time.Time `gorm:"column:reviewed_at;type:timestamptz" json:"reviewed_at,omitempty"`
	ReviewedBy       *string    `gorm:"column:reviewed_by;type:text" json:"reviewed_by,omitempty"`
}

func (ReviewQueueItem) TableName() string { return "encore.review_queue" }

// ResolutionEvent maps encore.resolution_events: an append-only ledger with
// one row per resolved candidate, recording the decision and the best scores
// that produced it.
type ResolutionEvent struct {
	ID                string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SourcePlatform    string    `gorm:"column:source_platform;type:text;not null" json:"source_platform"`
	SourceID          string    `gorm:"column:source_id;type:text;not null" json:"source_id"`
	Decision          string    `gorm:"column:decision;type:text;not null" json:"decision"`
	ChosenEventID     *string   `gorm:"column:chosen_event_id;type:uuid" json:"chosen_event_id,omitempty"`
	BestArtistSim     *float64  `gorm:"column:best_artist_sim;type:double precision" json:"best_artist_sim,omitempty"`
	BestNameSim       *float64  `gorm:"column:best_name_sim;type:double precision" json:"best_name_sim,omitempty"`
	BestOverallSim    *float64  `gorm:"column:best_overall_sim;type:double precision" json:"best_overall_sim,omitempty"`
	ReviewPairCount   int       `gorm:"column:review_pair_count;type:integer;not null;default:0" json:"review_pair_count"`
	RaceRecovered     bool      `gorm:"column:race_recovered;type:boolean;not null;default:false" json:"race_recovered"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (ResolutionEvent) TableName() string { return "encore.resolution_events" }

func autoMigrateModels() []any {
	return []any{
		&CanonicalEvent{},
		&ReviewQueueItem{},
		&ResolutionEvent{},
	}
}
