package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"soundcheck.se/encore/internal/config"
	"soundcheck.se/encore/internal/db"
)

var ErrEventNotFound = errors.New("event not found")

// Filter narrows an event listing. Empty string and nil fields are inactive;
// Artist and Name match as case-insensitive substrings, the rest exactly.
type Filter struct {
	Genre  string
	Venue  string
	Artist string
	Name   string
	From   *time.Time
	To     *time.Time
}

// Page is one listing page. NextCursor is null on the last page, so clients
// can tell "no more pages" apart from a cursor they failed to read.
type Page struct {
	Events     []db.CanonicalEvent `json:"events"`
	NextCursor *string             `json:"next_cursor"`
}

type Stats struct {
	Events              int64            `json:"events"`
	PendingReviews      int64            `json:"pending_reviews"`
	ResolutionEvents    int64            `json:"resolution_events"`
	LastEventUpdated    *time.Time       `json:"last_event_updated,omitempty"`
	ResolutionDecisions map[string]int64 `json:"resolution_decisions"`
}

// Engine serves read-only listings over the canonical store. Pagination is
// keyset-based on the (date, id) sort key, so pages stay stable while the
// resolver keeps inserting.
type Engine struct {
	pool            *db.Pool
	logger          zerolog.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewEngine(pool *db.Pool, logger zerolog.Logger, cfg *config.Config) *Engine {
	e := &Engine{
		pool:            pool,
		logger:          logger.With().Str("component", "query").Logger(),
		defaultPageSize: 20,
		maxPageSize:     100,
	}
	if cfg != nil {
		e.defaultPageSize = cfg.DefaultPageSize
		e.maxPageSize = cfg.MaxPageSize
	}
	return e
}

// MaxPageSize is the largest limit ListEvents accepts; the HTTP layer rejects
// anything above it instead of silently clamping.
func (e *Engine) MaxPageSize() int {
	return e.maxPageSize
}

// ListEvents returns up to limit events ordered by (date, id) ascending,
// starting strictly after the cursor position when a cursor is given.
func (e *Engine) ListEvents(ctx context.Context, filter Filter, after *Cursor, limit int) (Page, error) {
	limit = clampLimit(limit, e.defaultPageSize, e.maxPageSize)

	var cursorDate *time.Time
	cursorID := ""
	if after != nil {
		cursorDate = &after.Date
		cursorID = after.ID
	}

	artistSearch := likePattern(filter.Artist)
	nameSearch := likePattern(filter.Name)

	const q = `
SELECT id::text, name, artist, venue, date, display_time, genre, ticket_sources, price, source_id, source_platform, created_at, updated_at
FROM encore.events
WHERE ($1 = '' OR genre = $1)
  AND ($2 = '' OR venue = $2)
  AND ($3 = '' OR artist ILIKE $3)
  AND ($4 = '' OR name ILIKE $4)
  AND ($5::timestamptz IS NULL OR date >= $5)
  AND ($6::timestamptz IS NULL OR date <= $6)
  AND ($7::timestamptz IS NULL OR date > $7 OR (date = $7 AND id > $8::uuid))
ORDER BY date, id
LIMIT $9
`
	rows, err := e.pool.Query(ctx, q,
		filter.Genre,
		filter.Venue,
		artistSearch,
		nameSearch,
		filter.From,
		filter.To,
		cursorDate,
		nullableID(cursorID),
		limit+1,
	)
	if err != nil {
		return Page{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]db.CanonicalEvent, 0, limit+1)
	for rows.Next() {
		var event db.CanonicalEvent
		if err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.Artist,
			&event.Venue,
			&event.Date,
			&event.DisplayTime,
			&event.Genre,
			&event.TicketSources,
			&event.Price,
			&event.SourceID,
			&event.SourcePlatform,
			&event.CreatedAt,
			&event.UpdatedAt,
		); err != nil {
			return Page{}, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate event rows: %w", err)
	}

	return buildPage(events, limit), nil
}

func (e *Engine) GetEvent(ctx context.Context, id string) (db.CanonicalEvent, error) {
	const q = `
SELECT id::text, name, artist, venue, date, display_time, genre, ticket_sources, price, source_id, source_platform, created_at, updated_at
FROM encore.events
WHERE id = $1::uuid
`
	var event db.CanonicalEvent
	err := e.pool.QueryRow(ctx, q, id).Scan(
		&event.ID,
		&event.Name,
		&event.Artist,
		&event.Venue,
		&event.Date,
		&event.DisplayTime,
		&event.Genre,
		&event.TicketSources,
		&event.Price,
		&event.SourceID,
		&event.SourcePlatform,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if db.IsNoRows(err) {
		return db.CanonicalEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return db.CanonicalEvent{}, fmt.Errorf("query event: %w", err)
	}
	return event, nil
}

func (e *Engine) QueryStats(ctx context.Context) (*Stats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM encore.events) AS events,
	(SELECT COUNT(*) FROM encore.review_queue WHERE status = 'pending') AS pending_reviews,
	(SELECT COUNT(*) FROM encore.resolution_events) AS resolution_events,
	(SELECT MAX(updated_at) FROM encore.events) AS last_event_updated
`
	var stats Stats
	if err := e.pool.QueryRow(ctx, q).Scan(
		&stats.Events,
		&stats.PendingReviews,
		&stats.ResolutionEvents,
		&stats.LastEventUpdated,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	const decisionQuery = `
SELECT decision, COUNT(*)::BIGINT
FROM encore.resolution_events
GROUP BY decision
ORDER BY decision
`
	rows, err := e.pool.Query(ctx, decisionQuery)
	if err != nil {
		return nil, fmt.Errorf("query resolution decisions: %w", err)
	}
	defer rows.Close()

	stats.ResolutionDecisions = map[string]int64{}
	for rows.Next() {
		var decision string
		var count int64
		if err := rows.Scan(&decision, &count); err != nil {
			return nil, fmt.Errorf("scan resolution decision: %w", err)
		}
		stats.ResolutionDecisions[decision] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution decisions: %w", err)
	}

	return &stats, nil
}

func clampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// buildPage trims the limit+1 overfetch down to the page and derives the next
// cursor from the last row kept. The extra row proves another page exists, so
// a cursor is handed out only when following it will return something.
func buildPage(events []db.CanonicalEvent, limit int) Page {
	if len(events) <= limit {
		return Page{Events: events}
	}
	events = events[:limit]
	last := events[len(events)-1]
	cursor := EncodeCursor(last.Date, last.ID)
	return Page{
		Events:     events,
		NextCursor: &cursor,
	}
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func likePattern(needle string) string {
	if needle == "" {
		return ""
	}
	return "%" + needle + "%"
}
