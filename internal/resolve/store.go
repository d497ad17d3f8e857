package resolve

import (
	"context"
	"fmt"
	"time"

	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/review"
)

// eventStore is the persistence seam of the orchestrator: the read phase and
// the transactional write phase go through it, so the resolution logic can be
// driven against a stub in tests.
type eventStore interface {
	LookupExactEventID(ctx context.Context, venue string, date time.Time) (string, error)
	ListEventsInWindow(ctx context.Context, from, to time.Time, excludePlatform, excludeSourceID string, limit int) ([]db.CanonicalEvent, error)
	Begin(ctx context.Context) (eventTx, error)
}

type eventTx interface {
	GetEventForUpdate(ctx context.Context, eventID string) (db.CanonicalEvent, error)
	// InsertEvent reports false when the (venue, date) slot is already taken.
	InsertEvent(ctx context.Context, event db.CanonicalEvent) (bool, error)
	UpdateEvent(ctx context.Context, event db.CanonicalEvent) error
	EnqueueReviewPair(ctx context.Context, eventID1, eventID2 string, artistSim, nameSim float64) error
	InsertResolutionEvent(ctx context.Context, row db.ResolutionEvent) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type pgEventStore struct {
	pool *db.Pool
}

func (s *pgEventStore) LookupExactEventID(ctx context.Context, venue string, date time.Time) (string, error) {
	const q = `SELECT id::text FROM encore.events WHERE venue = $1 AND date = $2`
	var id string
	err := s.pool.QueryRow(ctx, q, venue, date).Scan(&id)
	if db.IsNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("exact lookup: %w", err)
	}
	return id, nil
}

func (s *pgEventStore) ListEventsInWindow(ctx context.Context, from, to time.Time, excludePlatform, excludeSourceID string, limit int) ([]db.CanonicalEvent, error) {
	const q = `
SELECT
	id::text,
	name,
	artist,
	venue,
	date,
	display_time,
	genre,
	ticket_sources,
	price,
	source_id,
	source_platform,
	created_at,
	updated_at
FROM encore.events
WHERE date BETWEEN $1 AND $2
  AND NOT (source_platform = $3 AND source_id = $4)
ORDER BY date, id
LIMIT $5
`
	rows, err := s.pool.Query(ctx, q, from, to, excludePlatform, excludeSourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query fuzzy window: %w", err)
	}
	defer rows.Close()

	var events []db.CanonicalEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fuzzy window: %w", err)
	}
	return events, nil
}

func (s *pgEventStore) Begin(ctx context.Context) (eventTx, error) {
	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &pgEventTx{tx: tx}, nil
}

type pgEventTx struct {
	tx db.Tx
}

func (t *pgEventTx) GetEventForUpdate(ctx context.Context, eventID string) (db.CanonicalEvent, error) {
	const q = `
SELECT id::text, name, artist, venue, date, display_time, genre, ticket_sources, price, source_id, source_platform, created_at, updated_at
FROM encore.events
WHERE id = $1::uuid
FOR UPDATE
`
	event, err := scanEvent(t.tx.QueryRow(ctx, q, eventID))
	if db.IsNoRows(err) {
		return db.CanonicalEvent{}, db.ErrNoRows
	}
	if err != nil {
		return db.CanonicalEvent{}, err
	}
	return event, nil
}

func (t *pgEventTx) InsertEvent(ctx context.Context, event db.CanonicalEvent) (bool, error) {
	const q = `
INSERT INTO encore.events (id, name, artist, venue, date, display_time, genre, ticket_sources, price, source_id, source_platform, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (venue, date) DO NOTHING
`
	tag, err := t.tx.Exec(ctx, q,
		event.ID,
		event.Name,
		event.Artist,
		event.Venue,
		event.Date,
		event.DisplayTime,
		event.Genre,
		event.TicketSources,
		event.Price,
		event.SourceID,
		event.SourcePlatform,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		// ON CONFLICT reports a lost race as zero rows; a raw unique violation
		// can still surface from the index and means the same thing.
		if db.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert canonical event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgEventTx) UpdateEvent(ctx context.Context, event db.CanonicalEvent) error {
	const q = `
UPDATE encore.events
SET genre = $1, ticket_sources = $2, price = $3, updated_at = $4
WHERE id = $5::uuid
`
	if _, err := t.tx.Exec(ctx, q, event.Genre, event.TicketSources, event.Price, event.UpdatedAt, event.ID); err != nil {
		return fmt.Errorf("update canonical event: %w", err)
	}
	return nil
}

func (t *pgEventTx) EnqueueReviewPair(ctx context.Context, eventID1, eventID2 string, artistSim, nameSim float64) error {
	return review.EnqueueTx(ctx, t.tx, eventID1, eventID2, artistSim, nameSim)
}

func (t *pgEventTx) InsertResolutionEvent(ctx context.Context, row db.ResolutionEvent) error {
	const q = `
INSERT INTO encore.resolution_events (id, source_platform, source_id, decision, chosen_event_id, best_artist_sim, best_name_sim, best_overall_sim, review_pair_count, race_recovered, created_at)
VALUES ($1::uuid, $2, $3, $4, $5::uuid, $6, $7, $8, $9, $10, $11)
`
	_, err := t.tx.Exec(ctx, q,
		row.ID,
		row.SourcePlatform,
		row.SourceID,
		row.Decision,
		row.ChosenEventID,
		row.BestArtistSim,
		row.BestNameSim,
		row.BestOverallSim,
		row.ReviewPairCount,
		row.RaceRecovered,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resolution ledger row: %w", err)
	}
	return nil
}

func (t *pgEventTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgEventTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type eventScanner interface {
	Scan(dest ...any) error
}

func scanEvent(scanner eventScanner) (db.CanonicalEvent, error) {
	var event db.CanonicalEvent
	if err := scanner.Scan(
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
		return db.CanonicalEvent{}, fmt.Errorf("scan canonical event: %w", err)
	}
	return event, nil
}
