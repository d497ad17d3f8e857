package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/globaltime"
)

var (
	ErrNotFound        = errors.New("review item not found")
	ErrAlreadyReviewed = errors.New("review item already reviewed")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrUnknownStatus   = errors.New("unknown review status")
)

const (
	StatusPending      = "pending"
	StatusMerged       = "merged"
	StatusNotDuplicate = "not_duplicate"
)

// EnqueueTx inserts a pending review pair inside the caller's transaction, so
// the new canonical event and its review pairs land atomically. Similarity
// scores are stored rounded down to whole points; the queue is for humans, not
// for re-running the classifier.
func EnqueueTx(ctx context.Context, tx db.Tx, eventID1, eventID2 string, artistSim, nameSim float64) error {
	const q = `
INSERT INTO encore.review_queue (id, event_id_1, event_id_2, artist_similarity, name_similarity, status, created_at)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7)
`
	_, err := tx.Exec(ctx, q,
		uuid.NewString(),
		eventID1,
		eventID2,
		int(artistSim),
		int(nameSim),
		StatusPending,
		globaltime.Now(),
	)
	if err != nil {
		return fmt.Errorf("enqueue review pair: %w", err)
	}
	return nil
}

type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func NewService(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With().Str("component", "review").Logger(),
	}
}

// ListPending returns pending review pairs oldest first, so the longest-waiting
// uncertainty gets looked at first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]db.ReviewQueueItem, error) {
	return s.List(ctx, StatusPending, limit)
}

// List returns review pairs in the given status, oldest first.
func (s *Service) List(ctx context.Context, status string, limit int) ([]db.ReviewQueueItem, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT id::text, event_id_1::text, event_id_2::text, artist_similarity, name_similarity, status, created_at, reviewed_at, reviewed_by
FROM encore.review_queue
WHERE status = $1
ORDER BY created_at, id
LIMIT $2
`
	rows, err := s.pool.Query(ctx, q, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()

	var items []db.ReviewQueueItem
	for rows.Next() {
		var item db.ReviewQueueItem
		if err := rows.Scan(
			&item.ID,
			&item.EventID1,
			&item.EventID2,
			&item.ArtistSimilarity,
			&item.NameSimilarity,
			&item.Status,
			&item.CreatedAt,
			&item.ReviewedAt,
			&item.ReviewedBy,
		); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return items, nil
}

// MarkReviewed moves a pending item to a terminal status. The transition is
// one-way and happens at most once; a second reviewer racing on the same item
// gets ErrAlreadyReviewed instead of silently overwriting the first decision.
func (s *Service) MarkReviewed(ctx context.Context, id, decision, reviewer string) (db.ReviewQueueItem, error) {
	if decision != StatusMerged && decision != StatusNotDuplicate {
		return db.ReviewQueueItem{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	const q = `
UPDATE encore.review_queue
SET status = $1, reviewed_at = $2, reviewed_by = $3
WHERE id = $4::uuid AND status = $5
RETURNING id::text, event_id_1::text, event_id_2::text, artist_similarity, name_similarity, status, created_at, reviewed_at, reviewed_by
`
	var item db.ReviewQueueItem
	err := s.pool.QueryRow(ctx, q, decision, globaltime.Now(), reviewer, id, StatusPending).Scan(
		&item.ID,
		&item.EventID1,
		&item.EventID2,
		&item.ArtistSimilarity,
		&item.NameSimilarity,
		&item.Status,
		&item.CreatedAt,
		&item.ReviewedAt,
		&item.ReviewedBy,
	)
	if db.IsNoRows(err) {
		return db.ReviewQueueItem{}, s.explainMissedUpdate(ctx, id)
	}
	if err != nil {
		return db.ReviewQueueItem{}, fmt.Errorf("mark review item: %w", err)
	}

	s.logger.Info().
		Str("review_id", item.ID).
		Str("decision", item.Status).
		Str("reviewer", reviewer).
		Msg("review item resolved")
	return item, nil
}

// explainMissedUpdate distinguishes "no such item" from "item exists but is no
// longer pending" after the guarded update matched zero rows.
func (s *Service) explainMissedUpdate(ctx context.Context, id string) error {
	const q = `SELECT status FROM encore.review_queue WHERE id = $1::uuid`
	var status string
	err := s.pool.QueryRow(ctx, q, id).Scan(&status)
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("look up review item %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s is %s", ErrAlreadyReviewed, id, status)
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusMerged, StatusNotDuplicate:
		return true
	}
	return false
}
