package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"soundcheck.se/encore/internal/config"
	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/globaltime"
)

// Decision names how a candidate was resolved, as recorded in the ledger:
// exact and duplicate merged into an existing event, ambiguous inserted plus
// queued review pairs, unique inserted with no contenders.
type Decision string

const (
	DecisionExact     Decision = "exact"
	DecisionDuplicate Decision = "duplicate"
	DecisionAmbiguous Decision = "ambiguous"
	DecisionUnique    Decision = "unique"
)

// Resolution is the outcome of resolving one candidate: which canonical event
// it ended up in, how, and the best similarity scores seen along the way.
type Resolution struct {
	Decision        Decision
	EventID         string
	BestMatch       *ScoredCandidate
	ReviewPairCount int
	RaceRecovered   bool
}

// Service is the resolution orchestrator. It owns the full pipeline for one
// candidate: normalize, validate, exact match on (venue, date), fuzzy scan,
// classify, then merge or insert plus review pairs, all committed in a single
// transaction alongside a ledger row.
type Service struct {
	store          eventStore
	logger         zerolog.Logger
	thresholds     Thresholds
	windowHours    int
	candidateFloor float64
	scanCap        int
}

func NewService(pool *db.Pool, logger zerolog.Logger, cfg *config.Config) *Service {
	return newService(&pgEventStore{pool: pool}, logger, cfg)
}

func newService(store eventStore, logger zerolog.Logger, cfg *config.Config) *Service {
	s := &Service{
		store:          store,
		logger:         logger.With().Str("component", "resolve").Logger(),
		thresholds:     ThresholdsFromConfig(cfg),
		windowHours:    24,
		candidateFloor: 50,
		scanCap:        500,
	}
	if cfg != nil {
		s.windowHours = cfg.FuzzyWindowHours
		s.candidateFloor = cfg.FuzzyCandidateFloor
		s.scanCap = cfg.FuzzyCandidateScanCap
	}
	return s
}

// ResolveAndStore resolves a single candidate into the canonical store. The
// read phase (exact lookup, fuzzy scan, classification) runs without locks;
// the write phase re-verifies its assumptions inside one transaction, so two
// concurrent candidates for the same (venue, date) slot converge on a merge
// instead of a duplicate row or an error.
func (s *Service) ResolveAndStore(ctx context.Context, candidate CandidateEvent) (Resolution, error) {
	candidate = candidate.Normalized()
	if err := candidate.Validate(); err != nil {
		return Resolution{}, err
	}

	logger := s.logger.With().
		Str("source_platform", candidate.SourcePlatform).
		Str("source_id", candidate.SourceID).
		Str("venue", candidate.Venue).
		Time("date", candidate.Date).
		Logger()

	exactID, err := s.store.LookupExactEventID(ctx, candidate.Venue, candidate.Date)
	if err != nil {
		return Resolution{}, err
	}
	if exactID != "" {
		resolution, err := s.mergeInto(ctx, exactID, candidate, DecisionExact, nil, false)
		if err != nil {
			return Resolution{}, err
		}
		logger.Info().Str("event_id", resolution.EventID).Msg("candidate merged into exact match")
		return resolution, nil
	}

	scored, err := s.findCandidates(ctx, candidate)
	if err != nil {
		return Resolution{}, err
	}
	plan := planFromScores(scored, s.thresholds)

	var resolution Resolution
	switch plan.kind {
	case planDuplicate:
		resolution, err = s.mergeInto(ctx, plan.match.Event.ID, candidate, DecisionDuplicate, plan.match, false)
		if db.IsNoRows(err) {
			// The matched event vanished between scan and merge. Fall back to
			// inserting as new; the unique index still guards the slot.
			resolution, err = s.insertNew(ctx, candidate, plan.match, nil, true)
		}
		if err != nil {
			return Resolution{}, err
		}
		logger.Info().
			Str("event_id", resolution.EventID).
			Float64("artist_sim", plan.match.ArtistSimilarity).
			Float64("name_sim", plan.match.NameSimilarity).
			Msg("candidate merged into fuzzy duplicate")
	case planAmbiguous:
		resolution, err = s.insertNew(ctx, candidate, &plan.maybes[0], plan.maybes, false)
		if err != nil {
			return Resolution{}, err
		}
		logger.Info().
			Str("event_id", resolution.EventID).
			Int("review_pairs", resolution.ReviewPairCount).
			Msg("candidate inserted and queued for review")
	default:
		var best *ScoredCandidate
		if len(scored) > 0 {
			best = &scored[0]
		}
		resolution, err = s.insertNew(ctx, candidate, best, nil, false)
		if err != nil {
			return Resolution{}, err
		}
		logger.Info().
			Str("event_id", resolution.EventID).
			Bool("race_recovered", resolution.RaceRecovered).
			Msg("candidate inserted as new event")
	}
	return resolution, nil
}

// mergeInto merges the candidate into an existing canonical event. The row is
// re-read under a row lock inside the transaction, so the merge applies to the
// event's current state rather than the snapshot the read phase saw. Returns
// db.ErrNoRows when the event no longer exists.
func (s *Service) mergeInto(ctx context.Context, eventID string, candidate CandidateEvent, decision Decision, match *ScoredCandidate, raceRecovered bool) (Resolution, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := tx.GetEventForUpdate(ctx, eventID)
	if err != nil {
		return Resolution{}, err
	}

	now := globaltime.Now()
	merged := Merge(existing, candidate, now)
	if err := tx.UpdateEvent(ctx, merged); err != nil {
		return Resolution{}, err
	}

	resolution := Resolution{
		Decision:      decision,
		EventID:       merged.ID,
		BestMatch:     match,
		RaceRecovered: raceRecovered,
	}
	if err := tx.InsertResolutionEvent(ctx, newLedgerRow(candidate, resolution, now)); err != nil {
		return Resolution{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Resolution{}, fmt.Errorf("commit merge: %w", err)
	}
	return resolution, nil
}

// insertNew inserts the candidate as a new canonical event, enqueueing a
// review pair for every maybe in the same transaction. When the (venue, date)
// slot got taken since the read phase, the insert affects zero rows and the
// candidate is merged into the winner instead.
func (s *Service) insertNew(ctx context.Context, candidate CandidateEvent, best *ScoredCandidate, maybes []ScoredCandidate, raceRecovered bool) (Resolution, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := globaltime.Now()
	event := newEventFromCandidate(candidate, now)

	inserted, err := tx.InsertEvent(ctx, event)
	if err != nil {
		return Resolution{}, err
	}
	if !inserted {
		// Lost the insert race: another candidate claimed the slot first.
		if err := tx.Rollback(ctx); err != nil {
			return Resolution{}, fmt.Errorf("rollback lost insert: %w", err)
		}
		winnerID, err := s.store.LookupExactEventID(ctx, candidate.Venue, candidate.Date)
		if err != nil {
			return Resolution{}, err
		}
		if winnerID == "" {
			return Resolution{}, fmt.Errorf("insert conflicted but no event holds venue %q at %s", candidate.Venue, candidate.Date)
		}
		return s.mergeInto(ctx, winnerID, candidate, DecisionExact, best, true)
	}

	decision := DecisionUnique
	if len(maybes) > 0 {
		decision = DecisionAmbiguous
		for i := range maybes {
			if err := tx.EnqueueReviewPair(ctx, event.ID, maybes[i].Event.ID, maybes[i].ArtistSimilarity, maybes[i].NameSimilarity); err != nil {
				return Resolution{}, err
			}
		}
	}

	resolution := Resolution{
		Decision:        decision,
		EventID:         event.ID,
		BestMatch:       best,
		ReviewPairCount: len(maybes),
		RaceRecovered:   raceRecovered,
	}
	if err := tx.InsertResolutionEvent(ctx, newLedgerRow(candidate, resolution, now)); err != nil {
		return Resolution{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Resolution{}, fmt.Errorf("commit insert: %w", err)
	}
	return resolution, nil
}

func newEventFromCandidate(candidate CandidateEvent, now time.Time) db.CanonicalEvent {
	return db.CanonicalEvent{
		ID:          uuid.NewString(),
		Name:        candidate.Name,
		Artist:      candidate.Artist,
		Venue:       candidate.Venue,
		Date:        candidate.Date,
		DisplayTime: candidate.DisplayTime,
		Genre:       candidate.Genre,
		TicketSources: db.TicketSources{{
			Platform: candidate.SourcePlatform,
			URL:      candidate.TicketURL,
			AddedAt:  now,
		}},
		Price:          candidate.Price,
		SourceID:       candidate.SourceID,
		SourcePlatform: candidate.SourcePlatform,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newLedgerRow(candidate CandidateEvent, resolution Resolution, now time.Time) db.ResolutionEvent {
	row := db.ResolutionEvent{
		ID:              uuid.NewString(),
		SourcePlatform:  candidate.SourcePlatform,
		SourceID:        candidate.SourceID,
		Decision:        string(resolution.Decision),
		ChosenEventID:   &resolution.EventID,
		ReviewPairCount: resolution.ReviewPairCount,
		RaceRecovered:   resolution.RaceRecovered,
		CreatedAt:       now,
	}
	if resolution.BestMatch != nil {
		row.BestArtistSim = &resolution.BestMatch.ArtistSimilarity
		row.BestNameSim = &resolution.BestMatch.NameSimilarity
		row.BestOverallSim = &resolution.BestMatch.OverallSimilarity
	}
	return row
}
