package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"soundcheck.se/encore/internal/config"
	"soundcheck.se/encore/internal/db"
)

// fakeEventStore keeps canonical events, review pairs, and ledger rows in
// memory so the orchestrator's decision paths can run without Postgres. The
// unique (venue, date) slot and the zero-row insert on a lost race are
// emulated the way the real store behaves.
type fakeEventStore struct {
	events  map[string]db.CanonicalEvent
	reviews []fakeReviewPair
	ledger  []db.ResolutionEvent

	// vanishedIDs makes GetEventForUpdate miss for these ids, as if the row
	// was deleted between the read phase and the write phase.
	vanishedIDs map[string]bool
	// appearOnInsert is stored and claims the slot just before the next
	// insert, as if a concurrent writer won the race.
	appearOnInsert *db.CanonicalEvent

	commits   int
	rollbacks int
}

type fakeReviewPair struct {
	eventID1, eventID2 string
	artistSim, nameSim float64
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events:      map[string]db.CanonicalEvent{},
		vanishedIDs: map[string]bool{},
	}
}

func (f *fakeEventStore) LookupExactEventID(_ context.Context, venue string, date time.Time) (string, error) {
	for id, event := range f.events {
		if event.Venue == venue && event.Date.Equal(date) {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeEventStore) ListEventsInWindow(_ context.Context, from, to time.Time, excludePlatform, excludeSourceID string, limit int) ([]db.CanonicalEvent, error) {
	var events []db.CanonicalEvent
	for _, event := range f.events {
		if event.Date.Before(from) || event.Date.After(to) {
			continue
		}
		if event.SourcePlatform == excludePlatform && event.SourceID == excludeSourceID {
			continue
		}
		if len(events) == limit {
			break
		}
		events = append(events, event)
	}
	return events, nil
}

func (f *fakeEventStore) Begin(context.Context) (eventTx, error) {
	return &fakeEventTx{store: f}, nil
}

type fakeEventTx struct {
	store *fakeEventStore
	done  bool
}

func (t *fakeEventTx) GetEventForUpdate(_ context.Context, eventID string) (db.CanonicalEvent, error) {
	if t.store.vanishedIDs[eventID] {
		return db.CanonicalEvent{}, db.ErrNoRows
	}
	event, ok := t.store.events[eventID]
	if !ok {
		return db.CanonicalEvent{}, db.ErrNoRows
	}
	return event, nil
}

func (t *fakeEventTx) InsertEvent(ctx context.Context, event db.CanonicalEvent) (bool, error) {
	if winner := t.store.appearOnInsert; winner != nil {
		t.store.events[winner.ID] = *winner
		t.store.appearOnInsert = nil
	}
	if id, _ := t.store.LookupExactEventID(ctx, event.Venue, event.Date); id != "" {
		return false, nil
	}
	t.store.events[event.ID] = event
	return true, nil
}

func (t *fakeEventTx) UpdateEvent(_ context.Context, event db.CanonicalEvent) error {
	existing, ok := t.store.events[event.ID]
	if !ok {
		return db.ErrNoRows
	}
	existing.Genre = event.Genre
	existing.TicketSources = event.TicketSources
	existing.Price = event.Price
	existing.UpdatedAt = event.UpdatedAt
	t.store.events[event.ID] = existing
	return nil
}

func (t *fakeEventTx) EnqueueReviewPair(_ context.Context, eventID1, eventID2 string, artistSim, nameSim float64) error {
	t.store.reviews = append(t.store.reviews, fakeReviewPair{
		eventID1:  eventID1,
		eventID2:  eventID2,
		artistSim: artistSim,
		nameSim:   nameSim,
	})
	return nil
}

func (t *fakeEventTx) InsertResolutionEvent(_ context.Context, row db.ResolutionEvent) error {
	t.store.ledger = append(t.store.ledger, row)
	return nil
}

func (t *fakeEventTx) Commit(context.Context) error {
	if !t.done {
		t.done = true
		t.store.commits++
	}
	return nil
}

func (t *fakeEventTx) Rollback(context.Context) error {
	if !t.done {
		t.done = true
		t.store.rollbacks++
	}
	return nil
}

// orchestratorConfig widens the review band and raises the duplicate bar so
// the decision paths in these tests do not hinge on exact similarity values
// of the fixture strings. Identical strings score 100 and clear the duplicate
// bar; overlapping-but-different strings land in the review band.
func orchestratorConfig() *config.Config {
	return &config.Config{
		FuzzyWindowHours:      24,
		FuzzyCandidateFloor:   50,
		DuplicateArtistSim:    99,
		DuplicateNameSim:      99,
		ReviewArtistSim:       10,
		ReviewNameSim:         10,
		FuzzyCandidateScanCap: 500,
	}
}

func newTestService(store *fakeEventStore) *Service {
	return newService(store, zerolog.Nop(), orchestratorConfig())
}

func testCandidate() CandidateEvent {
	return CandidateEvent{
		Name:           "Neon Nights Tour",
		Artist:         "The Midnight Office",
		Venue:          "Debaser Strand",
		Date:           time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC),
		Genre:          "rock",
		TicketURL:      "https://tickets.example/neon-nights",
		SourceID:       "tm-1001",
		SourcePlatform: "ticketmaster",
	}
}

func storedEvent(f *fakeEventStore, mutate func(*db.CanonicalEvent)) db.CanonicalEvent {
	event := db.CanonicalEvent{
		ID:             uuid.NewString(),
		Name:           "Neon Nights Tour",
		Artist:         "The Midnight Office",
		Venue:          "Slaktkyrkan",
		Date:           time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC),
		Genre:          "rock",
		SourceID:       "ax-2002",
		SourcePlatform: "axs",
		TicketSources: db.TicketSources{{
			Platform: "axs",
			URL:      "https://axs.example/neon",
			AddedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		}},
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&event)
	}
	f.events[event.ID] = event
	return event
}

func TestResolveAndStoreReingestionIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	service := newTestService(store)
	ctx := context.Background()

	first, err := service.ResolveAndStore(ctx, testCandidate())
	if err != nil {
		t.Fatalf("first ResolveAndStore() error = %v", err)
	}
	if first.Decision != DecisionUnique {
		t.Fatalf("first decision = %q, want %q", first.Decision, DecisionUnique)
	}

	second, err := service.ResolveAndStore(ctx, testCandidate())
	if err != nil {
		t.Fatalf("second ResolveAndStore() error = %v", err)
	}
	if second.Decision != DecisionExact {
		t.Fatalf("second decision = %q, want %q", second.Decision, DecisionExact)
	}
	if second.EventID != first.EventID {
		t.Fatalf("second EventID = %q, want %q", second.EventID, first.EventID)
	}

	if len(store.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(store.events))
	}
	event := store.events[first.EventID]
	if len(event.TicketSources) != 1 {
		t.Fatalf("ticket sources = %d, want 1", len(event.TicketSources))
	}
	if len(store.ledger) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(store.ledger))
	}
	if got, want := store.ledger[0].Decision, string(DecisionUnique); got != want {
		t.Errorf("ledger[0].Decision = %q, want %q", got, want)
	}
	if got, want := store.ledger[1].Decision, string(DecisionExact); got != want {
		t.Errorf("ledger[1].Decision = %q, want %q", got, want)
	}
}

func TestResolveAndStoreQueuesReviewPairPerMaybe(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	// Same artist, overlapping but different titles: review band, not merges.
	maybe1 := storedEvent(store, func(e *db.CanonicalEvent) {
		e.Name = "Neon Lights Tour"
	})
	maybe2 := storedEvent(store, func(e *db.CanonicalEvent) {
		e.Name = "Midnight Neon Club Night"
		e.Venue = "Nalen"
		e.SourceID = "ax-2003"
	})
	service := newTestService(store)

	resolution, err := service.ResolveAndStore(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("ResolveAndStore() error = %v", err)
	}
	if resolution.Decision != DecisionAmbiguous {
		t.Fatalf("decision = %q, want %q", resolution.Decision, DecisionAmbiguous)
	}
	if resolution.ReviewPairCount != 2 {
		t.Fatalf("ReviewPairCount = %d, want 2", resolution.ReviewPairCount)
	}

	if _, ok := store.events[resolution.EventID]; !ok {
		t.Fatal("ambiguous candidate was not persisted as a new event")
	}
	if len(store.events) != 3 {
		t.Fatalf("stored events = %d, want 3", len(store.events))
	}

	if len(store.reviews) != 2 {
		t.Fatalf("review pairs = %d, want 2", len(store.reviews))
	}
	seen := map[string]bool{}
	for _, pair := range store.reviews {
		if pair.eventID1 != resolution.EventID {
			t.Errorf("review pair eventID1 = %q, want new event %q", pair.eventID1, resolution.EventID)
		}
		if seen[pair.eventID2] {
			t.Errorf("duplicate review pair for event %q", pair.eventID2)
		}
		seen[pair.eventID2] = true
	}
	if !seen[maybe1.ID] || !seen[maybe2.ID] {
		t.Errorf("review pairs cover %v, want both %q and %q", seen, maybe1.ID, maybe2.ID)
	}

	if len(store.ledger) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(store.ledger))
	}
	if got, want := store.ledger[0].Decision, string(DecisionAmbiguous); got != want {
		t.Errorf("ledger decision = %q, want %q", got, want)
	}
	if store.ledger[0].ReviewPairCount != 2 {
		t.Errorf("ledger review_pair_count = %d, want 2", store.ledger[0].ReviewPairCount)
	}
}

func TestResolveAndStoreInsertsWhenDuplicateVanishes(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	// Identical artist and name at another venue: fuzzy duplicate, no exact hit.
	vanished := storedEvent(store, nil)
	store.vanishedIDs[vanished.ID] = true
	service := newTestService(store)

	resolution, err := service.ResolveAndStore(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("ResolveAndStore() error = %v", err)
	}
	if resolution.Decision != DecisionUnique {
		t.Fatalf("decision = %q, want %q", resolution.Decision, DecisionUnique)
	}
	if !resolution.RaceRecovered {
		t.Fatal("RaceRecovered = false, want true")
	}
	if resolution.EventID == vanished.ID {
		t.Fatal("resolution points at the vanished event")
	}
	if _, ok := store.events[resolution.EventID]; !ok {
		t.Fatal("fallback insert did not persist the candidate")
	}
	if len(store.ledger) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(store.ledger))
	}
	if !store.ledger[0].RaceRecovered {
		t.Error("ledger row race_recovered = false, want true")
	}
}

func TestResolveAndStoreMergesIntoSlotWinnerAfterLostInsert(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore()
	candidate := testCandidate()
	winner := db.CanonicalEvent{
		ID:             uuid.NewString(),
		Name:           "Neon Nights Tour",
		Artist:         "The Midnight Office",
		Venue:          candidate.Venue,
		Date:           candidate.Date,
		Genre:          "rock",
		SourceID:       "ax-2002",
		SourcePlatform: "axs",
		TicketSources: db.TicketSources{{
			Platform: "axs",
			URL:      "https://axs.example/neon",
			AddedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		}},
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	store.appearOnInsert = &winner
	service := newTestService(store)

	resolution, err := service.ResolveAndStore(context.Background(), candidate)
	if err != nil {
		t.Fatalf("ResolveAndStore() error = %v", err)
	}
	if resolution.Decision != DecisionExact {
		t.Fatalf("decision = %q, want %q", resolution.Decision, DecisionExact)
	}
	if !resolution.RaceRecovered {
		t.Fatal("RaceRecovered = false, want true")
	}
	if resolution.EventID != winner.ID {
		t.Fatalf("EventID = %q, want slot winner %q", resolution.EventID, winner.ID)
	}

	if len(store.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(store.events))
	}
	merged := store.events[winner.ID]
	if len(merged.TicketSources) != 2 {
		t.Fatalf("merged ticket sources = %d, want 2", len(merged.TicketSources))
	}
	if store.rollbacks == 0 {
		t.Error("lost insert transaction was never rolled back")
	}
	if len(store.ledger) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(store.ledger))
	}
	if got, want := store.ledger[0].Decision, string(DecisionExact); got != want {
		t.Errorf("ledger decision = %q, want %q", got, want)
	}
	if !store.ledger[0].RaceRecovered {
		t.Error("ledger row race_recovered = false, want true")
	}
}
