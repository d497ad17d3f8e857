package resolve

import (
	"context"
	"sort"
	"time"
)

const (
	artistWeight = 0.6
	nameWeight   = 0.4
)

// findCandidates scans canonical events whose date lies within the fuzzy
// window around the candidate's date and scores each one. The window absorbs
// timezone and rounding disagreements between sources without scanning the
// whole table. An event carrying the candidate's own (source_platform,
// source_id) is skipped: a record cannot be a duplicate of itself re-ingested
// from the same platform.
func (s *Service) findCandidates(ctx context.Context, candidate CandidateEvent) ([]ScoredCandidate, error) {
	window := time.Duration(s.windowHours) * time.Hour
	from := candidate.Date.Add(-window)
	to := candidate.Date.Add(window)

	events, err := s.store.ListEventsInWindow(ctx, from, to, candidate.SourcePlatform, candidate.SourceID, s.scanCap)
	if err != nil {
		return nil, err
	}

	var scored []ScoredCandidate
	for _, event := range events {
		artistSim := TokenSetRatio(candidate.Artist, event.Artist)
		nameSim := TokenSetRatio(candidate.Name, event.Name)
		overall := artistWeight*artistSim + nameWeight*nameSim
		if overall <= s.candidateFloor {
			continue
		}

		scored = append(scored, ScoredCandidate{
			Event:             event,
			ArtistSimilarity:  artistSim,
			NameSimilarity:    nameSim,
			OverallSimilarity: overall,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].OverallSimilarity > scored[j].OverallSimilarity
	})
	return scored, nil
}
