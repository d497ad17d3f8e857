package resolve

import (
	"soundcheck.se/encore/internal/config"
	"soundcheck.se/encore/internal/db"
)

// ScoredCandidate pairs an existing canonical event with similarity scores
// against an incoming candidate, all in [0,100].
type ScoredCandidate struct {
	Event             db.CanonicalEvent
	ArtistSimilarity  float64
	NameSimilarity    float64
	OverallSimilarity float64
}

type Classification string

const (
	ClassDuplicate    Classification = "duplicate"
	ClassMaybe        Classification = "maybe"
	ClassNotDuplicate Classification = "not_duplicate"
)

// Thresholds are the tunable decision boundaries of the match classifier.
// Each classification requires BOTH dimensions to clear their bar: a perfect
// artist match with a dissimilar title must not auto-merge.
type Thresholds struct {
	DuplicateArtist float64
	DuplicateName   float64
	ReviewArtist    float64
	ReviewName      float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DuplicateArtist: 90,
		DuplicateName:   85,
		ReviewArtist:    75,
		ReviewName:      70,
	}
}

func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	if cfg == nil {
		return DefaultThresholds()
	}
	return Thresholds{
		DuplicateArtist: cfg.DuplicateArtistSim,
		DuplicateName:   cfg.DuplicateNameSim,
		ReviewArtist:    cfg.ReviewArtistSim,
		ReviewName:      cfg.ReviewNameSim,
	}
}

// Classify is a pure function from similarity scores to a match decision.
func (t Thresholds) Classify(scored ScoredCandidate) Classification {
	if scored.ArtistSimilarity > t.DuplicateArtist && scored.NameSimilarity > t.DuplicateName {
		return ClassDuplicate
	}
	if scored.ArtistSimilarity > t.ReviewArtist && scored.NameSimilarity > t.ReviewName {
		return ClassMaybe
	}
	return ClassNotDuplicate
}

type planKind string

const (
	planDuplicate planKind = "duplicate"
	planAmbiguous planKind = "ambiguous"
	planUnique    planKind = "unique"
)

// resolutionPlan is the outcome of classifying a fuzzy candidate list:
// the first duplicate short-circuits the scan; otherwise every maybe is
// collected for the review queue.
type resolutionPlan struct {
	kind   planKind
	match  *ScoredCandidate
	maybes []ScoredCandidate
}

func planFromScores(scored []ScoredCandidate, thresholds Thresholds) resolutionPlan {
	var maybes []ScoredCandidate
	for i := range scored {
		switch thresholds.Classify(scored[i]) {
		case ClassDuplicate:
			return resolutionPlan{kind: planDuplicate, match: &scored[i], maybes: maybes}
		case ClassMaybe:
			maybes = append(maybes, scored[i])
		}
	}
	if len(maybes) > 0 {
		return resolutionPlan{kind: planAmbiguous, maybes: maybes}
	}
	return resolutionPlan{kind: planUnique}
}
