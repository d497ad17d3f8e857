package resolve

import (
	"time"

	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/taxonomy"
)

// Merge combines an incoming candidate into an existing canonical event,
// field by field. Identity fields (name, artist, venue, date) are
// first-writer-wins. The genre is upgraded only off the "other" fallback, the
// price only fills a gap, and ticket sources union by platform. Merging the
// same candidate twice produces the same result as merging it once.
func Merge(existing db.CanonicalEvent, incoming CandidateEvent, now time.Time) db.CanonicalEvent {
	merged := existing

	if existing.Genre == taxonomy.GenreOther && incoming.Genre != "" && incoming.Genre != taxonomy.GenreOther {
		merged.Genre = incoming.Genre
	}
	if merged.Price == nil && incoming.Price != nil {
		price := *incoming.Price
		merged.Price = &price
	}
	merged.TicketSources = mergeTicketSources(existing.TicketSources, db.TicketSource{
		Platform: incoming.SourcePlatform,
		URL:      incoming.TicketURL,
		AddedAt:  now,
	})
	merged.UpdatedAt = now

	return merged
}

// mergeTicketSources keeps at most one entry per platform. An already-known
// platform has its URL refreshed in place; added_at records when the platform
// was first seen, so repeated merges of the same candidate are stable.
func mergeTicketSources(existing db.TicketSources, incoming db.TicketSource) db.TicketSources {
	merged := make(db.TicketSources, len(existing))
	copy(merged, existing)

	for i := range merged {
		if merged[i].Platform == incoming.Platform {
			merged[i].URL = incoming.URL
			return merged
		}
	}
	return append(merged, incoming)
}
