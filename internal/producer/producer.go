// Package producer defines the boundary between site-specific crawlers and
// the resolution core. Crawler implementations live outside this repo; the
// core only sees batches of candidate events.
package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"soundcheck.se/encore/internal/resolve"
)

// Producer emits a batch of candidate events from one upstream source.
type Producer interface {
	Name() string
	Produce(ctx context.Context) ([]resolve.CandidateEvent, error)
}

// Resolver is the part of the resolution orchestrator a runner needs.
type Resolver interface {
	ResolveAndStore(ctx context.Context, candidate resolve.CandidateEvent) (resolve.Resolution, error)
}

// Summary counts the outcomes of one producer run.
type Summary struct {
	Produced int
	Resolved int
	Rejected int
	Failed   int
}

// Runner drains producers through the resolver one candidate at a time.
// A candidate that fails validation is logged and skipped; a store failure
// aborts the run so the caller's scheduler can retry the whole batch.
type Runner struct {
	resolver Resolver
	logger   zerolog.Logger
}

func NewRunner(resolver Resolver, logger zerolog.Logger) *Runner {
	return &Runner{
		resolver: resolver,
		logger:   logger.With().Str("component", "producer").Logger(),
	}
}

func (r *Runner) Run(ctx context.Context, p Producer) (Summary, error) {
	candidates, err := p.Produce(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("producer %s: %w", p.Name(), err)
	}

	summary := Summary{Produced: len(candidates)}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		resolution, err := r.resolver.ResolveAndStore(ctx, candidate)
		if err != nil {
			var verr *resolve.ValidationError
			if errors.As(err, &verr) {
				summary.Rejected++
				r.logger.Warn().
					Err(err).
					Str("producer", p.Name()).
					Msg("candidate rejected")
				continue
			}
			summary.Failed++
			return summary, fmt.Errorf("resolve candidate from %s: %w", p.Name(), err)
		}

		summary.Resolved++
		r.logger.Debug().
			Str("producer", p.Name()).
			Str("decision", string(resolution.Decision)).
			Str("event_id", resolution.EventID).
			Msg("candidate resolved")
	}
	return summary, nil
}
