package region

import (
	"context"
	"io"
	"log/slog"

	"github.com/nao1215/rentscan/internal/model"
)

// NeighborSource resolves the neighbors of an area. Adjacency implements it.
type NeighborSource interface {
	Neighbors(ctx context.Context, area string) ([]string, error)
}

// Ranker produces the ranked listings of one area.
type Ranker interface {
	RankArea(ctx context.Context, area string, count int) ([]model.ScoredListing, error)
}

// Expansion is the outcome of Expand.
type Expansion struct {
	// Listings is the base result followed by the added listings.
	Listings []model.ScoredListing

	// Added are the neighbor listings appended to the base result, in
	// neighbor order.
	Added []model.ScoredListing

	// Neighbors are the areas that were ranked, nearest first.
	Neighbors []string
}

// Expander tops up results from neighboring areas.
type Expander struct {
	neighbors         NeighborSource
	ranker            Ranker
	stopWhenSatisfied bool
	logger            *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithStopWhenSatisfied stops the neighbor scan once enough listings were
// added. By default every neighbor is ranked.
func WithStopWhenSatisfied(stop bool) Option {
	return func(e *Expander) {
		e.stopWhenSatisfied = stop
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExpander creates an Expander.
func NewExpander(neighbors NeighborSource, ranker Ranker, opts ...Option) *Expander {
	e := &Expander{
		neighbors: neighbors,
		ranker:    ranker,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand ranks the neighbors of area, asking each for stillNeeded listings,
// and appends every listing whose normalized address is not yet present.
// The result is not trimmed to stillNeeded.
//
// base is returned unchanged when stillNeeded is not positive or the
// neighbors are unavailable. A neighbor that fails to rank is skipped. The
// only error returned is the context error.
func (e *Expander) Expand(ctx context.Context, area string, base []model.ScoredListing, stillNeeded int) (Expansion, error) {
	result := Expansion{Listings: base}
	if stillNeeded <= 0 {
		return result, nil
	}

	neighbors, err := e.neighbors.Neighbors(ctx, area)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		e.logger.Warn("skipping expansion", "area", area, "error", err)
		return result, nil
	}

	seen := make(map[string]struct{}, len(base))
	for _, l := range base {
		seen[l.Key()] = struct{}{}
	}

	accumulated := append([]model.ScoredListing(nil), base...)
	for _, neighbor := range neighbors {
		if e.stopWhenSatisfied && len(result.Added) >= stillNeeded {
			break
		}

		e.logger.Debug("expanding into neighbor", "area", area, "neighbor", neighbor, "still_needed", stillNeeded)
		ranked, err := e.ranker.RankArea(ctx, neighbor, stillNeeded)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Listings = accumulated
				return result, ctxErr
			}
			e.logger.Warn("failed to rank neighbor", "area", area, "neighbor", neighbor, "error", err)
			continue
		}
		result.Neighbors = append(result.Neighbors, neighbor)

		for _, l := range ranked {
			if _, dup := seen[l.Key()]; dup {
				continue
			}
			seen[l.Key()] = struct{}{}
			accumulated = append(accumulated, l)
			result.Added = append(result.Added, l)
		}
	}

	result.Listings = accumulated
	return result, nil
}
