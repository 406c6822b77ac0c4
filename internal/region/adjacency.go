package region

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// DefaultRadiusMiles is the radius of the neighbor search.
const DefaultRadiusMiles = 5.0

// RadiusSearch finds the areas within a distance of an area.
type RadiusSearch interface {
	// SearchRadius returns the areas within miles of area, nearest first.
	SearchRadius(ctx context.Context, area string, miles float64) ([]string, error)
}

// ZipcodeRadius searches through the zipcodeapi radius endpoint. Client must
// be created with upstream.ZipcodeClientURL.
type ZipcodeRadius struct {
	Client *upstream.Client
}

// SearchRadius implements RadiusSearch.
func (z ZipcodeRadius) SearchRadius(ctx context.Context, area string, miles float64) ([]string, error) {
	return upstream.Call(ctx, z.Client, upstream.RadiusEndpoint(area, miles), nil, upstream.DecodeRadius)
}

// Adjacency resolves the neighbors of areas.
type Adjacency struct {
	search RadiusSearch
	store  cache.AdjacencyStore
	miles  float64
	logger *slog.Logger
}

// NewAdjacency creates an Adjacency. A non-positive radius uses
// DefaultRadiusMiles and a nil logger discards output.
func NewAdjacency(search RadiusSearch, store cache.AdjacencyStore, miles float64, logger *slog.Logger) *Adjacency {
	if miles <= 0 {
		miles = DefaultRadiusMiles
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adjacency{search: search, store: store, miles: miles, logger: logger}
}

// Neighbors returns the neighbors of area, nearest first, never including
// area itself. A cached non-empty list is returned as is. Otherwise the
// radius search result is merged into the table and the merged list is
// returned.
func (a *Adjacency) Neighbors(ctx context.Context, area string) ([]string, error) {
	cached, err := a.store.Neighbors(ctx, area)
	if err != nil {
		a.logger.Warn("adjacency cache read failed", "area", area, "error", err)
	} else if len(cached) > 0 {
		return cached, nil
	}

	found, err := a.search.SearchRadius(ctx, area, a.miles)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAdjacencyUnavailable, area, err)
	}

	merged, err := a.store.AppendNeighbors(ctx, area, found)
	if err != nil {
		a.logger.Warn("adjacency cache write failed", "area", area, "error", err)
		return model.MergeNeighbors(cached, found, area), nil
	}
	return merged, nil
}
