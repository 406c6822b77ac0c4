package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
)

// Acquirer supplies the listings of an area. listing.Acquirer implements it.
type Acquirer interface {
	Acquire(ctx context.Context, area string, desired int) ([]model.Listing, error)
}

// Scorer scores and ranks listings. scoring.Engine implements it.
type Scorer interface {
	ScoreAll(ctx context.Context, listings []model.Listing) ([]model.ScoredListing, error)
}

// AreaRanker produces the ranked listings of one area, reusing the day's
// snapshot when one exists.
type AreaRanker struct {
	acquirer  Acquirer
	scorer    Scorer
	snapshots cache.SnapshotStore
	clock     cache.Clock
	logger    *slog.Logger
	excluded  model.ExclusionSet
}

// RankerOption configures an AreaRanker.
type RankerOption func(*AreaRanker)

// WithExcludedTypes drops listings of the given property types from
// snapshots read back from the cache.
func WithExcludedTypes(homeTypes []string) RankerOption {
	return func(r *AreaRanker) {
		r.excluded = model.NewExclusionSet(homeTypes)
	}
}

// NewAreaRanker creates an AreaRanker. A nil clock uses the wall clock and a
// nil logger discards output.
func NewAreaRanker(acquirer Acquirer, scorer Scorer, snapshots cache.SnapshotStore, clock cache.Clock, logger *slog.Logger, opts ...RankerOption) *AreaRanker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &AreaRanker{
		acquirer:  acquirer,
		scorer:    scorer,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger,
		excluded:  model.ExclusionSet{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RankArea returns the listings of area ranked by cash flow.
//
// A snapshot for (area, count, today) is returned without any upstream
// call, minus the excluded property types. Snapshots are keyed without the
// exclusions, so one written by an unfiltered request may hold them. Otherwise listings are acquired, scored and ranked, and a
// non-empty result is stored as the day's snapshot. The result is not
// trimmed to count.
func (r *AreaRanker) RankArea(ctx context.Context, area string, count int) ([]model.ScoredListing, error) {
	key := cache.SnapshotKey{Area: area, Count: count, Day: r.clock.Today()}

	snapshot, err := r.snapshots.FindSnapshot(ctx, key)
	switch {
	case err == nil:
		r.logger.Debug("using ranked snapshot", "area", area, "count", count, "day", key.Day)
		return r.excluded.FilterScored(snapshot), nil
	case !errors.Is(err, cache.ErrNotFound):
		r.logger.Warn("snapshot read failed", "area", area, "error", err)
	}

	listings, err := r.acquirer.Acquire(ctx, area, count)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listings for %s: %w", area, err)
	}

	ranked, err := r.scorer.ScoreAll(ctx, listings)
	if err != nil {
		return nil, fmt.Errorf("failed to score listings for %s: %w", area, err)
	}

	if len(ranked) > 0 {
		if err := r.snapshots.SaveSnapshot(ctx, key, ranked); err != nil {
			r.logger.Warn("snapshot write failed", "area", area, "error", err)
		}
	}
	r.logger.Info("ranked area", "area", area, "requested", count, "ranked", len(ranked))
	return ranked, nil
}
