package pipeline

import (
	"context"

	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/region"
)

// Ranker ranks one area. AreaRanker implements it.
type Ranker interface {
	RankArea(ctx context.Context, area string, count int) ([]model.ScoredListing, error)
}

// Expander tops a result up from neighboring areas. region.Expander
// implements it.
type Expander interface {
	Expand(ctx context.Context, area string, base []model.ScoredListing, stillNeeded int) (region.Expansion, error)
}

// HomeAreaStep ranks the target area of the request.
type HomeAreaStep struct {
	ranker Ranker
}

// NewHomeAreaStep creates a new home-area step.
func NewHomeAreaStep(ranker Ranker) *HomeAreaStep {
	return &HomeAreaStep{ranker: ranker}
}

// Name returns the step name.
func (s *HomeAreaStep) Name() string {
	return "home_area"
}

// Do executes the home-area step.
func (s *HomeAreaStep) Do(ctx context.Context, report *model.RankReport) error {
	listings, err := s.ranker.RankArea(ctx, report.Area, report.DesiredCount)
	if err != nil {
		return err
	}
	report.HomeListings = listings
	return nil
}

// ExpandStep tops up an under-supplied home area from its neighbors.
// It does nothing when the home area already supplied enough listings.
type ExpandStep struct {
	expander Expander
}

// NewExpandStep creates a new expansion step.
func NewExpandStep(expander Expander) *ExpandStep {
	return &ExpandStep{expander: expander}
}

// Name returns the step name.
func (s *ExpandStep) Name() string {
	return "expand"
}

// Do executes the expansion step.
func (s *ExpandStep) Do(ctx context.Context, report *model.RankReport) error {
	expansion, err := s.expander.Expand(ctx, report.Area, report.HomeListings, report.StillNeeded())
	report.ExpandedListings = expansion.Added
	report.Neighbors = expansion.Neighbors
	return err
}
