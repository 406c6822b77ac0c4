package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/rentscan/internal/agent"
	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/enrich"
	"github.com/nao1215/rentscan/internal/listing"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/region"
	"github.com/nao1215/rentscan/internal/scoring"
	"github.com/nao1215/rentscan/internal/upstream"
)

// areaPattern matches usable area codes. Area codes end up in cache keys
// and upstream paths, so separators are rejected.
var areaPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,16}$`)

// ValidateArea returns ErrInvalidArea when area is not a usable area code.
func ValidateArea(area string) error {
	if !areaPattern.MatchString(area) {
		return fmt.Errorf("%w: %q", ErrInvalidArea, area)
	}
	return nil
}

// Components are the long-lived collaborators of a Service.
type Components struct {
	// Agents hands out agent ids. It must live as long as the Service so
	// that no agent is served twice.
	Agents listing.AgentSource

	// Fetcher fetches an agent's listings.
	Fetcher listing.Fetcher

	// Store is the cache repository.
	Store cache.Store

	// Scorer enriches and ranks listings.
	Scorer Scorer

	// Neighbors resolves neighboring areas for expansion.
	Neighbors region.NeighborSource
}

// Upstreams are the upstream clients used by NewUpstreamComponents.
type Upstreams struct {
	// Zillow is the RapidAPI Zillow client.
	Zillow *upstream.Client

	// Zipcode is the zipcodeapi client, created with upstream.ZipcodeClientURL.
	Zipcode *upstream.Client
}

// NewUpstreamComponents wires the production components over the upstream
// clients and the cache store.
func NewUpstreamComponents(u Upstreams, store cache.Store, params scoring.Params, radiusMiles float64, clock cache.Clock, logger *slog.Logger) Components {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	taxes := enrich.NewTaxLookup(enrich.ZillowTaxFetcher{Client: u.Zillow}, store, clock, logger)
	rents := enrich.NewRentLookup(enrich.ZillowRentFetcher{Client: u.Zillow}, store, clock, logger)

	return Components{
		Agents:    agent.NewCursor(agent.ZillowDirectory{Client: u.Zillow}, store, agent.WithLogger(logger)),
		Fetcher:   listing.ZillowFetcher{Client: u.Zillow},
		Store:     store,
		Scorer:    scoring.NewEngine(params, taxes, rents),
		Neighbors: region.NewAdjacency(region.ZipcodeRadius{Client: u.Zipcode}, store, radiusMiles, logger),
	}
}

// Service answers ranking requests.
type Service struct {
	components        Components
	clock             cache.Clock
	logger            *slog.Logger
	failureThreshold  int
	areaThresholds    map[string]int
	stopWhenSatisfied bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock sets the clock deciding the cache day.
func WithServiceClock(clock cache.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithFailureThreshold sets how many area-mismatched batches end an
// acquisition.
func WithFailureThreshold(n int) ServiceOption {
	return func(s *Service) {
		s.failureThreshold = n
	}
}

// WithAreaFailureThresholds overrides the failure threshold per area.
func WithAreaFailureThresholds(thresholds map[string]int) ServiceOption {
	return func(s *Service) {
		s.areaThresholds = thresholds
	}
}

// WithStopWhenSatisfied stops expansion once enough listings were added.
func WithStopWhenSatisfied(stop bool) ServiceOption {
	return func(s *Service) {
		s.stopWhenSatisfied = stop
	}
}

// NewService creates a Service.
func NewService(components Components, opts ...ServiceOption) *Service {
	s := &Service{
		components:       components,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		failureThreshold: listing.DefaultFailureThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ranks area and its neighbors and returns the full report.
// The report is returned even when err is non-nil.
func (s *Service) Run(ctx context.Context, area string, desired int, excludedHomeTypes []string) (*model.RankReport, error) {
	report := model.NewRankReport(area, desired, excludedHomeTypes)
	report.RequestID = uuid.NewString()
	defer func() { report.FinishedAt = time.Now() }()

	if err := ValidateArea(area); err != nil {
		report.Error = err.Error()
		return report, err
	}
	if desired <= 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidCount, desired)
		report.Error = err.Error()
		return report, err
	}

	logger := s.logger.With("request_id", report.RequestID, "area", area)
	logger.Info("ranking request", "desired", desired, "excluded_home_types", excludedHomeTypes)

	acquirer, err := listing.NewAcquirer(ctx, s.components.Agents, s.components.Fetcher, s.components.Store,
		listing.WithExcludedHomeTypes(excludedHomeTypes),
		listing.WithFailureThreshold(s.failureThreshold),
		listing.WithAreaFailureThresholds(s.areaThresholds),
		listing.WithClock(s.clock),
		listing.WithLogger(logger),
	)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	ranker := NewAreaRanker(acquirer, s.components.Scorer, s.components.Store, s.clock, logger,
		WithExcludedTypes(excludedHomeTypes),
	)
	expander := region.NewExpander(s.components.Neighbors, ranker,
		region.WithStopWhenSatisfied(s.stopWhenSatisfied),
		region.WithLogger(logger),
	)

	p := New(WithLogger(logger))
	p.AddSteps(NewHomeAreaStep(ranker), NewExpandStep(expander))
	if err := p.Execute(ctx, report); err != nil {
		return report, err
	}

	logger.Info("ranking complete",
		"home_listings", len(report.HomeListings),
		"expanded_listings", len(report.ExpandedListings),
	)
	return report, nil
}

// GetRankedListings ranks area and its neighbors and returns the listings,
// home area first. Fewer than desired listings is not an error.
func (s *Service) GetRankedListings(ctx context.Context, area string, desired int, excludedHomeTypes []string) ([]model.ScoredListing, error) {
	report, err := s.Run(ctx, area, desired, excludedHomeTypes)
	if err != nil {
		return nil, err
	}
	return report.Listings(), nil
}
