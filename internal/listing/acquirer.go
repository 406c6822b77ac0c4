package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/rentscan/internal/agent"
	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// DefaultFailureThreshold is the number of batches without a listing in the
// target area after which acquisition for that area gives up.
const DefaultFailureThreshold = 3

// AgentSource hands out agent ids per area.
type AgentSource interface {
	NextAgent(ctx context.Context, area string) (string, error)
	CurrentPage(area string) int
}

// Fetcher fetches the active listings of one agent.
type Fetcher interface {
	FetchAgentListings(ctx context.Context, agentID string) ([]model.Listing, error)
}

// ZillowFetcher fetches agent listings from the RapidAPI Zillow
// agentActiveListings endpoint.
type ZillowFetcher struct {
	Client *upstream.Client
}

// FetchAgentListings implements Fetcher.
func (f ZillowFetcher) FetchAgentListings(ctx context.Context, agentID string) ([]model.Listing, error) {
	return upstream.Call(ctx, f.Client, upstream.EndpointAgentListings, upstream.AgentListingsParams(agentID), upstream.DecodeListings)
}

// Acquirer gathers listings per area. Its area index lives for one request;
// the persisted batches outlive it.
type Acquirer struct {
	agents  AgentSource
	fetcher Fetcher
	store   cache.ListingStore
	logger  *slog.Logger
	clock   cache.Clock

	excluded   model.ExclusionSet
	threshold  int
	thresholds map[string]int

	mu    sync.Mutex
	index map[string][]model.Listing
	keys  map[string]map[string]struct{}
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithExcludedHomeTypes sets the property types left out of results.
// Matching is case-insensitive.
func WithExcludedHomeTypes(homeTypes []string) Option {
	return func(a *Acquirer) {
		a.excluded = model.NewExclusionSet(homeTypes)
	}
}

// WithFailureThreshold sets the default failure threshold.
func WithFailureThreshold(n int) Option {
	return func(a *Acquirer) {
		if n > 0 {
			a.threshold = n
		}
	}
}

// WithAreaFailureThresholds overrides the failure threshold of specific areas.
func WithAreaFailureThresholds(thresholds map[string]int) Option {
	return func(a *Acquirer) {
		for area, n := range thresholds {
			if n > 0 {
				a.thresholds[area] = n
			}
		}
	}
}

// WithClock sets the clock that dates persisted batches.
func WithClock(clock cache.Clock) Option {
	return func(a *Acquirer) {
		a.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAcquirer creates an Acquirer whose area index is seeded with every
// listing in store, keeping the first record of each normalized address.
func NewAcquirer(ctx context.Context, agents AgentSource, fetcher Fetcher, store cache.ListingStore, opts ...Option) (*Acquirer, error) {
	a := &Acquirer{
		agents:     agents,
		fetcher:    fetcher,
		store:      store,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		excluded:   model.ExclusionSet{},
		threshold:  DefaultFailureThreshold,
		thresholds: map[string]int{},
		index:      map[string][]model.Listing{},
		keys:       map[string]map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(a)
	}

	cached, err := store.LoadListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached listings: %w", err)
	}
	a.file(cached, "")
	a.logger.Debug("loaded cached listings", "count", len(cached), "areas", len(a.index))
	return a, nil
}

// Acquire returns the listings of area that pass the exclusion filter,
// fetching more until at least desired are available or acquisition for
// the area stops. The result may hold fewer or more than desired listings.
//
// Running out of agents and a failing agent directory end acquisition with
// the listings gathered so far. A failing listings call moves on to the
// next agent without counting toward the failure threshold. The only error
// returned is the context error when ctx is cancelled.
func (a *Acquirer) Acquire(ctx context.Context, area string, desired int) ([]model.Listing, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	threshold := a.thresholdFor(area)
	failures := 0
	for len(a.filteredLocked(area)) < desired && failures < threshold {
		if err := ctx.Err(); err != nil {
			return a.filteredLocked(area), err
		}

		agentID, err := a.agents.NextAgent(ctx, area)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.filteredLocked(area), ctxErr
			}
			if errors.Is(err, agent.ErrAgentsExhausted) {
				a.logger.Debug("no more agents", "area", area)
			} else {
				a.logger.Warn("agent lookup failed, stopping acquisition", "area", area, "error", err)
			}
			break
		}

		batch, err := a.fetcher.FetchAgentListings(ctx, agentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.filteredLocked(area), ctxErr
			}
			a.logger.Warn("agent listings fetch failed", "area", area, "agent", agentID, "error", err)
			continue
		}

		if !a.file(batch, area) {
			failures++
			a.logger.Debug("batch had no listing in area", "area", area, "agent", agentID, "failures", failures)
		}
		a.persist(ctx, area, agentID, batch)
	}

	return a.filteredLocked(area), nil
}

// file adds listings to the index of their own area, skipping addresses
// already present there. It reports whether any listing belongs to target.
func (a *Acquirer) file(listings []model.Listing, target string) bool {
	found := false
	for _, l := range listings {
		if target != "" && l.Area == target {
			found = true
		}
		keys, ok := a.keys[l.Area]
		if !ok {
			keys = map[string]struct{}{}
			a.keys[l.Area] = keys
		}
		key := l.Key()
		if _, dup := keys[key]; dup {
			continue
		}
		keys[key] = struct{}{}
		a.index[l.Area] = append(a.index[l.Area], l)
	}
	return found
}

// persist saves a non-empty batch under its acquisition key.
func (a *Acquirer) persist(ctx context.Context, area, agentID string, batch []model.Listing) {
	if len(batch) == 0 {
		return
	}
	key := cache.BatchKey{
		Area:    area,
		AgentID: agentID,
		Page:    a.agents.CurrentPage(area),
		Day:     a.clock.Today(),
	}
	if err := a.store.SaveListingBatch(ctx, key, batch); err != nil {
		a.logger.Warn("failed to persist listing batch", "area", area, "agent", agentID, "error", err)
	}
}

func (a *Acquirer) filteredLocked(area string) []model.Listing {
	return a.excluded.Filter(a.index[area])
}

func (a *Acquirer) thresholdFor(area string) int {
	if n, ok := a.thresholds[area]; ok {
		return n
	}
	return a.threshold
}
