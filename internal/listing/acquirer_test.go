package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/rentscan/internal/agent"
	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// fakeAgents hands out agent ids from a fixed list, or endlessly when
// endless is set.
type fakeAgents struct {
	ids     []string
	endless bool
	fail    error
	next    int
	calls   int
}

func (f *fakeAgents) NextAgent(_ context.Context, area string) (string, error) {
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	if f.endless {
		f.next++
		return fmt.Sprintf("agent-%d", f.next), nil
	}
	if f.next >= len(f.ids) {
		return "", &agent.ExhaustedError{Area: area}
	}
	id := f.ids[f.next]
	f.next++
	return id, nil
}

func (f *fakeAgents) CurrentPage(string) int { return 1 }

// fakeFetcher returns canned batches per agent. Agents without a batch get
// the fallback batch.
type fakeFetcher struct {
	batches  map[string][]model.Listing
	fallback []model.Listing
	failing  map[string]bool
	calls    []string
}

func (f *fakeFetcher) FetchAgentListings(_ context.Context, agentID string) ([]model.Listing, error) {
	f.calls = append(f.calls, agentID)
	if f.failing[agentID] {
		return nil, &upstream.CallError{Endpoint: upstream.EndpointAgentListings, Attempts: 5, Status: 503}
	}
	if b, ok := f.batches[agentID]; ok {
		return b, nil
	}
	return f.fallback, nil
}

// memListingStore is an in-memory cache.ListingStore.
type memListingStore struct {
	mu      sync.Mutex
	cached  []model.Listing
	batches map[cache.BatchKey][]model.Listing
}

func newMemListingStore(cached ...model.Listing) *memListingStore {
	return &memListingStore{cached: cached, batches: map[cache.BatchKey][]model.Listing{}}
}

func (s *memListingStore) LoadListings(context.Context) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Listing(nil), s.cached...), nil
}

func (s *memListingStore) SaveListingBatch(_ context.Context, key cache.BatchKey, listings []model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[key] = listings
	return nil
}

func listingsIn(area string, n int, prefix string) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		out[i] = model.Listing{
			Address:  fmt.Sprintf("%s %d Main St", prefix, i),
			Area:     area,
			Price:    float64(300000 + i*1000),
			HomeType: "SINGLE_FAMILY",
		}
	}
	return out
}

var fixedDay = cache.Clock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })

func newTestAcquirer(t *testing.T, agents AgentSource, fetcher Fetcher, store cache.ListingStore, opts ...Option) *Acquirer {
	t.Helper()

	opts = append([]Option{WithClock(fixedDay)}, opts...)
	a, err := NewAcquirer(context.Background(), agents, fetcher, store, opts...)
	if err != nil {
		t.Fatalf("NewAcquirer: %v", err)
	}
	return a
}

// TestAcquireFromFreshAgents tests the two-agent acquisition scenario.
func TestAcquireFromFreshAgents(t *testing.T) {
	t.Parallel()

	agents := &fakeAgents{ids: []string{"a1", "a2", "a3"}}
	fetcher := &fakeFetcher{batches: map[string][]model.Listing{
		"a1": listingsIn("90210", 3, "A"),
		"a2": listingsIn("90210", 3, "B"),
	}}
	store := newMemListingStore()
	a := newTestAcquirer(t, agents, fetcher, store)

	got, err := a.Acquire(context.Background(), "90210", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("expected 6 listings, got %d", len(got))
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("expected 2 listing fetches, got %v", fetcher.calls)
	}
	if len(store.batches) != 2 {
		t.Errorf("expected 2 persisted batches, got %d", len(store.batches))
	}
	key := cache.BatchKey{Area: "90210", AgentID: "a1", Page: 1, Day: "20240501"}
	if len(store.batches[key]) != 3 {
		t.Errorf("batch %+v not persisted", key)
	}
}

// TestAcquireUsesCache tests that cached listings satisfy a request without calls.
func TestAcquireUsesCache(t *testing.T) {
	t.Parallel()

	agents := &fakeAgents{endless: true}
	fetcher := &fakeFetcher{}
	store := newMemListingStore(listingsIn("90210", 4, "C")...)
	a := newTestAcquirer(t, agents, fetcher, store)

	got, err := a.Acquire(context.Background(), "90210", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 listings, got %d", len(got))
	}
	if agents.calls != 0 || len(fetcher.calls) != 0 {
		t.Errorf("expected no upstream calls, got agents=%d fetches=%d", agents.calls, len(fetcher.calls))
	}
}

// TestAcquireTermination tests every terminal condition of the loop.
func TestAcquireTermination(t *testing.T) {
	t.Parallel()

	t.Run("failure threshold on mismatched batches", func(t *testing.T) {
		t.Parallel()

		agents := &fakeAgents{endless: true}
		fetcher := &fakeFetcher{fallback: listingsIn("10001", 2, "NY")}
		a := newTestAcquirer(t, agents, fetcher, newMemListingStore())

		got, err := a.Acquire(context.Background(), "90210", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no listings, got %d", len(got))
		}
		if len(fetcher.calls) != DefaultFailureThreshold {
			t.Errorf("expected %d fetches, got %d", DefaultFailureThreshold, len(fetcher.calls))
		}
	})

	t.Run("area threshold override", func(t *testing.T) {
		t.Parallel()

		agents := &fakeAgents{endless: true}
		fetcher := &fakeFetcher{fallback: listingsIn("10001", 1, "NY")}
		a := newTestAcquirer(t, agents, fetcher, newMemListingStore(),
			WithAreaFailureThresholds(map[string]int{"90210": 5}))

		if _, err := a.Acquire(context.Background(), "90210", 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fetcher.calls) != 5 {
			t.Errorf("expected 5 fetches, got %d", len(fetcher.calls))
		}
	})

	t.Run("exhausted agents return partial result", func(t *testing.T) {
		t.Parallel()

		agents := &fakeAgents{ids: []string{"a1"}}
		fetcher := &fakeFetcher{batches: map[string][]model.Listing{"a1": listingsIn("90210", 2, "A")}}
		a := newTestAcquirer(t, agents, fetcher, newMemListingStore())

		got, err := a.Acquire(context.Background(), "90210", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 listings, got %d", len(got))
		}
	})

	t.Run("agent directory failure returns partial result", func(t *testing.T) {
		t.Parallel()

		agents := &fakeAgents{fail: &upstream.CallError{Endpoint: upstream.EndpointFindAgent, Attempts: 5, Status: 500}}
		store := newMemListingStore(listingsIn("90210", 1, "C")...)
		a := newTestAcquirer(t, agents, &fakeFetcher{}, store)

		got, err := a.Acquire(context.Background(), "90210", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || agents.calls != 1 {
			t.Errorf("got %d listings after %d agent calls", len(got), agents.calls)
		}
	})

	t.Run("listing fetch failure does not count", func(t *testing.T) {
		t.Parallel()

		agents := &fakeAgents{ids: []string{"a1", "a2", "a3", "a4", "a5"}}
		fetcher := &fakeFetcher{
			failing: map[string]bool{"a1": true, "a2": true, "a3": true, "a4": true},
			batches: map[string][]model.Listing{"a5": listingsIn("90210", 1, "E")},
		}
		a := newTestAcquirer(t, agents, fetcher, newMemListingStore())

		got, err := a.Acquire(context.Background(), "90210", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || len(fetcher.calls) != 5 {
			t.Errorf("got %d listings after %d fetches", len(got), len(fetcher.calls))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := newTestAcquirer(t, &fakeAgents{endless: true}, &fakeFetcher{}, newMemListingStore())

		_, err := a.Acquire(ctx, "90210", 1)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestAcquireFilesListingsUnderTheirOwnArea tests cross-area batches.
func TestAcquireFilesListingsUnderTheirOwnArea(t *testing.T) {
	t.Parallel()

	mixed := append(listingsIn("90210", 1, "H"), listingsIn("90211", 2, "N")...)
	agents := &fakeAgents{ids: []string{"a1"}}
	fetcher := &fakeFetcher{batches: map[string][]model.Listing{"a1": mixed}}
	store := newMemListingStore()
	a := newTestAcquirer(t, agents, fetcher, store)
	ctx := context.Background()

	home, err := a.Acquire(ctx, "90210", 1)
	if err != nil || len(home) != 1 {
		t.Fatalf("Acquire(90210) = %d listings, %v", len(home), err)
	}

	neighbor, err := a.Acquire(ctx, "90211", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbor) != 2 {
		t.Errorf("expected 2 listings for 90211, got %d", len(neighbor))
	}
	if agents.calls != 1 {
		t.Errorf("expected neighbor listings to come from the index, got %d agent calls", agents.calls)
	}
}

// TestAcquireDeduplicatesAndFilters tests address dedup and exclusion.
func TestAcquireDeduplicatesAndFilters(t *testing.T) {
	t.Parallel()

	cached := []model.Listing{
		{Address: "1 Ocean Dr", Area: "90210", HomeType: "CONDO"},
		{Address: "1 OCEAN DR", Area: "90210", HomeType: "SINGLE_FAMILY"},
		{Address: "2 Hill Rd", Area: "90210", HomeType: "SINGLE_FAMILY"},
		{Address: "3 Canyon Way", Area: "90210", HomeType: "TOWNHOUSE"},
	}
	agents := &fakeAgents{}
	a := newTestAcquirer(t, agents, &fakeFetcher{}, newMemListingStore(cached...),
		WithExcludedHomeTypes([]string{"condo", "Townhouse"}))

	got, err := a.Acquire(context.Background(), "90210", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Address != "2 Hill Rd" {
		t.Errorf("unexpected result %+v", got)
	}
}
