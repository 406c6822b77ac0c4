package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/region"
	"github.com/nao1215/rentscan/internal/scoring"
)

var testClock cache.Clock = func() time.Time {
	return time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
}

type fakeAcquirer struct {
	listings map[string][]model.Listing
	err      error
	calls    int
}

func (f *fakeAcquirer) Acquire(_ context.Context, area string, _ int) ([]model.Listing, error) {
	f.calls++
	return f.listings[area], f.err
}

// rentScorer gives every listing a rent equal to its price / 100 and no
// expenses, then ranks them.
type rentScorer struct{}

func (rentScorer) ScoreAll(_ context.Context, listings []model.Listing) ([]model.ScoredListing, error) {
	out := make([]model.ScoredListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, model.ScoredListing{Listing: l, Rent: l.Price / 100})
	}
	scoring.Rank(out)
	return out, nil
}

// memSnapshots is an in-memory cache.SnapshotStore.
type memSnapshots struct {
	entries map[cache.SnapshotKey][]model.ScoredListing
	saves   int
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{entries: make(map[cache.SnapshotKey][]model.ScoredListing)}
}

func (m *memSnapshots) FindSnapshot(_ context.Context, key cache.SnapshotKey) ([]model.ScoredListing, error) {
	if s, ok := m.entries[key]; ok {
		return s, nil
	}
	return nil, cache.ErrNotFound
}

func (m *memSnapshots) SaveSnapshot(_ context.Context, key cache.SnapshotKey, listings []model.ScoredListing) error {
	m.saves++
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = listings
	}
	return nil
}

// TestAreaRankerRankArea tests ranking with the snapshot cache.
func TestAreaRankerRankArea(t *testing.T) {
	t.Parallel()

	listings := map[string][]model.Listing{
		"90210": {
			{Address: "1 Palm Dr", Area: "90210", Price: 100000},
			{Address: "2 Palm Dr", Area: "90210", Price: 300000},
		},
	}

	t.Run("ranks and stores a snapshot", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{listings: listings}
		snaps := newMemSnapshots()
		r := NewAreaRanker(acq, rentScorer{}, snaps, testClock, nil)

		got, err := r.RankArea(context.Background(), "90210", 2)
		if err != nil {
			t.Fatalf("RankArea: %v", err)
		}
		if len(got) != 2 || got[0].Address != "2 Palm Dr" {
			t.Errorf("unexpected ranking %+v", got)
		}
		key := cache.SnapshotKey{Area: "90210", Count: 2, Day: "20240501"}
		if _, ok := snaps.entries[key]; !ok {
			t.Errorf("snapshot %+v was not stored", key)
		}
	})

	t.Run("snapshot short-circuits acquisition", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{listings: listings}
		snaps := newMemSnapshots()
		cached := []model.ScoredListing{{Listing: model.Listing{Address: "cached"}}}
		snaps.entries[cache.SnapshotKey{Area: "90210", Count: 2, Day: "20240501"}] = cached
		r := NewAreaRanker(acq, rentScorer{}, snaps, testClock, nil)

		got, err := r.RankArea(context.Background(), "90210", 2)
		if err != nil {
			t.Fatalf("RankArea: %v", err)
		}
		if len(got) != 1 || got[0].Address != "cached" {
			t.Errorf("expected the snapshot, got %+v", got)
		}
		if acq.calls != 0 {
			t.Errorf("acquirer called %d times, want 0", acq.calls)
		}
	})

	t.Run("snapshot honors exclusions", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{listings: listings}
		snaps := newMemSnapshots()
		cached := []model.ScoredListing{
			{Listing: model.Listing{Address: "1 Condo Way", HomeType: "CONDO"}},
			{Listing: model.Listing{Address: "1 Palm Dr", HomeType: "SINGLE_FAMILY"}},
		}
		snaps.entries[cache.SnapshotKey{Area: "90210", Count: 2, Day: "20240501"}] = cached
		r := NewAreaRanker(acq, rentScorer{}, snaps, testClock, nil, WithExcludedTypes([]string{"condo"}))

		got, err := r.RankArea(context.Background(), "90210", 2)
		if err != nil {
			t.Fatalf("RankArea: %v", err)
		}
		if len(got) != 1 || got[0].Address != "1 Palm Dr" {
			t.Errorf("expected only the house, got %+v", got)
		}
		if acq.calls != 0 {
			t.Errorf("acquirer called %d times, want 0", acq.calls)
		}
		if len(cached) != 2 || cached[0].Address != "1 Condo Way" {
			t.Errorf("stored snapshot was modified: %+v", cached)
		}
	})

	t.Run("other counts do not share snapshots", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{listings: listings}
		snaps := newMemSnapshots()
		snaps.entries[cache.SnapshotKey{Area: "90210", Count: 3, Day: "20240501"}] = nil
		r := NewAreaRanker(acq, rentScorer{}, snaps, testClock, nil)

		if _, err := r.RankArea(context.Background(), "90210", 2); err != nil {
			t.Fatalf("RankArea: %v", err)
		}
		if acq.calls != 1 {
			t.Errorf("acquirer called %d times, want 1", acq.calls)
		}
	})

	t.Run("empty result is not stored", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{}
		snaps := newMemSnapshots()
		r := NewAreaRanker(acq, rentScorer{}, snaps, testClock, nil)

		got, err := r.RankArea(context.Background(), "10001", 5)
		if err != nil {
			t.Fatalf("RankArea: %v", err)
		}
		if len(got) != 0 || snaps.saves != 0 {
			t.Errorf("got %d listings and %d saves, want none", len(got), snaps.saves)
		}
	})

	t.Run("acquisition error", func(t *testing.T) {
		t.Parallel()

		acq := &fakeAcquirer{err: context.Canceled}
		r := NewAreaRanker(acq, rentScorer{}, newMemSnapshots(), testClock, nil)

		if _, err := r.RankArea(context.Background(), "90210", 2); !errors.Is(err, context.Canceled) {
			t.Errorf("RankArea() error = %v, want context.Canceled", err)
		}
	})
}

type fakeRanker struct {
	result []model.ScoredListing
	err    error
}

func (f fakeRanker) RankArea(context.Context, string, int) ([]model.ScoredListing, error) {
	return f.result, f.err
}

type fakeExpander struct {
	gotNeeded int
	added     []model.ScoredListing
}

func (f *fakeExpander) Expand(_ context.Context, _ string, base []model.ScoredListing, stillNeeded int) (region.Expansion, error) {
	f.gotNeeded = stillNeeded
	return region.Expansion{
		Listings:  append(append([]model.ScoredListing(nil), base...), f.added...),
		Added:     f.added,
		Neighbors: []string{"90212"},
	}, nil
}

// TestSteps tests the home-area and expansion steps.
func TestSteps(t *testing.T) {
	t.Parallel()

	home := []model.ScoredListing{
		{Listing: model.Listing{Address: "1 Palm Dr", Area: "90210"}},
		{Listing: model.Listing{Address: "2 Palm Dr", Area: "90210"}},
	}
	added := []model.ScoredListing{{Listing: model.Listing{Address: "5 Wilshire Blvd", Area: "90212"}}}

	t.Run("fills the report", func(t *testing.T) {
		t.Parallel()

		exp := &fakeExpander{added: added}
		p := New()
		p.AddSteps(NewHomeAreaStep(fakeRanker{result: home}), NewExpandStep(exp))

		report := model.NewRankReport("90210", 5, nil)
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if exp.gotNeeded != 3 {
			t.Errorf("expander asked for %d, want 3", exp.gotNeeded)
		}
		if len(report.HomeListings) != 2 || len(report.ExpandedListings) != 1 {
			t.Errorf("home=%d expanded=%d", len(report.HomeListings), len(report.ExpandedListings))
		}
		if len(report.Listings()) != 3 || report.Listings()[2].Address != "5 Wilshire Blvd" {
			t.Errorf("unexpected listings %+v", report.Listings())
		}
		if len(report.Neighbors) != 1 {
			t.Errorf("Neighbors = %v", report.Neighbors)
		}
		want := []string{"home_area", "expand"}
		if len(report.PerformedSteps) != 2 || report.PerformedSteps[0] != want[0] || report.PerformedSteps[1] != want[1] {
			t.Errorf("PerformedSteps = %v, want %v", report.PerformedSteps, want)
		}
	})

	t.Run("home failure stops the pipeline", func(t *testing.T) {
		t.Parallel()

		exp := &fakeExpander{}
		p := New()
		p.AddSteps(NewHomeAreaStep(fakeRanker{err: errors.New("boom")}), NewExpandStep(exp))

		report := model.NewRankReport("90210", 5, nil)
		if err := p.Execute(context.Background(), report); err == nil {
			t.Fatal("expected an error")
		}
		if exp.gotNeeded != 0 {
			t.Error("expansion should not run after a failed home step")
		}
	})
}
