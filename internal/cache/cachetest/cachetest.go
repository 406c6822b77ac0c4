// Package cachetest provides a conformance suite for cache.Store
// implementations.
package cachetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
)

// RunStoreTests runs the conformance suite against stores created by newStore.
// Every subtest gets a fresh, empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) cache.Store) {
	t.Helper()

	t.Run("listing batches", func(t *testing.T) {
		t.Parallel()
		testListingBatches(t, newStore(t))
	})
	t.Run("cursors", func(t *testing.T) {
		t.Parallel()
		testCursors(t, newStore(t))
	})
	t.Run("tax estimates", func(t *testing.T) {
		t.Parallel()
		testTax(t, newStore(t))
	})
	t.Run("rent estimates", func(t *testing.T) {
		t.Parallel()
		testRent(t, newStore(t))
	})
	t.Run("adjacency", func(t *testing.T) {
		t.Parallel()
		testAdjacency(t, newStore(t))
	})
	t.Run("snapshots", func(t *testing.T) {
		t.Parallel()
		testSnapshots(t, newStore(t))
	})
}

func testListingBatches(t *testing.T, s cache.Store) {
	ctx := context.Background()

	got, err := s.LoadListings(ctx)
	if err != nil {
		t.Fatalf("LoadListings on empty store: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no listings, got %d", len(got))
	}

	first := []model.Listing{
		{Address: "1 Ocean Dr", Area: "90210", Beds: 3, Baths: 2.5, Price: 1250000, PropertyID: "11", HomeType: "SINGLE_FAMILY", ListingURL: "https://example.com/11"},
		{Address: "2 Hill Rd, Unit \"B\"", Area: "90211", Beds: 2, Baths: 1, Price: 650000, PropertyID: "12", HomeType: "CONDO"},
	}
	second := []model.Listing{
		{Address: "3 Canyon Way", Area: "90210", Price: 900000, PropertyID: "13", HomeType: "TOWNHOUSE"},
	}

	if err := s.SaveListingBatch(ctx, cache.BatchKey{Area: "90210", AgentID: "a1", Page: 1, Day: "20240101"}, first); err != nil {
		t.Fatalf("SaveListingBatch: %v", err)
	}
	if err := s.SaveListingBatch(ctx, cache.BatchKey{Area: "90210", AgentID: "a2", Page: 1, Day: "20240102"}, second); err != nil {
		t.Fatalf("SaveListingBatch: %v", err)
	}
	if err := s.SaveListingBatch(ctx, cache.BatchKey{Area: "90210", AgentID: "a3", Page: 1, Day: "20240102"}, nil); err != nil {
		t.Fatalf("SaveListingBatch with empty batch: %v", err)
	}

	got, err = s.LoadListings(ctx)
	if err != nil {
		t.Fatalf("LoadListings: %v", err)
	}
	want := append(slices.Clone(first), second...)
	if len(got) != len(want) {
		t.Fatalf("expected %d listings, got %d: %+v", len(want), len(got), got)
	}
	for _, w := range want {
		if !slices.Contains(got, w) {
			t.Errorf("listing %+v not loaded back", w)
		}
	}
}

func testCursors(t *testing.T, s cache.Store) {
	ctx := context.Background()

	cursors, err := s.LoadCursors(ctx)
	if err != nil {
		t.Fatalf("LoadCursors on empty store: %v", err)
	}
	if len(cursors) != 0 {
		t.Fatalf("expected no cursors, got %v", cursors)
	}

	unknown := model.AgentPageCursor{Area: "90210", Current: 1}
	if err := s.SaveCursor(ctx, unknown); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	known := model.AgentPageCursor{Area: "90210", Current: 2, LastPage: 4, LastPageKnown: true}
	if err := s.SaveCursor(ctx, known); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	other := model.AgentPageCursor{Area: "10001", Current: 1}
	if err := s.SaveCursor(ctx, other); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}

	cursors, err = s.LoadCursors(ctx)
	if err != nil {
		t.Fatalf("LoadCursors: %v", err)
	}
	if len(cursors) != 2 {
		t.Fatalf("expected one cursor per area, got %v", cursors)
	}
	if cursors["90210"] != known {
		t.Errorf("cursor = %+v, expected %+v", cursors["90210"], known)
	}
	if cursors["10001"] != other {
		t.Errorf("cursor = %+v, expected %+v", cursors["10001"], other)
	}
}

func testTax(t *testing.T, s cache.Store) {
	ctx := context.Background()

	if _, ok, err := s.FindTax(ctx, "1 Ocean Dr"); err != nil || ok {
		t.Fatalf("FindTax on empty store = (%v, %v)", ok, err)
	}

	if err := s.SaveTax(ctx, "1 Ocean Dr", "20240101", model.KnownTax(3000)); err != nil {
		t.Fatalf("SaveTax: %v", err)
	}
	if err := s.SaveTax(ctx, "1 Ocean Dr", "20240301", model.KnownTax(3600)); err != nil {
		t.Fatalf("SaveTax: %v", err)
	}
	if err := s.SaveTax(ctx, "2 Hill Rd 1/2", "20240101", model.TaxEstimate{Status: model.TaxNotOnRecord}); err != nil {
		t.Fatalf("SaveTax: %v", err)
	}

	got, ok, err := s.FindTax(ctx, "1 OCEAN DR")
	if err != nil || !ok {
		t.Fatalf("FindTax = (%v, %v)", ok, err)
	}
	if got != model.KnownTax(3600) {
		t.Errorf("expected most recent estimate, got %+v", got)
	}

	got, ok, err = s.FindTax(ctx, "2 Hill Rd 1/2")
	if err != nil || !ok {
		t.Fatalf("FindTax = (%v, %v)", ok, err)
	}
	if got.Status != model.TaxNotOnRecord || got.Monthly() != 0 {
		t.Errorf("expected not-on-record estimate, got %+v", got)
	}
}

func testRent(t *testing.T, s cache.Store) {
	ctx := context.Background()

	if _, ok, err := s.FindRent(ctx, "1 Ocean Dr"); err != nil || ok {
		t.Fatalf("FindRent on empty store = (%v, %v)", ok, err)
	}

	est := model.RentalEstimate{
		Median: 2000, Low: 1800, High: 2300, Percentile25: 1900, Percentile75: 2100,
		Comparables: []byte(`[{"price":1999}]`),
		Known:       true,
	}
	if err := s.SaveRent(ctx, "1 Ocean Dr", "20240101", est); err != nil {
		t.Fatalf("SaveRent: %v", err)
	}
	if err := s.SaveRent(ctx, "4 Mesa Ct", "20240101", model.UnknownRent()); err != nil {
		t.Fatalf("SaveRent: %v", err)
	}

	got, ok, err := s.FindRent(ctx, "1 Ocean Dr")
	if err != nil || !ok {
		t.Fatalf("FindRent = (%v, %v)", ok, err)
	}
	if got.Median != 2000 || got.Low != 1800 || got.High != 2300 ||
		got.Percentile25 != 1900 || got.Percentile75 != 2100 || !got.Known {
		t.Errorf("unexpected estimate %+v", got)
	}
	if !jsonEqual(got.Comparables, est.Comparables) {
		t.Errorf("comparables = %s, expected %s", got.Comparables, est.Comparables)
	}

	got, ok, err = s.FindRent(ctx, "4 Mesa Ct")
	if err != nil || !ok {
		t.Fatalf("FindRent = (%v, %v)", ok, err)
	}
	if got.Known || got.Median != 0 {
		t.Errorf("expected unknown estimate, got %+v", got)
	}
}

func testAdjacency(t *testing.T, s cache.Store) {
	ctx := context.Background()

	got, err := s.Neighbors(ctx, "90210")
	if err != nil {
		t.Fatalf("Neighbors on empty store: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no neighbors, got %v", got)
	}

	merged, err := s.AppendNeighbors(ctx, "90210", []string{"90210", "90211", "90212"})
	if err != nil {
		t.Fatalf("AppendNeighbors: %v", err)
	}
	if !slices.Equal(merged, []string{"90211", "90212"}) {
		t.Errorf("merged = %v", merged)
	}

	merged, err = s.AppendNeighbors(ctx, "90210", []string{"90069", "90211"})
	if err != nil {
		t.Fatalf("AppendNeighbors: %v", err)
	}
	expected := []string{"90211", "90212", "90069"}
	if !slices.Equal(merged, expected) {
		t.Errorf("merged = %v, expected %v", merged, expected)
	}

	got, err = s.Neighbors(ctx, "90210")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if !slices.Equal(got, expected) {
		t.Errorf("Neighbors = %v, expected %v", got, expected)
	}
}

func testSnapshots(t *testing.T, s cache.Store) {
	ctx := context.Background()
	key := cache.SnapshotKey{Area: "90210", Count: 5, Day: "20240101"}

	if _, err := s.FindSnapshot(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := []model.ScoredListing{
		{Listing: model.Listing{Address: "1 Ocean Dr", Area: "90210", Price: 300000}, Rent: 2000, Expenses: 1800, Tax: 3600, TaxStatus: model.TaxKnown, RentKnown: true},
		{Listing: model.Listing{Address: "3 Canyon Way", Area: "90210", Price: 500000}, Rent: 2100, Expenses: 3300, TaxStatus: model.TaxUnavailable},
	}
	if err := s.SaveSnapshot(ctx, key, first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.SaveSnapshot(ctx, key, first[:1]); err != nil {
		t.Fatalf("second SaveSnapshot: %v", err)
	}
	if err := s.SaveSnapshot(ctx, cache.SnapshotKey{Area: "90210", Count: 6, Day: "20240101"}, nil); err != nil {
		t.Fatalf("SaveSnapshot with empty result: %v", err)
	}

	got, err := s.FindSnapshot(ctx, key)
	if err != nil {
		t.Fatalf("FindSnapshot: %v", err)
	}
	if !slices.Equal(got, first) {
		t.Errorf("snapshot = %+v, expected the first write %+v", got, first)
	}

	empty, err := s.FindSnapshot(ctx, cache.SnapshotKey{Area: "90210", Count: 6, Day: "20240101"})
	if err != nil {
		t.Fatalf("FindSnapshot of empty result: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty snapshot, got %+v", empty)
	}

	if _, err := s.FindSnapshot(ctx, cache.SnapshotKey{Area: "90210", Count: 5, Day: "20240102"}); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another day, got %v", err)
	}

	if err := s.SaveSnapshot(ctx, cache.SnapshotKey{Area: "90210", Count: 5, Day: "20240103"}, first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.SaveSnapshot(ctx, cache.SnapshotKey{Area: "10001", Count: 5, Day: "20240102"}, first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	history, err := s.ListSnapshots(ctx, "90210")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	expected := []cache.SnapshotKey{
		{Area: "90210", Count: 5, Day: "20240103"},
		{Area: "90210", Count: 5, Day: "20240101"},
		{Area: "90210", Count: 6, Day: "20240101"},
	}
	if !slices.Equal(history, expected) {
		t.Errorf("ListSnapshots = %+v, expected %+v", history, expected)
	}

	none, err := s.ListSnapshots(ctx, "60601")
	if err != nil {
		t.Fatalf("ListSnapshots of unknown area: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no snapshots, got %+v", none)
	}
}
