package cache

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/rentscan/internal/model"
)

// ErrNotFound is returned by lookups that have no entry for the key.
var ErrNotFound = errors.New("cache entry not found")

// BatchKey identifies one persisted listing batch.
type BatchKey struct {
	// Area is the area whose acquisition produced the batch.
	Area string
	// AgentID is the agent whose listings make up the batch.
	AgentID string
	// Page is the agent directory page the agent came from.
	Page int
	// Day is the calendar day key (see model.DateKey).
	Day string
}

// SnapshotKey identifies one ranked snapshot.
type SnapshotKey struct {
	Area  string
	Count int
	Day   string
}

// SortSnapshotKeys orders keys newest day first, then by ascending count.
func SortSnapshotKeys(keys []SnapshotKey) {
	slices.SortFunc(keys, func(a, b SnapshotKey) int {
		if c := strings.Compare(b.Day, a.Day); c != 0 {
			return c
		}
		return cmp.Compare(a.Count, b.Count)
	})
}

// ListingStore persists listing batches.
type ListingStore interface {
	// LoadListings returns every cached listing of every day.
	// Duplicates across batches are returned as stored.
	LoadListings(ctx context.Context) ([]model.Listing, error)

	// SaveListingBatch persists a non-empty batch.
	SaveListingBatch(ctx context.Context, key BatchKey, listings []model.Listing) error
}

// CursorStore persists the agent-page cursor table.
type CursorStore interface {
	// LoadCursors returns the cursor of every area seen so far.
	LoadCursors(ctx context.Context) (map[string]model.AgentPageCursor, error)

	// SaveCursor replaces the cursor of cursor.Area.
	SaveCursor(ctx context.Context, cursor model.AgentPageCursor) error
}

// TaxStore persists tax estimates keyed by address and day.
type TaxStore interface {
	// FindTax returns the most recent estimate for address from any day.
	// ok is false when none exists.
	FindTax(ctx context.Context, address string) (est model.TaxEstimate, ok bool, err error)

	// SaveTax persists the estimate for address on day.
	SaveTax(ctx context.Context, address, day string, est model.TaxEstimate) error
}

// RentStore persists rent estimates keyed by address and day.
type RentStore interface {
	// FindRent returns the most recent estimate for address from any day.
	// ok is false when none exists.
	FindRent(ctx context.Context, address string) (est model.RentalEstimate, ok bool, err error)

	// SaveRent persists the estimate for address on day.
	SaveRent(ctx context.Context, address, day string, est model.RentalEstimate) error
}

// AdjacencyStore persists the area adjacency table.
type AdjacencyStore interface {
	// Neighbors returns the known neighbors of area, nearest first.
	Neighbors(ctx context.Context, area string) ([]string, error)

	// AppendNeighbors merges incoming into the neighbor list of area with
	// model.MergeNeighbors and returns the merged list.
	AppendNeighbors(ctx context.Context, area string, incoming []string) ([]string, error)
}

// SnapshotStore persists ranked snapshots.
type SnapshotStore interface {
	// FindSnapshot returns the snapshot for key or ErrNotFound.
	FindSnapshot(ctx context.Context, key SnapshotKey) ([]model.ScoredListing, error)

	// SaveSnapshot stores the snapshot for key unless one already exists.
	SaveSnapshot(ctx context.Context, key SnapshotKey, listings []model.ScoredListing) error
}

// SnapshotHistory lists the ranked snapshots kept for an area.
type SnapshotHistory interface {
	// ListSnapshots returns the snapshot keys of area, newest day first and
	// ascending count within a day.
	ListSnapshots(ctx context.Context, area string) ([]SnapshotKey, error)
}

// Store is the full repository over every cache type.
type Store interface {
	ListingStore
	CursorStore
	TaxStore
	RentStore
	AdjacencyStore
	SnapshotStore
	SnapshotHistory

	// Close releases resources held by the store.
	Close() error
}

// Clock supplies the current calendar day to cache users.
type Clock func() time.Time

// Today returns the day key of c, defaulting to the wall clock.
func (c Clock) Today() string {
	if c == nil {
		return model.DateKey(time.Now())
	}
	return model.DateKey(c())
}
