package enrich

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// RentFetcher fetches a rent estimate for a property.
type RentFetcher interface {
	FetchRentEstimate(ctx context.Context, propertyType, address string) (model.RentalEstimate, error)
}

// ZillowRentFetcher fetches rent estimates from the RapidAPI Zillow
// rentEstimate endpoint.
type ZillowRentFetcher struct {
	Client *upstream.Client
}

// FetchRentEstimate implements RentFetcher.
func (f ZillowRentFetcher) FetchRentEstimate(ctx context.Context, propertyType, address string) (model.RentalEstimate, error) {
	return upstream.Call(ctx, f.Client, upstream.EndpointRentEstimate, upstream.RentEstimateParams(propertyType, address), upstream.DecodeRentEstimate)
}

// rentPropertyTypes maps folded home-type tags to the casing the rent
// estimate endpoint expects.
var rentPropertyTypes = map[string]string{
	"townhome":     "Townhouse",
	"townhouse":    "Townhouse",
	"singlefamily": "SingleFamily",
	"multifamily":  "MultiFamily",
	"condo":        "Condo",
}

// FormatPropertyType converts a listing's home type to the rent estimate
// property type. Separators are ignored, so SINGLE_FAMILY and SingleFamily
// both map to SingleFamily. Unknown types are passed through lower-cased.
func FormatPropertyType(homeType string) string {
	lower := strings.ToLower(strings.TrimSpace(homeType))
	folded := strings.NewReplacer("_", "", "-", "", " ", "").Replace(lower)
	if mapped, ok := rentPropertyTypes[folded]; ok {
		return mapped
	}
	return lower
}

// RentLookup resolves the rent estimate of listings.
type RentLookup struct {
	fetcher RentFetcher
	store   cache.RentStore
	clock   cache.Clock
	logger  *slog.Logger
}

// NewRentLookup creates a RentLookup. A nil logger discards output and a
// nil clock uses the wall clock.
func NewRentLookup(fetcher RentFetcher, store cache.RentStore, clock cache.Clock, logger *slog.Logger) *RentLookup {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RentLookup{fetcher: fetcher, store: store, clock: clock, logger: logger}
}

// Lookup returns the rent estimate of l. It never fails: store errors are
// treated as cache misses and upstream failures yield model.UnknownRent.
func (r *RentLookup) Lookup(ctx context.Context, l model.Listing) model.RentalEstimate {
	est, ok, err := r.store.FindRent(ctx, l.Address)
	if err != nil {
		r.logger.Warn("rent cache read failed", "address", l.Address, "error", err)
	} else if ok {
		return est
	}

	est, err = r.fetcher.FetchRentEstimate(ctx, FormatPropertyType(l.HomeType), l.Address)
	if err != nil {
		r.logger.Warn("rent lookup failed", "address", l.Address, "error", err)
		return model.UnknownRent()
	}

	if err := r.store.SaveRent(ctx, l.Address, r.clock.Today(), est); err != nil {
		r.logger.Warn("rent cache write failed", "address", l.Address, "error", err)
	}
	return est
}
