package enrich

import (
	"context"
	"io"
	"log/slog"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// TaxFetcher fetches the most recent paid tax of a property.
type TaxFetcher interface {
	// FetchTaxPaid returns the first paid-tax figure in the property's tax
	// history. found is false when the history has none.
	FetchTaxPaid(ctx context.Context, propertyID string) (paid float64, found bool, err error)
}

// ZillowTaxFetcher fetches tax history from the RapidAPI Zillow
// priceAndTaxHistory endpoint.
type ZillowTaxFetcher struct {
	Client *upstream.Client
}

type taxPaid struct {
	paid  float64
	found bool
}

// FetchTaxPaid implements TaxFetcher.
func (f ZillowTaxFetcher) FetchTaxPaid(ctx context.Context, propertyID string) (float64, bool, error) {
	res, err := upstream.Call(ctx, f.Client, upstream.EndpointTaxHistory, upstream.TaxHistoryParams(propertyID),
		func(body []byte) (taxPaid, error) {
			paid, found, err := upstream.DecodeTaxPaid(body)
			return taxPaid{paid: paid, found: found}, err
		})
	return res.paid, res.found, err
}

// TaxLookup resolves the annual tax of listings.
type TaxLookup struct {
	fetcher TaxFetcher
	store   cache.TaxStore
	clock   cache.Clock
	logger  *slog.Logger
}

// NewTaxLookup creates a TaxLookup. A nil logger discards output and a nil
// clock uses the wall clock.
func NewTaxLookup(fetcher TaxFetcher, store cache.TaxStore, clock cache.Clock, logger *slog.Logger) *TaxLookup {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TaxLookup{fetcher: fetcher, store: store, clock: clock, logger: logger}
}

// Lookup returns the tax estimate of l. It never fails: store errors are
// treated as cache misses and upstream failures yield TaxUnavailable.
func (t *TaxLookup) Lookup(ctx context.Context, l model.Listing) model.TaxEstimate {
	est, ok, err := t.store.FindTax(ctx, l.Address)
	if err != nil {
		t.logger.Warn("tax cache read failed", "address", l.Address, "error", err)
	} else if ok {
		return est
	}

	paid, found, err := t.fetcher.FetchTaxPaid(ctx, l.PropertyID)
	if err != nil {
		t.logger.Warn("tax lookup failed", "address", l.Address, "zpid", l.PropertyID, "error", err)
		return model.TaxEstimate{Status: model.TaxUnavailable}
	}

	est = model.TaxEstimate{Status: model.TaxNotOnRecord}
	if found {
		est = model.KnownTax(paid)
	}
	if err := t.store.SaveTax(ctx, l.Address, t.clock.Today(), est); err != nil {
		t.logger.Warn("tax cache write failed", "address", l.Address, "error", err)
	}
	return est
}
