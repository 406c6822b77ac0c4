// Package markers turns ranked listings into rated map markers.
package markers

import (
	"context"
	"io"
	"log/slog"

	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// Geocoder resolves an address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (upstream.LatLng, error)
}

// GoogleGeocoder geocodes through the Google geocoding API.
type GoogleGeocoder struct {
	Client *upstream.Client
	APIKey string
}

// Geocode implements Geocoder.
func (g GoogleGeocoder) Geocode(ctx context.Context, address string) (upstream.LatLng, error) {
	return upstream.Call(ctx, g.Client, upstream.EndpointGeocode, upstream.GeocodeParams(address, g.APIKey), upstream.DecodeGeocode)
}

// Marker is one rated listing placed on a map.
type Marker struct {
	Address    string          `json:"address"`
	Geocode    upstream.LatLng `json:"geocode"`
	Rating     model.Rating    `json:"rating"`
	Cashflow   float64         `json:"cashflow"`
	ListingURL string          `json:"listingURL"`
}

// Build geocodes listings in order and rates each cash flow against the
// cash flows of all listings. Listings that fail to geocode are left out.
// The only error returned is the context error.
func Build(ctx context.Context, geocoder Geocoder, listings []model.ScoredListing, logger *slog.Logger) ([]Marker, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cashflows := model.Cashflows(listings)
	markers := make([]Marker, 0, len(listings))
	for _, l := range listings {
		loc, err := geocoder.Geocode(ctx, l.Address)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return markers, ctxErr
			}
			logger.Warn("skipping listing without location", "address", l.Address, "error", err)
			continue
		}
		cf := l.Cashflow()
		markers = append(markers, Marker{
			Address:    l.Address,
			Geocode:    loc,
			Rating:     model.RateCashflow(cf, cashflows),
			Cashflow:   cf,
			ListingURL: l.ListingURL,
		})
	}
	return markers, nil
}
