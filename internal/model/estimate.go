package model

import "encoding/json"

// TaxStatus describes how a TaxEstimate was obtained.
type TaxStatus string

const (
	// TaxKnown means the tax history contained a paid-tax figure.
	TaxKnown TaxStatus = "known"
	// TaxNotOnRecord means the tax history was fetched but no entry had a
	// paid-tax figure. This outcome is cached like a known figure.
	TaxNotOnRecord TaxStatus = "not_on_record"
	// TaxUnavailable means the upstream call failed after all retries.
	// This outcome is never cached.
	TaxUnavailable TaxStatus = "unavailable"
)

// TaxEstimate is the most recent known annual property tax of a listing.
type TaxEstimate struct {
	// Annual is the annual tax amount. It is meaningful only when Status is TaxKnown.
	Annual float64   `json:"tax"`
	Status TaxStatus `json:"status"`
}

// KnownTax returns a TaxEstimate holding a paid-tax figure.
func KnownTax(annual float64) TaxEstimate {
	return TaxEstimate{Annual: annual, Status: TaxKnown}
}

// IsKnown reports whether the estimate carries a usable figure.
func (t TaxEstimate) IsKnown() bool {
	return t.Status == TaxKnown
}

// Monthly returns the monthly tax contribution to the expense model.
// Unknown taxes contribute nothing.
func (t TaxEstimate) Monthly() float64 {
	if !t.IsKnown() {
		return 0
	}
	return t.Annual / 12
}

// RentalEstimate is the rent estimate of a listing derived from comparable rentals.
type RentalEstimate struct {
	Median       float64 `json:"median"`
	Low          float64 `json:"lowRent"`
	High         float64 `json:"highRent"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile75 float64 `json:"percentile_75"`

	// Comparables is the upstream comparable-rentals payload, kept verbatim.
	Comparables json.RawMessage `json:"comparableRentals,omitempty"`

	// Known is false when the upstream returned no median or the call failed.
	Known bool `json:"known"`
}

// UnknownRent is the estimate used when rent could not be obtained.
// All numeric fields are zero.
func UnknownRent() RentalEstimate {
	return RentalEstimate{}
}
