package model

import "encoding/json"

// ScoredListing is a listing together with the inputs and outputs of the
// cash-flow model. Cash flow is derived from Rent and Expenses and is not
// stored separately.
type ScoredListing struct {
	Listing

	// Rent is the median monthly rent used for scoring.
	Rent float64 `json:"rent"`

	// Expenses is the total modeled monthly expense.
	Expenses float64 `json:"expenses"`

	// Tax is the annual tax figure, zero when unknown.
	Tax       float64   `json:"tax"`
	TaxStatus TaxStatus `json:"tax_status"`
	RentKnown bool      `json:"rent_known"`
}

// Cashflow returns the estimated monthly cash flow.
func (s ScoredListing) Cashflow() float64 {
	return s.Rent - s.Expenses
}

// scoredListingJSON mirrors ScoredListing for serialization.
type scoredListingJSON struct {
	Listing
	Rent      float64   `json:"rent"`
	Expenses  float64   `json:"expenses"`
	Tax       float64   `json:"tax"`
	TaxStatus TaxStatus `json:"tax_status"`
	RentKnown bool      `json:"rent_known"`
	Cashflow  float64   `json:"cashflow"`
}

// MarshalJSON emits the derived cash flow alongside the stored fields.
func (s ScoredListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoredListingJSON{
		Listing:   s.Listing,
		Rent:      s.Rent,
		Expenses:  s.Expenses,
		Tax:       s.Tax,
		TaxStatus: s.TaxStatus,
		RentKnown: s.RentKnown,
		Cashflow:  s.Cashflow(),
	})
}

// UnmarshalJSON restores a ScoredListing. The cashflow field is ignored
// because it is derived.
func (s *ScoredListing) UnmarshalJSON(data []byte) error {
	var v scoredListingJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScoredListing{
		Listing:   v.Listing,
		Rent:      v.Rent,
		Expenses:  v.Expenses,
		Tax:       v.Tax,
		TaxStatus: v.TaxStatus,
		RentKnown: v.RentKnown,
	}
	return nil
}
