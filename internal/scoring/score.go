package scoring

import (
	"cmp"
	"slices"

	"github.com/nao1215/rentscan/internal/model"
)

// Breakdown is the monthly expense model of one listing.
type Breakdown struct {
	Mortgage   float64
	Vacancy    float64
	Repairs    float64
	Management float64
	Tax        float64
	Capex      float64
}

// Total returns the sum of all expense lines.
func (b Breakdown) Total() float64 {
	return b.Mortgage + b.Vacancy + b.Repairs + b.Tax + b.Capex + b.Management
}

// Expenses computes the monthly expenses of a listing priced at price with
// the given tax and median rent. Unknown taxes contribute nothing.
func (p Params) Expenses(price float64, tax model.TaxEstimate, medianRent float64) Breakdown {
	return Breakdown{
		Mortgage:   AmortizedPayment(p.LoanToValue*price, p.AnnualRatePercent, p.TermYears),
		Vacancy:    p.Vacancy * medianRent,
		Repairs:    p.Repairs * medianRent,
		Management: p.Management * medianRent,
		Tax:        tax.Monthly(),
		Capex:      p.MonthlyCapex,
	}
}

// Score builds the scored form of l.
func (p Params) Score(l model.Listing, tax model.TaxEstimate, rent model.RentalEstimate) model.ScoredListing {
	annual := 0.0
	if tax.IsKnown() {
		annual = tax.Annual
	}
	return model.ScoredListing{
		Listing:   l,
		Rent:      rent.Median,
		Expenses:  p.Expenses(l.Price, tax, rent.Median).Total(),
		Tax:       annual,
		TaxStatus: tax.Status,
		RentKnown: rent.Known,
	}
}

// Rank sorts listings by cash flow, highest first. Listings with equal cash
// flow keep their relative order.
func Rank(listings []model.ScoredListing) {
	slices.SortStableFunc(listings, func(a, b model.ScoredListing) int {
		return cmp.Compare(b.Cashflow(), a.Cashflow())
	})
}
