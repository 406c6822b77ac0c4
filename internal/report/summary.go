package report

import "github.com/nao1215/rentscan/internal/model"

// Summary condenses a RankReport for display.
type Summary struct {
	Total            int     `json:"total"`
	HomeListings     int     `json:"home_listings"`
	ExpandedListings int     `json:"expanded_listings"`
	Shortfall        int     `json:"shortfall"`
	PositiveCount    int     `json:"positive"`
	TopCount         int     `json:"top"`
	MiddleCount      int     `json:"middle"`
	BottomCount      int     `json:"bottom"`
	BestCashflow     float64 `json:"best_cashflow"`
	WorstCashflow    float64 `json:"worst_cashflow"`

	// ratings holds the rating of each listing of report.Listings().
	ratings []model.Rating
}

// Summarize computes the summary of report. Ratings are relative to all
// listings of the report, home and expanded alike.
func Summarize(report *model.RankReport) Summary {
	listings := report.Listings()
	cashflows := model.Cashflows(listings)

	s := Summary{
		Total:            len(listings),
		HomeListings:     len(report.HomeListings),
		ExpandedListings: len(report.ExpandedListings),
		ratings:          make([]model.Rating, len(listings)),
	}
	if short := report.DesiredCount - s.Total; short > 0 {
		s.Shortfall = short
	}

	for i, l := range listings {
		cf := l.Cashflow()
		if i == 0 || cf > s.BestCashflow {
			s.BestCashflow = cf
		}
		if i == 0 || cf < s.WorstCashflow {
			s.WorstCashflow = cf
		}

		r := model.RateCashflow(cf, cashflows)
		s.ratings[i] = r
		switch r {
		case model.RatingPositive:
			s.PositiveCount++
		case model.RatingTop:
			s.TopCount++
		case model.RatingMiddle:
			s.MiddleCount++
		case model.RatingBottom:
			s.BottomCount++
		}
	}
	return s
}

// Rating returns the rating of the i-th listing of report.Listings().
func (s Summary) Rating(i int) model.Rating {
	if i < 0 || i >= len(s.ratings) {
		return model.RatingMiddle
	}
	return s.ratings[i]
}
