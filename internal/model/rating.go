package model

import (
	"math"
	"slices"
)

// Rating is the display tier of a cash flow relative to the other cash
// flows of the same result set.
type Rating int

const (
	// RatingBottom is at or below the 20th percentile.
	RatingBottom Rating = -1
	// RatingMiddle is above the 20th and below the 80th percentile.
	RatingMiddle Rating = 0
	// RatingTop is at or above the 80th percentile.
	RatingTop Rating = 1
	// RatingPositive is any positive cash flow, regardless of percentile.
	RatingPositive Rating = 2
)

// String returns a human-readable representation of the rating.
func (r Rating) String() string {
	switch r {
	case RatingBottom:
		return "bottom"
	case RatingMiddle:
		return "middle"
	case RatingTop:
		return "top"
	case RatingPositive:
		return "positive"
	default:
		return "unknown"
	}
}

// RateCashflow classifies cashflow against the distribution all.
// A positive cash flow always rates RatingPositive, so it ranks above any
// non-positive cash flow whatever its percentile position.
func RateCashflow(cashflow float64, all []float64) Rating {
	if cashflow > 0 {
		return RatingPositive
	}
	if len(all) == 0 {
		return RatingMiddle
	}
	top := Percentile(all, 80)
	bottom := Percentile(all, 20)
	switch {
	case cashflow >= top:
		return RatingTop
	case cashflow > bottom:
		return RatingMiddle
	default:
		return RatingBottom
	}
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between the closest ranks. It returns NaN for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Cashflows extracts the cash flow of every scored listing, in order.
func Cashflows(listings []ScoredListing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = l.Cashflow()
	}
	return out
}
