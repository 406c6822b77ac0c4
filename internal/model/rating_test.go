package model

import (
	"math"
	"testing"
)

// TestPercentile tests linear interpolation between closest ranks.
func TestPercentile(t *testing.T) {
	t.Parallel()

	values := []float64{40, 10, 30, 20, 50}

	testCases := []struct {
		p        float64
		expected float64
	}{
		{0, 10},
		{20, 18},
		{50, 30},
		{80, 42},
		{100, 50},
	}

	for _, tc := range testCases {
		got := Percentile(values, tc.p)
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, expected %v", tc.p, got, tc.expected)
		}
	}

	if !math.IsNaN(Percentile(nil, 50)) {
		t.Error("expected NaN for empty input")
	}
}

// TestRateCashflow tests the tier boundaries.
func TestRateCashflow(t *testing.T) {
	t.Parallel()

	// Six values put the 20th and 80th percentiles exactly on ranks 1 and 4.
	all := []float64{-600, -500, -400, -300, -200, -100}
	if top, bottom := Percentile(all, 80), Percentile(all, 20); top != -200 || bottom != -500 {
		t.Fatalf("percentiles = %v, %v, expected exact ranks -200, -500", top, bottom)
	}

	testCases := []struct {
		name     string
		cashflow float64
		expected Rating
	}{
		{"top of distribution", -100, RatingTop},
		{"at 80th percentile", -200, RatingTop},
		{"just below 80th percentile", -201, RatingMiddle},
		{"middle", -300, RatingMiddle},
		{"just above 20th percentile", -499, RatingMiddle},
		{"at 20th percentile", -500, RatingBottom},
		{"bottom", -600, RatingBottom},
		{"positive outside distribution", 1, RatingPositive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RateCashflow(tc.cashflow, all); got != tc.expected {
				t.Errorf("RateCashflow(%v) = %v, expected %v", tc.cashflow, got, tc.expected)
			}
		})
	}
}

// TestRateCashflowPositiveAlwaysAbove tests that a positive cash flow rates
// above every non-positive cash flow even when it sits low in the distribution.
func TestRateCashflowPositiveAlwaysAbove(t *testing.T) {
	t.Parallel()

	all := []float64{1, 1000, 2000, 3000, 0, -5}
	positive := RateCashflow(1, all)
	for _, cf := range []float64{0, -5} {
		if RateCashflow(cf, all) >= positive {
			t.Errorf("non-positive %v rated %v, not below positive %v", cf, RateCashflow(cf, all), positive)
		}
	}
}

// TestRatingString tests the String method of Rating.
func TestRatingString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rating   Rating
		expected string
	}{
		{RatingBottom, "bottom"},
		{RatingMiddle, "middle"},
		{RatingTop, "top"},
		{RatingPositive, "positive"},
		{Rating(9), "unknown"},
	}
	for _, tc := range testCases {
		if tc.rating.String() != tc.expected {
			t.Errorf("got %q, expected %q", tc.rating.String(), tc.expected)
		}
	}
}
