package model

import (
	"encoding/json"
	"testing"
)

// TestTaxEstimateMonthly tests that only known taxes enter the expense model.
func TestTaxEstimateMonthly(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		tax      TaxEstimate
		expected float64
	}{
		{"known", KnownTax(3600), 300},
		{"not on record", TaxEstimate{Annual: -1, Status: TaxNotOnRecord}, 0},
		{"unavailable", TaxEstimate{Status: TaxUnavailable}, 0},
		{"zero value", TaxEstimate{}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.tax.Monthly(); got != tc.expected {
				t.Errorf("Monthly() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestUnknownRent tests the failure value of a rent estimate.
func TestUnknownRent(t *testing.T) {
	t.Parallel()

	r := UnknownRent()
	if r.Known || r.Median != 0 || r.Low != 0 || r.High != 0 || r.Percentile25 != 0 || r.Percentile75 != 0 {
		t.Errorf("expected all-zero unknown estimate, got %+v", r)
	}
}

// TestAgentPageCursorExhausted tests the terminal condition of the directory walk.
func TestAgentPageCursorExhausted(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		cursor   AgentPageCursor
		expected bool
	}{
		{"fresh cursor", NewAgentPageCursor("90210"), false},
		{"last page unknown", AgentPageCursor{Current: 9, LastPage: 0}, false},
		{"on last page", AgentPageCursor{Current: 2, LastPage: 2, LastPageKnown: true}, false},
		{"past last page", AgentPageCursor{Current: 3, LastPage: 2, LastPageKnown: true}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cursor.Exhausted(); got != tc.expected {
				t.Errorf("Exhausted() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestScoredListingJSON tests that the derived cash flow is emitted.
func TestScoredListingJSON(t *testing.T) {
	t.Parallel()

	s := ScoredListing{
		Listing:  Listing{Address: "1 Main St", Area: "90210", Price: 300000},
		Rent:     2000,
		Expenses: 2500,
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["cashflow"] != float64(-500) {
		t.Errorf("cashflow = %v, expected -500", raw["cashflow"])
	}
	if raw["formattedAddress"] != "1 Main St" {
		t.Errorf("formattedAddress = %v", raw["formattedAddress"])
	}

	var back ScoredListing
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal into ScoredListing: %v", err)
	}
	if back != s {
		t.Errorf("round trip mismatch: got %+v, expected %+v", back, s)
	}
}
