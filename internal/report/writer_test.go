package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/rentscan/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.RankReport {
	report := model.NewRankReport("90210", 5, []string{"condo"})
	report.RequestID = "3f2a9c1e-0000-4000-8000-000000000001"
	report.StartedAt = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(3 * time.Second)
	report.HomeListings = []model.ScoredListing{
		{
			Listing: model.Listing{
				Address: "4 Palm Dr", Area: "90210", Price: 200000, Beds: 3, Baths: 2,
				HomeType: "SINGLE_FAMILY", ListingURL: "https://www.zillow.com/homedetails/104_zpid/",
			},
			Rent: 2600, Expenses: 2100, Tax: 3600, TaxStatus: model.TaxKnown, RentKnown: true,
		},
		{
			Listing: model.Listing{Address: "1 Palm Dr", Area: "90210", Price: 300000, HomeType: "MULTI_FAMILY"},
			Rent:    2000, Expenses: 2467.62, TaxStatus: model.TaxNotOnRecord, RentKnown: true,
		},
		{
			Listing: model.Listing{Address: "3 Palm Dr", Area: "90210", Price: 400000, HomeType: "TOWNHOUSE"},
			Rent:    1800, Expenses: 3100, TaxStatus: model.TaxUnavailable,
		},
	}
	report.ExpandedListings = []model.ScoredListing{
		{
			Listing: model.Listing{Address: "7 Wilshire Blvd", Area: "90212", Price: 280000, HomeType: "SINGLE_FAMILY"},
			Rent:    2100, Expenses: 2300, TaxStatus: model.TaxKnown, Tax: 3000, RentKnown: true,
		},
	}
	report.Neighbors = []string{"90212"}
	report.PerformedSteps = []string{"home_area", "expand"}
	return report
}

// TestSummarize tests the rating summary.
func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(createTestReport())

	if s.Total != 4 || s.HomeListings != 3 || s.ExpandedListings != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Shortfall != 1 {
		t.Errorf("Shortfall = %d, want 1", s.Shortfall)
	}
	if s.PositiveCount != 1 {
		t.Errorf("PositiveCount = %d, want 1", s.PositiveCount)
	}
	if s.PositiveCount+s.TopCount+s.MiddleCount+s.BottomCount != s.Total {
		t.Errorf("rating counts do not add up: %+v", s)
	}
	if s.BestCashflow != 500 || s.WorstCashflow != -1300 {
		t.Errorf("best/worst = %v/%v", s.BestCashflow, s.WorstCashflow)
	}
	if s.Rating(0) != model.RatingPositive || s.Rating(2) != model.RatingBottom {
		t.Errorf("unexpected ratings %v %v", s.Rating(0), s.Rating(2))
	}
	if s.Rating(99) != model.RatingMiddle {
		t.Error("out-of-range rating should be middle")
	}

	empty := Summarize(model.NewRankReport("10001", 3, nil))
	if empty.Total != 0 || empty.Shortfall != 3 {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and listings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"RENTSCAN REPORT",
			"Area:           90210",
			"Excluded Types: condo",
			"Neighbors:      90212",
			"Partial (4 of 5 listings)",
			"CASH FLOW SUMMARY",
			"HOME AREA",
			"NEIGHBORING AREAS",
			"  1. [$$] 4 Palm Dr (90210)",
			"Cash flow: $500.00/mo",
			"Price: $200,000.00  Type: Single Family",
			"7 Wilshire Blvd (90212)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "Request ID") || strings.Contains(output, "URL:") {
			t.Error("non-verbose output should omit request id and URLs")
		}
	})

	t.Run("verbose output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Request ID:     3f2a9c1e",
			"Tax: $3,600.00/yr",
			"Tax: not on record",
			"Tax: unavailable  Rent estimate: unavailable",
			"URL: https://www.zillow.com/homedetails/104_zpid/",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty sections", func(t *testing.T) {
		t.Parallel()

		report := model.NewRankReport("10001", 3, nil)

		var hidden bytes.Buffer
		if _, err := NewSimpleWriter(&hidden).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(hidden.String(), "HOME AREA") {
			t.Error("empty sections should be hidden by default")
		}

		var shown bytes.Buffer
		if _, err := NewSimpleWriter(&shown, WithShowEmpty(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(shown.String(), "No listings") {
			t.Error("expected empty sections with WithShowEmpty")
		}
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = "context canceled"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - context canceled") {
			t.Error("expected error status")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero length")
		}

		output := buf.String()
		for _, want := range []string{
			"# Rentscan Report",
			"## Cash Flow Summary",
			"```mermaid",
			"Cash Flow Rating Distribution",
			"## Home Area",
			"## Neighboring Areas",
			"[4 Palm Dr](https://www.zillow.com/homedetails/104_zpid/)",
			"Single Family",
			"Only 4 of 5 requested listings were found.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("no listings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewRankReport("10001", 3, nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("no chart expected without listings")
		}
		if !strings.Contains(output, "No listings were found for 10001") {
			t.Error("expected a warning for an empty result")
		}
		if strings.Contains(output, "## Neighboring Areas") {
			t.Error("neighbor section should be omitted without expansion")
		}
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = "failed to acquire listings"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Error - failed to acquire listings") {
			t.Error("expected error status")
		}
	})
}

// TestJSONWriter tests the JSON report writers.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasSuffix(output, "\n") || strings.Count(output, "\n") != 1 {
			t.Error("expected single-line output with trailing newline")
		}

		var decoded struct {
			Area         string `json:"area"`
			HomeListings []struct {
				Address  string  `json:"formattedAddress"`
				Cashflow float64 `json:"cashflow"`
			} `json:"home_listings"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Area != "90210" || len(decoded.HomeListings) != 3 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
		if decoded.HomeListings[0].Cashflow != 500 {
			t.Errorf("cashflow = %v, want 500", decoded.HomeListings[0].Cashflow)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"area\": \"90210\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), ">\t\"area\"") {
			t.Error("expected custom prefix and indent")
		}
	})

	t.Run("full report wrapper", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version string `json:"version"`
			Report  struct {
				Area string `json:"area"`
			} `json:"report"`
			Summary struct {
				Total    int `json:"total"`
				Positive int `json:"positive"`
			} `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" || decoded.Report.Area != "90210" {
			t.Errorf("unexpected wrapper %+v", decoded)
		}
		if decoded.Summary.Total != 4 || decoded.Summary.Positive != 1 {
			t.Errorf("unexpected summary %+v", decoded.Summary)
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.RankReport) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("total = %d, want %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&after))

		if _, err := mw.Write(createTestReport()); err == nil {
			t.Error("expected an error")
		}
		if after.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

// TestHelpers tests the formatting helpers.
func TestHelpers(t *testing.T) {
	t.Parallel()

	money := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{12.5, "$12.50"},
		{999.999, "$1,000.00"},
		{1234567.891, "$1,234,567.89"},
		{-467.62, "-$467.62"},
		{-1300, "-$1,300.00"},
	}
	for _, tc := range money {
		if got := formatMoney(tc.in); got != tc.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}

	homeTypes := map[string]string{
		"SINGLE_FAMILY": "Single Family",
		"condo":         "Condo",
		"MULTI-FAMILY":  "Multi Family",
		"":              "-",
	}
	for in, want := range homeTypes {
		if got := displayHomeType(in); got != want {
			t.Errorf("displayHomeType(%q) = %q, want %q", in, got, want)
		}
	}

	if got := truncateString("1234567890", 8); got != "12345..." {
		t.Errorf("truncateString = %q", got)
	}
	if got := truncateString("short", 8); got != "short" {
		t.Errorf("truncateString = %q", got)
	}
}
