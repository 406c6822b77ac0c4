package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/rentscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with one block per listing.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so that output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no listings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RankReport) (int, error) {
	var sb strings.Builder
	summary := Summarize(report)

	w.writeHeader(&sb, report, summary)
	w.writeSummary(&sb, summary)
	w.writeListings(&sb, "HOME AREA", report.HomeListings, summary, 0)
	w.writeListings(&sb, "NEIGHBORING AREAS", report.ExpandedListings, summary, len(report.HomeListings))
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with request information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RankReport, summary Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         RENTSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Area:           %s\n", report.Area))
	sb.WriteString(fmt.Sprintf("Requested:      %d listings\n", report.DesiredCount))
	if len(report.ExcludedHomeTypes) > 0 {
		sb.WriteString(fmt.Sprintf("Excluded Types: %s\n", strings.Join(report.ExcludedHomeTypes, ", ")))
	}
	if len(report.Neighbors) > 0 {
		sb.WriteString(fmt.Sprintf("Neighbors:      %s\n", strings.Join(report.Neighbors, ", ")))
	}
	if w.verbose && report.RequestID != "" {
		sb.WriteString(fmt.Sprintf("Request ID:     %s\n", report.RequestID))
	}
	sb.WriteString(fmt.Sprintf("Ranked At:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))

	switch {
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
	case summary.Shortfall > 0:
		sb.WriteString(fmt.Sprintf("Status:         Partial (%d of %d listings)\n", summary.Total, report.DesiredCount))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the rating summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CASH FLOW SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  POSITIVE: %d\n", summary.PositiveCount))
	sb.WriteString(fmt.Sprintf("  TOP:      %d\n", summary.TopCount))
	sb.WriteString(fmt.Sprintf("  MIDDLE:   %d\n", summary.MiddleCount))
	sb.WriteString(fmt.Sprintf("  BOTTOM:   %d\n", summary.BottomCount))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d listings\n", summary.Total))
	if summary.Total > 0 {
		sb.WriteString(fmt.Sprintf("  BEST:     %s/mo\n", formatMoney(summary.BestCashflow)))
		sb.WriteString(fmt.Sprintf("  WORST:    %s/mo\n", formatMoney(summary.WorstCashflow)))
	}
	sb.WriteString("\n")
}

// writeListings writes one section of ranked listings. offset is the index
// of the first listing within report.Listings().
func (w *SimpleWriter) writeListings(sb *strings.Builder, title string, listings []model.ScoredListing, summary Summary, offset int) {
	if len(listings) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(listings) == 0 {
		sb.WriteString("  No listings\n\n")
		return
	}

	for i, l := range listings {
		rating := summary.Rating(offset + i)
		sb.WriteString(fmt.Sprintf("%3d. [%s] %s (%s)\n", i+1, ratingIndicator(rating), l.Address, l.Area))
		sb.WriteString(fmt.Sprintf("     Cash flow: %s/mo  Rent: %s/mo  Expenses: %s/mo\n",
			formatMoney(l.Cashflow()), formatMoney(l.Rent), formatMoney(l.Expenses)))
		sb.WriteString(fmt.Sprintf("     Price: %s  Type: %s  Beds: %g  Baths: %g\n",
			formatMoney(l.Price), displayHomeType(l.HomeType), l.Beds, l.Baths))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("     Tax: %s  Rent estimate: %s\n", taxText(l), rentText(l)))
			if l.ListingURL != "" {
				sb.WriteString(fmt.Sprintf("     URL: %s\n", l.ListingURL))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by rentscan\n")
	sb.WriteString("https://github.com/nao1215/rentscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// ratingIndicator returns a visual indicator for the rating.
func ratingIndicator(r model.Rating) string {
	switch r {
	case model.RatingPositive:
		return "$$"
	case model.RatingTop:
		return "$ "
	case model.RatingMiddle:
		return "- "
	case model.RatingBottom:
		return "x "
	default:
		return "? "
	}
}

// formatMoney formats an amount in dollars with two decimals and thousands
// separators.
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	whole, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + frac
}

func taxText(l model.ScoredListing) string {
	switch l.TaxStatus {
	case model.TaxKnown:
		return formatMoney(l.Tax) + "/yr"
	case model.TaxNotOnRecord:
		return "not on record"
	default:
		return "unavailable"
	}
}

func rentText(l model.ScoredListing) string {
	if l.RentKnown {
		return "known"
	}
	return "unavailable"
}
