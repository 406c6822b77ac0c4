package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/rentscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides type-safe tables, mermaid charts and
// GitHub-flavored alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RankReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(report)

	w.writeHeader(md, report, summary)
	w.writeSummary(md, report, summary)
	w.writeListings(md, "Home Area", report.HomeListings, summary, 0)
	if len(report.ExpandedListings) > 0 {
		w.writeListings(md, "Neighboring Areas", report.ExpandedListings, summary, len(report.HomeListings))
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with request information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RankReport, summary Summary) {
	md.H1("Rentscan Report")
	md.PlainText("")

	excluded := "-"
	if len(report.ExcludedHomeTypes) > 0 {
		excluded = strings.Join(report.ExcludedHomeTypes, ", ")
	}
	neighbors := "-"
	if len(report.Neighbors) > 0 {
		neighbors = strings.Join(report.Neighbors, ", ")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Area", "`" + report.Area + "`"},
			{"Requested", strconv.Itoa(report.DesiredCount)},
			{"Excluded Types", excluded},
			{"Neighbors", neighbors},
			{"Ranked At", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", w.getStatusText(report, summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RankReport, summary Summary) string {
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	if summary.Shortfall > 0 {
		return "⚠️ Partial (" + strconv.Itoa(summary.Total) + " of " + strconv.Itoa(report.DesiredCount) + ")"
	}
	return "✅ Complete"
}

// writeSummary writes the rating summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RankReport, summary Summary) {
	md.H2("Cash Flow Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Rating", "Count"},
		Rows: [][]string{
			{"🟢 Positive", strconv.Itoa(summary.PositiveCount)},
			{"🔵 Top 20%", strconv.Itoa(summary.TopCount)},
			{"🟡 Middle", strconv.Itoa(summary.MiddleCount)},
			{"🔴 Bottom 20%", strconv.Itoa(summary.BottomCount)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, report, summary)
}

// writePieChart writes a mermaid pie chart for the rating distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Cash Flow Rating Distribution"),
		piechart.WithShowData(true),
	)

	if summary.PositiveCount > 0 {
		chart.LabelAndIntValue("Positive", uint64(summary.PositiveCount))
	}
	if summary.TopCount > 0 {
		chart.LabelAndIntValue("Top", uint64(summary.TopCount))
	}
	if summary.MiddleCount > 0 {
		chart.LabelAndIntValue("Middle", uint64(summary.MiddleCount))
	}
	if summary.BottomCount > 0 {
		chart.LabelAndIntValue("Bottom", uint64(summary.BottomCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RankReport, summary Summary) {
	switch {
	case report.Error != "":
		md.Cautionf("Ranking failed: %s", report.Error)
	case summary.Total == 0:
		md.Warningf("No listings were found for %s or its neighbors.", report.Area)
	case summary.Shortfall > 0:
		md.Importantf("Only %d of %d requested listings were found.", summary.Total, report.DesiredCount)
	case summary.PositiveCount > 0:
		md.Tip(fmt.Sprintf("%d listing(s) have a positive monthly cash flow. Best: %s/mo.",
			summary.PositiveCount, formatMoney(summary.BestCashflow)))
	default:
		md.Note("No listing has a positive monthly cash flow at the current assumptions.")
	}
	md.PlainText("")
}

// writeListings writes a table of ranked listings.
func (w *MarkdownWriter) writeListings(md *markdown.Markdown, title string, listings []model.ScoredListing, summary Summary, offset int) {
	md.H2(title)
	md.PlainText("")

	if len(listings) == 0 {
		md.PlainText("No listings.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(listings))
	for i, l := range listings {
		address := truncateString(l.Address, 50)
		if l.ListingURL != "" {
			address = "[" + address + "](" + l.ListingURL + ")"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			address,
			l.Area,
			displayHomeType(l.HomeType),
			formatMoney(l.Price),
			formatMoney(l.Rent),
			formatMoney(l.Expenses),
			formatMoney(l.Cashflow()),
			summary.Rating(offset + i).String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Address", "Area", "Type", "Price", "Rent", "Expenses", "Cash Flow", "Rating"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [rentscan](https://github.com/nao1215/rentscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
