package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/rentscan/internal/model"
)

// Directions of the change between two snapshots.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// Snapshot is one stored ranking of an area.
type Snapshot struct {
	// Day is the calendar-day key the ranking was made on.
	Day string
	// Count is the number of listings that were requested.
	Count int
	// Listings are the ranked listings, best first.
	Listings []model.ScoredListing
}

// SnapshotSummary condenses a snapshot for comparison display.
type SnapshotSummary struct {
	Day             string  `json:"day"`
	Total           int     `json:"total"`
	PositiveCount   int     `json:"positive"`
	BestCashflow    float64 `json:"best_cashflow"`
	AverageCashflow float64 `json:"average_cashflow"`
}

// ListingChange describes one listing across two snapshots. Ranks are
// 1-based; zero means the listing is absent from that snapshot.
type ListingChange struct {
	Address          string  `json:"address"`
	Area             string  `json:"zip"`
	PreviousRank     int     `json:"previous_rank,omitempty"`
	CurrentRank      int     `json:"current_rank,omitempty"`
	PreviousPrice    float64 `json:"previous_price,omitempty"`
	CurrentPrice     float64 `json:"current_price,omitempty"`
	PreviousCashflow float64 `json:"previous_cashflow"`
	CurrentCashflow  float64 `json:"current_cashflow"`
}

// CashflowDelta returns the change in monthly cash flow.
func (c ListingChange) CashflowDelta() float64 {
	return c.CurrentCashflow - c.PreviousCashflow
}

// Comparison is the difference between two rankings of the same area.
type Comparison struct {
	Area     string          `json:"area"`
	Count    int             `json:"count"`
	Previous SnapshotSummary `json:"previous"`
	Current  SnapshotSummary `json:"current"`

	// NewListings are ranked now but were not before, in current rank order.
	NewListings []ListingChange `json:"new_listings,omitempty"`
	// RemovedListings were ranked before but are not now, in previous rank order.
	RemovedListings []ListingChange `json:"removed_listings,omitempty"`
	// ChangedListings are in both rankings with a different price or cash flow.
	ChangedListings []ListingChange `json:"changed_listings,omitempty"`

	UnchangedCount int `json:"unchanged_count"`

	// Direction compares the average cash flow of both rankings.
	Direction string `json:"direction"`
}

// CompareSnapshots compares two rankings of area. Listings are matched by
// their normalized address.
func CompareSnapshots(area string, previous, current Snapshot) *Comparison {
	c := &Comparison{
		Area:     area,
		Count:    current.Count,
		Previous: SummarizeSnapshot(previous),
		Current:  SummarizeSnapshot(current),
	}

	prevIndex := make(map[string]int, len(previous.Listings))
	for i, l := range previous.Listings {
		if _, ok := prevIndex[l.Key()]; !ok {
			prevIndex[l.Key()] = i
		}
	}
	seen := make(map[string]struct{}, len(current.Listings))

	for i, cur := range current.Listings {
		key := cur.Key()
		seen[key] = struct{}{}

		j, ok := prevIndex[key]
		if !ok {
			c.NewListings = append(c.NewListings, ListingChange{
				Address:         cur.Address,
				Area:            cur.Area,
				CurrentRank:     i + 1,
				CurrentPrice:    cur.Price,
				CurrentCashflow: cur.Cashflow(),
			})
			continue
		}

		prev := previous.Listings[j]
		if sameCents(prev.Price, cur.Price) && sameCents(prev.Cashflow(), cur.Cashflow()) {
			c.UnchangedCount++
			continue
		}
		c.ChangedListings = append(c.ChangedListings, ListingChange{
			Address:          cur.Address,
			Area:             cur.Area,
			PreviousRank:     j + 1,
			CurrentRank:      i + 1,
			PreviousPrice:    prev.Price,
			CurrentPrice:     cur.Price,
			PreviousCashflow: prev.Cashflow(),
			CurrentCashflow:  cur.Cashflow(),
		})
	}

	for j, prev := range previous.Listings {
		if _, ok := seen[prev.Key()]; ok {
			continue
		}
		seen[prev.Key()] = struct{}{}
		c.RemovedListings = append(c.RemovedListings, ListingChange{
			Address:          prev.Address,
			Area:             prev.Area,
			PreviousRank:     j + 1,
			PreviousPrice:    prev.Price,
			PreviousCashflow: prev.Cashflow(),
		})
	}

	switch {
	case sameCents(c.Previous.AverageCashflow, c.Current.AverageCashflow):
		c.Direction = DirectionUnchanged
	case c.Current.AverageCashflow > c.Previous.AverageCashflow:
		c.Direction = DirectionImproved
	default:
		c.Direction = DirectionWorsened
	}
	return c
}

// SummarizeSnapshot computes the display summary of a stored ranking.
func SummarizeSnapshot(s Snapshot) SnapshotSummary {
	r := &model.RankReport{DesiredCount: s.Count, HomeListings: s.Listings}
	summary := Summarize(r)

	out := SnapshotSummary{
		Day:           s.Day,
		Total:         summary.Total,
		PositiveCount: summary.PositiveCount,
		BestCashflow:  summary.BestCashflow,
	}
	if summary.Total > 0 {
		var sum float64
		for _, l := range s.Listings {
			sum += l.Cashflow()
		}
		out.AverageCashflow = sum / float64(summary.Total)
	}
	return out
}

func sameCents(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// FormatDay renders a calendar-day key as YYYY-MM-DD. Keys that do not
// parse are returned unchanged.
func FormatDay(day string) string {
	t, err := model.ParseDateKey(day)
	if err != nil {
		return day
	}
	return t.Format("2006-01-02")
}

// WriteComparisonJSON writes c as indented JSON.
func WriteComparisonJSON(w io.Writer, c *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// WriteComparisonText writes c in human-readable text format.
func WriteComparisonText(w io.Writer, c *Comparison) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Ranking Comparison: %s (count %d)\n", c.Area, c.Count))
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("\nCash Flow Trend: %s\n", formatDirection(c.Direction)))
	sb.WriteString(fmt.Sprintf("\nPrevious ranking: %s\n", FormatDay(c.Previous.Day)))
	sb.WriteString(fmt.Sprintf("Current ranking:  %s\n", FormatDay(c.Current.Day)))

	sb.WriteString("\nSummary:\n")
	sb.WriteString(fmt.Sprintf("  %-14s  %-12s  %-12s  %-12s\n", "Metric", "Previous", "Current", "Change"))
	sb.WriteString("  " + strings.Repeat("-", 56) + "\n")
	sb.WriteString(fmt.Sprintf("  %-14s  %-12d  %-12d  %-12s\n", "Listings",
		c.Previous.Total, c.Current.Total, formatCountDelta(c.Current.Total-c.Previous.Total)))
	sb.WriteString(fmt.Sprintf("  %-14s  %-12d  %-12d  %-12s\n", "Positive",
		c.Previous.PositiveCount, c.Current.PositiveCount, formatCountDelta(c.Current.PositiveCount-c.Previous.PositiveCount)))
	sb.WriteString(fmt.Sprintf("  %-14s  %-12s  %-12s  %-12s\n", "Best/mo",
		formatMoney(c.Previous.BestCashflow), formatMoney(c.Current.BestCashflow),
		formatMoneyDelta(c.Current.BestCashflow-c.Previous.BestCashflow)))
	sb.WriteString(fmt.Sprintf("  %-14s  %-12s  %-12s  %-12s\n", "Average/mo",
		formatMoney(c.Previous.AverageCashflow), formatMoney(c.Current.AverageCashflow),
		formatMoneyDelta(c.Current.AverageCashflow-c.Previous.AverageCashflow)))

	if len(c.NewListings) > 0 {
		sb.WriteString(fmt.Sprintf("\nNew Listings (%d):\n", len(c.NewListings)))
		for _, l := range c.NewListings {
			sb.WriteString(fmt.Sprintf("  [+] #%d %s (%s) %s/mo\n", l.CurrentRank, l.Address, l.Area, formatMoney(l.CurrentCashflow)))
		}
	}

	if len(c.RemovedListings) > 0 {
		sb.WriteString(fmt.Sprintf("\nRemoved Listings (%d):\n", len(c.RemovedListings)))
		for _, l := range c.RemovedListings {
			sb.WriteString(fmt.Sprintf("  [-] #%d %s (%s) %s/mo\n", l.PreviousRank, l.Address, l.Area, formatMoney(l.PreviousCashflow)))
		}
	}

	if len(c.ChangedListings) > 0 {
		sb.WriteString(fmt.Sprintf("\nChanged Listings (%d):\n", len(c.ChangedListings)))
		for _, l := range c.ChangedListings {
			sb.WriteString(fmt.Sprintf("  [~] #%d -> #%d %s: %s/mo -> %s/mo (%s)\n",
				l.PreviousRank, l.CurrentRank, l.Address,
				formatMoney(l.PreviousCashflow), formatMoney(l.CurrentCashflow),
				formatMoneyDelta(l.CashflowDelta())))
			if !sameCents(l.PreviousPrice, l.CurrentPrice) {
				sb.WriteString(fmt.Sprintf("      Price: %s -> %s\n", formatMoney(l.PreviousPrice), formatMoney(l.CurrentPrice)))
			}
		}
	}

	if c.UnchangedCount > 0 {
		sb.WriteString(fmt.Sprintf("\nUnchanged: %d listings\n", c.UnchangedCount))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteComparisonMarkdown writes c in Markdown format.
func WriteComparisonMarkdown(w io.Writer, c *Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Ranking Comparison: " + c.Area)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Cash Flow Trend:** %s", formatDirection(c.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", FormatDay(c.Previous.Day), FormatDay(c.Current.Day), "-"},
			{"Listings", strconv.Itoa(c.Previous.Total), strconv.Itoa(c.Current.Total), formatCountDelta(c.Current.Total - c.Previous.Total)},
			{"Positive", strconv.Itoa(c.Previous.PositiveCount), strconv.Itoa(c.Current.PositiveCount), formatCountDelta(c.Current.PositiveCount - c.Previous.PositiveCount)},
			{"Best/mo", formatMoney(c.Previous.BestCashflow), formatMoney(c.Current.BestCashflow), formatMoneyDelta(c.Current.BestCashflow - c.Previous.BestCashflow)},
			{"Average/mo", formatMoney(c.Previous.AverageCashflow), formatMoney(c.Current.AverageCashflow), formatMoneyDelta(c.Current.AverageCashflow - c.Previous.AverageCashflow)},
		},
	})
	md.PlainText("")

	if len(c.NewListings) > 0 {
		md.H2(fmt.Sprintf("New Listings (%d)", len(c.NewListings)))
		md.PlainText("")
		items := make([]string, len(c.NewListings))
		for i, l := range c.NewListings {
			items[i] = fmt.Sprintf("**#%d** %s (`%s`): %s/mo", l.CurrentRank, l.Address, l.Area, formatMoney(l.CurrentCashflow))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(c.RemovedListings) > 0 {
		md.H2(fmt.Sprintf("Removed Listings (%d)", len(c.RemovedListings)))
		md.PlainText("")
		items := make([]string, len(c.RemovedListings))
		for i, l := range c.RemovedListings {
			items[i] = fmt.Sprintf("~~%s (`%s`): %s/mo~~", l.Address, l.Area, formatMoney(l.PreviousCashflow))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(c.ChangedListings) > 0 {
		md.H2(fmt.Sprintf("Changed Listings (%d)", len(c.ChangedListings)))
		md.PlainText("")
		rows := make([][]string, len(c.ChangedListings))
		for i, l := range c.ChangedListings {
			rows[i] = []string{
				truncateString(l.Address, 50),
				fmt.Sprintf("#%d → #%d", l.PreviousRank, l.CurrentRank),
				formatMoney(l.PreviousPrice) + " → " + formatMoney(l.CurrentPrice),
				formatMoney(l.PreviousCashflow) + " → " + formatMoney(l.CurrentCashflow),
				formatMoneyDelta(l.CashflowDelta()),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Address", "Rank", "Price", "Cash Flow", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if c.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d listings unchanged*", c.UnchangedCount)
	}

	return md.Build()
}

func formatDirection(direction string) string {
	switch direction {
	case DirectionImproved:
		return "IMPROVED (average cash flow increased)"
	case DirectionWorsened:
		return "WORSENED (average cash flow decreased)"
	default:
		return "UNCHANGED"
	}
}

func formatCountDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func formatMoneyDelta(delta float64) string {
	if sameCents(delta, 0) {
		return "0"
	}
	if delta > 0 {
		return "+" + formatMoney(delta)
	}
	return formatMoney(delta)
}
