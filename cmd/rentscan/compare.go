package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/pipeline"
	"github.com/nao1215/rentscan/internal/report"
	"github.com/spf13/cobra"
)

// compareOptions are the parsed compare command flags.
type compareOptions struct {
	count    int
	list     bool
	withDay  string
	json     bool
	markdown bool
}

// NewCompareCmd creates the compare command.
// This command compares ranked snapshots stored in the cache.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <area>",
		Short: "Compare the latest ranking of an area with an earlier one",
		Long: `Compare displays differences between two stored rankings of an area.

Every ranking is cached once per area, listing count and day. This command
reads two of them from the cache and shows:
- Listings that entered the ranking
- Listings that left the ranking
- Listings whose price or cash flow changed

The comparison requires at least two rankings with the same listing count.
Use 'rentscan rank' on different days to collect them.

Examples:
  # Compare the latest two rankings of 10 listings
  rentscan compare 90210

  # List the stored rankings of an area
  rentscan compare --list 90210

  # Compare the latest ranking of 5 listings with the one from a specific day
  rentscan compare -n 5 --with-day 2025-01-01 90210

  # Output the comparison as JSON
  rentscan compare --json 90210`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().IntP("count", "n", 0,
		"Listing count of the rankings to compare (default: configured count for the area)")
	cmd.Flags().BoolP("list", "l", false,
		"List the stored rankings of the area")
	cmd.Flags().StringP("with-day", "d", "",
		"Compare with the ranking of this day (format: YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	addStoreFlags(cmd)

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	area := args[0]
	// Validate before opening the cache so bad input never creates it.
	if err := pipeline.ValidateArea(area); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := getCompareOptions(cmd)
	if err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	if opts.count == 0 {
		opts.count = cfg.CountFor(area)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if opts.list {
		return listSnapshotHistory(ctx, store, area, out)
	}
	return runComparison(ctx, store, area, opts, out)
}

func getCompareOptions(cmd *cobra.Command) (compareOptions, error) {
	var (
		opts compareOptions
		err  error
	)
	if opts.count, err = cmd.Flags().GetInt("count"); err != nil {
		return opts, err
	}
	if opts.count < 0 {
		return opts, fmt.Errorf("%w: %d", pipeline.ErrInvalidCount, opts.count)
	}
	if opts.list, err = cmd.Flags().GetBool("list"); err != nil {
		return opts, err
	}
	if opts.withDay, err = cmd.Flags().GetString("with-day"); err != nil {
		return opts, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// listSnapshotHistory lists every stored ranking of area.
func listSnapshotHistory(ctx context.Context, store cache.Store, area string, out io.Writer) error {
	keys, err := store.ListSnapshots(ctx, area)
	if err != nil {
		return fmt.Errorf("failed to list rankings: %w", err)
	}

	if len(keys) == 0 {
		fmt.Fprintf(out, "No rankings found for %s\n", area)
		fmt.Fprintln(out, "\nUse 'rentscan rank' to rank this area.")
		return nil
	}

	fmt.Fprintf(out, "Rankings of %s (%d):\n\n", area, len(keys))
	fmt.Fprintf(out, "  %-12s  %-6s  %-9s  %s\n", "Date", "Count", "Listings", "Best Cash Flow")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))

	for _, key := range keys {
		listings, err := store.FindSnapshot(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load ranking of %s: %w", report.FormatDay(key.Day), err)
		}
		summary := report.SummarizeSnapshot(report.Snapshot{Day: key.Day, Count: key.Count, Listings: listings})
		best := "-"
		if summary.Total > 0 {
			best = fmt.Sprintf("%.2f/mo", summary.BestCashflow)
		}
		fmt.Fprintf(out, "  %-12s  %-6d  %-9d  %s\n", report.FormatDay(key.Day), key.Count, summary.Total, best)
	}

	fmt.Fprintln(out, "\nUse 'rentscan compare <area>' to compare the latest two rankings.")
	fmt.Fprintln(out, "Use 'rentscan compare --with-day <date> <area>' to compare with a specific day.")

	return nil
}

// runComparison compares the latest ranking of area with an earlier one.
func runComparison(ctx context.Context, store cache.Store, area string, opts compareOptions, out io.Writer) error {
	all, err := store.ListSnapshots(ctx, area)
	if err != nil {
		return fmt.Errorf("failed to list rankings: %w", err)
	}

	// Newest first.
	var days []string
	for _, key := range all {
		if key.Count == opts.count {
			days = append(days, key.Day)
		}
	}

	if len(days) == 0 {
		return fmt.Errorf("no rankings of %d listings found for %s", opts.count, area)
	}

	current := days[0]
	var previous string

	if opts.withDay != "" {
		parsed, err := time.Parse("2006-01-02", opts.withDay)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		want := model.DateKey(parsed)
		for _, day := range days {
			if day == want {
				previous = day
				break
			}
		}
		if previous == "" {
			return fmt.Errorf("no ranking of %d listings found for %s on %s", opts.count, area, opts.withDay)
		}
		if previous == current {
			return fmt.Errorf("the ranking of %s is the latest one; at least 2 rankings are required for comparison", opts.withDay)
		}
	} else {
		if len(days) < 2 {
			return fmt.Errorf("at least 2 rankings are required for comparison (found %d)", len(days))
		}
		previous = days[1]
	}

	load := func(day string) (report.Snapshot, error) {
		listings, err := store.FindSnapshot(ctx, cache.SnapshotKey{Area: area, Count: opts.count, Day: day})
		if err != nil {
			return report.Snapshot{}, fmt.Errorf("failed to load ranking of %s: %w", report.FormatDay(day), err)
		}
		return report.Snapshot{Day: day, Count: opts.count, Listings: listings}, nil
	}

	prevSnapshot, err := load(previous)
	if err != nil {
		return err
	}
	curSnapshot, err := load(current)
	if err != nil {
		return err
	}

	comparison := report.CompareSnapshots(area, prevSnapshot, curSnapshot)

	switch {
	case opts.json:
		return report.WriteComparisonJSON(out, comparison)
	case opts.markdown:
		return report.WriteComparisonMarkdown(out, comparison)
	default:
		return report.WriteComparisonText(out, comparison)
	}
}
