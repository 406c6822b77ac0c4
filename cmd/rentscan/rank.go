package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/rentscan/internal/config"
	"github.com/nao1215/rentscan/internal/log"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/pipeline"
	"github.com/nao1215/rentscan/internal/report"
	"github.com/spf13/cobra"
)

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <area>...",
		Short: "Rank the listings of one or more areas by cash flow",
		Long: `Rank finds properties for sale in each area and orders them by estimated
monthly rental cash flow, best first.

When an area has fewer listings than requested, neighboring areas within
--radius miles are consulted and their listings are appended after the
home-area listings.

Examples:
  # Rank 10 listings in 90210
  rentscan rank 90210

  # Rank 5 listings per area in two areas, without condos
  rentscan rank -n 5 -x CONDO 90210 10001

  # Output a Markdown report and save it to a file
  rentscan rank --markdown -o reports/90210.md 90210

  # Use the file cache in a custom directory
  rentscan rank --backend files --cache-dir ./cache 90210

Configuration file (.rentscan) example:
  defaults:
    count: 10
    excludedHomeTypes: [LOT]
  areas:
    "90210":
      failureThreshold: 6
  scoring:
    annual_rate_percent: 7.1`,
		Args: cobra.ArbitraryArgs,
		RunE: runRankCmd,
	}

	cmd.Flags().IntP("count", "n", config.DefaultCount,
		"Number of listings to rank per area")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"Home types to exclude (repeatable or comma-separated, e.g. CONDO,LOT)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of areas ranked concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Also write the report to the specified file path (creates directories if needed)")

	addCommonFlags(cmd)

	return cmd
}

// runRankCmd executes the rank command.
func runRankCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRankConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runRank(ctx, cfg, defaultEndpoints, logger, cmd.OutOrStdout())
}

// buildRankConfig creates a Config from the rank command flags.
func buildRankConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("count") {
		if cfg.Count, err = cmd.Flags().GetInt("count"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("exclude") {
		if cfg.ExcludedHomeTypes, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
			return nil, err
		}
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Areas = args

	return cfg, nil
}

// runRank ranks every configured area and writes one report per area.
func runRank(ctx context.Context, cfg *config.Config, ep endpoints, logger *slog.Logger, stdout io.Writer) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := newClients(cfg, ep, logger)
	if err != nil {
		return err
	}
	svc := newService(cfg, store, c, logger)

	writer, closeWriter, err := newReportWriter(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeWriter()

	logger.Info("starting ranking",
		"areas", cfg.Areas,
		"backend", cfg.Backend,
		"batchSize", cfg.BatchSize,
	)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(ctx context.Context, area string) (*model.RankReport, error) {
			return svc.Run(ctx, area, cfg.CountFor(area), cfg.ExcludedFor(area))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	reports, batchErr := bp.ProcessBatch(ctx, cfg.Areas)

	var failed int
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.Error != "" {
			failed++
		}
		if _, err := writer.Write(r); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", r.Area, err)
		}
	}

	logger.Info("ranking finished",
		"areas", len(cfg.Areas),
		"failed", failed,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if batchErr != nil {
		return batchErr
	}
	if failed == len(cfg.Areas) {
		return fmt.Errorf("ranking failed for every area (%d)", failed)
	}
	return nil
}

// newReportWriter returns the writer for the requested format. With a
// report file configured, the report goes to stdout and the file. The
// returned function closes the file.
func newReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func(), error) {
	formatWriter := func(w io.Writer) report.Writer {
		switch {
		case cfg.JSONReport:
			return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
		case cfg.MarkdownReport:
			return report.NewMarkdownWriter(w)
		default:
			return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
		}
	}

	if cfg.ReportFile == "" {
		return formatWriter(stdout), func() {}, nil
	}

	f, err := createOutputFile(cfg.ReportFile)
	if err != nil {
		return nil, nil, err
	}
	w := report.NewMultiWriter(formatWriter(stdout), formatWriter(f))
	return w, func() { _ = f.Close() }, nil
}
