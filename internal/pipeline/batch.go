package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/rentscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of areas ranked at once. Requests share
// one rate limiter per upstream host, so extra concurrency mostly overlaps
// cache work.
const DefaultConcurrency = 1

// RunFunc ranks one area and returns its report. Service.Run bound to a
// count and exclusion set is the usual RunFunc.
type RunFunc func(ctx context.Context, area string) (*model.RankReport, error)

// BatchProcessor ranks several areas with bounded concurrency.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Service because:
// 1. It keeps Service focused on single-request execution
// 2. The CLI is its only user; the HTTP endpoint serves one area per request
type BatchProcessor struct {
	// run ranks a single area.
	run RunFunc

	// concurrency is the maximum number of areas ranked at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of areas ranked at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(run RunFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		run:         run,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch ranks every area and returns the reports in input order.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because errgroup handles the bookkeeping. A failed area does not stop
// the others; its error is recorded in its report. The returned error is
// non-nil only when ctx is cancelled, in which case areas that never
// started have a nil report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, areas []string) ([]*model.RankReport, error) {
	bp.logger.Info("starting batch processing",
		"total_areas", len(areas),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index.
	results := make([]*model.RankReport, len(areas))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, area := range areas {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("ranking area",
				"area", area,
				"index", i+1,
				"total", len(areas),
			)

			report, err := bp.run(ctx, area)
			results[i] = report

			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				bp.logger.Warn("ranking failed",
					"area", area,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("ranking completed",
				"area", area,
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_areas", len(areas),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
