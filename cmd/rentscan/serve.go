package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/nao1215/rentscan/internal/config"
	"github.com/nao1215/rentscan/internal/log"
	"github.com/nao1215/rentscan/internal/markers"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rated map markers over HTTP",
		Long: `Serve starts an HTTP server for map front ends.

  GET /request-markers/{area}/{amount}?excludedHomeTypes=CONDO&excludedHomeTypes=LOT

ranks the area like "rentscan rank" and returns a JSON array of markers:
the address, its geocoded location, the cash-flow rating, the cash flow
and the listing URL. Listings that cannot be geocoded are left out.

Examples:
  # Listen on the default address
  rentscan serve

  # Listen on all interfaces
  rentscan serve --listen :8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")

	addCommonFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := newClients(cfg, defaultEndpoints, logger)
	if err != nil {
		return err
	}

	h := &markerHandler{
		ranker:   newService(cfg, store, c, logger),
		geocoder: c.geocoder(cfg.Keys.GoogleMaps),
		cfg:      cfg,
		logger:   logger,
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           newRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Warn("server listening", "addr", cfg.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// listingRanker answers ranking requests. *pipeline.Service implements it.
type listingRanker interface {
	GetRankedListings(ctx context.Context, area string, desired int, excludedHomeTypes []string) ([]model.ScoredListing, error)
}

// markerHandler serves the marker endpoint.
type markerHandler struct {
	ranker   listingRanker
	geocoder markers.Geocoder
	cfg      *config.Config
	logger   *slog.Logger
}

// newRouter registers the HTTP routes.
func newRouter(h *markerHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/request-markers/{area}/{amount}", h.requestMarkers).Methods(http.MethodGet)
	return r
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// requestMarkers ranks an area and returns its listings as map markers.
func (h *markerHandler) requestMarkers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	area := vars["area"]

	amount, err := strconv.Atoi(vars["amount"])
	if err != nil || amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a positive integer"})
		return
	}

	excluded := parseExcluded(r.URL.Query()["excludedHomeTypes"])
	if len(excluded) == 0 {
		excluded = h.cfg.ExcludedFor(area)
	}

	ctx := r.Context()
	listings, err := h.ranker.GetRankedListings(ctx, area, amount, excluded)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrInvalidArea), errors.Is(err, pipeline.ErrInvalidCount):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		h.logger.Warn("ranking request failed", "area", area, "status", status, "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	result, err := markers.Build(ctx, h.geocoder, listings, h.logger)
	if err != nil {
		h.logger.Warn("marker request cancelled", "area", area, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseExcluded accepts both repeated parameters and comma-separated lists.
func parseExcluded(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
