package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/config"
	"github.com/nao1215/rentscan/internal/database"
	"github.com/nao1215/rentscan/internal/markers"
	"github.com/nao1215/rentscan/internal/pipeline"
	"github.com/nao1215/rentscan/internal/upstream"
	"github.com/spf13/cobra"
)

// endpoints are the base URLs of the upstream services.
// Tests point them at httptest servers.
type endpoints struct {
	zillow  string
	zipcode string
	geocode string
}

// defaultEndpoints are the production upstream services.
var defaultEndpoints = endpoints{
	zillow:  upstream.ZillowBaseURL,
	zipcode: upstream.ZipcodeBaseURL,
	geocode: upstream.GeocodeBaseURL,
}

// addCommonFlags registers the flags shared by rank and serve.
func addCommonFlags(cmd *cobra.Command) {
	addStoreFlags(cmd)
	cmd.Flags().String("env-file", config.DefaultEnvFile,
		"dotenv file holding ZILLOW_KEY, ZIPCODE_KEY and GMAPS_KEY")
	cmd.Flags().Float64("radius", config.DefaultRadiusMiles,
		"Neighbor search radius in miles")
	cmd.Flags().Bool("stop-when-satisfied", false,
		"Stop consulting neighbors once enough listings were found")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address for upstream requests (e.g., 127.0.0.1:1080)")
}

// addStoreFlags registers the configuration and cache flags.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .rentscan in current or home directory)")
	cmd.Flags().String("cache-dir", "",
		"Cache directory (default: XDG data directory)")
	cmd.Flags().String("backend", config.DefaultBackend,
		"Cache backend: sqlite or files")
}

// loadConfig creates a Config from defaults, the configuration file, the
// API keys and the common flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path is specified, silently use the defaults when no file exists.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Commands that never call upstream services have no --env-file flag.
	if cmd.Flags().Lookup("env-file") != nil {
		envFile, err := cmd.Flags().GetString("env-file")
		if err != nil {
			return nil, err
		}
		cfg.Keys, err = config.LoadAPIKeys(envFile)
		if errors.Is(err, config.ErrEnvFileNotFound) && !cmd.Flags().Changed("env-file") {
			cfg.Keys, err = config.LoadAPIKeys("")
		}
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("cache-dir") {
		if cfg.CacheDir, err = cmd.Flags().GetString("cache-dir"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("backend") {
		if cfg.Backend, err = cmd.Flags().GetString("backend"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("radius") {
		if cfg.RadiusMiles, err = cmd.Flags().GetFloat64("radius"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("stop-when-satisfied") {
		if cfg.StopWhenSatisfied, err = cmd.Flags().GetBool("stop-when-satisfied"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("proxy") {
		if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// openStore opens the cache repository selected by the configuration.
func openStore(cfg *config.Config) (cache.Store, error) {
	dir := cfg.CacheDirOrDefault()

	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Open(dir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		return db, nil
	case config.BackendFiles:
		store, err := cache.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}

// clients are the upstream clients of one process. Each owns the rate
// limiter of its host for the process lifetime.
type clients struct {
	zillow  *upstream.Client
	zipcode *upstream.Client
	geocode *upstream.Client
}

// newClients creates the upstream clients.
func newClients(cfg *config.Config, ep endpoints, logger *slog.Logger) (*clients, error) {
	httpClient, err := upstream.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	common := []upstream.Option{
		upstream.WithHTTPClient(httpClient),
		upstream.WithUserAgent(cfg.UserAgent),
		upstream.WithMinInterval(cfg.MinInterval),
		upstream.WithMaxAttempts(cfg.MaxAttempts),
		upstream.WithLogger(logger),
	}

	zillow, err := upstream.NewClient(ep.zillow, append(common, upstream.ZillowOptions(cfg.Keys.Zillow)...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Zillow client: %w", err)
	}
	zipcode, err := upstream.NewClient(upstream.ZipcodeClientURL(ep.zipcode, cfg.Keys.Zipcode), common...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zipcode client: %w", err)
	}
	geocode, err := upstream.NewClient(ep.geocode, common...)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding client: %w", err)
	}

	return &clients{zillow: zillow, zipcode: zipcode, geocode: geocode}, nil
}

// geocoder returns the marker geocoder over the geocoding client.
func (c *clients) geocoder(apiKey string) markers.Geocoder {
	return markers.GoogleGeocoder{Client: c.geocode, APIKey: apiKey}
}

// newService wires the ranking service over the store and upstream clients.
func newService(cfg *config.Config, store cache.Store, c *clients, logger *slog.Logger) *pipeline.Service {
	components := pipeline.NewUpstreamComponents(
		pipeline.Upstreams{Zillow: c.zillow, Zipcode: c.zipcode},
		store,
		cfg.Scoring,
		cfg.RadiusMiles,
		nil,
		logger,
	)

	return pipeline.NewService(components,
		pipeline.WithServiceLogger(logger),
		pipeline.WithFailureThreshold(cfg.FailureThreshold),
		pipeline.WithAreaFailureThresholds(cfg.AreaFailureThresholds()),
		pipeline.WithStopWhenSatisfied(cfg.StopWhenSatisfied),
	)
}

// createOutputFile creates the report file and its parent directories.
// Reports are written with owner-only permissions.
func createOutputFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
