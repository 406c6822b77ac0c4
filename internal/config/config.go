package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/rentscan/internal/listing"
	"github.com/nao1215/rentscan/internal/region"
	"github.com/nao1215/rentscan/internal/scoring"
	"github.com/nao1215/rentscan/internal/upstream"
)

// Cache backends.
const (
	// BackendSQLite stores the cache in a single SQLite database.
	BackendSQLite = "sqlite"

	// BackendFiles stores the cache as CSV and JSON files.
	BackendFiles = "files"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "rentscan"

	// DefaultCount is the number of listings requested per area.
	DefaultCount = 10

	// DefaultBackend is the cache backend used when none is configured.
	DefaultBackend = BackendSQLite

	// DefaultBatchSize ranks areas one at a time. Every area shares the
	// same rate-limited upstream clients, so concurrency mostly helps when
	// results come from the cache.
	DefaultBatchSize = 1

	// DefaultRadiusMiles is the neighbor search radius.
	DefaultRadiusMiles = region.DefaultRadiusMiles

	// DefaultFailureThreshold is the number of consecutive agents without
	// a listing in the area after which acquisition gives up.
	DefaultFailureThreshold = listing.DefaultFailureThreshold

	// DefaultTimeout is the timeout of a single upstream request.
	DefaultTimeout = upstream.DefaultTimeout

	// DefaultMinInterval is the minimum spacing between requests to one host.
	DefaultMinInterval = upstream.DefaultMinInterval

	// DefaultMaxAttempts bounds the attempts of one upstream call.
	DefaultMaxAttempts = upstream.DefaultMaxAttempts

	// DefaultUserAgent identifies rentscan in HTTP requests.
	DefaultUserAgent = "rentscan/1.0 (+https://github.com/nao1215/rentscan)"

	// DefaultListenAddress is the address serve listens on.
	DefaultListenAddress = "127.0.0.1:8080"
)

// Config holds all configuration options for rentscan.
// This struct is populated from the configuration file and CLI flags and
// passed through the application rather than kept in global state.
type Config struct {
	// Areas are the target area codes of a rank run.
	Areas []string

	// Count is the number of listings requested per area.
	Count int

	// ExcludedHomeTypes are property types left out of the results.
	// Matching is case-insensitive.
	ExcludedHomeTypes []string

	// Backend selects the cache repository (sqlite or files).
	Backend string

	// CacheDir is the directory holding the cache.
	// When empty, the XDG data directory is used.
	CacheDir string

	// BatchSize is the number of areas ranked concurrently.
	BatchSize int

	// RadiusMiles is the neighbor search radius.
	RadiusMiles float64

	// StopWhenSatisfied ends expansion as soon as the shortfall is covered
	// instead of consulting every neighbor.
	StopWhenSatisfied bool

	// FailureThreshold is the default failure threshold of acquisition.
	FailureThreshold int

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for upstream calls.
	ProxyAddress string

	// Timeout is the timeout of a single upstream request.
	Timeout time.Duration

	// MinInterval is the minimum spacing between requests to one host.
	MinInterval time.Duration

	// MaxAttempts bounds the attempts of one upstream call.
	MaxAttempts int

	// UserAgent is the User-Agent header sent upstream.
	UserAgent string

	// Scoring holds the cash-flow model assumptions.
	Scoring scoring.Params

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .rentscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// AreaConfigs holds the file's per-area settings.
	AreaConfigs *File

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file in addition to stdout.
	ReportFile string

	// ListenAddress is the address serve listens on.
	ListenAddress string

	// Keys are the upstream API keys.
	Keys APIKeys
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., count, radius).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Count:            DefaultCount,
		Backend:          DefaultBackend,
		BatchSize:        DefaultBatchSize,
		RadiusMiles:      DefaultRadiusMiles,
		FailureThreshold: DefaultFailureThreshold,
		Timeout:          DefaultTimeout,
		MinInterval:      DefaultMinInterval,
		MaxAttempts:      DefaultMaxAttempts,
		UserAgent:        DefaultUserAgent,
		Scoring:          scoring.DefaultParams(),
		ListenAddress:    DefaultListenAddress,
		AreaConfigs:      NewFile(),
	}
}

// ApplyFile copies the non-zero settings of a configuration file into the
// Config. Flags given on the command line are applied afterwards and win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.AreaConfigs = f

	if f.Defaults.Count > 0 {
		c.Count = f.Defaults.Count
	}
	if len(f.Defaults.ExcludedHomeTypes) > 0 {
		c.ExcludedHomeTypes = f.Defaults.ExcludedHomeTypes
	}
	if f.Defaults.FailureThreshold > 0 {
		c.FailureThreshold = f.Defaults.FailureThreshold
	}
	if f.Cache.Backend != "" {
		c.Backend = f.Cache.Backend
	}
	if f.Cache.Dir != "" {
		c.CacheDir = f.Cache.Dir
	}
	if f.Expand.RadiusMiles > 0 {
		c.RadiusMiles = f.Expand.RadiusMiles
	}
	if f.Expand.StopWhenSatisfied {
		c.StopWhenSatisfied = true
	}
	if f.Upstream.MinInterval > 0 {
		c.MinInterval = f.Upstream.MinInterval
	}
	if f.Upstream.Timeout > 0 {
		c.Timeout = f.Upstream.Timeout
	}
	if f.Upstream.MaxAttempts > 0 {
		c.MaxAttempts = f.Upstream.MaxAttempts
	}
	if f.Upstream.Proxy != "" {
		c.ProxyAddress = f.Upstream.Proxy
	}
	if f.Upstream.UserAgent != "" {
		c.UserAgent = f.Upstream.UserAgent
	}
	if f.Server.Listen != "" {
		c.ListenAddress = f.Server.Listen
	}
	c.Scoring = f.Scoring
}

// CountFor returns the number of listings requested for an area.
func (c *Config) CountFor(area string) int {
	if c.AreaConfigs != nil {
		if ac, ok := c.AreaConfigs.Areas[area]; ok && ac.Count > 0 {
			return ac.Count
		}
	}
	return c.Count
}

// ExcludedFor returns the property types excluded for an area.
func (c *Config) ExcludedFor(area string) []string {
	if c.AreaConfigs != nil {
		if ac, ok := c.AreaConfigs.Areas[area]; ok && len(ac.ExcludedHomeTypes) > 0 {
			return ac.ExcludedHomeTypes
		}
	}
	return c.ExcludedHomeTypes
}

// AreaFailureThresholds returns the per-area failure threshold overrides.
func (c *Config) AreaFailureThresholds() map[string]int {
	if c.AreaConfigs == nil {
		return map[string]int{}
	}
	return c.AreaConfigs.FailureThresholds()
}

// CacheDirOrDefault returns CacheDir, or the XDG data directory when unset.
func (c *Config) CacheDirOrDefault() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return XDGDataDir()
}

// XDGDataDir returns the XDG data directory for rentscan.
// On Linux: ~/.local/share/rentscan
// On macOS: ~/Library/Application Support/rentscan
// On Windows: %LOCALAPPDATA%\rentscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for rentscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration of a rank run is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Areas) == 0 {
		return ErrNoArea
	}

	if c.Count <= 0 {
		return ErrInvalidCount
	}
	for area, ac := range c.AreaConfigsOrEmpty().Areas {
		if ac.Count < 0 {
			return fmt.Errorf("%w: area %s", ErrInvalidCount, area)
		}
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if err := c.validateCommon(); err != nil {
		return err
	}

	return c.requireKeys(EnvZillowKey, EnvZipcodeKey)
}

// ValidateServe checks if the configuration of the serve command is valid.
func (c *Config) ValidateServe() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}

	if err := c.validateCommon(); err != nil {
		return err
	}

	return c.requireKeys(EnvZillowKey, EnvZipcodeKey, EnvGoogleMapsKey)
}

// AreaConfigsOrEmpty returns AreaConfigs, or an empty File when unset.
func (c *Config) AreaConfigsOrEmpty() *File {
	if c.AreaConfigs == nil {
		return NewFile()
	}
	return c.AreaConfigs
}

// validateCommon checks the settings shared by all commands.
func (c *Config) validateCommon() error {
	if c.Backend != BackendSQLite && c.Backend != BackendFiles {
		return ErrInvalidBackend
	}

	if c.RadiusMiles <= 0 {
		return ErrInvalidRadius
	}

	if c.FailureThreshold <= 0 {
		return ErrInvalidFailureThreshold
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MinInterval < 0 {
		return ErrInvalidMinInterval
	}

	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	return nil
}

// requireKeys checks that the named API keys are set.
func (c *Config) requireKeys(names ...string) error {
	values := map[string]string{
		EnvZillowKey:     c.Keys.Zillow,
		EnvZipcodeKey:    c.Keys.Zipcode,
		EnvGoogleMapsKey: c.Keys.GoogleMaps,
	}
	for _, name := range names {
		if values[name] == "" {
			return fmt.Errorf("%w: set %s in the environment or the env file", ErrMissingAPIKey, name)
		}
	}
	return nil
}
