package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoArea is returned when no target area is specified.
	ErrNoArea = errors.New("no area specified: provide one or more area codes")

	// ErrInvalidCount is returned when the desired listing count is not positive.
	ErrInvalidCount = errors.New("invalid count: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidBackend is returned for a cache backend other than sqlite or files.
	ErrInvalidBackend = errors.New("invalid cache backend: must be sqlite or files")

	// ErrInvalidRadius is returned when the neighbor search radius is not positive.
	ErrInvalidRadius = errors.New("invalid radius: must be positive")

	// ErrInvalidMinInterval is returned when the upstream request spacing is negative.
	ErrInvalidMinInterval = errors.New("invalid minimum interval: must be non-negative")

	// ErrInvalidMaxAttempts is returned when the upstream attempt bound is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidFailureThreshold is returned when a failure threshold is not positive.
	ErrInvalidFailureThreshold = errors.New("invalid failure threshold: must be positive")

	// ErrMissingAPIKey is returned when a required API key is not set.
	// It is wrapped with the name of the environment variable.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrNoListenAddress is returned when serve has no address to listen on.
	ErrNoListenAddress = errors.New("no listen address specified")
)
