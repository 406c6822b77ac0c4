package config

import (
	"time"

	"github.com/nao1215/rentscan/internal/scoring"
)

// AreaConfig holds settings that may differ per area.
type AreaConfig struct {
	// Count overrides the number of listings requested for the area.
	Count int `yaml:"count,omitempty"`

	// ExcludedHomeTypes are property types left out of the results.
	ExcludedHomeTypes []string `yaml:"excludedHomeTypes,omitempty"`

	// FailureThreshold is the number of consecutive agents without a
	// listing in the area after which acquisition gives up.
	FailureThreshold int `yaml:"failureThreshold,omitempty"`
}

// CacheConfig selects the cache repository.
type CacheConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ExpandConfig controls neighbor expansion.
type ExpandConfig struct {
	RadiusMiles       float64 `yaml:"radiusMiles,omitempty"`
	StopWhenSatisfied bool    `yaml:"stopWhenSatisfied,omitempty"`
}

// UpstreamConfig controls the upstream HTTP clients.
type UpstreamConfig struct {
	MinInterval time.Duration `yaml:"minInterval,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	Proxy       string        `yaml:"proxy,omitempty"`
	UserAgent   string        `yaml:"userAgent,omitempty"`
}

// ServerConfig controls the serve command.
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// File represents the structure of the .rentscan configuration file.
type File struct {
	// Defaults apply to every area unless overridden in Areas.
	Defaults AreaConfig `yaml:"defaults,omitempty"`

	// Areas maps area codes to their specific settings.
	Areas map[string]AreaConfig `yaml:"areas,omitempty"`

	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Expand   ExpandConfig   `yaml:"expand,omitempty"`
	Upstream UpstreamConfig `yaml:"upstream,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`

	// Scoring holds the cash-flow model assumptions. Fields missing from
	// the file keep their default values.
	Scoring scoring.Params `yaml:"scoring,omitempty"`
}

// NewFile returns an empty File with default scoring parameters.
func NewFile() *File {
	return &File{
		Areas:   make(map[string]AreaConfig),
		Scoring: scoring.DefaultParams(),
	}
}

// GetAreaConfig returns the configuration for a specific area.
// It merges the area-specific configuration with defaults.
func (cf *File) GetAreaConfig(area string) AreaConfig {
	result := cf.Defaults

	if areaConfig, ok := cf.Areas[area]; ok {
		if areaConfig.Count != 0 {
			result.Count = areaConfig.Count
		}
		if len(areaConfig.ExcludedHomeTypes) > 0 {
			result.ExcludedHomeTypes = areaConfig.ExcludedHomeTypes
		}
		if areaConfig.FailureThreshold != 0 {
			result.FailureThreshold = areaConfig.FailureThreshold
		}
	}

	return result
}

// FailureThresholds returns the per-area failure thresholds set in the file.
func (cf *File) FailureThresholds() map[string]int {
	out := make(map[string]int)
	for area, ac := range cf.Areas {
		if ac.FailureThreshold > 0 {
			out[area] = ac.FailureThreshold
		}
	}
	return out
}
