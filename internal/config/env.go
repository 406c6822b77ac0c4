package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables holding the upstream API keys.
const (
	EnvZillowKey     = "ZILLOW_KEY"
	EnvZipcodeKey    = "ZIPCODE_KEY"
	EnvGoogleMapsKey = "GMAPS_KEY"
)

// DefaultEnvFile is the dotenv file read when no other file is named.
const DefaultEnvFile = ".env"

// ErrEnvFileNotFound is returned when the dotenv file does not exist.
var ErrEnvFileNotFound = errors.New("env file not found")

// APIKeys are the credentials of the upstream services.
type APIKeys struct {
	// Zillow is the RapidAPI key of the Zillow service.
	Zillow string

	// Zipcode is the zipcodeapi key.
	Zipcode string

	// GoogleMaps is the geocoding key, needed by serve only.
	GoogleMaps string
}

// LoadAPIKeys reads the API keys from the process environment, falling back
// to the dotenv file envFile. Variables already set in the environment win
// over the file. An empty envFile reads the environment only.
//
// The file is parsed without modifying the process environment.
func LoadAPIKeys(envFile string) (APIKeys, error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return APIKeys{}, fmt.Errorf("%w: %s", ErrEnvFileNotFound, envFile)
			}
			return APIKeys{}, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		fileEnv = m
	}

	lookup := func(name string) string {
		if v := os.Getenv(name); v != "" {
			return v
		}
		return fileEnv[name]
	}

	return APIKeys{
		Zillow:     lookup(EnvZillowKey),
		Zipcode:    lookup(EnvZipcodeKey),
		GoogleMaps: lookup(EnvGoogleMapsKey),
	}, nil
}
