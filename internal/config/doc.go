// Package config provides configuration structures and utilities for rentscan.
// It defines the options of a ranking run, the .rentscan YAML file with its
// per-area overrides, and the API keys read from the environment.
package config
