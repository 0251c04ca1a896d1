package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // hcl module manifests
	PolicyPath   string // optional enable/disable policy file

	LogFormat string
	LogLevel  string
	AdminPort int

	SampleInterval time.Duration
	DegradeBelow   float64
	RecoverAt      float64
	NominalTPS     float64
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5 * time.Second
	}
	if cfg.DegradeBelow <= 0 {
		cfg.DegradeBelow = 18.0
	}
	if cfg.RecoverAt <= 0 {
		cfg.RecoverAt = 19.5
	}
	if cfg.RecoverAt <= cfg.DegradeBelow {
		return nil, fmt.Errorf("recover-at (%.2f) must be greater than degrade-below (%.2f)",
			cfg.RecoverAt, cfg.DegradeBelow)
	}
	return &cfg, nil
}
