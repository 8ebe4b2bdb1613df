package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FormPath   string // .hcl, .yaml or .yml file, or a directory of .hcl files
	ValuesPath string

	LogFormat  string
	LogLevel   string
	Output     string // "table" or "json"
	ListenAddr string
	Workers    int
}

var (
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	outputs    = []string{"table", "json"}
)

// NewConfig validates cfg, filling in defaults for empty fields.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Output = strings.ToLower(cfg.Output)

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Output == "" {
		cfg.Output = "table"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	var errs []error
	if err := oneOf("log-format", cfg.LogFormat, logFormats); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("log-level", cfg.LogLevel, logLevels); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("output", cfg.Output, outputs); err != nil {
		errs = append(errs, err)
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("invalid workers: must not be negative, got %d", cfg.Workers))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cfg, nil
}

func oneOf(name, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s: must be '%s'", name, strings.Join(allowed, "', '"))
}
