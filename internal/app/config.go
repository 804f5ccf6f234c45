package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // client config files or directories (.hcl)
	ModulesRoot string   // directory served under wrap://fs/

	// Exactly one of QueryPath and URI is set.
	QueryPath string
	Vars      map[string]any

	URI    string
	Method string
	Args   map[string]any

	LogFormat   string
	LogLevel    string
	Concurrency int
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	switch {
	case cfg.QueryPath == "" && cfg.URI == "":
		return nil, errors.New("either a query document or a uri is required")
	case cfg.QueryPath != "" && cfg.URI != "":
		return nil, errors.New("a query document and a uri cannot be used together")
	case cfg.URI != "" && cfg.Method == "":
		return nil, errors.New("method is required when invoking a uri directly")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative, got %d", cfg.Concurrency)
	}
	return &cfg, nil
}
