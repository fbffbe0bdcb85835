package app

import (
	"errors"
	"fmt"
)

// Output formats understood by the App.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath string   // hcl file or directory
	Exprs     []string // evaluated in order in the selected space
	Space     string   // "Space.Sub" in the current model, or "Model.Space"
	Show      []string // cells whose entries are printed after evaluation
	Output    string
	MaxDepth  int // overrides the settings block when > 0

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	switch cfg.Output {
	case "":
		cfg.Output = OutputText
	case OutputText, OutputYAML:
	default:
		return nil, fmt.Errorf("invalid output format %q: must be '%s' or '%s'", cfg.Output, OutputText, OutputYAML)
	}
	if cfg.MaxDepth < 0 {
		return nil, errors.New("MaxDepth cannot be negative")
	}
	return &cfg, nil
}
