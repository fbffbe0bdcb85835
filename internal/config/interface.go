package config

import "context"

// Loader is the interface for a format-specific definition loader.
type Loader interface {
	// Load reads definitions from the given paths and translates them into
	// the format-agnostic document.
	Load(ctx context.Context, paths ...string) (*Document, error)
}
