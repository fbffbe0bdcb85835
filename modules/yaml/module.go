// Package yaml registers YAML encoding built-ins backed by go-cty-yaml.
package yaml

import (
	"github.com/specialistvlad/cellgrid/internal/registry"
	ctyyaml "github.com/zclconf/go-cty-yaml"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("yamlencode", ctyyaml.YAMLEncodeFunc)
	r.RegisterFunction("yamldecode", ctyyaml.YAMLDecodeFunc)
}
