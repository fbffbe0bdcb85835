package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty/function"
)

// Module is the interface that all built-in modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the built-in functions of a single application instance.
type Registry struct {
	functions map[string]function.Function
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		functions: make(map[string]function.Function),
	}
}

// NewWith creates a registry and registers every module in order.
func NewWith(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterFunction registers a built-in function under name.
func (r *Registry) RegisterFunction(name string, fn function.Function) {
	if _, exists := r.functions[name]; exists {
		panic(fmt.Sprintf("function with name '%s' already registered", name))
	}
	slog.Debug("Registering function.", "name", name)
	r.functions[name] = fn
}

// Function looks up a built-in by name.
func (r *Registry) Function(name string) (function.Function, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.functions)
}

// EvalContext returns a fresh root evaluation context exposing every
// registered function. Namespaces hang their own contexts below it.
func (r *Registry) EvalContext() *hcl.EvalContext {
	funcs := make(map[string]function.Function, len(r.functions))
	for name, fn := range r.functions {
		funcs[name] = fn
	}
	return &hcl.EvalContext{Functions: funcs}
}
