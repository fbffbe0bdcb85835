package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/hcl"
	"github.com/specialistvlad/cellgrid/internal/model"
	"github.com/specialistvlad/cellgrid/internal/namespace"
	"github.com/specialistvlad/cellgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loader   config.Loader
	system   *model.System
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Results go to outW and logs to logW. Without modules, CoreModules are
// registered.
func NewApp(outW, logW io.Writer, appConfig *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules(logger)
	}
	reg := registry.NewWith(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "functions", reg.Len())

	if err := reg.Validate(ctx, namespace.ReservedNames()...); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		loader:   hcl.NewLoader(reg.EvalContext()),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// System returns the loaded system, or nil before Load. This is primarily
// for testing.
func (a *App) System() *model.System {
	return a.system
}
