package app

import (
	"log/slog"

	"github.com/specialistvlad/cellgrid/internal/registry"
	"github.com/specialistvlad/cellgrid/modules/env_vars"
	"github.com/specialistvlad/cellgrid/modules/print"
	"github.com/specialistvlad/cellgrid/modules/stdlib"
	"github.com/specialistvlad/cellgrid/modules/yaml"
)

// CoreModules is the definitive list of all modules that are compiled into
// the cellgrid binary. print logs through logger.
func CoreModules(logger *slog.Logger) []registry.Module {
	return []registry.Module{
		&stdlib.Module{},
		&yaml.Module{},
		&env_vars.Module{},
		&print.Module{Logger: logger},
	}
}
