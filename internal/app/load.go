package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/model"
)

// Load reads the model definitions under the configured path and builds a
// fresh System from them. The first model read becomes the current one.
func (a *App) Load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading models...", "model_path", a.config.ModelPath)

	doc, err := a.loader.Load(ctx, a.config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	maxDepth := doc.Settings.MaxDepth
	if a.config.MaxDepth > 0 {
		maxDepth = a.config.MaxDepth
	}
	sys := model.NewSystem(model.Config{MaxDepth: maxDepth, Registry: a.registry})

	for _, def := range doc.Models {
		if _, err := sys.Restore(ctx, def); err != nil {
			return fmt.Errorf("failed to build model %q: %w", def.Name, err)
		}
	}
	if len(doc.Models) > 0 {
		if err := sys.SetCurrentModel(doc.Models[0].Name); err != nil {
			return err
		}
	}

	a.system = sys
	logger.Info("Models loaded successfully.", "models", len(doc.Models), "max_depth", maxDepth)
	return nil
}
