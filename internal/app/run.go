package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/export"
	"github.com/specialistvlad/cellgrid/internal/model"
)

// Run loads the models, evaluates the configured expressions and prints the
// results. Without expressions it prints an outline of what was loaded.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.Load(ctx); err != nil {
		return err
	}

	if len(a.config.Exprs) == 0 && len(a.config.Show) == 0 {
		a.logger.Debug("No expressions given, printing outline.")
		return a.writeOutline()
	}

	space, err := a.selectSpace()
	if err != nil {
		return err
	}
	a.logger.Debug("Space selected.", "space", space.FullName())

	results := make([]export.Result, 0, len(a.config.Exprs))
	for _, src := range a.config.Exprs {
		v, err := space.Eval(ctx, src)
		if err != nil {
			return fmt.Errorf("failed to evaluate %q: %w", src, err)
		}
		results = append(results, export.Result{Expr: src, Value: v})
	}
	if len(results) > 0 {
		if err := export.WriteResults(a.outW, a.config.Output, results); err != nil {
			return err
		}
	}

	for _, name := range a.config.Show {
		if err := a.show(space, name); err != nil {
			return err
		}
	}

	stats := a.system.Stats()
	a.logger.Info("🏁 Evaluation finished.",
		"evaluations", stats.Evaluations,
		"hits", stats.Hits,
		"nodes", stats.Nodes,
	)
	return nil
}

// selectSpace finds the space named by the configuration. A name whose first
// part is a model name is a full name; anything else is relative to the
// current model. No name means the current space.
func (a *App) selectSpace() (*model.Space, error) {
	m := a.system.CurrentModel()
	name := a.config.Space

	if name != "" {
		first, rest, _ := strings.Cut(name, ".")
		if other, ok := a.system.Model(first); ok {
			m = other
			name = rest
		}
	}
	if m == nil {
		return nil, fmt.Errorf("no model loaded from %s", a.config.ModelPath)
	}
	if name != "" {
		if err := m.SetCurrentSpace(name); err != nil {
			return nil, fmt.Errorf("failed to select space %q: %w", a.config.Space, err)
		}
	}

	space := m.CurrentSpace()
	if space == nil {
		return nil, fmt.Errorf("model %s has no spaces", m.Name())
	}
	return space, nil
}

func (a *App) show(space *model.Space, name string) error {
	obj, err := space.Object(name)
	if err != nil {
		return fmt.Errorf("failed to show %q: %w", name, err)
	}
	cells, ok := obj.(*model.Cells)
	if !ok {
		return fmt.Errorf("failed to show %q: %s is not a cells object", name, obj.FullName())
	}

	if a.config.Output == OutputYAML {
		b, err := export.YAML(cells)
		if err != nil {
			return err
		}
		_, err = a.outW.Write(b)
		return err
	}
	return export.WriteTable(a.outW, cells)
}

// writeOutline prints every model with its globals and the members of its
// spaces, one object per line, indented by depth.
func (a *App) writeOutline() error {
	var b strings.Builder
	for _, m := range a.system.Models() {
		fmt.Fprintf(&b, "model %s\n", m.Name())
		for _, g := range m.Globals() {
			fmt.Fprintf(&b, "  global %s = %s\n", g.Name(), export.FormatValue(g.Value()))
		}
		for _, s := range m.Spaces() {
			outlineSpace(&b, s, 1)
		}
	}
	_, err := fmt.Fprint(a.outW, b.String())
	return err
}

func outlineSpace(b *strings.Builder, s *model.Space, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sspace %s\n", indent, s.Name())
	for _, obj := range s.Members() {
		switch o := obj.(type) {
		case *model.Cells:
			fmt.Fprintf(b, "%s  cells %s(%s)\n", indent, o.Name(), strings.Join(o.Formula().ParamNames(), ", "))
		case *model.Reference:
			fmt.Fprintf(b, "%s  ref %s = %s\n", indent, o.Name(), export.FormatValue(o.Value()))
		case *model.Space:
			outlineSpace(b, o, depth+1)
		}
	}
}
