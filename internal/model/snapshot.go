// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file converts live models to and from their format-agnostic
// definitions, which is how models are saved, backed up and loaded.
package model

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/cellgrid/internal/cellstore"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/formula"
)

// SnapshotMode selects which cells values a snapshot includes.
type SnapshotMode int

const (
	// SnapshotInputs keeps only values set as inputs.
	SnapshotInputs SnapshotMode = iota
	// SnapshotAll keeps every stored value with its provenance.
	SnapshotAll
)

// Snapshot returns the definition of the model: its structure, formulas,
// references and the values selected by mode.
func (m *Model) Snapshot(mode SnapshotMode) *config.Model {
	out := &config.Model{Name: m.name}
	for _, g := range m.Globals() {
		out.Globals = append(out.Globals, &config.Ref{Name: g.name, Value: g.value})
	}
	for _, s := range m.Spaces() {
		out.Spaces = append(out.Spaces, s.snapshot(mode))
	}
	return out
}

func (s *Space) snapshot(mode SnapshotMode) *config.Space {
	out := &config.Space{Name: s.name}
	for _, obj := range s.Members() {
		switch obj := obj.(type) {
		case *Reference:
			out.Refs = append(out.Refs, &config.Ref{Name: obj.name, Value: obj.value})
		case *Cells:
			out.Cells = append(out.Cells, obj.snapshot(mode))
		case *Space:
			out.Spaces = append(out.Spaces, obj.snapshot(mode))
		}
	}
	return out
}

func (c *Cells) snapshot(mode SnapshotMode) *config.Cells {
	out := &config.Cells{
		Name:    c.name,
		Formula: c.formula.Source(),
		Expr:    c.formula.Expr(),
	}
	for _, p := range c.formula.Params() {
		out.Params = append(out.Params, &config.Param{Name: p.Name, Default: p.Default})
	}
	for _, e := range c.store.Entries() {
		input := e.Provenance == cellstore.Input
		if !input && mode != SnapshotAll {
			continue
		}
		out.Entries = append(out.Entries, &config.Entry{Args: e.Args, Value: e.Value, Input: input})
	}
	return out
}

// Restore creates a model from its definition and makes it current. If a
// model with the same name is open, the new one is named with the first free
// suffix _BAK1, _BAK2, ...
//
// Only input values are restored. Computed values are dropped, because the
// reads that produced them are not part of the definition; they are
// recomputed on demand.
func (s *System) Restore(ctx context.Context, def *config.Model) (*Model, error) {
	name := def.Name
	if _, exists := s.models[name]; exists {
		name = autoName(name+"_BAK", func(n string) bool { _, ok := s.models[n]; return ok })
	}

	prev := s.current
	m, err := s.NewModel(ctx, name)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	for _, g := range def.Globals {
		if _, err := m.SetGlobal(ctx, g.Name, g.Value); err != nil {
			result = multierror.Append(result, fmt.Errorf("global %q: %w", g.Name, err))
		}
	}

	type pending struct {
		cells *Cells
		def   *config.Cells
	}
	var inputs []pending

	var build func(sd *config.Space, create func(name string) (*Space, error))
	build = func(sd *config.Space, create func(name string) (*Space, error)) {
		sp, err := create(sd.Name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("space %q: %w", sd.Name, err))
			return
		}
		for _, r := range sd.Refs {
			if _, err := sp.SetRef(ctx, r.Name, r.Value); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s.%s: %w", sp.FullName(), r.Name, err))
			}
		}
		for _, cd := range sd.Cells {
			f, err := FormulaFromConfig(cd)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s.%s: %w", sp.FullName(), cd.Name, err))
				continue
			}
			c, err := sp.NewCells(ctx, cd.Name, f)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s.%s: %w", sp.FullName(), cd.Name, err))
				continue
			}
			inputs = append(inputs, pending{cells: c, def: cd})
		}
		for _, child := range sd.Spaces {
			build(child, func(name string) (*Space, error) { return sp.NewSpace(ctx, name) })
		}
	}
	for _, sd := range def.Spaces {
		build(sd, func(name string) (*Space, error) { return m.NewSpace(ctx, name) })
	}

	for _, p := range inputs {
		for _, e := range p.def.Inputs() {
			if err := p.cells.SetInput(ctx, e.Args, e.Value); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		_ = s.CloseModel(ctx, m.name)
		s.current = prev
		return nil, err
	}
	if first := m.Spaces(); len(first) > 0 {
		m.current = first[0]
	}

	ctxlog.FromContext(ctx).Debug("Model restored.", "model", m.name, "spaces", len(m.order))
	return m, nil
}

// FormulaFromConfig builds the formula of a cells definition, reusing the
// parsed expression when the definition carries one.
func FormulaFromConfig(def *config.Cells) (*formula.Formula, error) {
	params := make([]formula.Param, len(def.Params))
	for i, p := range def.Params {
		params[i] = formula.Param{Name: p.Name, Default: p.Default}
	}
	if def.Expr != nil {
		return formula.New(params, def.Expr, def.Formula)
	}
	if def.Formula == "" {
		return formula.Parse(params, "null")
	}
	return formula.Parse(params, def.Formula)
}
