// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Cells, the memoized formula objects, and their store
// contract: reads evaluate on a miss, writes invalidate before they store.
package model

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/cellstore"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/formula"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Cells is a formula together with its memoized values.
type Cells struct {
	id      uint64
	name    string
	space   *Space
	formula *formula.Formula
	store   cellstore.Store
}

func newCells(s *Space, name string, f *formula.Formula) *Cells {
	return &Cells{
		id:      s.model.system.newID(),
		name:    name,
		space:   s,
		formula: f,
		store:   cellstore.New(),
	}
}

// ID returns the object id of the cells.
func (c *Cells) ID() uint64 { return c.id }

// Name returns the cells name.
func (c *Cells) Name() string { return c.name }

// Space returns the space owning the cells.
func (c *Cells) Space() *Space { return c.space }

// FullName returns the dotted name starting with the model name.
func (c *Cells) FullName() string {
	return c.space.FullName() + "." + c.name
}

func (c *Cells) String() string { return c.FullName() }

// Formula returns the current formula.
func (c *Cells) Formula() *formula.Formula { return c.formula }

func (c *Cells) system() *System { return c.space.model.system }

// SetFormula replaces the formula and clears every stored value, inputs
// included.
func (c *Cells) SetFormula(ctx context.Context, f *formula.Formula) error {
	if f == nil {
		return calcerr.Structural("cells %s: formula must not be nil", c.FullName())
	}
	c.ClearAll(ctx)
	c.formula = f
	ctxlog.FromContext(ctx).Debug("Formula replaced.", "cells", c.FullName(), "formula", f.String())
	return nil
}

// DisplayName implements engine.Target.
func (c *Cells) DisplayName(argsKey string) string {
	return c.FullName() + nodeid.CallSuffix(argsKey)
}

// Lookup implements engine.Target.
func (c *Cells) Lookup(argsKey string) (cty.Value, bool) {
	e, ok := c.store.Get(argsKey)
	return e.Value, ok
}

// Compute implements engine.Target.
func (c *Cells) Compute(ctx context.Context, args []cty.Value) (cty.Value, error) {
	return run(ctx, c.space, c.formula, args, c.DisplayName(nodeid.ArgsKey(args)))
}

// Store implements engine.Target.
func (c *Cells) Store(argsKey string, args []cty.Value, val cty.Value) {
	c.store.Put(cellstore.Entry{Key: argsKey, Args: args, Value: val, Provenance: cellstore.Computed})
}

// Function implements namespace.Callable. The returned function evaluates
// the cells through the shared evaluator, so calls made from a formula are
// recorded as reads of the caller.
func (c *Cells) Function(ctx context.Context) function.Function {
	f := c.formula
	return f.Function(c.FullName(), func(args []cty.Value) (cty.Value, error) {
		bound, err := f.Bind(args, nil)
		if err != nil {
			return cty.NilVal, calcerr.Formula(c.FullName(), err)
		}
		return c.system().engine.Get(ctx, c, bound)
	})
}

func (c *Cells) bind(args []cty.Value, kwargs map[string]cty.Value) ([]cty.Value, error) {
	bound, err := c.formula.Bind(args, kwargs)
	if err != nil {
		return nil, calcerr.Formula(c.FullName(), err)
	}
	return bound, nil
}

// Get returns the value for the positional args, evaluating it if it is not
// stored yet.
func (c *Cells) Get(ctx context.Context, args ...cty.Value) (cty.Value, error) {
	return c.GetNamed(ctx, args, nil)
}

// GetNamed is like Get but also accepts keyword arguments.
func (c *Cells) GetNamed(ctx context.Context, args []cty.Value, kwargs map[string]cty.Value) (cty.Value, error) {
	bound, err := c.bind(args, kwargs)
	if err != nil {
		return cty.NilVal, err
	}
	return c.system().engine.Get(ctx, c, bound)
}

// Call is like Get but takes Go values, converted with gocty. cty.Value
// arguments are passed through.
func (c *Cells) Call(ctx context.Context, args ...any) (cty.Value, error) {
	vals := make([]cty.Value, len(args))
	for i, arg := range args {
		v, err := ToValue(arg)
		if err != nil {
			return cty.NilVal, fmt.Errorf("argument %d of %s: %w", i, c.FullName(), err)
		}
		vals[i] = v
	}
	return c.Get(ctx, vals...)
}

// ToValue converts a Go value to a cty.Value using its implied type.
func ToValue(v any) (cty.Value, error) {
	if cv, ok := v.(cty.Value); ok {
		return cv, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}

// SetInput stores value for args as an input. Values computed from the
// previous entry are invalidated first.
func (c *Cells) SetInput(ctx context.Context, args []cty.Value, value cty.Value) error {
	bound, err := c.bind(args, nil)
	if err != nil {
		return err
	}
	key := nodeid.ArgsKey(bound)
	c.system().engine.Invalidate(ctx, nodeid.Cells(c.id, key))
	c.store.Put(cellstore.Entry{Key: key, Args: bound, Value: value, Provenance: cellstore.Input})

	ctxlog.FromContext(ctx).Debug("Input set.", "node", c.DisplayName(key))
	return nil
}

// Clear removes the value for args and everything computed from it. Clearing
// an unset value does nothing.
func (c *Cells) Clear(ctx context.Context, args ...cty.Value) error {
	bound, err := c.bind(args, nil)
	if err != nil {
		return err
	}
	key := nodeid.ArgsKey(bound)
	if _, ok := c.store.Get(key); !ok {
		return nil
	}
	c.system().engine.Invalidate(ctx, nodeid.Cells(c.id, key))
	return nil
}

// ClearAll removes every value and everything computed from them.
func (c *Cells) ClearAll(ctx context.Context) {
	entries := c.store.Entries()
	if len(entries) == 0 {
		return
	}
	ids := make([]nodeid.ID, len(entries))
	for i, e := range entries {
		ids[i] = nodeid.Cells(c.id, e.Key)
	}
	c.system().engine.Invalidate(ctx, ids...)
}

// Value returns the stored value for args without evaluating anything.
func (c *Cells) Value(args ...cty.Value) (cty.Value, bool) {
	bound, err := c.formula.Bind(args, nil)
	if err != nil {
		return cty.NilVal, false
	}
	return c.Lookup(nodeid.ArgsKey(bound))
}

// Has reports whether a value is stored for args.
func (c *Cells) Has(args ...cty.Value) bool {
	_, ok := c.Value(args...)
	return ok
}

// Len returns the number of stored values.
func (c *Cells) Len() int {
	return c.store.Len()
}

// Entries returns the stored values in first-insertion order.
func (c *Cells) Entries() []cellstore.Entry {
	return c.store.Entries()
}

// Inputs returns the entries set with SetInput.
func (c *Cells) Inputs() []cellstore.Entry {
	var out []cellstore.Entry
	for _, e := range c.store.Entries() {
		if e.Provenance == cellstore.Input {
			out = append(out, e)
		}
	}
	return out
}
