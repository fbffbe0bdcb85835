// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Space and the bookkeeping of its members. Every
// change to the set of names of a space invalidates the formulas that
// resolved the affected name in it.
package model

import (
	"context"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/formula"
	"github.com/specialistvlad/cellgrid/internal/namespace"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Space is a node of the model tree.
type Space struct {
	id     uint64
	name   string
	model  *Model
	parent *Space

	members map[string]Object
	order   []string

	table    *namespace.Table
	tableGen uint64
}

func newSpace(m *Model, parent *Space, name string) *Space {
	return &Space{
		id:      m.system.newID(),
		name:    name,
		model:   m,
		parent:  parent,
		members: make(map[string]Object),
	}
}

// ID returns the object id of the space.
func (s *Space) ID() uint64 { return s.id }

// Name returns the space name.
func (s *Space) Name() string { return s.name }

// Model returns the model owning the space.
func (s *Space) Model() *Model { return s.model }

// Parent returns the parent space, or nil for a top-level space.
func (s *Space) Parent() *Space { return s.parent }

// FullName returns the dotted name starting with the model name.
func (s *Space) FullName() string {
	if s.parent == nil {
		return s.model.name + "." + s.name
	}
	return s.parent.FullName() + "." + s.name
}

func (s *Space) String() string { return s.FullName() }

// add registers obj under name and invalidates formulas that resolved name
// to something else before, such as a global or a built-in.
func (s *Space) add(ctx context.Context, name string, obj Object) {
	s.members[name] = obj
	s.order = append(s.order, name)
	s.table = nil
	s.model.system.engine.Invalidate(ctx, nodeid.Name(s.id, name))
}

func (s *Space) checkName(name string) error {
	if err := namespace.ValidateName(name); err != nil {
		return err
	}
	if _, exists := s.members[name]; exists {
		return calcerr.NameConflict(s.FullName(), name)
	}
	return nil
}

func (s *Space) taken(name string) bool {
	_, ok := s.members[name]
	return ok
}

// NewSpace creates a child space. An empty name picks the first free name of
// the form Space1, Space2, ...
func (s *Space) NewSpace(ctx context.Context, name string) (*Space, error) {
	if name == "" {
		name = autoName("Space", s.taken)
	}
	if err := s.checkName(name); err != nil {
		return nil, err
	}
	child := newSpace(s.model, s, name)
	s.add(ctx, name, child)

	ctxlog.FromContext(ctx).Debug("Space created.", "space", child.FullName())
	return child, nil
}

// NewCells creates a cells object with formula f. An empty name picks the
// first free name of the form Cells1, Cells2, ... A nil f creates cells
// whose formula evaluates to null.
func (s *Space) NewCells(ctx context.Context, name string, f *formula.Formula) (*Cells, error) {
	if name == "" {
		name = autoName("Cells", s.taken)
	}
	if err := s.checkName(name); err != nil {
		return nil, err
	}
	if f == nil {
		f = formula.MustParse(nil, "null")
	}
	c := newCells(s, name, f)
	s.model.system.cells[c.id] = c
	s.add(ctx, name, c)

	ctxlog.FromContext(ctx).Debug("Cells created.", "cells", c.FullName(), "formula", f.String())
	return c, nil
}

// SetRef sets the local reference called name, creating it if needed. It
// fails if name is taken by a cells object or a space.
func (s *Space) SetRef(ctx context.Context, name string, value cty.Value) (*Reference, error) {
	if obj, ok := s.members[name]; ok {
		ref, isRef := obj.(*Reference)
		if !isRef {
			return nil, calcerr.NameConflict(s.FullName(), name)
		}
		ref.value = value
		s.table = nil
		s.model.system.engine.Invalidate(ctx, nodeid.Ref(ref.id))
		ctxlog.FromContext(ctx).Debug("Reference updated.", "space", s.FullName(), "name", name)
		return ref, nil
	}

	if err := s.checkName(name); err != nil {
		return nil, err
	}
	ref := &Reference{id: s.model.system.newID(), name: name, value: value, model: s.model, space: s}
	s.add(ctx, name, ref)

	ctxlog.FromContext(ctx).Debug("Reference created.", "space", s.FullName(), "name", name)
	return ref, nil
}

// Set assigns value to name the way attribute assignment works in the
// interactive API: an existing reference is updated, a parameterless cells
// object gets value as its input, and any other free name becomes a new
// reference.
func (s *Space) Set(ctx context.Context, name string, value cty.Value) error {
	switch obj := s.members[name].(type) {
	case nil, *Reference:
		_, err := s.SetRef(ctx, name, value)
		return err
	case *Cells:
		if _, total := obj.formula.Arity(); total > 0 {
			return calcerr.Structural("cannot assign to %s: it takes arguments, use SetInput", obj.FullName())
		}
		return obj.SetInput(ctx, nil, value)
	default:
		return calcerr.Structural("cannot assign to space %s", obj.FullName())
	}
}

// Cells returns the child cells called name.
func (s *Space) Cells(name string) (*Cells, bool) {
	c, ok := s.members[name].(*Cells)
	return c, ok
}

// Space returns the child space called name.
func (s *Space) Space(name string) (*Space, bool) {
	c, ok := s.members[name].(*Space)
	return c, ok
}

// Ref returns the local reference called name.
func (s *Space) Ref(name string) (*Reference, bool) {
	r, ok := s.members[name].(*Reference)
	return r, ok
}

// Members returns every child in creation order.
func (s *Space) Members() []Object {
	out := make([]Object, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.members[name])
	}
	return out
}

// Spaces returns the child spaces in creation order.
func (s *Space) Spaces() []*Space {
	return membersOf[*Space](s)
}

// AllCells returns the child cells in creation order.
func (s *Space) AllCells() []*Cells {
	return membersOf[*Cells](s)
}

// Refs returns the local references in creation order.
func (s *Space) Refs() []*Reference {
	return membersOf[*Reference](s)
}

func membersOf[T Object](s *Space) []T {
	var out []T
	for _, name := range s.order {
		if v, ok := s.members[name].(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Delete removes the child called name. Deleting a space removes its whole
// subtree. Values that read anything removed are invalidated.
func (s *Space) Delete(ctx context.Context, name string) error {
	obj, ok := s.members[name]
	if !ok {
		return calcerr.InvalidReference(s.FullName(), name)
	}
	delete(s.members, name)
	s.order = removeString(s.order, name)
	s.table = nil

	eng := s.model.system.engine
	eng.Invalidate(ctx, nodeid.Name(s.id, name))

	switch obj := obj.(type) {
	case *Space:
		if s.model.current == obj {
			s.model.current = s
		}
		obj.release(ctx)
	case *Cells:
		owned := newOwnedSet()
		owned.cells[obj.id] = true
		s.model.system.release(ctx, owned)
	case *Reference:
		owned := newOwnedSet()
		owned.refs[obj.id] = true
		s.model.system.release(ctx, owned)
	}
	eng.Compact()

	ctxlog.FromContext(ctx).Debug("Member deleted.", "space", s.FullName(), "name", name)
	return nil
}

// Rename renames the child called old. Values that resolved either name are
// invalidated; graph nodes of the child itself keep their identity.
func (s *Space) Rename(ctx context.Context, old, new string) error {
	obj, ok := s.members[old]
	if !ok {
		return calcerr.InvalidReference(s.FullName(), old)
	}
	if old == new {
		return nil
	}
	if err := s.checkName(new); err != nil {
		return err
	}

	delete(s.members, old)
	s.members[new] = obj
	renameString(s.order, old, new)
	switch obj := obj.(type) {
	case *Space:
		obj.name = new
		obj.dropTables()
	case *Cells:
		obj.name = new
	case *Reference:
		obj.name = new
	}
	s.table = nil
	s.model.system.engine.Invalidate(ctx, nodeid.Name(s.id, old), nodeid.Name(s.id, new))

	ctxlog.FromContext(ctx).Debug("Member renamed.", "space", s.FullName(), "old", old, "new", new)
	return nil
}

// collect adds the ids of the space and its whole subtree to owned.
func (s *Space) collect(owned *ownedSet) {
	owned.spaces[s.id] = true
	for _, obj := range s.members {
		switch obj := obj.(type) {
		case *Space:
			obj.collect(owned)
		case *Cells:
			owned.cells[obj.id] = true
		case *Reference:
			owned.refs[obj.id] = true
		}
	}
}

// release forgets the graph nodes of a detached subtree.
func (s *Space) release(ctx context.Context) {
	owned := newOwnedSet()
	s.collect(owned)
	s.model.system.release(ctx, owned)
	s.model.system.engine.Compact()
}

// dropTables discards the cached namespaces of the subtree, whose full names
// changed.
func (s *Space) dropTables() {
	s.table = nil
	for _, child := range s.Spaces() {
		child.dropTables()
	}
}

// Namespace returns the names visible to the formulas of the space. The
// table is rebuilt after any change to the members or to the model globals.
func (s *Space) Namespace() *namespace.Table {
	if s.table != nil && s.tableGen == s.model.globalsGen {
		return s.table
	}

	tbl := namespace.NewTable(s.id, s.FullName(), s.model.system.root)
	// Names were validated and made unique when the members were added.
	for _, name := range s.order {
		switch obj := s.members[name].(type) {
		case *Cells:
			_ = tbl.Add(&namespace.Member{Name: name, Kind: namespace.KindCells, ID: obj.id, Cells: obj})
		case *Space:
			_ = tbl.Add(&namespace.Member{Name: name, Kind: namespace.KindSpace, ID: obj.id, Space: obj.Namespace})
		case *Reference:
			_ = tbl.Add(&namespace.Member{Name: name, Kind: namespace.KindRef, ID: obj.id, Value: obj.value})
		}
	}
	for _, g := range s.model.Globals() {
		_ = tbl.AddGlobal(&namespace.Member{Name: g.name, ID: g.id, Value: g.value})
	}

	s.table = tbl
	s.tableGen = s.model.globalsGen
	return tbl
}

// Eval evaluates an expression in the namespace of the space. The
// expression itself is not memoized; the cells it calls are.
func (s *Space) Eval(ctx context.Context, source string) (cty.Value, error) {
	f, err := formula.Parse(nil, source)
	if err != nil {
		return cty.NilVal, err
	}
	return run(ctx, s, f, nil, s.FullName())
}

// Object returns the descendant with the dotted name relative to the space.
func (s *Space) Object(dotted string) (Object, error) {
	first, rest, _ := strings.Cut(dotted, ".")
	obj, ok := s.members[first]
	if !ok {
		return nil, calcerr.InvalidReference(s.FullName(), first)
	}
	if rest == "" {
		return obj, nil
	}
	child, ok := obj.(*Space)
	if !ok {
		return nil, calcerr.Structural("%s is not a space", obj.FullName())
	}
	return child.Object(rest)
}
