// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"context"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/namespace"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Model is a root container of spaces and global references.
type Model struct {
	system *System
	id     uint64
	name   string

	spaces map[string]*Space
	order  []string

	globals map[string]*Reference
	gorder  []string
	// globalsGen changes whenever the set or values of the globals change.
	// Spaces compare it to decide whether their namespace is stale.
	globalsGen uint64

	current *Space
}

func newModel(s *System, name string) *Model {
	return &Model{
		system:  s,
		id:      s.newID(),
		name:    name,
		spaces:  make(map[string]*Space),
		globals: make(map[string]*Reference),
	}
}

// ID returns the object id of the model.
func (m *Model) ID() uint64 { return m.id }

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// FullName returns the model name.
func (m *Model) FullName() string { return m.name }

// System returns the system owning the model.
func (m *Model) System() *System { return m.system }

func (m *Model) taken(name string) bool {
	_, isSpace := m.spaces[name]
	_, isGlobal := m.globals[name]
	return isSpace || isGlobal
}

// NewSpace creates a top-level space and makes it the current space. An
// empty name picks the first free name of the form Space1, Space2, ...
func (m *Model) NewSpace(ctx context.Context, name string) (*Space, error) {
	if name == "" {
		name = autoName("Space", m.taken)
	}
	if err := namespace.ValidateName(name); err != nil {
		return nil, err
	}
	if m.taken(name) {
		return nil, calcerr.NameConflict(m.name, name)
	}

	s := newSpace(m, nil, name)
	m.spaces[name] = s
	m.order = append(m.order, name)
	m.current = s

	ctxlog.FromContext(ctx).Debug("Space created.", "space", s.FullName())
	return s, nil
}

// Space returns the top-level space called name.
func (m *Model) Space(name string) (*Space, bool) {
	s, ok := m.spaces[name]
	return s, ok
}

// Spaces returns the top-level spaces in creation order.
func (m *Model) Spaces() []*Space {
	out := make([]*Space, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.spaces[name])
	}
	return out
}

// allSpaces returns every space of the model, parents before children.
func (m *Model) allSpaces() []*Space {
	var out []*Space
	var walk func(s *Space)
	walk = func(s *Space) {
		out = append(out, s)
		for _, child := range s.Spaces() {
			walk(child)
		}
	}
	for _, s := range m.Spaces() {
		walk(s)
	}
	return out
}

// SetGlobal sets the global reference called name, creating it if needed.
// Globals are visible from every space of the model unless a member of the
// space has the same name.
func (m *Model) SetGlobal(ctx context.Context, name string, value cty.Value) (*Reference, error) {
	logger := ctxlog.FromContext(ctx)
	if ref, ok := m.globals[name]; ok {
		ref.value = value
		m.globalsGen++
		m.system.engine.Invalidate(ctx, nodeid.Ref(ref.id))
		logger.Debug("Global updated.", "model", m.name, "name", name)
		return ref, nil
	}

	if err := namespace.ValidateName(name); err != nil {
		return nil, err
	}
	if _, isSpace := m.spaces[name]; isSpace {
		return nil, calcerr.NameConflict(m.name, name)
	}

	ref := &Reference{id: m.system.newID(), name: name, value: value, model: m}
	m.globals[name] = ref
	m.gorder = append(m.gorder, name)
	m.globalsChanged(ctx, name)

	logger.Debug("Global created.", "model", m.name, "name", name)
	return ref, nil
}

// globalsChanged invalidates every formula that resolved name in any space.
func (m *Model) globalsChanged(ctx context.Context, name string) {
	m.globalsGen++
	spaces := m.allSpaces()
	ids := make([]nodeid.ID, 0, len(spaces))
	for _, s := range spaces {
		ids = append(ids, nodeid.Name(s.id, name))
	}
	m.system.engine.Invalidate(ctx, ids...)
}

// Global returns the global reference called name.
func (m *Model) Global(name string) (*Reference, bool) {
	r, ok := m.globals[name]
	return r, ok
}

// Globals returns the global references in creation order.
func (m *Model) Globals() []*Reference {
	out := make([]*Reference, 0, len(m.gorder))
	for _, name := range m.gorder {
		out = append(out, m.globals[name])
	}
	return out
}

// DeleteGlobal removes the global reference called name.
func (m *Model) DeleteGlobal(ctx context.Context, name string) error {
	ref, ok := m.globals[name]
	if !ok {
		return calcerr.InvalidReference(m.name, name)
	}
	delete(m.globals, name)
	m.gorder = removeString(m.gorder, name)

	m.globalsChanged(ctx, name)
	refID := nodeid.Ref(ref.id)
	m.system.engine.Forget(ctx, func(id nodeid.ID) bool { return id == refID })

	ctxlog.FromContext(ctx).Debug("Global deleted.", "model", m.name, "name", name)
	return nil
}

// DeleteSpace removes the top-level space called name and everything in it.
func (m *Model) DeleteSpace(ctx context.Context, name string) error {
	s, ok := m.spaces[name]
	if !ok {
		return calcerr.InvalidReference(m.name, name)
	}
	delete(m.spaces, name)
	m.order = removeString(m.order, name)
	if m.current == s {
		m.current = nil
	}
	s.release(ctx)

	ctxlog.FromContext(ctx).Debug("Space deleted.", "model", m.name, "space", name)
	return nil
}

// RenameSpace renames a top-level space. Formulas do not see top-level
// spaces by name, so no value is invalidated.
func (m *Model) RenameSpace(ctx context.Context, old, new string) error {
	s, ok := m.spaces[old]
	if !ok {
		return calcerr.InvalidReference(m.name, old)
	}
	if old == new {
		return nil
	}
	if err := namespace.ValidateName(new); err != nil {
		return err
	}
	if m.taken(new) {
		return calcerr.NameConflict(m.name, new)
	}

	delete(m.spaces, old)
	m.spaces[new] = s
	renameString(m.order, old, new)
	s.name = new
	s.dropTables()

	ctxlog.FromContext(ctx).Debug("Space renamed.", "model", m.name, "old", old, "new", new)
	return nil
}

// CurrentSpace returns the current space, or nil.
func (m *Model) CurrentSpace() *Space {
	return m.current
}

// SetCurrentSpace makes the space with the dotted name current.
func (m *Model) SetCurrentSpace(name string) error {
	obj, err := m.Object(name)
	if err != nil {
		return err
	}
	s, ok := obj.(*Space)
	if !ok {
		return calcerr.Structural("%s is not a space", obj.FullName())
	}
	m.current = s
	return nil
}

// Object returns the object with the dotted name relative to the model, such
// as "Space1.Sub.fibo" or a global name.
func (m *Model) Object(dotted string) (Object, error) {
	first, rest, _ := strings.Cut(dotted, ".")
	if rest == "" {
		if g, ok := m.globals[first]; ok {
			return g, nil
		}
	}
	s, ok := m.spaces[first]
	if !ok {
		return nil, calcerr.InvalidReference(m.name, first)
	}
	if rest == "" {
		return s, nil
	}
	return s.Object(rest)
}
