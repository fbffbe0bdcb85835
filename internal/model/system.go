// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the System, the root of the object hierarchy, and the
// object-id bookkeeping the dependency graph relies on.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/engine"
	"github.com/specialistvlad/cellgrid/internal/namespace"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/specialistvlad/cellgrid/internal/registry"
)

// Config holds the settings of a System.
type Config struct {
	// MaxDepth bounds the number of nested cells evaluations. Zero means
	// engine.DefaultMaxDepth.
	MaxDepth int
	// Registry provides the built-in functions formulas can call. Nil means
	// no built-ins.
	Registry *registry.Registry
}

// Stats describes the state of a System.
type Stats struct {
	engine.Stats
	// Models is the number of open models.
	Models int
	// Nodes is the number of nodes in the dependency graph.
	Nodes int
}

// System owns the models and the evaluator they share.
type System struct {
	engine *engine.Engine
	root   *hcl.EvalContext

	nextID  uint64
	models  map[string]*Model
	order   []string
	current *Model

	// cells maps object ids to live cells, so that invalidated cells nodes
	// can be routed to their store.
	cells map[uint64]*Cells
}

// NewSystem creates an empty system.
func NewSystem(cfg Config) *System {
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	s := &System{
		root:   reg.EvalContext(),
		models: make(map[string]*Model),
		cells:  make(map[uint64]*Cells),
	}
	s.engine = engine.New(engine.Config{MaxDepth: cfg.MaxDepth}, s)
	return s
}

// Engine returns the evaluator shared by every model of the system.
func (s *System) Engine() *engine.Engine {
	return s.engine
}

// ClearNode implements engine.Clearer.
func (s *System) ClearNode(id nodeid.ID) {
	if id.Kind != nodeid.KindCells {
		return
	}
	if c, ok := s.cells[id.Owner]; ok {
		c.store.Delete(id.Key)
	}
}

func (s *System) newID() uint64 {
	s.nextID++
	return s.nextID
}

// NewModel creates a model and makes it the current one. An empty name picks
// the first free name of the form Model1, Model2, ...
func (s *System) NewModel(ctx context.Context, name string) (*Model, error) {
	if name == "" {
		name = autoName("Model", func(n string) bool { _, ok := s.models[n]; return ok })
	}
	if err := namespace.ValidateName(name); err != nil {
		return nil, err
	}
	if _, exists := s.models[name]; exists {
		return nil, calcerr.NameConflict("system", name)
	}

	m := newModel(s, name)
	s.models[name] = m
	s.order = append(s.order, name)
	s.current = m

	ctxlog.FromContext(ctx).Debug("Model created.", "model", name)
	return m, nil
}

// Model returns the open model called name.
func (s *System) Model(name string) (*Model, bool) {
	m, ok := s.models[name]
	return m, ok
}

// Models returns the open models in creation order.
func (s *System) Models() []*Model {
	out := make([]*Model, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.models[name])
	}
	return out
}

// CurrentModel returns the current model, or nil if none is open.
func (s *System) CurrentModel() *Model {
	return s.current
}

// SetCurrentModel makes the model called name the current one.
func (s *System) SetCurrentModel(name string) error {
	m, ok := s.models[name]
	if !ok {
		return calcerr.InvalidReference("system", name)
	}
	s.current = m
	return nil
}

// CurrentOrNewModel returns the current model, creating one if none is open.
func (s *System) CurrentOrNewModel(ctx context.Context) (*Model, error) {
	if s.current != nil {
		return s.current, nil
	}
	return s.NewModel(ctx, "")
}

// CloseModel releases the model called name and everything it owns.
// Closing the current model leaves no model current.
func (s *System) CloseModel(ctx context.Context, name string) error {
	m, ok := s.models[name]
	if !ok {
		return calcerr.InvalidReference("system", name)
	}

	owned := newOwnedSet()
	for _, sp := range m.Spaces() {
		sp.collect(owned)
	}
	for _, g := range m.globals {
		owned.refs[g.id] = true
	}
	s.release(ctx, owned)

	delete(s.models, name)
	s.order = removeString(s.order, name)
	if s.current == m {
		s.current = nil
	}
	s.engine.Compact()

	ctxlog.FromContext(ctx).Debug("Model closed.", "model", name)
	return nil
}

// release invalidates and forgets every graph node of the owned objects.
func (s *System) release(ctx context.Context, owned *ownedSet) {
	s.engine.Forget(ctx, owned.match)
	for id := range owned.cells {
		delete(s.cells, id)
	}
}

// Object returns the object with the dotted full name, such as
// "Model1.Space1.fibo".
func (s *System) Object(fullname string) (Object, error) {
	modelName, rest, _ := strings.Cut(fullname, ".")
	m, ok := s.models[modelName]
	if !ok {
		return nil, calcerr.InvalidReference("system", modelName)
	}
	if rest == "" {
		return m, nil
	}
	return m.Object(rest)
}

// Stats returns the evaluator counters and the size of the system.
func (s *System) Stats() Stats {
	return Stats{
		Stats:  s.engine.Stats(),
		Models: len(s.models),
		Nodes:  s.engine.Graph().Len(),
	}
}

// Object is anything addressable by a dotted name: a model, a space, a
// cells object or a reference.
type Object interface {
	ID() uint64
	Name() string
	FullName() string
}

// ownedSet collects the ids of a subtree that is about to go away.
type ownedSet struct {
	cells  map[uint64]bool
	refs   map[uint64]bool
	spaces map[uint64]bool
}

func newOwnedSet() *ownedSet {
	return &ownedSet{
		cells:  make(map[uint64]bool),
		refs:   make(map[uint64]bool),
		spaces: make(map[uint64]bool),
	}
}

func (o *ownedSet) match(id nodeid.ID) bool {
	switch id.Kind {
	case nodeid.KindCells:
		return o.cells[id.Owner]
	case nodeid.KindRef:
		return o.refs[id.Owner]
	case nodeid.KindName:
		return o.spaces[id.Owner]
	default:
		return false
	}
}

// autoName returns the first prefixN, N = 1, 2, ..., for which taken is false.
func autoName(prefix string, taken func(string) bool) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if !taken(name) {
			return name
		}
	}
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func renameString(list []string, old, new string) {
	for i, v := range list {
		if v == old {
			list[i] = new
			return
		}
	}
}
