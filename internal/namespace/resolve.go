package namespace

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Scope resolves the names of one formula evaluation as the evaluation
// reaches them. It implements formula.Resolver.
//
// Every name and reference node a lookup consults is passed to record once,
// in the order of first use, so a value depends on exactly the names its
// evaluation read.
type Scope struct {
	table  *Table
	ctx    context.Context
	record func(nodeid.ID)

	seen  map[nodeid.ID]bool
	vars  map[string]cty.Value
	funcs map[string]function.Function
}

// Scope returns a resolver over the table. ctx is handed to the cells that
// get called. record may be nil.
func (t *Table) Scope(ctx context.Context, record func(nodeid.ID)) *Scope {
	return &Scope{
		table:  t,
		ctx:    ctx,
		record: record,
		seen:   make(map[nodeid.ID]bool),
		vars:   make(map[string]cty.Value),
		funcs:  make(map[string]function.Function),
	}
}

// Context returns the context holding the built-in functions.
func (s *Scope) Context() *hcl.EvalContext {
	return s.table.root
}

func (s *Scope) read(id nodeid.ID) {
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	if s.record != nil {
		s.record(id)
	}
}

// Variable resolves the root of traversal. References and globals yield
// their value. Spaces yield an object holding only the members the traversal
// reaches into (`Sub.inner.k`).
func (s *Scope) Variable(traversal hcl.Traversal) (cty.Value, error) {
	key := hclutil.TraversalKey(traversal)
	if val, ok := s.vars[key]; ok {
		return val, nil
	}

	path := hclutil.AttrPath(traversal)
	if len(path) == 0 {
		return cty.NilVal, calcerr.InvalidReference(s.table.name, traversal.RootName())
	}
	root := path[0]
	t := s.table
	m, ok := t.Lookup(root)
	if !ok {
		return cty.NilVal, calcerr.InvalidReference(t.name, root)
	}
	if m.Kind != KindSelf {
		s.read(nodeid.Name(t.id, root))
	}

	var val cty.Value
	var err error
	switch m.Kind {
	case KindRef, KindGlobal:
		s.read(nodeid.Ref(m.ID))
		val = m.Value
	case KindSpace, KindSelf:
		val, err = s.spaceObject(m.Space(), root, path[1:])
	case KindCells:
		err = misuse(t.name, root, "cells", "must be called, e.g. "+root+"(...)")
	default:
		err = calcerr.InvalidReference(t.name, root)
	}
	if err != nil {
		return cty.NilVal, err
	}
	s.vars[key] = val
	return val, nil
}

// spaceObject builds the object for a space down the attribute path.
func (s *Scope) spaceObject(tbl *Table, label string, path []string) (cty.Value, error) {
	if len(path) == 0 {
		return cty.NilVal, misuse(tbl.name, label, "space", "cannot be used as a value, access one of its members instead")
	}
	name := path[0]
	s.read(nodeid.Name(tbl.id, name))
	m, ok := tbl.Member(name)
	if !ok {
		return cty.NilVal, calcerr.InvalidReference(tbl.name, name)
	}

	var val cty.Value
	switch m.Kind {
	case KindRef:
		s.read(nodeid.Ref(m.ID))
		val = m.Value
	case KindSpace:
		child, err := s.spaceObject(m.Space(), label+"."+name, path[1:])
		if err != nil {
			return cty.NilVal, err
		}
		val = child
	case KindCells:
		return cty.NilVal, misuse(tbl.name, name, "cells", "must be called, e.g. "+strings.ReplaceAll(label, ".", "::")+"::"+name+"(...)")
	default:
		return cty.NilVal, calcerr.InvalidReference(tbl.name, name)
	}
	return cty.ObjectVal(map[string]cty.Value{name: val}), nil
}

// Function resolves a called name to cells of this space, to cells of child
// spaces (`Sub::f`, `self::f`) or to a built-in. ok is false for built-ins,
// which the context returned by Context already provides.
func (s *Scope) Function(call string) (function.Function, bool, error) {
	if fn, ok := s.funcs[call]; ok {
		return fn, true, nil
	}
	fn, ok, err := s.function(call)
	if ok {
		s.funcs[call] = fn
	}
	return fn, ok, err
}

func (s *Scope) function(call string) (function.Function, bool, error) {
	t := s.table
	parts := strings.Split(call, "::")
	if len(parts) == 1 {
		m, ok := t.Lookup(call)
		if !ok {
			return function.Function{}, false, calcerr.InvalidReference(t.name, call)
		}
		s.read(nodeid.Name(t.id, call))
		switch m.Kind {
		case KindCells:
			return m.Cells.Function(s.ctx), true, nil
		case KindBuiltin:
			return function.Function{}, false, nil
		default:
			return function.Function{}, false, misuse(t.name, call, m.Kind.String(), "is not callable")
		}
	}

	tbl := t
	for i, part := range parts[:len(parts)-1] {
		if i == 0 && part == Self {
			continue
		}
		s.read(nodeid.Name(tbl.id, part))
		m, ok := tbl.Member(part)
		if !ok {
			return function.Function{}, false, calcerr.InvalidReference(tbl.name, part)
		}
		if m.Kind != KindSpace {
			return function.Function{}, false, misuse(tbl.name, part, m.Kind.String(), "is not a space")
		}
		tbl = m.Space()
	}

	name := parts[len(parts)-1]
	s.read(nodeid.Name(tbl.id, name))
	m, ok := tbl.Member(name)
	if !ok {
		return function.Function{}, false, calcerr.InvalidReference(tbl.name, name)
	}
	if m.Kind != KindCells {
		return function.Function{}, false, misuse(tbl.name, name, m.Kind.String(), "is not callable")
	}
	return m.Cells.Function(s.ctx), true, nil
}

func misuse(scope, name, kind, detail string) error {
	return &calcerr.Error{
		Kind: calcerr.KindInvalidReference,
		Name: name,
		Msg:  fmt.Sprintf("%s %q in %s %s", kind, name, scope, detail),
	}
}
