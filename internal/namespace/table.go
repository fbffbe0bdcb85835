package namespace

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Self is the reserved name for the space a formula belongs to.
const Self = "self"

// reserved names can never be used for members or globals. The literals are
// included because HCL parses them as values, which would hide a member.
var reserved = map[string]bool{
	Self:    true,
	"true":  true,
	"false": true,
	"null":  true,
}

// IsReserved reports whether name is reserved.
func IsReserved(name string) bool {
	return reserved[name]
}

// ReservedNames returns the reserved names.
func ReservedNames() []string {
	return []string{Self, "true", "false", "null"}
}

// ValidateName checks that name may be used for a member or a global: it must
// start with a letter, continue with letters, digits or underscores, and not
// be reserved.
func ValidateName(name string) error {
	if name == "" {
		return calcerr.Structural("name must not be empty")
	}
	first := name[0]
	if !(first >= 'a' && first <= 'z' || first >= 'A' && first <= 'Z') ||
		!hclsyntax.ValidIdentifier(name) || strings.Contains(name, "-") {
		return calcerr.Structural("invalid name %q: must match [A-Za-z][A-Za-z0-9_]*", name)
	}
	if IsReserved(name) {
		return calcerr.Structural("name %q is reserved", name)
	}
	return nil
}

// Kind tells what a name resolved to.
type Kind uint8

const (
	KindCells Kind = iota + 1
	KindSpace
	KindRef
	KindGlobal
	KindSelf
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindCells:
		return "cells"
	case KindSpace:
		return "space"
	case KindRef:
		return "ref"
	case KindGlobal:
		return "global"
	case KindSelf:
		return "self"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Callable is a cells object seen from a namespace.
type Callable interface {
	// Function returns the HCL function that evaluates the cells. ctx is
	// the context of the evaluation that performs the call.
	Function(ctx context.Context) function.Function
}

// Member is one named entry of a Table.
type Member struct {
	Name string
	Kind Kind
	// ID is the object id of the cells, space or reference.
	ID uint64
	// Value holds the value of references and globals.
	Value cty.Value
	// Cells is set for KindCells.
	Cells Callable
	// Space returns the table of a child space. It is set for KindSpace.
	Space func() *Table
}

// Table is the set of names visible from one space.
type Table struct {
	id   uint64
	name string

	members map[string]*Member
	order   []string
	globals map[string]*Member
	gorder  []string
	root    *hcl.EvalContext
}

// NewTable creates an empty table for the space with the given id and full
// name. root is the context holding the built-in functions; it is used as
// the parent of every context Resolve creates and is never modified.
func NewTable(id uint64, name string, root *hcl.EvalContext) *Table {
	if root == nil {
		root = &hcl.EvalContext{}
	}
	return &Table{
		id:      id,
		name:    name,
		members: make(map[string]*Member),
		globals: make(map[string]*Member),
		root:    root,
	}
}

// ID returns the id of the space the table belongs to.
func (t *Table) ID() uint64 { return t.id }

// Name returns the full name of the space the table belongs to.
func (t *Table) Name() string { return t.name }

// Add registers a member of the space. Cells, spaces and local references
// share one name set.
func (t *Table) Add(m *Member) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if _, exists := t.members[m.Name]; exists {
		return calcerr.NameConflict(t.name, m.Name)
	}
	t.members[m.Name] = m
	t.order = append(t.order, m.Name)
	return nil
}

// AddGlobal registers a model-level reference.
func (t *Table) AddGlobal(m *Member) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	if _, exists := t.globals[m.Name]; exists {
		return calcerr.NameConflict("globals", m.Name)
	}
	m.Kind = KindGlobal
	t.globals[m.Name] = m
	t.gorder = append(t.gorder, m.Name)
	return nil
}

// Member returns a direct member of the space, ignoring globals.
func (t *Table) Member(name string) (*Member, bool) {
	m, ok := t.members[name]
	return m, ok
}

// Members returns the direct members in insertion order.
func (t *Table) Members() []*Member {
	out := make([]*Member, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.members[name])
	}
	return out
}

// Lookup resolves name following the table's precedence.
func (t *Table) Lookup(name string) (*Member, bool) {
	if m, ok := t.members[name]; ok {
		return m, true
	}
	if m, ok := t.globals[name]; ok {
		return m, true
	}
	if name == Self {
		return &Member{Name: Self, Kind: KindSelf, ID: t.id, Space: func() *Table { return t }}, true
	}
	if t.builtin(name) {
		return &Member{Name: name, Kind: KindBuiltin}, true
	}
	return nil, false
}

func (t *Table) builtin(name string) bool {
	for ctx := t.root; ctx != nil; ctx = ctx.Parent() {
		if _, ok := ctx.Functions[name]; ok {
			return true
		}
	}
	return false
}

// Names returns every visible name once, in precedence order: members in
// insertion order, then globals not shadowed by a member, then `self`.
// Built-ins are not listed.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.order)+len(t.gorder)+1)
	out = append(out, t.order...)
	for _, name := range t.gorder {
		if _, shadowed := t.members[name]; !shadowed {
			out = append(out, name)
		}
	}
	return append(out, Self)
}
