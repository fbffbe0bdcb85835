package config

import (
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Document is the result of loading one set of definition sources.
type Document struct {
	Settings Settings
	Models   []*Model
}

// Settings holds the engine tuning found in the sources.
type Settings struct {
	// MaxDepth overrides the evaluation depth limit when positive.
	MaxDepth int
}

// Model is the definition of a model and everything it owns.
type Model struct {
	Name    string
	Globals []*Ref
	Spaces  []*Space
}

// Space is the definition of a space. Children are listed in creation order.
type Space struct {
	Name   string
	Refs   []*Ref
	Cells  []*Cells
	Spaces []*Space
}

// Ref is a named value.
type Ref struct {
	Name  string
	Value cty.Value
}

// Cells is the definition of a cells object.
type Cells struct {
	Name   string
	Params []*Param
	// Formula is the expression source.
	Formula string
	// Expr is the already parsed expression, if the source was parsed by a
	// loader. When nil, Formula is parsed.
	Expr    hclsyntax.Expression
	Entries []*Entry
}

// Param is one formal parameter. A nil Default means the argument is required.
type Param struct {
	Name    string
	Default *cty.Value
}

// Entry is one stored value of a cells object.
type Entry struct {
	Args  []cty.Value
	Value cty.Value
	// Input is true for values set explicitly rather than computed.
	Input bool
}

// Space returns the top-level space definition called name.
func (m *Model) Space(name string) *Space {
	for _, s := range m.Spaces {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// CellsByName returns the cells definition called name.
func (s *Space) CellsByName(name string) *Cells {
	for _, c := range s.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Inputs returns the entries set explicitly.
func (c *Cells) Inputs() []*Entry {
	var out []*Entry
	for _, e := range c.Entries {
		if e.Input {
			out = append(out, e)
		}
	}
	return out
}
