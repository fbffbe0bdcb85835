// This file contains the logic for translating the decoded HCL blocks into
// the format-agnostic definitions of the config package.

package hcl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateModel decodes a `model` block. src is the content of the file the
// block comes from; formula sources are sliced out of it.
func (l *Loader) translateModel(block *hcl.Block, src []byte) (*config.Model, error) {
	var body modelBody
	if diags := gohcl.DecodeBody(block.Body, l.evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("model %q: %w", block.Labels[0], diags)
	}

	m := &config.Model{Name: block.Labels[0]}
	var result *multierror.Error

	globals, err := l.namedValues(body.Globals)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("model %q globals: %w", m.Name, err))
	}
	m.Globals = globals

	spaces, err := l.translateSpaces(body.Spaces, m.Name, src)
	if err != nil {
		result = multierror.Append(result, err)
	}
	m.Spaces = spaces

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func (l *Loader) translateSpaces(blocks []*spaceBlock, parent string, src []byte) ([]*config.Space, error) {
	var result *multierror.Error
	var out []*config.Space
	seen := make(map[string]hcl.Range)

	for _, b := range blocks {
		if prev, dup := seen[b.Name]; dup {
			result = multierror.Append(result, hcl.Diagnostics{hclutil.DuplicateLabel("space", b.Name, b.DefRange, prev)})
			continue
		}
		seen[b.Name] = b.DefRange
		path := parent + "." + b.Name

		s := &config.Space{Name: b.Name}
		refs, err := l.namedValues(b.Refs)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("space %s refs: %w", path, err))
		}
		s.Refs = refs

		cellsSeen := make(map[string]hcl.Range)
		for _, cb := range b.Cells {
			if prev, dup := cellsSeen[cb.Name]; dup {
				result = multierror.Append(result, hcl.Diagnostics{hclutil.DuplicateLabel("cells", cb.Name, cb.DefRange, prev)})
				continue
			}
			cellsSeen[cb.Name] = cb.DefRange

			c, err := l.translateCells(cb, src)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("cells %s.%s: %w", path, cb.Name, err))
				continue
			}
			s.Cells = append(s.Cells, c)
		}

		children, err := l.translateSpaces(b.Spaces, path, src)
		if err != nil {
			result = multierror.Append(result, err)
		}
		s.Spaces = children
		out = append(out, s)
	}
	return out, result.ErrorOrNil()
}

func (l *Loader) translateCells(b *cellsBlock, src []byte) (*config.Cells, error) {
	c := &config.Cells{Name: b.Name}

	if expr, ok := b.Formula.(hclsyntax.Expression); ok {
		c.Expr = expr
		c.Formula = string(expr.Range().SliceBytes(src))
	}

	defaults, err := l.namedValues(b.Defaults)
	if err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	byName := make(map[string]cty.Value, len(defaults))
	for _, d := range defaults {
		byName[d.Name] = d.Value
	}
	for _, name := range b.Params {
		p := &config.Param{Name: name}
		if v, ok := byName[name]; ok {
			p.Default = &v
			delete(byName, name)
		}
		c.Params = append(c.Params, p)
	}
	if len(byName) > 0 {
		unknown := make([]string, 0, len(byName))
		for name := range byName {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("defaults for unknown parameters: %s", strings.Join(unknown, ", "))
	}

	for _, in := range b.Inputs {
		e, err := l.translateInput(in)
		if err != nil {
			return nil, err
		}
		c.Entries = append(c.Entries, e)
	}
	return c, nil
}

func (l *Loader) translateInput(b *inputBlock) (*config.Entry, error) {
	e := &config.Entry{Input: true}
	if isPresent(b.Args) {
		exprs, diags := hcl.ExprList(b.Args)
		if diags.HasErrors() {
			return nil, diags
		}
		for _, expr := range exprs {
			v, diags := expr.Value(l.evalCtx)
			if diags.HasErrors() {
				return nil, diags
			}
			e.Args = append(e.Args, v)
		}
	}

	v, diags := b.Value.Value(l.evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	e.Value = v
	return e, nil
}

// namedValues evaluates a static map expression such as `{ k = 10 }`,
// keeping the source order of its items. An absent attribute yields nil.
func (l *Loader) namedValues(expr hcl.Expression) ([]*config.Ref, error) {
	if !isPresent(expr) {
		return nil, nil
	}
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, diags
	}

	out := make([]*config.Ref, 0, len(pairs))
	for _, pair := range pairs {
		key, diags := pair.Key.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		key, err := convert.Convert(key, cty.String)
		if err != nil || key.IsNull() {
			return nil, fmt.Errorf("%s: invalid key", pair.Key.Range())
		}
		val, diags := pair.Value.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		out = append(out, &config.Ref{Name: key.AsString(), Value: val})
	}
	return out, nil
}

// isPresent reports whether an optional attribute was written in the
// source. gohcl fills absent ones with a synthetic null expression.
func isPresent(expr hcl.Expression) bool {
	_, ok := expr.(hclsyntax.Expression)
	return ok
}
