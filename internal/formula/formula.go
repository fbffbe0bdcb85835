package formula

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
)

// Param is one formal parameter. A nil Default means the argument is required.
type Param struct {
	Name    string
	Default *cty.Value
}

// Required returns a parameter without default.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional returns a parameter that falls back to def when omitted.
func Optional(name string, def cty.Value) Param {
	return Param{Name: name, Default: &def}
}

// Formula is an immutable parameterized expression.
type Formula struct {
	params []Param
	expr   hclsyntax.Expression
	source string
}

// Parse parses source as an HCL expression and wraps it with params.
func Parse(params []Param, source string) (*Formula, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(source), "<formula>", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, calcerr.Formula("", hclutil.DiagsError(diags))
	}
	return New(params, expr, source)
}

// MustParse is like Parse but panics on error. It is meant for tests and
// statically known formulas.
func MustParse(params []Param, source string) *Formula {
	f, err := Parse(params, source)
	if err != nil {
		panic(err)
	}
	return f
}

// New wraps an already parsed expression. source is kept for display and
// persistence and should be the text expr was parsed from.
func New(params []Param, expr hclsyntax.Expression, source string) (*Formula, error) {
	if expr == nil {
		return nil, calcerr.Structural("formula has no expression")
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}
	cp := make([]Param, len(params))
	copy(cp, params)
	return &Formula{
		params: cp,
		expr:   expr,
		source: strings.TrimSpace(source),
	}, nil
}

func validateParams(params []Param) error {
	seen := make(map[string]bool, len(params))
	sawDefault := false
	for _, p := range params {
		if !hclsyntax.ValidIdentifier(p.Name) || strings.Contains(p.Name, "-") {
			return calcerr.Structural("invalid parameter name %q", p.Name)
		}
		if seen[p.Name] {
			return calcerr.Structural("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if p.Default != nil {
			sawDefault = true
		} else if sawDefault {
			return calcerr.Structural("parameter %q without default follows a parameter with default", p.Name)
		}
	}
	return nil
}

// Params returns a copy of the parameter list.
func (f *Formula) Params() []Param {
	out := make([]Param, len(f.params))
	copy(out, f.params)
	return out
}

// ParamNames returns the parameter names in order.
func (f *Formula) ParamNames() []string {
	names := make([]string, len(f.params))
	for i, p := range f.params {
		names[i] = p.Name
	}
	return names
}

// HasParam reports whether name is one of the formula's parameters.
func (f *Formula) HasParam(name string) bool {
	for _, p := range f.params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Arity returns the number of required and total parameters.
func (f *Formula) Arity() (required, total int) {
	for _, p := range f.params {
		if p.Default == nil {
			required++
		}
	}
	return required, len(f.params)
}

// Expr returns the parsed expression.
func (f *Formula) Expr() hclsyntax.Expression {
	return f.expr
}

// Source returns the expression text.
func (f *Formula) Source() string {
	return f.source
}

func (f *Formula) String() string {
	return fmt.Sprintf("(%s) => %s", strings.Join(f.ParamNames(), ", "), f.source)
}

// Bind matches positional args and keyword kwargs against the parameter list
// and returns the full argument tuple, with defaults filled in.
func (f *Formula) Bind(args []cty.Value, kwargs map[string]cty.Value) ([]cty.Value, error) {
	if len(args) > len(f.params) {
		return nil, fmt.Errorf("takes %d positional argument(s) but %d were given", len(f.params), len(args))
	}

	bound := make([]cty.Value, len(f.params))
	set := make([]bool, len(f.params))
	for i, arg := range args {
		bound[i] = arg
		set[i] = true
	}

	for name, val := range kwargs {
		idx := -1
		for i, p := range f.params {
			if p.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("got an unexpected keyword argument %q", name)
		}
		if set[idx] {
			return nil, fmt.Errorf("got multiple values for argument %q", name)
		}
		bound[idx] = val
		set[idx] = true
	}

	var missing []string
	for i, p := range f.params {
		if set[i] {
			continue
		}
		if p.Default == nil {
			missing = append(missing, p.Name)
			continue
		}
		bound[i] = *p.Default
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return bound, nil
}

// Evaluate runs the body with the bound argument tuple, taking every free
// name from ctx. Parameters are bound in a child of ctx, so they shadow every
// name ctx provides.
func (f *Formula) Evaluate(ctx *hcl.EvalContext, args []cty.Value) (cty.Value, hcl.Diagnostics) {
	return f.EvaluateWith(ctx, nil, args)
}

// EvaluateWith is like Evaluate, but asks r for the free names the body
// actually reaches. ctx provides the built-in functions. A nil r behaves
// like Evaluate.
func (f *Formula) EvaluateWith(ctx *hcl.EvalContext, r Resolver, args []cty.Value) (cty.Value, hcl.Diagnostics) {
	if len(args) != len(f.params) {
		return cty.DynamicVal, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unbound arguments",
			Detail:   fmt.Sprintf("Formula expects %d bound argument(s), got %d.", len(f.params), len(args)),
			Subject:  f.expr.Range().Ptr(),
		}}
	}
	evalCtx := ctx
	if len(f.params) > 0 {
		evalCtx = childOf(evalCtx)
		evalCtx.Variables = make(map[string]cty.Value, len(f.params))
		for i, p := range f.params {
			evalCtx.Variables[p.Name] = args[i]
		}
	}
	return newEvaluator(r).eval(f.expr, evalCtx)
}
