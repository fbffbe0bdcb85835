package formula

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// Resolver supplies the free names of a formula at the moment evaluation
// reaches them. Names that are never reached are never resolved.
type Resolver interface {
	// Variable returns the value of the root of traversal. Only the parts
	// of the root that the traversal reaches into need to be present.
	Variable(traversal hcl.Traversal) (cty.Value, error)
	// Function returns the function called name. ok is false when the name
	// is left to the evaluation context, as built-ins are.
	Function(name string) (fn function.Function, ok bool, err error)
}

// Eval evaluates expr in ctx, visiting only the subexpressions whose values
// are needed. Every name is taken from ctx.
func Eval(expr hclsyntax.Expression, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	return newEvaluator(nil).eval(expr, ctx)
}

// evaluator walks one expression. Composite nodes have their children
// evaluated first and replaced by literals, then HCL's own implementation
// combines them. For expressions and splats are iterated here, so their
// bodies are as lazy as the rest.
type evaluator struct {
	resolver Resolver
	// items holds the current element of each splat being iterated.
	items map[*hclsyntax.AnonSymbolExpr]cty.Value
}

func newEvaluator(r Resolver) *evaluator {
	return &evaluator{
		resolver: r,
		items:    make(map[*hclsyntax.AnonSymbolExpr]cty.Value),
	}
}

func (ev *evaluator) eval(expr hclsyntax.Expression, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		return ev.evalTraversal(e, ctx)

	case *hclsyntax.AnonSymbolExpr:
		if val, ok := ev.items[e]; ok {
			return val, nil
		}
		return cty.DynamicVal, nil

	case *hclsyntax.ConditionalExpr:
		return ev.evalConditional(e, ctx)

	case *hclsyntax.BinaryOpExpr:
		if e.Op == hclsyntax.OpLogicalAnd || e.Op == hclsyntax.OpLogicalOr {
			return ev.evalLogical(e, ctx)
		}
		lhs, diags := ev.literal(e.LHS, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		rhs, rhsDiags := ev.literal(e.RHS, ctx)
		diags = append(diags, rhsDiags...)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.LHS, cp.RHS = lhs, rhs
		return combine(&cp, ctx, diags)

	case *hclsyntax.UnaryOpExpr:
		val, diags := ev.literal(e.Val, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Val = val
		return combine(&cp, ctx, diags)

	case *hclsyntax.ParenthesesExpr:
		return ev.eval(e.Expression, ctx)

	case *hclsyntax.TemplateWrapExpr:
		return ev.eval(e.Wrapped, ctx)

	case *hclsyntax.FunctionCallExpr:
		return ev.evalCall(e, ctx)

	case *hclsyntax.TupleConsExpr:
		items, diags := ev.literals(e.Exprs, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Exprs = items
		return combine(&cp, ctx, diags)

	case *hclsyntax.ObjectConsExpr:
		var diags hcl.Diagnostics
		items := make([]hclsyntax.ObjectConsItem, len(e.Items))
		for i, item := range e.Items {
			key, keyDiags := ev.literal(item.KeyExpr, ctx)
			diags = append(diags, keyDiags...)
			if keyDiags.HasErrors() {
				return cty.DynamicVal, diags
			}
			val, valDiags := ev.literal(item.ValueExpr, ctx)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				return cty.DynamicVal, diags
			}
			items[i] = hclsyntax.ObjectConsItem{KeyExpr: key, ValueExpr: val}
		}
		cp := *e
		cp.Items = items
		return combine(&cp, ctx, diags)

	case *hclsyntax.ObjectConsKeyExpr:
		// A naked identifier is a literal key; anything else is evaluated.
		if !e.ForceNonLiteral {
			if tr, ok := e.Wrapped.(*hclsyntax.ScopeTraversalExpr); ok && len(tr.Traversal) > 1 {
				return e.Value(ctx)
			}
			if name := hcl.ExprAsKeyword(e.Wrapped); name != "" {
				return cty.StringVal(name), nil
			}
		}
		return ev.eval(e.Wrapped, ctx)

	case *hclsyntax.TemplateExpr:
		parts, diags := ev.literals(e.Parts, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Parts = parts
		return combine(&cp, ctx, diags)

	case *hclsyntax.TemplateJoinExpr:
		tuple, diags := ev.literal(e.Tuple, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Tuple = tuple
		return combine(&cp, ctx, diags)

	case *hclsyntax.IndexExpr:
		coll, diags := ev.literal(e.Collection, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		key, keyDiags := ev.literal(e.Key, ctx)
		diags = append(diags, keyDiags...)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Collection, cp.Key = coll, key
		return combine(&cp, ctx, diags)

	case *hclsyntax.RelativeTraversalExpr:
		src, diags := ev.literal(e.Source, ctx)
		if diags.HasErrors() {
			return cty.DynamicVal, diags
		}
		cp := *e
		cp.Source = src
		return combine(&cp, ctx, diags)

	case *hclsyntax.ForExpr:
		return ev.evalFor(e, ctx)

	case *hclsyntax.SplatExpr:
		return ev.evalSplat(e, ctx)

	default:
		return expr.Value(ctx)
	}
}

func combine(expr hclsyntax.Expression, ctx *hcl.EvalContext, diags hcl.Diagnostics) (cty.Value, hcl.Diagnostics) {
	val, more := expr.Value(ctx)
	return val, append(diags, more...)
}

// literal evaluates expr and freezes the result into a literal expression
// that keeps the original source range for diagnostics.
func (ev *evaluator) literal(expr hclsyntax.Expression, ctx *hcl.EvalContext) (hclsyntax.Expression, hcl.Diagnostics) {
	val, diags := ev.eval(expr, ctx)
	return &hclsyntax.LiteralValueExpr{Val: val, SrcRange: expr.Range()}, diags
}

// literals evaluates exprs left to right, stopping at the first error.
func (ev *evaluator) literals(exprs []hclsyntax.Expression, ctx *hcl.EvalContext) ([]hclsyntax.Expression, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	out := make([]hclsyntax.Expression, len(exprs))
	for i, expr := range exprs {
		lit, litDiags := ev.literal(expr, ctx)
		diags = append(diags, litDiags...)
		if litDiags.HasErrors() {
			return nil, diags
		}
		out[i] = lit
	}
	return out, diags
}

// evalTraversal reads a variable. Names bound by the evaluation itself
// (parameters and for variables) come from ctx; the others are asked from
// the resolver.
func (ev *evaluator) evalTraversal(e *hclsyntax.ScopeTraversalExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	root := e.Traversal.RootName()
	if ev.resolver == nil || bound(ctx, root) {
		return e.Value(ctx)
	}
	val, err := ev.resolver.Variable(e.Traversal)
	if err != nil {
		return cty.DynamicVal, hcl.Diagnostics{hclutil.ErrorDiag("Invalid reference", err, e, ctx)}
	}
	child := childOf(ctx)
	child.Variables = map[string]cty.Value{root: val}
	return e.Value(child)
}

// evalCall resolves the called name before its arguments, then lets HCL
// check and convert the evaluated arguments.
func (ev *evaluator) evalCall(e *hclsyntax.FunctionCallExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	callCtx := ctx
	if ev.resolver != nil {
		fn, ok, err := ev.resolver.Function(e.Name)
		if err != nil {
			return cty.DynamicVal, hcl.Diagnostics{hclutil.ErrorDiag("Invalid function call", err, e, ctx)}
		}
		if ok {
			callCtx = childOf(ctx)
			callCtx.Functions = map[string]function.Function{e.Name: fn}
		}
	}

	args, diags := ev.literals(e.Args, ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	cp := *e
	cp.Args = args
	return combine(&cp, callCtx, diags)
}

func (ev *evaluator) evalConditional(e *hclsyntax.ConditionalExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	cond, diags := ev.boolOperand(e.Condition, e.SrcRange, "condition", ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	if !cond.IsKnown() {
		return cty.DynamicVal, diags
	}

	var val cty.Value
	var branchDiags hcl.Diagnostics
	if cond.True() {
		val, branchDiags = ev.eval(e.TrueResult, ctx)
	} else {
		val, branchDiags = ev.eval(e.FalseResult, ctx)
	}
	return val, append(diags, branchDiags...)
}

func (ev *evaluator) evalLogical(e *hclsyntax.BinaryOpExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	lhs, diags := ev.boolOperand(e.LHS, e.SrcRange, "left operand", ctx)
	if diags.HasErrors() {
		return cty.UnknownVal(cty.Bool), diags
	}
	if lhs.IsKnown() {
		if e.Op == hclsyntax.OpLogicalAnd && lhs.False() {
			return cty.False, diags
		}
		if e.Op == hclsyntax.OpLogicalOr && lhs.True() {
			return cty.True, diags
		}
	}

	rhs, rhsDiags := ev.boolOperand(e.RHS, e.SrcRange, "right operand", ctx)
	diags = append(diags, rhsDiags...)
	if diags.HasErrors() {
		return cty.UnknownVal(cty.Bool), diags
	}
	if e.Op == hclsyntax.OpLogicalAnd {
		return lhs.And(rhs), diags
	}
	return lhs.Or(rhs), diags
}

// evalFor iterates a for expression, evaluating the condition, key and value
// of each element through the walker. It stops at the first error.
func (ev *evaluator) evalFor(e *hclsyntax.ForExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	coll, diags := ev.eval(e.CollExpr, ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	if coll.IsNull() {
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Iteration over null value",
			Detail:      "A null value cannot be used as the collection in a 'for' expression.",
			Subject:     e.CollExpr.Range().Ptr(),
			Context:     e.SrcRange.Ptr(),
			Expression:  e.CollExpr,
			EvalContext: ctx,
		})
	}
	if coll.Type() == cty.DynamicPseudoType || !coll.IsKnown() {
		return cty.DynamicVal, diags
	}
	coll, _ = coll.Unmark()
	if !coll.CanIterateElements() {
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Iteration over non-iterable value",
			Detail:      fmt.Sprintf("A value of type %s cannot be used as the collection in a 'for' expression.", coll.Type().FriendlyName()),
			Subject:     e.CollExpr.Range().Ptr(),
			Context:     e.SrcRange.Ptr(),
			Expression:  e.CollExpr,
			EvalContext: ctx,
		})
	}

	var items []cty.Value
	attrs := make(map[string]cty.Value)
	groups := make(map[string][]cty.Value)

	for it := coll.ElementIterator(); it.Next(); {
		k, v := it.Element()
		child := childOf(ctx)
		child.Variables = map[string]cty.Value{e.ValVar: v}
		if e.KeyVar != "" {
			child.Variables[e.KeyVar] = k
		}

		if e.CondExpr != nil {
			include, condDiags := ev.boolOperand(e.CondExpr, e.SrcRange, "'if' clause", child)
			diags = append(diags, condDiags...)
			if condDiags.HasErrors() {
				return cty.DynamicVal, diags
			}
			if !include.IsKnown() {
				return cty.DynamicVal, diags
			}
			if include.False() {
				continue
			}
		}

		if e.KeyExpr == nil {
			val, valDiags := ev.eval(e.ValExpr, child)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				return cty.DynamicVal, diags
			}
			items = append(items, val)
			continue
		}

		key, keyDiags := ev.objectKey(e, child)
		diags = append(diags, keyDiags...)
		if keyDiags.HasErrors() {
			return cty.DynamicVal, diags
		}
		val, valDiags := ev.eval(e.ValExpr, child)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			return cty.DynamicVal, diags
		}

		if e.Group {
			groups[key] = append(groups[key], val)
			continue
		}
		if _, dup := attrs[key]; dup {
			return cty.DynamicVal, append(diags, &hcl.Diagnostic{
				Severity:    hcl.DiagError,
				Summary:     "Duplicate object key",
				Detail:      fmt.Sprintf("Two different items produced the key %q in this 'for' expression. If duplicates are expected, use the ellipsis (...) after the value expression to enable grouping by key.", key),
				Subject:     e.KeyExpr.Range().Ptr(),
				Context:     e.SrcRange.Ptr(),
				Expression:  e.KeyExpr,
				EvalContext: child,
			})
		}
		attrs[key] = val
	}

	switch {
	case e.KeyExpr == nil:
		if len(items) == 0 {
			return cty.EmptyTupleVal, diags
		}
		return cty.TupleVal(items), diags
	case e.Group:
		for key, vals := range groups {
			attrs[key] = cty.TupleVal(vals)
		}
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, diags
	}
	return cty.ObjectVal(attrs), diags
}

func (ev *evaluator) objectKey(e *hclsyntax.ForExpr, ctx *hcl.EvalContext) (string, hcl.Diagnostics) {
	raw, diags := ev.eval(e.KeyExpr, ctx)
	if diags.HasErrors() {
		return "", diags
	}
	raw, _ = raw.Unmark()
	key, err := convert.Convert(raw, cty.String)
	if err == nil && (raw.IsNull() || !raw.IsKnown()) {
		err = fmt.Errorf("the key must be a known, non-null string")
	}
	if err != nil {
		return "", append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Invalid object key",
			Detail:      fmt.Sprintf("The key expression produced an invalid result: %s.", err),
			Subject:     e.KeyExpr.Range().Ptr(),
			Context:     e.SrcRange.Ptr(),
			Expression:  e.KeyExpr,
			EvalContext: ctx,
		})
	}
	return key.AsString(), diags
}

// evalSplat applies the splat body to each element of the source. A source
// that is not a sequence counts as a one element tuple, or an empty one if
// null.
func (ev *evaluator) evalSplat(e *hclsyntax.SplatExpr, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	src, diags := ev.eval(e.Source, ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	ty := src.Type()
	sequence := ty.IsTupleType() || ty.IsListType() || ty.IsSetType()

	if src.IsNull() {
		if !sequence {
			return cty.EmptyTupleVal, diags
		}
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Splat of null value",
			Detail:      "Splat expressions (with the * symbol) cannot be applied to null sequences.",
			Subject:     e.Source.Range().Ptr(),
			Context:     hcl.RangeBetween(e.Source.Range(), e.MarkerRange).Ptr(),
			Expression:  e.Source,
			EvalContext: ctx,
		})
	}
	if ty == cty.DynamicPseudoType || !src.IsKnown() {
		return cty.DynamicVal, diags
	}
	src, _ = src.Unmark()
	if !sequence {
		src = cty.TupleVal([]cty.Value{src})
	}

	prev, nested := ev.items[e.Item]
	defer func() {
		if nested {
			ev.items[e.Item] = prev
		} else {
			delete(ev.items, e.Item)
		}
	}()

	vals := make([]cty.Value, 0, src.LengthInt())
	for it := src.ElementIterator(); it.Next(); {
		_, item := it.Element()
		ev.items[e.Item] = item
		val, itemDiags := ev.eval(e.Each, ctx)
		diags = append(diags, itemDiags...)
		if itemDiags.HasErrors() {
			return cty.DynamicVal, diags
		}
		vals = append(vals, val)
	}

	switch {
	case !src.Type().IsListType() && !src.Type().IsSetType():
		if len(vals) == 0 {
			return cty.EmptyTupleVal, diags
		}
		return cty.TupleVal(vals), diags
	case len(vals) == 0:
		return cty.ListValEmpty(cty.DynamicPseudoType), diags
	case !cty.CanListVal(vals):
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid nested splat expressions",
			Detail:   "The splat expression produced elements of different types, so it isn't possible to construct a valid list. Consider using a for expression instead.",
			Subject:  e.Each.Range().Ptr(),
			Context:  e.Range().Ptr(),
		})
	default:
		return cty.ListVal(vals), diags
	}
}

// boolOperand evaluates expr and converts it to an unmarked bool.
func (ev *evaluator) boolOperand(expr hclsyntax.Expression, context hcl.Range, what string, ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	val, diags := ev.eval(expr, ctx)
	if diags.HasErrors() {
		return cty.UnknownVal(cty.Bool), diags
	}
	val, _ = val.Unmark()
	if val.IsNull() {
		return cty.UnknownVal(cty.Bool), append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Null " + what,
			Detail:      fmt.Sprintf("The %s value is null. It must be either true or false.", what),
			Subject:     expr.Range().Ptr(),
			Context:     context.Ptr(),
			Expression:  expr,
			EvalContext: ctx,
		})
	}
	converted, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return cty.UnknownVal(cty.Bool), append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Incorrect " + what + " type",
			Detail:      fmt.Sprintf("The %s must be a bool: %s.", what, err),
			Subject:     expr.Range().Ptr(),
			Context:     context.Ptr(),
			Expression:  expr,
			EvalContext: ctx,
		})
	}
	return converted, diags
}

// bound reports whether ctx or one of its parents defines the variable name.
func bound(ctx *hcl.EvalContext, name string) bool {
	for c := ctx; c != nil; c = c.Parent() {
		if _, ok := c.Variables[name]; ok {
			return true
		}
	}
	return false
}

func childOf(ctx *hcl.EvalContext) *hcl.EvalContext {
	if ctx == nil {
		return &hcl.EvalContext{}
	}
	return ctx.NewChild()
}
