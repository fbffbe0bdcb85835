package formula

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// CallFunc is invoked with the positional arguments of an HCL call.
type CallFunc func(args []cty.Value) (cty.Value, error)

// Function exposes the formula as an HCL function whose parameters mirror
// the formula's. Parameters with defaults become the variadic tail, so
// `f(1)` and `f(1, 2)` are both accepted; call must still bind the tuple and
// reject extra arguments.
func (f *Formula) Function(description string, call CallFunc) function.Function {
	spec := &function.Spec{
		Description: description,
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return call(args)
		},
	}

	required, total := f.Arity()
	for _, p := range f.params[:required] {
		spec.Params = append(spec.Params, parameter(p.Name))
	}
	if total > required {
		vp := parameter(f.params[required].Name)
		spec.VarParam = &vp
	}
	return function.New(spec)
}

func parameter(name string) function.Parameter {
	return function.Parameter{
		Name:             name,
		Type:             cty.DynamicPseudoType,
		AllowNull:        true,
		AllowDynamicType: true,
	}
}
