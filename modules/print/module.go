package print

import (
	"log/slog"

	"github.com/specialistvlad/cellgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Logger receives the printed values. Defaults to slog.Default().
	Logger *slog.Logger
}

// PrintFunc builds `print(value, label...)`, which logs its value and
// returns it unchanged, so it can wrap any subexpression while debugging a
// formula.
func PrintFunc(logger *slog.Logger) function.Function {
	return function.New(&function.Spec{
		Description: "Logs a value and returns it unchanged.",
		Params: []function.Parameter{
			{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
		},
		VarParam: &function.Parameter{Name: "label", Type: cty.String},
		Type: func(args []cty.Value) (cty.Type, error) {
			return args[0].Type(), nil
		},
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			log := logger
			if log == nil {
				log = slog.Default()
			}
			label := "print"
			if len(args) > 1 {
				label = args[1].AsString()
			}
			log.Info("Printing value.", "label", label, "value", render(args[0]))
			return args[0], nil
		},
	})
}

func render(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("print", PrintFunc(m.Logger))
}
