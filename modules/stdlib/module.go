// Package stdlib registers the general purpose cty functions as formula
// built-ins: numeric, string, collection and encoding helpers.
package stdlib

import (
	"github.com/specialistvlad/cellgrid/internal/registry"
	"github.com/zclconf/go-cty/cty/function"
	ctystdlib "github.com/zclconf/go-cty/cty/function/stdlib"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Functions returns the built-ins keyed by the name formulas call them by.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		// numeric
		"abs":      ctystdlib.AbsoluteFunc,
		"ceil":     ctystdlib.CeilFunc,
		"floor":    ctystdlib.FloorFunc,
		"log":      ctystdlib.LogFunc,
		"max":      ctystdlib.MaxFunc,
		"min":      ctystdlib.MinFunc,
		"pow":      ctystdlib.PowFunc,
		"signum":   ctystdlib.SignumFunc,
		"parseint": ctystdlib.ParseIntFunc,
		"int":      ctystdlib.IntFunc,

		// string
		"upper":      ctystdlib.UpperFunc,
		"lower":      ctystdlib.LowerFunc,
		"format":     ctystdlib.FormatFunc,
		"formatlist": ctystdlib.FormatListFunc,
		"join":       ctystdlib.JoinFunc,
		"split":      ctystdlib.SplitFunc,
		"replace":    ctystdlib.ReplaceFunc,
		"strlen":     ctystdlib.StrlenFunc,
		"substr":     ctystdlib.SubstrFunc,
		"title":      ctystdlib.TitleFunc,
		"trimspace":  ctystdlib.TrimSpaceFunc,
		"regex":      ctystdlib.RegexFunc,

		// collection
		"length":    ctystdlib.LengthFunc,
		"concat":    ctystdlib.ConcatFunc,
		"contains":  ctystdlib.ContainsFunc,
		"keys":      ctystdlib.KeysFunc,
		"values":    ctystdlib.ValuesFunc,
		"merge":     ctystdlib.MergeFunc,
		"range":     ctystdlib.RangeFunc,
		"reverse":   ctystdlib.ReverseListFunc,
		"coalesce":  ctystdlib.CoalesceFunc,
		"element":   ctystdlib.ElementFunc,
		"flatten":   ctystdlib.FlattenFunc,
		"lookup":    ctystdlib.LookupFunc,
		"sort":      ctystdlib.SortFunc,
		"distinct":  ctystdlib.DistinctFunc,
		"zipmap":    ctystdlib.ZipmapFunc,
		"slice":     ctystdlib.SliceFunc,
		"compact":   ctystdlib.CompactFunc,
		"chunklist": ctystdlib.ChunklistFunc,

		// encoding
		"jsonencode": ctystdlib.JSONEncodeFunc,
		"jsondecode": ctystdlib.JSONDecodeFunc,
		"csvdecode":  ctystdlib.CSVDecodeFunc,
	}
}

// Register registers the functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	for name, fn := range Functions() {
		r.RegisterFunction(name, fn)
	}
}
