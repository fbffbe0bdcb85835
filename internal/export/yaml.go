package export

import (
	"fmt"
	"io"

	"github.com/specialistvlad/cellgrid/internal/cellstore"
	ctyyaml "github.com/zclconf/go-cty-yaml"
	"github.com/zclconf/go-cty/cty"
)

// Result is the outcome of evaluating one expression.
type Result struct {
	Expr  string
	Value cty.Value
}

// YAML renders the entries of src as a YAML document:
//
//	name: M.S.fibo
//	entries:
//	  - args: [3]
//	    value: 2
//	    input: false
func YAML(src Source) ([]byte, error) {
	rows := Rows(src)
	entries := make([]cty.Value, 0, len(rows))
	for _, r := range rows {
		args := cty.EmptyTupleVal
		if len(r.Args) > 0 {
			args = cty.TupleVal(r.Args)
		}
		entries = append(entries, cty.ObjectVal(map[string]cty.Value{
			"args":  args,
			"value": r.Value,
			"input": cty.BoolVal(r.Provenance == cellstore.Input),
		}))
	}
	list := cty.EmptyTupleVal
	if len(entries) > 0 {
		list = cty.TupleVal(entries)
	}
	return marshal(cty.ObjectVal(map[string]cty.Value{
		"name":    cty.StringVal(src.FullName()),
		"entries": list,
	}))
}

// WriteResults writes results either as `expr = value` lines ("text") or as
// a YAML sequence of {expr, value} mappings ("yaml").
func WriteResults(w io.Writer, format string, results []Result) error {
	switch format {
	case "", "text":
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%s = %s\n", r.Expr, FormatValue(r.Value)); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		items := make([]cty.Value, 0, len(results))
		for _, r := range results {
			items = append(items, cty.ObjectVal(map[string]cty.Value{
				"expr":  cty.StringVal(r.Expr),
				"value": r.Value,
			}))
		}
		doc := cty.EmptyTupleVal
		if len(items) > 0 {
			doc = cty.TupleVal(items)
		}
		b, err := marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func marshal(v cty.Value) ([]byte, error) {
	v, _ = v.UnmarkDeep()
	b, err := ctyyaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return b, nil
}
