package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/cellgrid/internal/cellstore"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Source is anything that exposes stored entries under a name, typically a
// *model.Cells.
type Source interface {
	FullName() string
	Entries() []cellstore.Entry
}

// Row is a single stored entry, ready for display.
type Row struct {
	// Call is the entry rendered as a call, e.g. "M.S.fibo(3)".
	Call       string
	Args       []cty.Value
	Value      cty.Value
	Provenance cellstore.Provenance
}

// Rows returns the entries of src in store order.
func Rows(src Source) []Row {
	entries := src.Entries()
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			Call:       src.FullName() + nodeid.CallSuffix(e.Key),
			Args:       e.Args,
			Value:      e.Value,
			Provenance: e.Provenance,
		})
	}
	return rows
}

// FormatValue renders v the way it would be written in a formula.
func FormatValue(v cty.Value) string {
	v, _ = v.UnmarkDeep()
	if !v.IsKnown() {
		return "(unknown)"
	}
	if v.IsNull() {
		return "null"
	}
	return string(hclwrite.TokensForValue(v).Bytes())
}

// WriteTable writes the entries of src as an aligned text table.
func WriteTable(w io.Writer, src Source) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CALL\tVALUE\tSOURCE")
	for _, r := range Rows(src) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Call, FormatValue(r.Value), r.Provenance)
	}
	return tw.Flush()
}
