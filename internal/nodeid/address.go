// internal/nodeid/address.go
package nodeid

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// ArgsKey renders an argument tuple into its canonical key. Arguments must be
// known values; marks are removed before rendering.
func ArgsKey(args []cty.Value) string {
	if len(args) == 0 {
		return "[]"
	}
	vals := make([]cty.Value, len(args))
	for i, arg := range args {
		vals[i], _ = arg.UnmarkDeep()
	}
	return string(hclwrite.TokensForValue(cty.TupleVal(vals)).Bytes())
}

// CallSuffix turns an args key into the argument list shown after a cells
// name, e.g. "[1, 2]" becomes "(1, 2)".
func CallSuffix(argsKey string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(argsKey, "["), "]")
	return "(" + inner + ")"
}

// String renders the ID without resolving owner names. Callers that know the
// owning objects should prefer their own display names.
func (id ID) String() string {
	switch id.Kind {
	case KindCells:
		return fmt.Sprintf("cells#%d%s", id.Owner, CallSuffix(id.Key))
	case KindRef:
		return fmt.Sprintf("ref#%d", id.Owner)
	case KindName:
		return fmt.Sprintf("space#%d:%s", id.Owner, id.Key)
	default:
		return ""
	}
}
