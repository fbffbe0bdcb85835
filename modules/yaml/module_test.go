package yaml

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestModule(t *testing.T) {
	r := registry.NewWith(&Module{})
	assert.Equal(t, []string{"yamldecode", "yamlencode"}, r.Names())

	expr, diags := hclsyntax.ParseExpression([]byte(`yamldecode(yamlencode({a = 1})).a`), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())

	val, diags := expr.Value(r.EvalContext())
	require.False(t, diags.HasErrors(), diags.Error())
	assert.True(t, val.RawEquals(cty.NumberIntVal(1)))
}
