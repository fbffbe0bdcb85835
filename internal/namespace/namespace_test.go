package namespace

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/formula"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// constCells is a cells stand-in whose function returns its first argument
// plus a constant.
type constCells struct{ add int64 }

func (c constCells) Function(context.Context) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "x", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return args[0].Add(cty.NumberIntVal(c.add)), nil
		},
	})
}

func builtins() *hcl.EvalContext {
	return &hcl.EvalContext{Functions: map[string]function.Function{
		"double": function.New(&function.Spec{
			Params: []function.Parameter{{Name: "x", Type: cty.Number}},
			Type:   function.StaticReturnType(cty.Number),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				return args[0].Multiply(cty.NumberIntVal(2)), nil
			},
		}),
	}}
}

// fixture builds:
//
//	S (id 1): f (cells, id 10), k = 10 (ref, id 11), Sub (space, id 2)
//	Sub (id 2): x = 1 (ref, id 20), g (cells, id 21), Inner (space, id 3)
//	Inner (id 3): y = 5 (ref, id 30)
//	globals: rate = 0.5 (id 90), k = 99 (id 91, shadowed in S)
func fixture(t *testing.T) *Table {
	t.Helper()
	root := builtins()

	inner := NewTable(3, "M.S.Sub.Inner", root)
	require.NoError(t, inner.Add(&Member{Name: "y", Kind: KindRef, ID: 30, Value: cty.NumberIntVal(5)}))

	sub := NewTable(2, "M.S.Sub", root)
	require.NoError(t, sub.Add(&Member{Name: "x", Kind: KindRef, ID: 20, Value: cty.NumberIntVal(1)}))
	require.NoError(t, sub.Add(&Member{Name: "g", Kind: KindCells, ID: 21, Cells: constCells{add: 100}}))
	require.NoError(t, sub.Add(&Member{Name: "Inner", Kind: KindSpace, ID: 3, Space: func() *Table { return inner }}))

	s := NewTable(1, "M.S", root)
	require.NoError(t, s.Add(&Member{Name: "f", Kind: KindCells, ID: 10, Cells: constCells{add: 1}}))
	require.NoError(t, s.Add(&Member{Name: "k", Kind: KindRef, ID: 11, Value: cty.NumberIntVal(10)}))
	require.NoError(t, s.Add(&Member{Name: "Sub", Kind: KindSpace, ID: 2, Space: func() *Table { return sub }}))
	require.NoError(t, s.AddGlobal(&Member{Name: "rate", ID: 90, Value: cty.NumberFloatVal(0.5)}))
	require.NoError(t, s.AddGlobal(&Member{Name: "k", ID: 91, Value: cty.NumberIntVal(99)}))
	return s
}

func eval(t *testing.T, tbl *Table, src string) (cty.Value, []nodeid.ID, error) {
	t.Helper()
	f, err := formula.Parse(nil, src)
	require.NoError(t, err)

	var reads []nodeid.ID
	sc := tbl.Scope(context.Background(), func(id nodeid.ID) { reads = append(reads, id) })
	val, diags := f.EvaluateWith(sc.Context(), sc, nil)
	if ce, ok := hclutil.FindCallError[*calcerr.Error](diags); ok {
		return cty.NilVal, reads, ce
	}
	require.False(t, diags.HasErrors(), diags.Error())
	return val, reads, nil
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"a", "Abc", "a_1", "Cells1"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "_a", "1a", "a-b", "a b", "self", "null", "true"} {
		err := ValidateName(bad)
		assert.ErrorIs(t, err, calcerr.ErrStructural, bad)
	}
}

func TestAdd_Conflicts(t *testing.T) {
	tbl := NewTable(1, "M.S", nil)
	require.NoError(t, tbl.Add(&Member{Name: "a", Kind: KindRef}))

	err := tbl.Add(&Member{Name: "a", Kind: KindCells})
	assert.ErrorIs(t, err, calcerr.ErrNameConflict)

	// A global may share a member's name; the member wins.
	require.NoError(t, tbl.AddGlobal(&Member{Name: "a", Value: cty.True}))
	assert.ErrorIs(t, tbl.AddGlobal(&Member{Name: "a"}), calcerr.ErrNameConflict)

	assert.ErrorIs(t, tbl.Add(&Member{Name: "self"}), calcerr.ErrStructural)
}

func TestLookup_Precedence(t *testing.T) {
	tbl := fixture(t)

	m, ok := tbl.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, KindRef, m.Kind, "local reference shadows global")

	m, ok = tbl.Lookup("rate")
	require.True(t, ok)
	assert.Equal(t, KindGlobal, m.Kind)

	m, ok = tbl.Lookup("self")
	require.True(t, ok)
	assert.Equal(t, KindSelf, m.Kind)
	assert.Same(t, tbl, m.Space())

	m, ok = tbl.Lookup("double")
	require.True(t, ok)
	assert.Equal(t, KindBuiltin, m.Kind)

	_, ok = tbl.Lookup("nothing")
	assert.False(t, ok)

	assert.Equal(t, []string{"f", "k", "Sub", "rate", "self"}, tbl.Names())
}

func TestScope(t *testing.T) {
	tbl := fixture(t)

	testCases := []struct {
		name      string
		src       string
		want      cty.Value
		wantReads []nodeid.ID
	}{
		{
			name:      "local reference",
			src:       "k * 2",
			want:      cty.NumberIntVal(20),
			wantReads: []nodeid.ID{nodeid.Name(1, "k"), nodeid.Ref(11)},
		},
		{
			name:      "global",
			src:       "rate * 4",
			want:      cty.NumberIntVal(2),
			wantReads: []nodeid.ID{nodeid.Name(1, "rate"), nodeid.Ref(90)},
		},
		{
			name: "child space traversal",
			src:  "Sub.x + Sub.Inner.y",
			want: cty.NumberIntVal(6),
			wantReads: []nodeid.ID{
				nodeid.Name(1, "Sub"),
				nodeid.Name(2, "x"), nodeid.Ref(20),
				nodeid.Name(2, "Inner"),
				nodeid.Name(3, "y"), nodeid.Ref(30),
			},
		},
		{
			name:      "own cells",
			src:       "f(1)",
			want:      cty.NumberIntVal(2),
			wantReads: []nodeid.ID{nodeid.Name(1, "f")},
		},
		{
			name:      "child cells",
			src:       "Sub::g(1)",
			want:      cty.NumberIntVal(101),
			wantReads: []nodeid.ID{nodeid.Name(1, "Sub"), nodeid.Name(2, "g")},
		},
		{
			name:      "self",
			src:       "self.k + self::f(0)",
			want:      cty.NumberIntVal(11),
			wantReads: []nodeid.ID{nodeid.Name(1, "k"), nodeid.Ref(11), nodeid.Name(1, "f")},
		},
		{
			name:      "builtin",
			src:       "double(3)",
			want:      cty.NumberIntVal(6),
			wantReads: []nodeid.ID{nodeid.Name(1, "double")},
		},
		{
			name:      "only the taken branch is read",
			src:       "rate > 1 ? k : Sub.x",
			want:      cty.NumberIntVal(1),
			wantReads: []nodeid.ID{nodeid.Name(1, "rate"), nodeid.Ref(90), nodeid.Name(1, "Sub"), nodeid.Name(2, "x"), nodeid.Ref(20)},
		},
		{
			name:      "undefined name in untaken branch",
			src:       "true ? k : missing",
			want:      cty.NumberIntVal(10),
			wantReads: []nodeid.ID{nodeid.Name(1, "k"), nodeid.Ref(11)},
		},
		{
			name:      "repeated reads are recorded once",
			src:       "[for i in [1, 2] : k * i]",
			want:      cty.TupleVal([]cty.Value{cty.NumberIntVal(10), cty.NumberIntVal(20)}),
			wantReads: []nodeid.ID{nodeid.Name(1, "k"), nodeid.Ref(11)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, reads, err := eval(t, tbl, tc.src)
			require.NoError(t, err)
			assert.True(t, tc.want.RawEquals(got), "got %#v", got)
			assert.Equal(t, tc.wantReads, reads)
		})
	}
}

func TestScope_Errors(t *testing.T) {
	tbl := fixture(t)

	testCases := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{name: "unknown variable", src: "missing + 1", wantMsg: `"missing" is not defined in M.S`},
		{name: "unknown function", src: "nope(1)", wantMsg: `"nope" is not defined`},
		{name: "cells used as value", src: "f + 1", wantMsg: "must be called"},
		{name: "space used as value", src: "Sub + 1", wantMsg: "cannot be used as a value"},
		{name: "unknown child member", src: "Sub.zzz", wantMsg: `"zzz" is not defined in M.S.Sub`},
		{name: "global not visible through child", src: "Sub.rate", wantMsg: `"rate" is not defined in M.S.Sub`},
		{name: "child cells as value", src: "Sub.g", wantMsg: "Sub::g(...)"},
		{name: "reference called", src: "k(1)", wantMsg: "is not callable"},
		{name: "namespace is not a space", src: "k::f(1)", wantMsg: "is not a space"},
		{name: "unknown namespaced function", src: "Sub::nope(1)", wantMsg: `"nope" is not defined in M.S.Sub`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := eval(t, tbl, tc.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, calcerr.ErrInvalidReference)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestScope_ContextDoesNotLeak(t *testing.T) {
	root := builtins()
	tbl := NewTable(1, "M.S", root)
	require.NoError(t, tbl.Add(&Member{Name: "double", Kind: KindCells, ID: 5, Cells: constCells{add: 7}}))

	f, err := formula.Parse(nil, "double(1)")
	require.NoError(t, err)
	sc := tbl.Scope(context.Background(), nil)
	val, diags := f.EvaluateWith(sc.Context(), sc, nil)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.True(t, val.RawEquals(cty.NumberIntVal(8)), "cells shadows builtin")
	assert.Same(t, root, sc.Context())

	val, diags = f.Evaluate(root, nil)
	require.False(t, diags.HasErrors())
	assert.True(t, val.RawEquals(cty.NumberIntVal(2)), "root context untouched")
}
