package model

import (
	"testing"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestSpace_ReferenceScenario(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.space.SetRef(f.ctx, "k", num(10))
	require.NoError(t, err)
	double := f.cells(t, "double", "k * 2")

	assertValue(t, num(20), get(t, f.ctx, double))

	require.NoError(t, f.space.Set(f.ctx, "k", num(5)))
	assert.False(t, double.Has())
	assertValue(t, num(10), get(t, f.ctx, double))

	ref, ok := f.space.Ref("k")
	require.True(t, ok)
	assertValue(t, num(5), ref.Value())
	assert.False(t, ref.IsGlobal())
	assert.Equal(t, "M.S.k", ref.FullName())
}

func TestSpace_ShadowingGlobal(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.model.SetGlobal(f.ctx, "rate", num(1))
	require.NoError(t, err)
	g := f.cells(t, "g", "rate * 2")
	other := f.cells(t, "other", "3")

	assertValue(t, num(2), get(t, f.ctx, g))
	get(t, f.ctx, other)

	// A local reference takes precedence over the global.
	_, err = f.space.SetRef(f.ctx, "rate", num(10))
	require.NoError(t, err)
	assert.False(t, g.Has())
	assert.True(t, other.Has())
	assertValue(t, num(20), get(t, f.ctx, g))

	// Changing the shadowed global does not touch g.
	_, err = f.model.SetGlobal(f.ctx, "rate", num(7))
	require.NoError(t, err)
	assert.True(t, g.Has())

	require.NoError(t, f.space.Delete(f.ctx, "rate"))
	assert.False(t, g.Has())
	assertValue(t, num(14), get(t, f.ctx, g))
}

func TestSpace_ShadowingBuiltin(t *testing.T) {
	f := newFixture(t, Config{})
	caller := f.cells(t, "caller", "max(1, 5)")
	assertValue(t, num(5), get(t, f.ctx, caller))

	f.cells(t, "max", "a - b", "a", "b")
	assert.False(t, caller.Has(), "new member shadows the built-in")
	assertValue(t, num(-4), get(t, f.ctx, caller))
}

func TestSpace_ChildSpaces(t *testing.T) {
	f := newFixture(t, Config{})
	sub, err := f.space.NewSpace(f.ctx, "Sub")
	require.NoError(t, err)
	inner, err := sub.NewSpace(f.ctx, "Inner")
	require.NoError(t, err)
	_, err = sub.SetRef(f.ctx, "x", num(1))
	require.NoError(t, err)
	_, err = inner.SetRef(f.ctx, "y", num(5))
	require.NoError(t, err)
	f.cellsIn(t, sub, "g", "n * 10", "n")
	_, err = f.space.SetRef(f.ctx, "k", num(100))
	require.NoError(t, err)
	f.cells(t, "f", "n + 1", "n")

	testCases := []struct {
		src  string
		want cty.Value
	}{
		{src: "Sub.x + Sub.Inner.y", want: num(6)},
		{src: "Sub::g(2)", want: num(20)},
		{src: "self.k + self::f(1)", want: num(102)},
		{src: "Sub.x > 0 ? k : -k", want: num(100)},
		// Names in a branch that is not taken are never resolved.
		{src: "true ? 1 : Sub.nope", want: num(1)},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			v, err := f.space.Eval(f.ctx, tc.src)
			require.NoError(t, err)
			assertValue(t, tc.want, v)
		})
	}

	errorCases := []struct {
		src  string
		kind error
	}{
		{src: "Sub", kind: calcerr.ErrInvalidReference},
		{src: "Sub.g", kind: calcerr.ErrInvalidReference},
		{src: "f", kind: calcerr.ErrInvalidReference},
		{src: "k()", kind: calcerr.ErrInvalidReference},
		{src: "Sub.nope", kind: calcerr.ErrInvalidReference},
		{src: "Sub::nope(1)", kind: calcerr.ErrInvalidReference},
		{src: "Sub.k", kind: calcerr.ErrInvalidReference},
		{src: "false ? 1 : Sub.nope", kind: calcerr.ErrInvalidReference},
		{src: "1 +", kind: calcerr.ErrFormula},
		{src: "Sub::Inner::y", kind: calcerr.ErrFormula},
		{src: `upper(1, 2)`, kind: calcerr.ErrFormula},
	}
	for _, tc := range errorCases {
		t.Run("error/"+tc.src, func(t *testing.T) {
			_, err := f.space.Eval(f.ctx, tc.src)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestSpace_ChildSpaceInvalidation(t *testing.T) {
	f := newFixture(t, Config{})
	sub, err := f.space.NewSpace(f.ctx, "Sub")
	require.NoError(t, err)
	_, err = sub.SetRef(f.ctx, "x", num(1))
	require.NoError(t, err)
	g := f.cellsIn(t, sub, "g", "x * 3")
	top := f.cells(t, "top", "Sub.x + Sub::g()")

	assertValue(t, num(4), get(t, f.ctx, top))

	_, err = sub.SetRef(f.ctx, "x", num(2))
	require.NoError(t, err)
	assert.False(t, g.Has())
	assert.False(t, top.Has())
	assertValue(t, num(8), get(t, f.ctx, top))

	nodes := f.sys.Stats().Nodes
	require.NoError(t, f.space.Delete(f.ctx, "Sub"))
	assert.False(t, top.Has())
	assert.Zero(t, g.Len())
	assert.Less(t, f.sys.Stats().Nodes, nodes)
	assert.False(t, f.sys.Engine().Graph().Has(nodeid.Ref(mustRef(t, sub, "x").ID())))

	_, err = top.Get(f.ctx)
	assert.ErrorIs(t, err, calcerr.ErrInvalidReference)
}

func mustRef(t *testing.T, s *Space, name string) *Reference {
	t.Helper()
	r, ok := s.Ref(name)
	require.True(t, ok)
	return r
}

func TestSpace_Rename(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.space.SetRef(f.ctx, "k", num(3))
	require.NoError(t, err)
	h := f.cells(t, "h", "k")
	fibo := f.cells(t, "fibo", "n < 2 ? n : fibo(n - 1) + fibo(n - 2)", "n")
	caller := f.cells(t, "caller", "fibo(5)")

	assertValue(t, num(3), get(t, f.ctx, h))
	assertValue(t, num(5), get(t, f.ctx, caller))

	require.NoError(t, f.space.Rename(f.ctx, "k", "kk"))
	assert.False(t, h.Has())
	_, err = h.Get(f.ctx)
	assert.ErrorIs(t, err, calcerr.ErrInvalidReference)
	assert.True(t, caller.Has())

	require.NoError(t, f.space.Rename(f.ctx, "kk", "k"))
	assertValue(t, num(3), get(t, f.ctx, h))

	// Renaming cells clears their callers; the cells keep their identity.
	id := fibo.ID()
	require.NoError(t, f.space.Rename(f.ctx, "fibo", "fib"))
	assert.Equal(t, id, fibo.ID())
	assert.Equal(t, "M.S.fib", fibo.FullName())
	assert.False(t, caller.Has())
	assert.False(t, fibo.Has(num(5)), "fibo reads its own name")
	_, err = caller.Get(f.ctx)
	assert.ErrorIs(t, err, calcerr.ErrInvalidReference)

	assert.ErrorIs(t, f.space.Rename(f.ctx, "fib", "h"), calcerr.ErrNameConflict)
	assert.ErrorIs(t, f.space.Rename(f.ctx, "nope", "x"), calcerr.ErrInvalidReference)
	assert.ErrorIs(t, f.space.Rename(f.ctx, "fib", "self"), calcerr.ErrStructural)
}

func TestSpace_DeleteCells(t *testing.T) {
	f := newFixture(t, Config{})
	g := f.cells(t, "g", "2")
	user := f.cells(t, "user", "g() + 1")

	assertValue(t, num(3), get(t, f.ctx, user))
	require.NoError(t, f.space.Delete(f.ctx, "g"))
	assert.False(t, user.Has())
	assert.Zero(t, g.Len())
	_, ok := f.space.Cells("g")
	assert.False(t, ok)

	_, err := user.Get(f.ctx)
	assert.ErrorIs(t, err, calcerr.ErrInvalidReference)
	assert.ErrorIs(t, f.space.Delete(f.ctx, "g"), calcerr.ErrInvalidReference)
}

func TestSpace_Set(t *testing.T) {
	f := newFixture(t, Config{})
	price := f.cells(t, "price", "1")
	f.cells(t, "sq", "n * n", "n")
	_, err := f.space.NewSpace(f.ctx, "Sub")
	require.NoError(t, err)

	require.NoError(t, f.space.Set(f.ctx, "price", num(9)))
	require.Len(t, price.Inputs(), 1)
	assertValue(t, num(9), get(t, f.ctx, price))

	require.NoError(t, f.space.Set(f.ctx, "fresh", cty.StringVal("v")))
	_, ok := f.space.Ref("fresh")
	assert.True(t, ok)

	assert.ErrorIs(t, f.space.Set(f.ctx, "sq", num(1)), calcerr.ErrStructural)
	assert.ErrorIs(t, f.space.Set(f.ctx, "Sub", num(1)), calcerr.ErrStructural)
}

func TestSpace_Members(t *testing.T) {
	f := newFixture(t, Config{})
	c1, err := f.space.NewCells(f.ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cells1", c1.Name())
	assertValue(t, cty.NullVal(cty.DynamicPseudoType), get(t, f.ctx, c1))

	sp, err := f.space.NewSpace(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Space1", sp.Name())
	assert.Same(t, f.space, sp.Parent())
	assert.Same(t, f.model, sp.Model())
	ref, err := f.space.SetRef(f.ctx, "r", num(1))
	require.NoError(t, err)

	assert.Equal(t, []Object{c1, sp, ref}, f.space.Members())
	assert.Equal(t, []*Cells{c1}, f.space.AllCells())
	assert.Equal(t, []*Space{sp}, f.space.Spaces())
	assert.Equal(t, []*Reference{ref}, f.space.Refs())

	_, err = f.space.NewCells(f.ctx, "r", nil)
	assert.ErrorIs(t, err, calcerr.ErrNameConflict)
	_, err = f.space.SetRef(f.ctx, "Cells1", num(1))
	assert.ErrorIs(t, err, calcerr.ErrNameConflict)
	_, err = f.space.NewSpace(f.ctx, "1bad")
	assert.ErrorIs(t, err, calcerr.ErrStructural)

	assert.Equal(t, []string{"Cells1", "Space1", "r", "self"}, f.space.Namespace().Names())
}
