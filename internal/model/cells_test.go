package model

import (
	"errors"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/cellstore"
	"github.com/specialistvlad/cellgrid/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// storedValues returns the entries of c keyed by their normalized args.
func storedValues(c *Cells) map[string]cty.Value {
	out := make(map[string]cty.Value)
	for _, e := range c.Entries() {
		out[e.Key] = e.Value
	}
	return out
}

func TestCells_Fibonacci(t *testing.T) {
	f := newFixture(t, Config{})
	fibo := f.cells(t, "fibo", "n < 2 ? n : fibo(n - 1) + fibo(n - 2)", "n")

	v, err := fibo.Call(f.ctx, 5)
	require.NoError(t, err)
	assertValue(t, num(5), v)

	want := map[string]cty.Value{
		"[0]": num(0), "[1]": num(1), "[2]": num(1),
		"[3]": num(2), "[4]": num(3), "[5]": num(5),
	}
	got := storedValues(fibo)
	require.Len(t, got, len(want))
	for k, w := range want {
		assertValue(t, w, got[k])
	}

	require.NoError(t, fibo.SetInput(f.ctx, nums(5), num(0)))
	assertValue(t, num(0), get(t, f.ctx, fibo, 5))
	require.Len(t, fibo.Inputs(), 1)
	assert.Equal(t, cellstore.Input, fibo.Inputs()[0].Provenance)

	require.NoError(t, fibo.Clear(f.ctx, num(5)))
	assert.False(t, fibo.Has(num(5)))
	assertValue(t, num(5), get(t, f.ctx, fibo, 5))
	assert.Empty(t, fibo.Inputs())
}

func TestCells_Memoization(t *testing.T) {
	f := newFixture(t, Config{})
	fibo := f.cells(t, "fibo", "n < 2 ? n : fibo(n - 1) + fibo(n - 2)", "n")

	assertValue(t, num(55), get(t, f.ctx, fibo, 10))
	evaluations := f.sys.Stats().Evaluations
	assert.Equal(t, 11, evaluations, "each argument is computed once")

	assertValue(t, num(55), get(t, f.ctx, fibo, 10))
	assert.Equal(t, evaluations, f.sys.Stats().Evaluations)

	// Setting an input in the middle recomputes only what depends on it.
	require.NoError(t, fibo.SetInput(f.ctx, nums(8), num(0)))
	for _, n := range []int64{0, 1, 2, 3, 4, 5, 6, 7} {
		assert.True(t, fibo.Has(num(n)), "fibo(%d) does not read fibo(8)", n)
	}
	for _, n := range []int64{9, 10} {
		assert.False(t, fibo.Has(num(n)), "fibo(%d) reads fibo(8)", n)
	}
	// fibo(9) = fibo(8) + fibo(7) = 0 + 13; fibo(10) = 13 + 0
	assertValue(t, num(13), get(t, f.ctx, fibo, 10))
}

func TestCells_UntakenBranchIsNotRead(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.space.SetRef(f.ctx, "k", num(10))
	require.NoError(t, err)
	g := f.cells(t, "g", "n < 1 ? 0 : k * n", "n")

	assertValue(t, num(0), get(t, f.ctx, g, 0))
	assertValue(t, num(20), get(t, f.ctx, g, 2))

	_, err = f.space.SetRef(f.ctx, "k", num(20))
	require.NoError(t, err)
	assert.True(t, g.Has(num(0)), "g(0) never read k")
	assert.False(t, g.Has(num(2)))
	assertValue(t, num(40), get(t, f.ctx, g, 2))

	// A name that only appears in the untaken branch need not exist, and
	// defining it later leaves the value alone.
	h := f.cells(t, "h", "true ? 1 : later")
	assertValue(t, num(1), get(t, f.ctx, h))
	_, err = f.space.SetRef(f.ctx, "later", num(5))
	require.NoError(t, err)
	assert.True(t, h.Has())
}

func TestCells_ForBodyIsLazy(t *testing.T) {
	f := newFixture(t, Config{})
	fact := f.cells(t, "fact", "n == 0 ? 1 : n * fact(n - 1)", "n")
	h := f.cells(t, "h", "[for i in range(2) : i == 0 ? 1 : fact(i - 1)]")

	assertValue(t, cty.TupleVal([]cty.Value{num(1), num(1)}), get(t, f.ctx, h))
	assert.Equal(t, 1, fact.Len(), "only fact(0) is computed")
	assert.False(t, fact.Has(num(-1)))
	assert.Less(t, f.sys.Stats().Nodes, 10)

	// The splat body is evaluated per element as well.
	_, err := f.space.SetRef(f.ctx, "rows", cty.TupleVal([]cty.Value{
		cty.ObjectVal(map[string]cty.Value{"n": num(3)}),
		cty.ObjectVal(map[string]cty.Value{"n": num(4)}),
	}))
	require.NoError(t, err)
	s := f.cells(t, "s", "[for n in rows[*].n : fact(n)]")
	assertValue(t, cty.TupleVal([]cty.Value{num(6), num(24)}), get(t, f.ctx, s))
}

func TestCells_PreciseCascade(t *testing.T) {
	f := newFixture(t, Config{})
	a := f.cells(t, "a", "1")
	b := f.cells(t, "b", "a() + 1")
	c := f.cells(t, "c", "b() * 10")
	d := f.cells(t, "d", "7")

	assertValue(t, num(20), get(t, f.ctx, c))
	assertValue(t, num(7), get(t, f.ctx, d))

	require.NoError(t, a.SetInput(f.ctx, nil, num(4)))
	assert.False(t, b.Has())
	assert.False(t, c.Has())
	assert.True(t, d.Has(), "unrelated cells keep their value")
	assertValue(t, num(50), get(t, f.ctx, c))

	// Clearing an unset value is a no-op.
	require.NoError(t, b.Clear(f.ctx))
	require.NoError(t, b.Clear(f.ctx))
	assert.False(t, c.Has())
	assert.True(t, a.Has(), "clearing a dependent keeps the dependency")

	a.ClearAll(f.ctx)
	assert.Zero(t, a.Len())
	assertValue(t, num(20), get(t, f.ctx, c))
}

func TestCells_CircularReference(t *testing.T) {
	f := newFixture(t, Config{})
	x := f.cells(t, "x", "x(n) + 1", "n")

	_, err := x.Get(f.ctx, num(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, calcerr.ErrCircularReference)

	var ce *calcerr.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"M.S.x(1)", "M.S.x(1)"}, ce.Chain)
	assert.Zero(t, x.Len())

	p := f.cells(t, "p", "q() + 1")
	q := f.cells(t, "q", "p() + 1")
	_, err = p.Get(f.ctx)
	require.ErrorIs(t, err, calcerr.ErrCircularReference)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"M.S.p()", "M.S.q()", "M.S.p()"}, ce.Chain)
	assert.Zero(t, p.Len())
	assert.Zero(t, q.Len())
}

func TestCells_DeepReference(t *testing.T) {
	f := newFixture(t, Config{MaxDepth: 20})
	down := f.cells(t, "down", "n == 0 ? 0 : down(n - 1)", "n")

	assertValue(t, num(0), get(t, f.ctx, down, 10))

	_, err := down.Get(f.ctx, num(100))
	require.ErrorIs(t, err, calcerr.ErrDeepReference)
	var ce *calcerr.Error
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Chain, 21)
	assert.Equal(t, "M.S.down(100)", ce.Chain[0])
	assert.False(t, down.Has(num(100)))
	assert.Zero(t, f.sys.Engine().Depth())
}

func TestCells_FormulaErrors(t *testing.T) {
	f := newFixture(t, Config{})
	bad := f.cells(t, "bad", `n + "a"`, "n")
	outer := f.cells(t, "outer", "bad(1) * 2")

	_, err := bad.Get(f.ctx, num(1))
	require.ErrorIs(t, err, calcerr.ErrFormula)
	var ce *calcerr.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "M.S.bad(1)", ce.Node)
	assert.False(t, bad.Has(num(1)))

	// Errors of nested cells reach the caller unchanged.
	_, err = outer.Get(f.ctx)
	require.ErrorIs(t, err, calcerr.ErrFormula)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "M.S.bad(1)", ce.Node)
	assert.Zero(t, outer.Len())

	_, err = bad.Get(f.ctx)
	assert.ErrorIs(t, err, calcerr.ErrFormula, "missing argument")
	_, err = outer.Get(f.ctx, num(1))
	assert.ErrorIs(t, err, calcerr.ErrFormula, "too many arguments")

	// Fixing the formula makes the readers computable again.
	require.NoError(t, bad.SetFormula(f.ctx, formula.MustParse([]formula.Param{formula.Required("n")}, "n + 1")))
	assertValue(t, num(4), get(t, f.ctx, outer))
}

func TestCells_DefaultsShareKeys(t *testing.T) {
	f := newFixture(t, Config{})
	premium := f.cells(t, "premium", "100 * rate * t", "t", "rate=2")

	assertValue(t, num(200), get(t, f.ctx, premium, 1))

	v, err := premium.GetNamed(f.ctx, nums(1), map[string]cty.Value{"rate": num(2)})
	require.NoError(t, err)
	assertValue(t, num(200), v)

	v, err = premium.GetNamed(f.ctx, nil, map[string]cty.Value{"t": num(1), "rate": num(2)})
	require.NoError(t, err)
	assertValue(t, num(200), v)
	assert.Equal(t, 1, premium.Len(), "all spellings bind to the same tuple")
	assert.Equal(t, "[1, 2]", premium.Entries()[0].Key)

	v, err = premium.GetNamed(f.ctx, nums(1), map[string]cty.Value{"rate": num(3)})
	require.NoError(t, err)
	assertValue(t, num(300), v)
	assert.Equal(t, 2, premium.Len())

	// Formulas may call with or without the defaulted argument.
	caller := f.cells(t, "caller", "premium(1) + premium(1, 3)")
	assertValue(t, num(500), get(t, f.ctx, caller))
	assert.Equal(t, 2, premium.Len())

	_, err = premium.GetNamed(f.ctx, nums(1), map[string]cty.Value{"t": num(1)})
	assert.ErrorIs(t, err, calcerr.ErrFormula)
	_, err = premium.GetNamed(f.ctx, nums(1), map[string]cty.Value{"nope": num(1)})
	assert.ErrorIs(t, err, calcerr.ErrFormula)
}

func TestCells_Call(t *testing.T) {
	f := newFixture(t, Config{})
	greet := f.cells(t, "greet", `"${greeting}, ${name}"`, "greeting", "name")

	v, err := greet.Call(f.ctx, "Hello", cty.StringVal("World"))
	require.NoError(t, err)
	assertValue(t, cty.StringVal("Hello, World"), v)

	_, err = greet.Call(f.ctx, "Hello", make(chan int))
	assert.Error(t, err)
}

func TestCells_SetFormulaClearsInputs(t *testing.T) {
	f := newFixture(t, Config{})
	base := f.cells(t, "base", "n", "n")
	reader := f.cells(t, "reader", "base(2) + 1")

	require.NoError(t, base.SetInput(f.ctx, nums(2), num(10)))
	assertValue(t, num(11), get(t, f.ctx, reader))

	require.NoError(t, base.SetFormula(f.ctx, formula.MustParse([]formula.Param{formula.Required("n")}, "n * 100")))
	assert.Zero(t, base.Len())
	assert.False(t, reader.Has())
	assertValue(t, num(201), get(t, f.ctx, reader))

	assert.ErrorIs(t, base.SetFormula(f.ctx, nil), calcerr.ErrStructural)
}

func TestCells_Value(t *testing.T) {
	f := newFixture(t, Config{})
	sq := f.cells(t, "sq", "n * n", "n")

	_, ok := sq.Value(num(3))
	assert.False(t, ok, "Value never evaluates")

	get(t, f.ctx, sq, 3)
	v, ok := sq.Value(num(3))
	require.True(t, ok)
	assertValue(t, num(9), v)

	_, ok = sq.Value()
	assert.False(t, ok, "unbindable arguments")
	assert.Equal(t, "M.S.sq(3)", sq.DisplayName("[3]"))
}
