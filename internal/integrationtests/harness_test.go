package integrationtests

import (
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/app"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/hcl"
	"github.com/specialistvlad/cellgrid/internal/model"
	"github.com/specialistvlad/cellgrid/internal/registry"
	"github.com/specialistvlad/cellgrid/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// loaded is a system built from HCL files the way the application builds it.
type loaded struct {
	ctx  context.Context
	sys  *model.System
	logs *testutil.SafeBuffer
}

// load writes files to a temp dir, loads them and restores every model.
func load(t *testing.T, files map[string]string) *loaded {
	t.Helper()

	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() { testutil.DumpLogs(t, logs) })
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reg := registry.NewWith(app.CoreModules(logger)...)
	dir := testutil.WriteFiles(t, files)
	doc, err := hcl.NewLoader(reg.EvalContext()).Load(ctx, dir)
	require.NoError(t, err)

	sys := model.NewSystem(model.Config{MaxDepth: doc.Settings.MaxDepth, Registry: reg})
	for _, def := range doc.Models {
		_, err := sys.Restore(ctx, def)
		require.NoError(t, err)
	}
	return &loaded{ctx: ctx, sys: sys, logs: logs}
}

func (l *loaded) cells(t *testing.T, fullname string) *model.Cells {
	t.Helper()
	obj, err := l.sys.Object(fullname)
	require.NoError(t, err)
	c, ok := obj.(*model.Cells)
	require.True(t, ok, "%s is not a cells object", fullname)
	return c
}

func (l *loaded) space(t *testing.T, fullname string) *model.Space {
	t.Helper()
	obj, err := l.sys.Object(fullname)
	require.NoError(t, err)
	s, ok := obj.(*model.Space)
	require.True(t, ok, "%s is not a space", fullname)
	return s
}

func (l *loaded) eval(t *testing.T, space *model.Space, src string) cty.Value {
	t.Helper()
	v, err := space.Eval(l.ctx, src)
	require.NoError(t, err, src)
	return v
}

func num(n int64) cty.Value { return cty.NumberIntVal(n) }

func assertNum(t *testing.T, want int64, got cty.Value) {
	t.Helper()
	require.True(t, got.RawEquals(num(want)), "want %d, got %#v", want, got)
}
