package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-space", "S.Sub", "-output", "YAML", "-show", "fibo", "-show", "premium",
		"-max-depth", "50", "-log-level", "DEBUG",
		"models/", "fibo(10)", "k * 2",
	}, &out)
	require.NoError(t, err)
	assert.False(t, exit)

	assert.Equal(t, &app.Config{
		ModelPath: "models/",
		Exprs:     []string{"fibo(10)", "k * 2"},
		Space:     "S.Sub",
		Show:      []string{"fibo", "premium"},
		Output:    app.OutputYAML,
		MaxDepth:  50,
		LogFormat: "text",
		LogLevel:  "debug",
	}, cfg)
}

func TestParse_ModelFlag(t *testing.T) {
	cfg, _, err := Parse([]string{"-m", "demo.hcl", "fibo(3)"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "demo.hcl", cfg.ModelPath)
	assert.Equal(t, []string{"fibo(3)"}, cfg.Exprs, "positional args are all expressions")
}

func TestParse_Usage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "cellgrid [options] MODEL_PATH [EXPR ...]")

	out.Reset()
	_, exit, err = Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"-nope", "m"}, wantMsg: "flag provided but not defined"},
		{name: "log format", args: []string{"-log-format", "xml", "m"}, wantMsg: "invalid log-format"},
		{name: "log level", args: []string{"-log-level", "trace", "m"}, wantMsg: "invalid log-level"},
		{name: "output", args: []string{"-output", "csv", "m"}, wantMsg: "invalid output format"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
