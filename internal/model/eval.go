// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"context"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/formula"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
)

// run evaluates f with the bound args in the namespace of s. node names the
// evaluation in errors.
//
// Names are resolved when the evaluation reaches them, and each name and
// reference consulted is recorded as a read of the node under evaluation.
// Errors of nested cells reach here wrapped in HCL call diagnostics and are
// returned unchanged.
func run(ctx context.Context, s *Space, f *formula.Formula, args []cty.Value, node string) (cty.Value, error) {
	eng := s.model.system.engine
	scope := s.Namespace().Scope(ctx, eng.Record)

	val, diags := f.EvaluateWith(scope.Context(), scope, args)
	if diags.HasErrors() {
		if ce, ok := hclutil.FindCallError[*calcerr.Error](diags); ok {
			if ce.Node == "" {
				ce.Node = node
			}
			return cty.NilVal, ce
		}
		return cty.NilVal, calcerr.Formula(node, hclutil.DiagsError(diags))
	}
	return val, nil
}
