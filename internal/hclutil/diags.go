package hclutil

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// ErrorDiagExtra is the Extra of a diagnostic built from a Go error, so the
// error can be recovered by CallErrors.
type ErrorDiagExtra struct {
	Err error
}

// ErrorDiag returns an error diagnostic carrying err.
func ErrorDiag(summary string, err error, expr hcl.Expression, ctx *hcl.EvalContext) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity:    hcl.DiagError,
		Summary:     summary,
		Detail:      err.Error() + ".",
		Subject:     expr.Range().Ptr(),
		Expression:  expr,
		EvalContext: ctx,
		Extra:       &ErrorDiagExtra{Err: err},
	}
}

// CallErrors returns the errors raised by function implementations or
// attached with ErrorDiag that the diagnostics report on, in diagnostic
// order. Diagnostics produced by HCL itself (argument count, conversion)
// carry no error and are skipped.
func CallErrors(diags hcl.Diagnostics) []error {
	var errs []error
	for _, diag := range diags {
		if extra, ok := hcl.DiagnosticExtra[*ErrorDiagExtra](diag); ok && extra.Err != nil {
			errs = append(errs, extra.Err)
			continue
		}
		extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](diag)
		if !ok {
			continue
		}
		if err := extra.FunctionCallError(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// FindCallError returns the first call error in diags that matches target
// according to errors.As.
func FindCallError[T error](diags hcl.Diagnostics) (T, bool) {
	var zero T
	for _, err := range CallErrors(diags) {
		var target T
		if errors.As(err, &target) {
			return target, true
		}
	}
	return zero, false
}

// DiagsError converts diagnostics into a plain error, or nil when they carry
// no errors. Warnings alone are ignored.
func DiagsError(diags hcl.Diagnostics) error {
	if !diags.HasErrors() {
		return nil
	}
	var errs hcl.Diagnostics
	for _, diag := range diags {
		if diag.Severity == hcl.DiagError {
			errs = append(errs, diag)
		}
	}
	return errs
}
