// Package hcl provides the HCL implementation of the config.Loader
// interface. It reads model definitions from .hcl files and translates them
// into the format-agnostic config.Document.
//
// A definition file holds any number of `model` blocks and at most one
// `settings` block:
//
//	settings {
//	  max_depth = 500
//	}
//
//	model "Demo" {
//	  globals = { rate = 0.05 }
//
//	  space "S" {
//	    refs = { k = 10 }
//
//	    cells "fibo" {
//	      params  = ["n"]
//	      formula = n < 2 ? n : fibo(n - 1) + fibo(n - 2)
//	    }
//	  }
//	}
//
// Formulas are kept as parsed expressions and are never evaluated here.
// Every other value (globals, refs, defaults, inputs) must be computable
// from literals and the loader's built-in functions.
package hcl
