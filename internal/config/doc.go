// Package config defines the format-agnostic definition of a model: its
// spaces, cells, formulas, references and input values, along with the
// Loader interface for reading definitions from some source.
//
// A `config.Model` is what a loader produces and what a snapshot of a live
// model returns, so the same structure serves both loading and persistence.
// Concrete loaders, such as the HCL one, live in separate packages.
package config
