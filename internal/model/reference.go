// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import "github.com/zclconf/go-cty/cty"

// Reference is a named value. Local references belong to a space, global
// ones to a model.
type Reference struct {
	id    uint64
	name  string
	value cty.Value
	model *Model
	// space is nil for globals.
	space *Space
}

// ID returns the object id of the reference.
func (r *Reference) ID() uint64 { return r.id }

// Name returns the reference name.
func (r *Reference) Name() string { return r.name }

// Value returns the bound value.
func (r *Reference) Value() cty.Value { return r.value }

// IsGlobal reports whether the reference belongs to the model.
func (r *Reference) IsGlobal() bool { return r.space == nil }

// FullName returns the dotted name starting with the model name.
func (r *Reference) FullName() string {
	if r.space == nil {
		return r.model.name + "." + r.name
	}
	return r.space.FullName() + "." + r.name
}

func (r *Reference) String() string { return r.FullName() }
