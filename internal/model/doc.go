// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the object hierarchy of the calculation graph: the
// System, its Models, their Spaces, and the Cells and References the spaces
// own.
//
// # Core Concepts
//
//   - System: The process-level container. It owns the models, the shared
//     evaluator with its dependency graph, and hands out the numeric ids that
//     identify every object in the graph.
//
//   - Model: A root container of uniquely named spaces and global references.
//
//   - Space: A tree node holding child spaces, cells and local references.
//     The names of all three kinds share one set. A space's namespace is what
//     the formulas of its cells see.
//
//   - Cells: A formula plus the memoized values it produced, one per
//     argument tuple. Values are computed on first read and kept until
//     something they read changes.
//
//   - Reference: A named value, local to a space or global to a model.
//
// # Invalidation
//
// Every read made by a formula is recorded in the dependency graph: calls to
// other cells, references, and the resolution of each free name. Changing an
// input, a reference, a formula, or the set of names visible in a space
// clears exactly the values that read it, transitively, before the call that
// made the change returns. Nothing is recomputed until it is read again.
//
// The hierarchy is not safe for concurrent mutation; callers serialize access.
package model
