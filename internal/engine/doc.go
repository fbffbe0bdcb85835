// Package engine is the evaluator of the calculation graph.
//
// The Engine keeps the stack of cells nodes currently being computed. Every
// read performed while a node is on top of the stack becomes a dependency
// edge of that node, so the graph is discovered while formulas run rather
// than declared up front. The engine also detects circular references,
// enforces a maximum evaluation depth, and clears invalidated nodes.
//
// It is single-threaded by contract: one evaluation runs at a time and
// callers serialize access to the model that owns the engine.
package engine
