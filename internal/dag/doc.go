// Package dag records which graph nodes were read while computing which other
// nodes. Edges point from a dependency to its dependent, and both directions
// keep the order in which they were first recorded.
//
// The graph is rebuilt incrementally while formulas run: every node's
// dependencies are reset before it is recomputed, and Invalidate walks the
// dependents of changed nodes to find everything that must be recomputed.
package dag
