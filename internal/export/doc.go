// Package export renders the stored values of cells objects and the results
// of evaluated expressions for people and for other tools.
//
// Nothing here triggers an evaluation: export only reads what is already in
// the cell stores.
package export
