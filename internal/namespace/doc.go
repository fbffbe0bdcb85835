// Package namespace resolves the free names of a formula against the space
// that owns it.
//
// A Table lists what one space can see, in precedence order:
//
//  1. the space's own members: cells (callable), child spaces and local
//     references, which share one name set;
//  2. the global references of the owning model;
//  3. the reserved name `self`, standing for the space itself;
//  4. built-in functions.
//
// A Scope resolves names for one evaluation, only when the evaluation
// reaches them, and reports every graph node each lookup depended on. A name
// in a branch that is not taken is never looked up, so later namespace
// changes invalidate exactly the values that read the changed name.
package namespace
