// Package formula holds the parameterized expressions that back cells.
//
// A Formula is an HCL native-syntax expression plus an ordered parameter
// list, some of which may carry default values. Formulas are immutable: a
// cells object that needs different behavior gets a new Formula.
//
// Evaluation is lazy where HCL itself is eager. A conditional only evaluates
// the branch it takes and the logical operators short-circuit, which is what
// makes recursive definitions such as
//
//	n < 2 ? n : fibo(n - 1) + fibo(n - 2)
//
// terminate. For expressions and splats run their bodies once per element
// through the walker; every other expression node evaluates its children
// through the same walker and then lets HCL combine the results.
//
// With EvaluateWith, free names are asked from a Resolver only when the walk
// reaches them, so a name in a branch that is not taken is never looked up.
package formula
