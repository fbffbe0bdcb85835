// Package registry provides the central "glue" for the built-in function
// modules.
//
// The Registry maps the names formulas call (e.g. "upper", "yamlencode") to
// cty functions. Modules contribute functions by implementing Module; the
// application registers every module once at startup and validates the
// result. Built-ins form the lowest tier of every namespace, so anything a
// model defines with the same name shadows them.
package registry
