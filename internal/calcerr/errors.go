// Package calcerr defines the error kinds surfaced by the calculation graph.
//
// Every error produced by the core is a *Error carrying a Kind. Callers match
// kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, calcerr.ErrCircularReference) { ... }
package calcerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindNameConflict is a duplicate child name at creation time.
	KindNameConflict Kind = iota + 1
	// KindFormula is a failure raised while evaluating a formula body.
	KindFormula
	// KindCircularReference is a node re-entered while still under evaluation.
	KindCircularReference
	// KindInvalidReference is a name that does not resolve in a namespace.
	KindInvalidReference
	// KindStructural is a hierarchy operation that would break an invariant.
	KindStructural
	// KindDeepReference is an evaluation chain deeper than the configured limit.
	KindDeepReference
)

func (k Kind) String() string {
	switch k {
	case KindNameConflict:
		return "name conflict"
	case KindFormula:
		return "formula error"
	case KindCircularReference:
		return "circular reference"
	case KindInvalidReference:
		return "invalid reference"
	case KindStructural:
		return "structural error"
	case KindDeepReference:
		return "deep reference"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. They carry no detail.
var (
	ErrNameConflict      = &Error{Kind: KindNameConflict}
	ErrFormula           = &Error{Kind: KindFormula}
	ErrCircularReference = &Error{Kind: KindCircularReference}
	ErrInvalidReference  = &Error{Kind: KindInvalidReference}
	ErrStructural        = &Error{Kind: KindStructural}
	ErrDeepReference     = &Error{Kind: KindDeepReference}
)

// Error is the single error type of the calculation core.
type Error struct {
	Kind Kind
	// Node is the display name of the node being evaluated, if any.
	Node string
	// Name is the offending name for naming errors.
	Name string
	// Chain holds the active evaluation stack for circular and deep references,
	// outermost first.
	Chain []string
	// Msg is an optional human readable detail.
	Msg string
	// Err is the wrapped original failure.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Node != "" {
		fmt.Fprintf(&sb, " in %s", e.Node)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if len(e.Chain) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Chain, " -> "))
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped original failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This makes the
// exported sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NameConflict reports that name is already taken in the container called owner.
func NameConflict(owner, name string) *Error {
	return &Error{
		Kind: KindNameConflict,
		Name: name,
		Msg:  fmt.Sprintf("%q is already defined in %s", name, owner),
	}
}

// InvalidReference reports that name could not be resolved from scope.
func InvalidReference(scope, name string) *Error {
	return &Error{
		Kind: KindInvalidReference,
		Name: name,
		Msg:  fmt.Sprintf("name %q is not defined in %s", name, scope),
	}
}

// Structural reports a hierarchy operation that would violate an invariant.
func Structural(format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Msg: fmt.Sprintf(format, args...)}
}

// Formula wraps a failure raised while evaluating the formula of node.
func Formula(node string, err error) *Error {
	return &Error{Kind: KindFormula, Node: node, Err: err}
}

// CircularReference reports that node was re-entered while chain was active.
func CircularReference(node string, chain []string) *Error {
	return &Error{
		Kind:  KindCircularReference,
		Node:  node,
		Chain: append(append([]string(nil), chain...), node),
	}
}

// DeepReference reports that the evaluation stack exceeded maxDepth.
func DeepReference(maxDepth int, chain []string) *Error {
	return &Error{
		Kind:  KindDeepReference,
		Msg:   fmt.Sprintf("maximum evaluation depth %d exceeded", maxDepth),
		Chain: append([]string(nil), chain...),
	}
}

// IsEngineError reports whether err already is a core error, in which case it
// must be forwarded unchanged rather than wrapped again.
func IsEngineError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Trace renders a chain one frame per line, outermost first.
func Trace(chain []string) string {
	var sb strings.Builder
	for i, frame := range chain {
		fmt.Fprintf(&sb, "%d: %s\n", i, frame)
	}
	return sb.String()
}
