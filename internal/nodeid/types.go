// internal/nodeid/types.go
package nodeid

// Kind distinguishes the three families of graph nodes.
type Kind uint8

const (
	// KindCells is a (cells, argument tuple) pair.
	KindCells Kind = iota + 1
	// KindRef is a named reference value.
	KindRef
	// KindName is a name lookup within a space's namespace.
	KindName
)

func (k Kind) String() string {
	switch k {
	case KindCells:
		return "cells"
	case KindRef:
		return "ref"
	case KindName:
		return "name"
	default:
		return "unknown"
	}
}

// ID is the identity of a single dependency graph node.
type ID struct {
	Kind  Kind
	Owner uint64
	Key   string
}

// Cells returns the node of the given cells object called with the argument
// tuple whose normalized key is argsKey.
func Cells(owner uint64, argsKey string) ID {
	return ID{Kind: KindCells, Owner: owner, Key: argsKey}
}

// Ref returns the node of a reference object.
func Ref(owner uint64) ID {
	return ID{Kind: KindRef, Owner: owner}
}

// Name returns the node standing for name as resolved inside the given space.
func Name(space uint64, name string) ID {
	return ID{Kind: KindName, Owner: space, Key: name}
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id.Kind == 0
}
