package hclutil

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an hcl.Traversal,
// suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., Sub.inner.k
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// AttrPath returns the leading attribute names of an absolute traversal,
// starting with the root name. It stops at the first index or splat step,
// so `Sub.inner.k[0]` yields ["Sub", "inner", "k"].
func AttrPath(t hcl.Traversal) []string {
	var path []string
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			path = append(path, s.Name)
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		default:
			return path
		}
	}
	return path
}
