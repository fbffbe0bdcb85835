// internal/nodeid/doc.go

/*
Package nodeid provides a structured, comparable representation for the
vertices of the dependency graph.

A node is identified by its Kind, the numeric id of the object that owns it,
and a Key whose meaning depends on the kind:

  - Cells nodes: Owner is the cells object, Key is the normalized argument tuple.
  - Ref nodes: Owner is the reference object, Key is empty.
  - Name nodes: Owner is a space, Key is a name as resolved in that space.

Owner ids are assigned once by the system and never reused, so renaming an
object never re-keys its nodes. ID values are comparable and are used directly
as map keys.

Argument tuples are normalized by rendering them as HCL tokens, so numerically
equal arguments such as 1 and 1.0 map to the same node.
*/
package nodeid
