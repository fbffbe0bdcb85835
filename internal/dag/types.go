package dag

import (
	"sync"

	"github.com/specialistvlad/cellgrid/internal/nodeid"
)

// Graph is a collection of nodes and the dependencies recorded between them.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their ID.
	nodes map[nodeid.ID]*node
	// order lists node IDs in the order they were added.
	order []nodeid.ID
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API.
type node struct {
	id nodeid.ID
	// deps holds the nodes that this node read, in first-read order.
	deps *edgeSet
	// dependents holds the nodes that read this node, in first-read order.
	dependents *edgeSet
}

// edgeSet is an insertion-ordered set of node IDs.
type edgeSet struct {
	ids   []nodeid.ID
	index map[nodeid.ID]struct{}
}

func newEdgeSet() *edgeSet {
	return &edgeSet{index: make(map[nodeid.ID]struct{})}
}

func (s *edgeSet) add(id nodeid.ID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *edgeSet) remove(id nodeid.ID) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

func (s *edgeSet) list() []nodeid.ID {
	out := make([]nodeid.ID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *edgeSet) len() int { return len(s.ids) }
