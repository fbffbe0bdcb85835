package dag

import (
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/nodeid"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[nodeid.ID]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id nodeid.ID) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.ensure(id)
}

func (g *Graph) ensure(id nodeid.ID) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{id: id, deps: newEdgeSet(), dependents: newEdgeSet()}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node,
// meaning `toID` read `fromID` while it was computed. Missing nodes are
// created. Recording the same edge twice is a no-op.
func (g *Graph) AddEdge(fromID, toID nodeid.ID) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode := g.ensure(fromID)
	toNode := g.ensure(toID)
	if toNode.deps.add(fromID) {
		fromNode.dependents.add(toID)
	}
	return nil
}

// Has reports whether the node is part of the graph.
func (g *Graph) Has(id nodeid.ID) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns all node IDs in the order they were added.
func (g *Graph) Nodes() []nodeid.ID {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]nodeid.ID, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the IDs the given node depends on, in the order the
// edges were first recorded. Unknown nodes have no dependencies.
func (g *Graph) Dependencies(id nodeid.ID) []nodeid.ID {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.deps.list()
}

// Dependents returns the IDs that depend on the given node, in the order the
// edges were first recorded.
func (g *Graph) Dependents(id nodeid.ID) []nodeid.ID {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.dependents.list()
}

// ResetDependencies removes every edge that points into the given node,
// leaving its dependents untouched.
func (g *Graph) ResetDependencies(id nodeid.ID) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.resetDeps(id)
}

func (g *Graph) resetDeps(id nodeid.ID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, depID := range n.deps.ids {
		if dep, ok := g.nodes[depID]; ok {
			dep.dependents.remove(id)
		}
	}
	n.deps = newEdgeSet()
}

// Invalidate collects the given roots and every node that transitively
// depends on them. The dependencies of each collected node are dropped,
// since those nodes are about to be recomputed. The returned slice holds
// each affected node once, roots first, in breadth-first order.
func (g *Graph) Invalidate(roots ...nodeid.ID) []nodeid.ID {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	visited := make(map[nodeid.ID]bool)
	var affected []nodeid.ID
	queue := make([]nodeid.ID, 0, len(roots))
	for _, id := range roots {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		affected = append(affected, id)

		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, depID := range n.dependents.ids {
			if !visited[depID] {
				visited[depID] = true
				queue = append(queue, depID)
			}
		}
	}

	for _, id := range affected {
		g.resetDeps(id)
	}
	return affected
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id nodeid.ID) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return
	}
	g.resetDeps(id)
	for _, depID := range n.dependents.ids {
		if dependent, ok := g.nodes[depID]; ok {
			dependent.deps.remove(id)
		}
	}
	delete(g.nodes, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Prune removes nodes that have no edges left and satisfy keep == false.
// It returns the number of removed nodes.
func (g *Graph) Prune(keep func(nodeid.ID) bool) int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	removed := 0
	kept := g.order[:0]
	for _, id := range g.order {
		n := g.nodes[id]
		if n.deps.len() == 0 && n.dependents.len() == 0 && (keep == nil || !keep(id)) {
			delete(g.nodes, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	g.order = kept
	return removed
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// temporary: in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[nodeid.ID]bool)
	temporary := make(map[nodeid.ID]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, depID := range n.dependents.ids {
			if err := visit(g.nodes[depID]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}
