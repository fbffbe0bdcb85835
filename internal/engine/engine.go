package engine

import (
	"context"

	"github.com/specialistvlad/cellgrid/internal/calcerr"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/dag"
	"github.com/specialistvlad/cellgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// DefaultMaxDepth is the evaluation depth limit used when none is configured.
const DefaultMaxDepth = 1000

// Target is a cells object as seen by the evaluator.
type Target interface {
	// ID is the stable object id used as the owner of the target's nodes.
	ID() uint64
	// DisplayName renders the node for the given args key, e.g. "M.S.fibo(5)".
	DisplayName(argsKey string) string
	// Lookup returns the stored value for the args key.
	Lookup(argsKey string) (cty.Value, bool)
	// Compute runs the formula for the bound argument tuple.
	Compute(ctx context.Context, args []cty.Value) (cty.Value, error)
	// Store records a successfully computed value.
	Store(argsKey string, args []cty.Value, val cty.Value)
}

// Clearer drops the stored value of an invalidated node. Nodes that carry no
// value, such as names and references, are ignored.
type Clearer interface {
	ClearNode(id nodeid.ID)
}

// Config holds the evaluator settings.
type Config struct {
	// MaxDepth bounds the number of nested evaluations. Zero means
	// DefaultMaxDepth.
	MaxDepth int
}

// Stats counts evaluator activity since creation or the last ResetStats.
type Stats struct {
	// Evaluations is the number of formulas run to completion.
	Evaluations int
	// Hits is the number of reads answered from a cell store.
	Hits int
	// Invalidations is the number of nodes cleared by invalidation.
	Invalidations int
}

type frame struct {
	id   nodeid.ID
	name string
}

// Engine evaluates cells on demand and keeps the dependency graph.
type Engine struct {
	graph    *dag.Graph
	clearer  Clearer
	maxDepth int

	stack  []frame
	active map[nodeid.ID]bool
	stats  Stats
}

// New creates an engine with an empty graph. clearer may be nil.
func New(cfg Config, clearer Clearer) *Engine {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Engine{
		graph:    dag.New(),
		clearer:  clearer,
		maxDepth: maxDepth,
		active:   make(map[nodeid.ID]bool),
	}
}

// SetClearer replaces the clearer. It exists for owners that must create
// the engine before they can act as its clearer.
func (e *Engine) SetClearer(c Clearer) {
	e.clearer = c
}

// Graph returns the dependency graph.
func (e *Engine) Graph() *dag.Graph {
	return e.graph
}

// MaxDepth returns the configured depth limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// ResetStats zeroes the counters.
func (e *Engine) ResetStats() {
	e.stats = Stats{}
}

// Depth returns the number of nodes currently under evaluation.
func (e *Engine) Depth() int {
	return len(e.stack)
}

// Stack returns the display names of the nodes under evaluation, outermost
// first.
func (e *Engine) Stack() []string {
	return e.chain()
}

func (e *Engine) chain() []string {
	names := make([]string, len(e.stack))
	for i, f := range e.stack {
		names[i] = f.name
	}
	return names
}

// Record notes that the node on top of the stack read id. Reads made outside
// of any evaluation are not recorded.
func (e *Engine) Record(id nodeid.ID) {
	if len(e.stack) == 0 {
		return
	}
	top := e.stack[len(e.stack)-1].id
	if top == id {
		return
	}
	// Self edges are the only AddEdge error and were excluded above.
	_ = e.graph.AddEdge(id, top)
}

// Get returns the value of target for the bound argument tuple args,
// computing it if it is not stored yet.
func (e *Engine) Get(ctx context.Context, target Target, args []cty.Value) (cty.Value, error) {
	key := nodeid.ArgsKey(args)
	id := nodeid.Cells(target.ID(), key)

	if e.active[id] {
		err := calcerr.CircularReference(target.DisplayName(key), e.chain())
		ctxlog.FromContext(ctx).Debug("Circular reference detected.", "node", target.DisplayName(key), "depth", len(e.stack))
		return cty.NilVal, err
	}

	e.Record(id)
	if val, ok := target.Lookup(key); ok {
		e.stats.Hits++
		return val, nil
	}
	return e.evaluate(ctx, target, id, key, args)
}

func (e *Engine) evaluate(ctx context.Context, target Target, id nodeid.ID, key string, args []cty.Value) (cty.Value, error) {
	name := target.DisplayName(key)
	if len(e.stack) >= e.maxDepth {
		return cty.NilVal, calcerr.DeepReference(e.maxDepth, append(e.chain(), name))
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Evaluating node.", "node", name, "depth", len(e.stack))

	e.stack = append(e.stack, frame{id: id, name: name})
	e.active[id] = true
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
		delete(e.active, id)
	}()

	e.graph.AddNode(id)
	e.graph.ResetDependencies(id)

	val, err := target.Compute(ctx, args)
	if err != nil {
		// The partial edges describe a computation that did not happen.
		e.graph.ResetDependencies(id)
		logger.Debug("Node evaluation failed.", "node", name, "error", err)
		return cty.NilVal, err
	}

	target.Store(key, args, val)
	e.stats.Evaluations++
	return val, nil
}

// Invalidate clears the given nodes and everything that transitively depends
// on them, and returns the affected nodes. It is a no-op for nodes that were
// never read.
func (e *Engine) Invalidate(ctx context.Context, ids ...nodeid.ID) []nodeid.ID {
	affected := e.graph.Invalidate(ids...)
	if e.clearer != nil {
		for _, id := range affected {
			e.clearer.ClearNode(id)
		}
	}
	e.stats.Invalidations += len(affected)
	ctxlog.FromContext(ctx).Debug("Invalidated nodes.", "roots", len(ids), "affected", len(affected))
	return affected
}

// Forget invalidates the nodes matched by pred and removes them from the
// graph. It is used when the objects owning those nodes are deleted.
func (e *Engine) Forget(ctx context.Context, pred func(nodeid.ID) bool) {
	var doomed []nodeid.ID
	for _, id := range e.graph.Nodes() {
		if pred(id) {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) == 0 {
		return
	}
	e.Invalidate(ctx, doomed...)
	for _, id := range doomed {
		e.graph.RemoveNode(id)
	}
}

// Compact drops name and reference nodes that no longer have edges.
func (e *Engine) Compact() int {
	return e.graph.Prune(func(id nodeid.ID) bool {
		return id.Kind == nodeid.KindCells
	})
}
