// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package closure computes transitive closures and witness paths over an
// immutable access graph.
//
// Closures are cached per (start node, edge type, direction) for the
// lifetime of the underlying store; an Engine is discarded together with
// its generation. All queries are pure functions of the store and may
// run concurrently. A cache key computed twice by racing goroutines
// converges to an equivalent result, so duplicate work is tolerated and
// never corrupts the cache.
package closure

import (
	"sync"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Default traversal bounds.
const (
	DefaultMaxDepth        = 64
	DefaultMaxPathsPerNode = 16
	DefaultMaxVisited      = 500000
)

// Limits bound traversals so adversarial or degenerate graphs cannot
// grow memory without bound. A hit bound surfaces as a Truncated
// condition on the result, never as an error.
type Limits struct {
	// MaxDepth is the deepest BFS layer expanded.
	MaxDepth int
	// MaxPathsPerNode caps the witness paths retained per reached node.
	MaxPathsPerNode int
	// MaxVisited caps the total nodes a single traversal may reach.
	MaxVisited int
}

// DefaultLimits returns the default traversal bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        DefaultMaxDepth,
		MaxPathsPerNode: DefaultMaxPathsPerNode,
		MaxVisited:      DefaultMaxVisited,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxPathsPerNode <= 0 {
		l.MaxPathsPerNode = DefaultMaxPathsPerNode
	}
	if l.MaxVisited <= 0 {
		l.MaxVisited = DefaultMaxVisited
	}
	return l
}

// Result is the transitive closure from one start node over one edge
// type and direction. It is immutable once returned; callers must not
// modify Reached or the paths it holds.
type Result struct {
	Start graph.ID
	// Reached maps every reachable node (the start excluded) to its
	// shortest witness paths. All shortest paths are retained up to
	// Limits.MaxPathsPerNode; longer paths are discarded.
	Reached map[graph.ID][]Path
	// Conditions carries non-fatal cycle/truncation annotations.
	Conditions []Condition
}

// Has reports whether id is in the closure.
func (r *Result) Has(id graph.ID) bool {
	_, ok := r.Reached[id]
	return ok
}

// IDs returns the reached node ids in unspecified order.
func (r *Result) IDs() []graph.ID {
	ids := make([]graph.ID, 0, len(r.Reached))
	for id := range r.Reached {
		ids = append(ids, id)
	}
	return ids
}

type closureKey struct {
	start graph.ID
	typ   graph.EdgeType
	dir   graph.Direction
}

// Engine computes and caches closures over one store.
type Engine struct {
	store  *graph.Store
	limits Limits

	closures sync.Map // closureKey -> *Result
	tags     sync.Map // graph.ID -> *AssetTags
}

// New creates an Engine over the given store. Zero-valued limits fall
// back to defaults.
func New(store *graph.Store, limits Limits) *Engine {
	return &Engine{store: store, limits: limits.withDefaults()}
}

// Store returns the underlying graph store.
func (e *Engine) Store() *graph.Store {
	return e.store
}

// Closure returns the transitive closure from start over edges of the
// given type and direction, with all shortest witness paths per reached
// node. Results are cached; the returned Result is shared and must not
// be mutated. An unknown start id fails with NOT_FOUND.
func (e *Engine) Closure(start graph.ID, t graph.EdgeType, dir graph.Direction) (*Result, error) {
	if !e.store.Has(start) {
		return nil, oops.
			Code(graph.CodeNotFound).
			With("id", start).
			Errorf("closure start node %q not found", start)
	}

	key := closureKey{start: start, typ: t, dir: dir}
	if cached, ok := e.closures.Load(key); ok {
		return cached.(*Result), nil
	}

	res := e.traverse(start, t, dir)
	actual, _ := e.closures.LoadOrStore(key, res)
	return actual.(*Result), nil
}

// traverse runs a breadth-first search retaining every shortest path
// per reached node. An already-reached node encountered again at the
// same depth gains an alternate path; at a greater depth the arrival is
// discarded. The visited set guarantees termination on cyclic input.
func (e *Engine) traverse(start graph.ID, t graph.EdgeType, dir graph.Direction) *Result {
	res := &Result{
		Start:   start,
		Reached: make(map[graph.ID][]Path),
	}

	depth := map[graph.ID]int{start: 0}
	paths := map[graph.ID][]Path{start: {{start}}}
	frontier := []graph.ID{start}
	truncatedNodes := map[graph.ID]bool{}

	d := 0
	for len(frontier) > 0 {
		if d >= e.limits.MaxDepth {
			res.Conditions = append(res.Conditions, Condition{
				Kind:   Truncated,
				Node:   frontier[0],
				Detail: "max traversal depth reached",
			})
			break
		}
		d++

		var next []graph.ID
		for _, u := range frontier {
			for _, v := range e.store.Neighbors(u, t, dir) {
				prev, seen := depth[v]
				switch {
				case !seen:
					if len(depth) > e.limits.MaxVisited {
						res.Conditions = append(res.Conditions, Condition{
							Kind:   Truncated,
							Node:   v,
							Detail: "max visited nodes reached",
						})
						res.finish(paths, start)
						return res
					}
					depth[v] = d
					paths[v] = extendPaths(nil, paths[u], v, e.limits.MaxPathsPerNode, truncatedNodes)
					next = append(next, v)
				case prev == d:
					// Alternate shortest path through a different
					// predecessor at the same depth.
					paths[v] = extendPaths(paths[v], paths[u], v, e.limits.MaxPathsPerNode, truncatedNodes)
				default:
					// Deeper arrival: only shortest paths are kept.
				}
			}
		}
		frontier = next
	}

	for node := range truncatedNodes {
		res.Conditions = append(res.Conditions, Condition{
			Kind:   Truncated,
			Node:   node,
			Detail: "max witness paths per node reached",
		})
	}
	if node, cyclic := e.findCycle(start, t, dir); cyclic {
		res.Conditions = append(res.Conditions, Condition{
			Kind:   CycleDetected,
			Node:   node,
			Detail: t.String() + " graph contains a cycle",
		})
	}

	res.finish(paths, start)
	return res
}

func (r *Result) finish(paths map[graph.ID][]Path, start graph.ID) {
	for id, p := range paths {
		if id == start {
			continue
		}
		r.Reached[id] = p
	}
}

// extendPaths appends base paths extended by v onto existing, capping at
// maxPaths. Extensions that would revisit v (a cycle closing on itself)
// are skipped; the dedicated cycle check reports the condition.
func extendPaths(existing, base []Path, v graph.ID, maxPaths int, truncated map[graph.ID]bool) []Path {
	for _, p := range base {
		if p.Contains(v) {
			continue
		}
		if len(existing) >= maxPaths {
			truncated[v] = true
			break
		}
		existing = append(existing, p.Append(v))
	}
	return existing
}

// findCycle runs an iterative three-color depth-first search from start
// and reports the first node at which a back edge is found. MemberOf,
// ChildOf, and DerivedFrom graphs should be acyclic; this is the
// defensive check that malformed input is reported rather than trusted.
func (e *Engine) findCycle(start graph.ID, t graph.EdgeType, dir graph.Direction) (graph.ID, bool) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current stack
		black = 2 // fully explored
	)
	color := map[graph.ID]int{}

	type frame struct {
		node graph.ID
		next int
	}
	stack := []frame{{node: start}}
	color[start] = gray

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		neighbors := e.store.Neighbors(f.node, t, dir)
		if f.next < len(neighbors) {
			v := neighbors[f.next]
			f.next++
			switch color[v] {
			case white:
				color[v] = gray
				stack = append(stack, frame{node: v})
			case gray:
				return v, true
			}
			continue
		}
		color[f.node] = black
		stack = stack[:len(stack)-1]
	}
	return "", false
}
