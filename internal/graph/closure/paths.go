// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package closure

import (
	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// MatchingPaths enumerates simple paths from one node to another,
// following outgoing edges of any of the given types. Enumeration is
// depth-first, bounded by the engine's MaxDepth and by maxPaths (0
// means the engine's MaxPathsPerNode); hitting a bound is reported as a
// Truncated condition. Multiple paths to the target are never assumed
// unique and are all discoverable up to the bound.
func (e *Engine) MatchingPaths(from, to graph.ID, types []graph.EdgeType, maxPaths int) ([]Path, []Condition, error) {
	if !e.store.Has(from) {
		return nil, nil, oops.
			Code(graph.CodeNotFound).
			With("id", from).
			Errorf("path start node %q not found", from)
	}
	if !e.store.Has(to) {
		return nil, nil, oops.
			Code(graph.CodeNotFound).
			With("id", to).
			Errorf("path target node %q not found", to)
	}
	if maxPaths <= 0 {
		maxPaths = e.limits.MaxPathsPerNode
	}

	var (
		found      []Path
		conditions []Condition
	)
	current := Path{from}
	onPath := map[graph.ID]bool{from: true}

	var walk func(node graph.ID) bool
	walk = func(node graph.ID) bool {
		if node == to {
			if len(found) >= maxPaths {
				conditions = append(conditions, Condition{
					Kind:   Truncated,
					Node:   to,
					Detail: "max matching paths reached",
				})
				return false
			}
			p := make(Path, len(current))
			copy(p, current)
			found = append(found, p)
			return true
		}
		if len(current) > e.limits.MaxDepth {
			conditions = append(conditions, Condition{
				Kind:   Truncated,
				Node:   node,
				Detail: "max traversal depth reached",
			})
			return true
		}
		for _, t := range types {
			for _, next := range e.store.Neighbors(node, t, graph.Outgoing) {
				if onPath[next] {
					continue
				}
				onPath[next] = true
				current = current.Append(next)
				keepGoing := walk(next)
				current = current[:len(current)-1]
				delete(onPath, next)
				if !keepGoing {
					return false
				}
			}
		}
		return true
	}
	walk(from)

	return found, conditions, nil
}
