// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package closure

import (
	"fmt"
	"strings"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Path is an ordered sequence of node ids witnessing a closure
// membership. The first element is the traversal start, the last is
// the reached node. Paths are derived data, reconstructed per
// generation, never stored.
type Path []graph.ID

// Target returns the final node of the path.
func (p Path) Target() graph.ID {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Contains reports whether id appears anywhere on the path.
func (p Path) Contains(id graph.ID) bool {
	for _, n := range p {
		if n == id {
			return true
		}
	}
	return false
}

// Append returns a new path extended by id. The receiver is not modified.
func (p Path) Append(id graph.ID) Path {
	next := make(Path, len(p)+1)
	copy(next, p)
	next[len(p)] = id
	return next
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

// ConditionKind classifies a non-fatal traversal condition.
type ConditionKind int

// ConditionKind constants.
const (
	// CycleDetected reports a cycle in an edge type that should be
	// acyclic. The traversal still terminated; the result is a
	// best-effort closure.
	CycleDetected ConditionKind = iota // cycle_detected
	// Truncated reports that a configured bound (depth, path count,
	// or visited nodes) was hit and the result may be incomplete.
	Truncated // truncated
)

func (k ConditionKind) String() string {
	switch k {
	case CycleDetected:
		return "cycle_detected"
	case Truncated:
		return "truncated"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Condition annotates a best-effort result with what was hit and where.
type Condition struct {
	Kind   ConditionKind
	Node   graph.ID
	Detail string
}

func (c Condition) String() string {
	return fmt.Sprintf("%s at %s: %s", c.Kind, c.Node, c.Detail)
}
