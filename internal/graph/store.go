// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package graph

import (
	"sort"

	"github.com/samber/oops"
)

// Builder accumulates nodes and edges for one fetch cycle. It is not
// safe for concurrent use; a generation build owns it exclusively.
type Builder struct {
	nodes map[ID]Node
	edges []edge
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nodes: make(map[ID]Node)}
}

// AddNode records a node. A node reported twice (typically by two
// connectors) is merged; conflicting attributes fail with
// CONFIGURATION_ERROR.
func (b *Builder) AddNode(n Node) error {
	if n.NodeID() == "" {
		return oops.
			Code(CodeConfigurationError).
			With("name", n.NodeName()).
			Errorf("node has empty id")
	}
	existing, ok := b.nodes[n.NodeID()]
	if !ok {
		b.nodes[n.NodeID()] = n
		return nil
	}
	merged, err := mergeNode(existing, n)
	if err != nil {
		return err
	}
	b.nodes[n.NodeID()] = merged
	return nil
}

// AddEdge records a directed, typed edge. Endpoint existence and kind
// constraints are validated at Freeze so connectors may report edges
// before the nodes they reference.
func (b *Builder) AddEdge(from, to ID, t EdgeType, opts ...EdgeOption) {
	e := edge{from: from, to: to, typ: t}
	for _, opt := range opts {
		opt(&e.opts)
	}
	b.edges = append(b.edges, e)
}

// Freeze validates the accumulated graph and returns an immutable
// Store. An edge referencing an unknown id fails with NOT_FOUND; an
// edge with endpoints of the wrong kind fails with
// CONFIGURATION_ERROR. The Builder must not be reused after Freeze.
func (b *Builder) Freeze() (*Store, error) {
	s := &Store{
		nodes:    b.nodes,
		byKind:   make(map[Kind][]ID),
		forward:  make(map[EdgeType]map[ID][]ID),
		reverse:  make(map[EdgeType]map[ID][]ID),
		tagEdges: make(map[edgeKey]TagEdgeOptions),
	}
	for id, n := range b.nodes {
		s.byKind[n.NodeKind()] = append(s.byKind[n.NodeKind()], id)
	}
	// Deterministic listing order regardless of map iteration.
	for _, ids := range s.byKind {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	seen := make(map[edge]bool, len(b.edges))
	for _, e := range b.edges {
		from, ok := b.nodes[e.from]
		if !ok {
			return nil, oops.
				Code(CodeNotFound).
				With("edge_type", e.typ.String()).
				With("from", e.from).
				With("to", e.to).
				Errorf("edge references unknown node %q", e.from)
		}
		to, ok := b.nodes[e.to]
		if !ok {
			return nil, oops.
				Code(CodeNotFound).
				With("edge_type", e.typ.String()).
				With("from", e.from).
				With("to", e.to).
				Errorf("edge references unknown node %q", e.to)
		}
		fromKinds, toKinds := endpointKinds(e.typ)
		if !fromKinds[from.NodeKind()] || !toKinds[to.NodeKind()] {
			return nil, oops.
				Code(CodeConfigurationError).
				With("edge_type", e.typ.String()).
				With("from", e.from).
				With("to", e.to).
				Errorf("%s edge not permitted from %s to %s",
					e.typ, from.NodeKind(), to.NodeKind())
		}
		if e.typ == TaggedWith {
			key := edgeKey{from: e.from, to: e.to}
			existing := s.tagEdges[key]
			existing.NoHierarchyInherit = existing.NoHierarchyInherit || e.opts.NoHierarchyInherit
			existing.NoLineageInherit = existing.NoLineageInherit || e.opts.NoLineageInherit
			existing.Removed = existing.Removed || e.opts.Removed
			s.tagEdges[key] = existing
		}
		bare := edge{from: e.from, to: e.to, typ: e.typ}
		if seen[bare] {
			continue
		}
		seen[bare] = true
		addAdjacency(s.forward, e.typ, e.from, e.to)
		addAdjacency(s.reverse, e.typ, e.to, e.from)
	}
	b.nodes = nil
	b.edges = nil
	return s, nil
}

func addAdjacency(adj map[EdgeType]map[ID][]ID, t EdgeType, from, to ID) {
	m, ok := adj[t]
	if !ok {
		m = make(map[ID][]ID)
		adj[t] = m
	}
	m[from] = append(m[from], to)
}

// Store is an immutable node/edge graph for one generation. All methods
// are safe for concurrent use.
type Store struct {
	nodes    map[ID]Node
	byKind   map[Kind][]ID
	forward  map[EdgeType]map[ID][]ID
	reverse  map[EdgeType]map[ID][]ID
	tagEdges map[edgeKey]TagEdgeOptions
}

// Get returns the node with the given id, or a NOT_FOUND error.
func (s *Store) Get(id ID) (Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, oops.
			Code(CodeNotFound).
			With("id", id).
			Errorf("node %q not found", id)
	}
	return n, nil
}

// Has reports whether a node with the given id exists.
func (s *Store) Has(id ID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Neighbors returns the ids adjacent to id over edges of the given type
// and direction. The returned slice is shared; callers must not mutate it.
func (s *Store) Neighbors(id ID, t EdgeType, dir Direction) []ID {
	adj := s.forward
	if dir == Incoming {
		adj = s.reverse
	}
	m, ok := adj[t]
	if !ok {
		return nil
	}
	return m[id]
}

// Nodes returns all node ids of the given kind in stable (sorted) order.
func (s *Store) Nodes(kind Kind) []ID {
	return s.byKind[kind]
}

// Len returns the total node count.
func (s *Store) Len() int {
	return len(s.nodes)
}

// TagEdge returns the annotations on the TaggedWith edge from asset to
// tag, and whether such an edge exists.
func (s *Store) TagEdge(asset, tag ID) (TagEdgeOptions, bool) {
	opts, ok := s.tagEdges[edgeKey{from: asset, to: tag}]
	return opts, ok
}
