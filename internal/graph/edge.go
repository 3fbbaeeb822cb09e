// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package graph

import "fmt"

// EdgeType identifies the relationship an edge expresses.
type EdgeType int

// EdgeType constants enumerate the directed edge types. Each is stored
// with its reverse, so traversal in either direction is O(degree).
const (
	// MemberOf runs from a user or group to a group it belongs to.
	MemberOf EdgeType = iota // member_of
	// ChildOf runs from an asset to its hierarchical parent.
	ChildOf // child_of
	// DerivedFrom runs from an asset to an asset it is derived from.
	DerivedFrom // derived_from
	// TaggedWith runs from an asset to a tag applied to it.
	TaggedWith // tagged_with
)

var edgeTypeStrings = [...]string{
	"member_of",
	"child_of",
	"derived_from",
	"tagged_with",
}

func (t EdgeType) String() string {
	if t >= 0 && int(t) < len(edgeTypeStrings) {
		return edgeTypeStrings[t]
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Direction selects which side of an edge a traversal follows.
type Direction int

// Direction constants. Outgoing follows edges as declared (e.g. asset
// to parent for ChildOf); Incoming follows the reverse (parent to
// children).
const (
	Outgoing Direction = iota // outgoing
	Incoming                  // incoming
)

func (d Direction) String() string {
	if d == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// TagEdgeOptions annotate a single TaggedWith edge.
type TagEdgeOptions struct {
	// NoHierarchyInherit stops this application of the tag from
	// passing to hierarchical descendants even when the tag itself
	// passes through hierarchy.
	NoHierarchyInherit bool
	// NoLineageInherit is the lineage analogue.
	NoLineageInherit bool
	// Removed records an explicit removal of the tag from this
	// asset: inherited applications whose path passes through the
	// asset are defeated.
	Removed bool
}

// EdgeOption configures an edge at AddEdge time.
type EdgeOption func(*TagEdgeOptions)

// WithNoHierarchyInherit marks a TaggedWith edge as not inheritable
// through hierarchy.
func WithNoHierarchyInherit() EdgeOption {
	return func(o *TagEdgeOptions) { o.NoHierarchyInherit = true }
}

// WithNoLineageInherit marks a TaggedWith edge as not inheritable
// through lineage.
func WithNoLineageInherit() EdgeOption {
	return func(o *TagEdgeOptions) { o.NoLineageInherit = true }
}

// WithRemoved marks a TaggedWith edge as an explicit tag removal.
func WithRemoved() EdgeOption {
	return func(o *TagEdgeOptions) { o.Removed = true }
}

// edge is a directed, typed edge as accumulated by the Builder.
type edge struct {
	from, to ID
	typ      EdgeType
	opts     TagEdgeOptions
}

// edgeKey identifies a TaggedWith edge for annotation lookup.
type edgeKey struct {
	from, to ID
}

// endpointKinds returns the permitted (from, to) kind sets per edge type.
func endpointKinds(t EdgeType) (from, to map[Kind]bool) {
	switch t {
	case MemberOf:
		return map[Kind]bool{KindUser: true, KindGroup: true}, map[Kind]bool{KindGroup: true}
	case ChildOf, DerivedFrom:
		return map[Kind]bool{KindAsset: true}, map[Kind]bool{KindAsset: true}
	case TaggedWith:
		return map[Kind]bool{KindAsset: true}, map[Kind]bool{KindTag: true}
	default:
		return nil, nil
	}
}
