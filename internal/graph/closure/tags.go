// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package closure

import (
	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// AssetTags holds the tags effectively applied to one asset, grouped by
// how each tag reached it. A tag arriving by more than one route keeps
// the witness paths of every route. Each path runs from the asset,
// through zero or more hierarchy or lineage hops, to the tag.
type AssetTags struct {
	Asset        graph.ID
	Direct       map[graph.ID][]Path
	ViaHierarchy map[graph.ID][]Path
	ViaLineage   map[graph.ID][]Path
	Conditions   []Condition
}

// All returns the union of the three source groups, merging path lists
// for tags that arrived by multiple routes.
func (at *AssetTags) All() map[graph.ID][]Path {
	merged := make(map[graph.ID][]Path, len(at.Direct)+len(at.ViaHierarchy)+len(at.ViaLineage))
	for _, group := range []map[graph.ID][]Path{at.Direct, at.ViaHierarchy, at.ViaLineage} {
		for tag, paths := range group {
			merged[tag] = append(merged[tag], paths...)
		}
	}
	return merged
}

// Has reports whether the tag reached the asset by any route.
func (at *AssetTags) Has(tag graph.ID) bool {
	if _, ok := at.Direct[tag]; ok {
		return true
	}
	if _, ok := at.ViaHierarchy[tag]; ok {
		return true
	}
	_, ok := at.ViaLineage[tag]
	return ok
}

// TagsForAsset resolves the effective tag set for an asset.
//
// A tag applied directly to an ancestor propagates down the hierarchy
// when the tag passes through hierarchy and the applying edge carries no
// hierarchy override; lineage propagation is the independent analogue.
// An explicit removal edge on any asset along a witness path defeats
// that path. The computation is idempotent and path-independent, and is
// cached per asset for the generation.
func (e *Engine) TagsForAsset(asset graph.ID) (*AssetTags, error) {
	n, err := e.store.Get(asset)
	if err != nil {
		return nil, err
	}
	if n.NodeKind() != graph.KindAsset {
		return nil, oops.
			Code(graph.CodeNotFound).
			With("id", asset).
			With("kind", n.NodeKind().String()).
			Errorf("node %q is not an asset", asset)
	}

	if cached, ok := e.tags.Load(asset); ok {
		return cached.(*AssetTags), nil
	}

	at := &AssetTags{
		Asset:        asset,
		Direct:       map[graph.ID][]Path{},
		ViaHierarchy: map[graph.ID][]Path{},
		ViaLineage:   map[graph.ID][]Path{},
	}

	// Direct applications, skipping explicit removals.
	for _, tag := range e.store.Neighbors(asset, graph.TaggedWith, graph.Outgoing) {
		opts, _ := e.store.TagEdge(asset, tag)
		if opts.Removed {
			continue
		}
		at.Direct[tag] = []Path{{asset, tag}}
	}

	hierarchy, err := e.Closure(asset, graph.ChildOf, graph.Outgoing)
	if err != nil {
		return nil, err
	}
	at.Conditions = append(at.Conditions, hierarchy.Conditions...)
	e.inheritTags(at.ViaHierarchy, hierarchy, inheritedViaHierarchy)

	lineage, err := e.Closure(asset, graph.DerivedFrom, graph.Outgoing)
	if err != nil {
		return nil, err
	}
	at.Conditions = append(at.Conditions, lineage.Conditions...)
	e.inheritTags(at.ViaLineage, lineage, inheritedViaLineage)

	actual, _ := e.tags.LoadOrStore(asset, at)
	return actual.(*AssetTags), nil
}

// inheritMode selects which pass-through flag and edge override govern
// an inheritance route.
type inheritMode int

const (
	inheritedViaHierarchy inheritMode = iota
	inheritedViaLineage
)

// inheritTags walks every ancestor in the closure and collects tags
// whose application passes through to the closure start. The witness
// path is the ancestor path extended by the tag-application hop.
func (e *Engine) inheritTags(out map[graph.ID][]Path, ancestors *Result, mode inheritMode) {
	for ancestor, ancestorPaths := range ancestors.Reached {
		for _, tag := range e.store.Neighbors(ancestor, graph.TaggedWith, graph.Outgoing) {
			opts, _ := e.store.TagEdge(ancestor, tag)
			if opts.Removed {
				continue
			}
			if !e.passesThrough(tag, opts, mode) {
				continue
			}
			for _, p := range ancestorPaths {
				if e.pathPoisoned(p, tag) {
					continue
				}
				out[tag] = append(out[tag], p.Append(tag))
			}
			if len(out[tag]) == 0 {
				delete(out, tag)
			}
		}
	}
}

func (e *Engine) passesThrough(tag graph.ID, opts graph.TagEdgeOptions, mode inheritMode) bool {
	n, err := e.store.Get(tag)
	if err != nil {
		return false
	}
	t, ok := n.(graph.Tag)
	if !ok {
		return false
	}
	switch mode {
	case inheritedViaHierarchy:
		return t.PassThroughHierarchy && !opts.NoHierarchyInherit
	case inheritedViaLineage:
		return t.PassThroughLineage && !opts.NoLineageInherit
	default:
		return false
	}
}

// pathPoisoned reports whether any asset on the witness path carries an
// explicit removal of the tag.
func (e *Engine) pathPoisoned(p Path, tag graph.ID) bool {
	for _, node := range p {
		if opts, ok := e.store.TagEdge(node, tag); ok && opts.Removed {
			return true
		}
	}
	return false
}
