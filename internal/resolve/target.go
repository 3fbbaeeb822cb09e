// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package resolve

import (
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
)

// targetContext is the expanded target side of one resolution: the
// asset, its effective tags, its hierarchy ancestors, and its lineage
// ancestors.
type targetContext struct {
	assetID    graph.ID
	asset      graph.Asset
	tags       map[graph.ID][]closure.Path
	hierarchy  *closure.Result
	lineage    *closure.Result
	conditions []closure.Condition
}

func (r *Resolver) targetContext(assetID graph.ID, asset graph.Asset) (*targetContext, error) {
	tags, err := r.closures.TagsForAsset(assetID)
	if err != nil {
		return nil, err
	}
	hierarchy, err := r.closures.Closure(assetID, graph.ChildOf, graph.Outgoing)
	if err != nil {
		return nil, err
	}
	lineage, err := r.closures.Closure(assetID, graph.DerivedFrom, graph.Outgoing)
	if err != nil {
		return nil, err
	}

	tctx := &targetContext{
		assetID:   assetID,
		asset:     asset,
		tags:      tags.All(),
		hierarchy: hierarchy,
		lineage:   lineage,
	}
	tctx.conditions = append(tctx.conditions, tags.Conditions...)
	tctx.conditions = append(tctx.conditions, hierarchy.Conditions...)
	tctx.conditions = append(tctx.conditions, lineage.Conditions...)
	return tctx, nil
}

// match is one policy's best target match for an asset.
type match struct {
	tier        Tier
	distance    int
	targetPaths []closure.Path
}

// matchTarget finds the most specific way the policy's target set
// reaches the asset, honoring the allow/deny inheritance asymmetry:
// Allow inherits only down the hierarchy, Deny additionally flows down
// lineage to everything derived from a denied asset.
func (r *Resolver) matchTarget(p *policy.Policy, tctx *targetContext) (match, bool) {
	tagPaths := matchedTagPaths(p, tctx)

	// Direct asset target, possibly jointly with a matching tag filter.
	if p.TargetsAsset(tctx.assetID) {
		if len(tagPaths) > 0 {
			return match{
				tier:        TierAssetAndTag,
				targetPaths: append([]closure.Path{{tctx.assetID}}, tagPaths...),
			}, true
		}
		return match{
			tier:        TierAsset,
			targetPaths: []closure.Path{{tctx.assetID}},
		}, true
	}

	if len(tagPaths) > 0 {
		return match{tier: TierTag, targetPaths: tagPaths}, true
	}

	// Inherited reach: plain targets on ancestors and default-scope
	// globs, ranked by distance to the attachment point.
	best := match{tier: TierNone}
	consider := func(distance int, paths []closure.Path) {
		if best.tier == TierNone || distance < best.distance {
			best = match{tier: TierDefault, distance: distance, targetPaths: paths}
		} else if distance == best.distance {
			best.targetPaths = append(best.targetPaths, paths...)
		}
	}

	for ancestor, paths := range tctx.hierarchy.Reached {
		if p.TargetsAsset(ancestor) {
			consider(len(paths[0])-1, paths)
		}
	}
	if p.Effect == policy.EffectDeny {
		// Anything derived from a denied asset is denied.
		for ancestor, paths := range tctx.lineage.Reached {
			if p.TargetsAsset(ancestor) {
				consider(len(paths[0])-1, paths)
			}
		}
	}
	if p.Default != nil {
		if paths, dist, ok := r.matchDefaultScope(p, tctx); ok {
			consider(dist, paths)
		}
	}

	return best, best.tier != TierNone
}

// matchDefaultScope evaluates the policy's path glob against the
// asset's hierarchy witness paths up to the scope anchor.
func (r *Resolver) matchDefaultScope(p *policy.Policy, tctx *targetContext) ([]closure.Path, int, bool) {
	if !tctx.hierarchy.Has(p.Default.AnchorAsset) {
		return nil, 0, false
	}
	entry := scopeFor(r.index, p)
	if entry == nil || !entry.Scope.MatchesType(tctx.asset.AssetType) {
		return nil, 0, false
	}

	store := r.closures.Store()
	var matched []closure.Path
	dist := 0
	for _, path := range tctx.hierarchy.Reached[p.Default.AnchorAsset] {
		// The witness path runs asset-first up to the anchor; the
		// glob reads anchor-down, anchor excluded.
		segments := make([]string, 0, len(path)-1)
		for i := len(path) - 2; i >= 0; i-- {
			n, err := store.Get(path[i])
			if err != nil {
				return nil, 0, false
			}
			segments = append(segments, policy.NameSegment(n.NodeName()))
		}
		if entry.Scope.MatchesPath(segments) {
			matched = append(matched, path)
			dist = len(path) - 1
		}
	}
	return matched, dist, len(matched) > 0
}

// scopeFor finds the compiled scope for a default policy.
func scopeFor(index *policy.Index, p *policy.Policy) *policy.DefaultEntry {
	for _, entry := range index.DefaultsFor(p.Default.AnchorAsset) {
		if entry.Policy == p {
			return entry
		}
	}
	return nil
}

// matchedTagPaths returns the witness paths of every effective tag the
// policy names.
func matchedTagPaths(p *policy.Policy, tctx *targetContext) []closure.Path {
	var out []closure.Path
	for _, tag := range p.Tags {
		out = append(out, tctx.tags[tag]...)
	}
	return out
}
