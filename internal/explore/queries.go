// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package explore

import (
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

// maxPathsBetween bounds the paths-between enumeration.
const maxPathsBetween = 64

// Explorer runs read-only queries against one generation. Results are
// consistent within the generation; a concurrent publish does not
// affect an Explorer already in hand.
type Explorer struct {
	gen *engine.Generation
}

// NewExplorer creates an Explorer over gen.
func NewExplorer(gen *engine.Generation) *Explorer {
	return &Explorer{gen: gen}
}

// Generation returns the underlying generation.
func (x *Explorer) Generation() *engine.Generation {
	return x.gen
}

// Nodes lists every node of the given kinds; no kinds means all nodes.
func (x *Explorer) Nodes(kinds ...graph.Kind) []NodeSummary {
	if len(kinds) == 0 {
		kinds = []graph.Kind{graph.KindUser, graph.KindGroup, graph.KindAsset, graph.KindTag}
	}
	var out []NodeSummary
	for _, kind := range kinds {
		for _, id := range x.gen.Store.Nodes(kind) {
			n, err := x.gen.Store.Get(id)
			if err != nil {
				continue
			}
			out = append(out, summarize(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Explain resolves one (agent, asset) pair and returns the full
// decision with witness paths.
func (x *Explorer) Explain(agentID, assetID graph.ID) (DecisionView, error) {
	d, err := x.gen.Resolver().Resolve(agentID, assetID)
	if err != nil {
		return DecisionView{}, err
	}
	return viewDecision(d), nil
}

// AssetAccess is the per-asset outcome of resolving the asset against
// every candidate user.
type AssetAccess struct {
	Users      []AccessSummary `json:"users"`
	Conditions []ConditionView `json:"conditions,omitempty"`
}

// UsersForAsset reports the users with effective access to the asset.
// directOnly restricts the result to access decided at asset
// specificity (a policy naming the asset itself), mirroring the
// direct-versus-downstream split in the UI.
//
// Candidate users come from the policy index — the agents of every
// policy that could reach the asset, with groups expanded to their
// transitive members — so only plausible users are resolved.
func (x *Explorer) UsersForAsset(assetID graph.ID, directOnly bool) (AssetAccess, error) {
	candidates, conds, err := x.candidateUsers(assetID)
	if err != nil {
		return AssetAccess{}, err
	}

	out := AssetAccess{Conditions: viewConditions(conds)}
	for _, userID := range candidates {
		d, err := x.gen.Resolver().Resolve(userID, assetID)
		if err != nil {
			return AssetAccess{}, err
		}
		if !d.HasAccess() {
			continue
		}
		if directOnly && d.Tier != resolve.TierAsset && d.Tier != resolve.TierAssetAndTag {
			continue
		}
		n, err := x.gen.Store.Get(userID)
		if err != nil {
			return AssetAccess{}, err
		}
		out.Users = append(out.Users, AccessSummary{
			Node:      summarize(n),
			Effect:    d.Effect.String(),
			Privilege: d.Privilege.String(),
			Tier:      d.Tier.String(),
		})
	}
	return out, nil
}

// candidateUsers gathers every user an applicable policy could reach:
// agents of policies targeting the asset, its effective tags, its
// hierarchy or lineage ancestors, or a default scope anchored above it.
func (x *Explorer) candidateUsers(assetID graph.ID) ([]graph.ID, []closure.Condition, error) {
	if _, err := requireKind(x.gen.Store, assetID, graph.KindAsset); err != nil {
		return nil, nil, err
	}

	var conds []closure.Condition
	agents := map[graph.ID]bool{}
	add := func(ids []graph.ID) {
		for _, id := range ids {
			agents[id] = true
		}
	}

	add(agentsOf(x.gen.Index.ByAsset(assetID)))

	tags, err := x.gen.Closures.TagsForAsset(assetID)
	if err != nil {
		return nil, nil, err
	}
	conds = append(conds, tags.Conditions...)
	for tag := range tags.All() {
		add(agentsOf(x.gen.Index.ByTag(tag)))
	}

	for _, edgeType := range []graph.EdgeType{graph.ChildOf, graph.DerivedFrom} {
		res, err := x.gen.Closures.Closure(assetID, edgeType, graph.Outgoing)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, res.Conditions...)
		for ancestor := range res.Reached {
			add(agentsOf(x.gen.Index.ByAsset(ancestor)))
			for _, entry := range x.gen.Index.DefaultsFor(ancestor) {
				add(entry.Policy.Agents)
			}
		}
	}

	// Expand groups to their transitive members and keep users only.
	users := map[graph.ID]bool{}
	for id := range agents {
		n, err := x.gen.Store.Get(id)
		if err != nil {
			return nil, nil, err
		}
		switch n.NodeKind() {
		case graph.KindUser:
			users[id] = true
		case graph.KindGroup:
			members, err := x.gen.Closures.Closure(id, graph.MemberOf, graph.Incoming)
			if err != nil {
				return nil, nil, err
			}
			conds = append(conds, members.Conditions...)
			for member := range members.Reached {
				mn, err := x.gen.Store.Get(member)
				if err != nil {
					return nil, nil, err
				}
				if mn.NodeKind() == graph.KindUser {
					users[member] = true
				}
			}
		}
	}

	out := make([]graph.ID, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, conds, nil
}

// AssetsForUser reports every asset the user has effective access to,
// with the granted privilege.
func (x *Explorer) AssetsForUser(userID graph.ID) ([]AccessSummary, error) {
	if _, err := requireKind(x.gen.Store, userID, graph.KindUser); err != nil {
		return nil, err
	}

	var out []AccessSummary
	for _, id := range x.gen.Store.Nodes(graph.KindAsset) {
		n, err := x.gen.Store.Get(id)
		if err != nil {
			return nil, err
		}
		d, err := x.gen.Resolver().Resolve(userID, id)
		if err != nil {
			return nil, err
		}
		if !d.HasAccess() {
			continue
		}
		out = append(out, AccessSummary{
			Node:      summarize(n),
			Effect:    d.Effect.String(),
			Privilege: d.Privilege.String(),
			Tier:      d.Tier.String(),
		})
	}
	return out, nil
}

// TagGroups is the effective tag set of an asset, grouped by route.
type TagGroups struct {
	Direct       []NodeSummary   `json:"direct,omitempty"`
	ViaHierarchy []NodeSummary   `json:"via_hierarchy,omitempty"`
	ViaLineage   []NodeSummary   `json:"via_lineage,omitempty"`
	Conditions   []ConditionView `json:"conditions,omitempty"`
}

// TagsForAsset reports the asset's effective tags grouped by how each
// tag reached it, with witness paths.
func (x *Explorer) TagsForAsset(assetID graph.ID) (TagGroups, error) {
	tags, err := x.gen.Closures.TagsForAsset(assetID)
	if err != nil {
		return TagGroups{}, err
	}

	group := func(m map[graph.ID][]closure.Path) ([]NodeSummary, error) {
		var out []NodeSummary
		for tag, paths := range m {
			n, err := x.gen.Store.Get(tag)
			if err != nil {
				return nil, err
			}
			s := summarize(n)
			s.Paths = paths
			out = append(out, s)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	}

	var tg TagGroups
	if tg.Direct, err = group(tags.Direct); err != nil {
		return TagGroups{}, err
	}
	if tg.ViaHierarchy, err = group(tags.ViaHierarchy); err != nil {
		return TagGroups{}, err
	}
	if tg.ViaLineage, err = group(tags.ViaLineage); err != nil {
		return TagGroups{}, err
	}
	tg.Conditions = viewConditions(tags.Conditions)
	return tg, nil
}

// TagsForUser reports every tag on any asset the user can access.
func (x *Explorer) TagsForUser(userID graph.ID) ([]NodeSummary, error) {
	assets, err := x.AssetsForUser(userID)
	if err != nil {
		return nil, err
	}

	seen := map[graph.ID]NodeSummary{}
	for _, a := range assets {
		tags, err := x.gen.Closures.TagsForAsset(a.Node.ID)
		if err != nil {
			return nil, err
		}
		for tag := range tags.All() {
			if _, ok := seen[tag]; ok {
				continue
			}
			n, err := x.gen.Store.Get(tag)
			if err != nil {
				return nil, err
			}
			seen[tag] = summarize(n)
		}
	}
	return sortedSummaries(seen), nil
}

// AssetsForTag reports the assets carrying the tag. directOnly
// restricts to direct application, excluding inheritance.
func (x *Explorer) AssetsForTag(tagID graph.ID, directOnly bool) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, tagID, graph.KindTag); err != nil {
		return nil, err
	}

	var out []NodeSummary
	for _, id := range x.gen.Store.Nodes(graph.KindAsset) {
		n, err := x.gen.Store.Get(id)
		if err != nil {
			return nil, err
		}
		tags, err := x.gen.Closures.TagsForAsset(id)
		if err != nil {
			return nil, err
		}
		var paths []closure.Path
		if directOnly {
			paths = tags.Direct[tagID]
		} else if tags.Has(tagID) {
			paths = tags.All()[tagID]
		}
		if len(paths) == 0 {
			continue
		}
		s := summarize(n)
		s.Paths = paths
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UsersForTag reports every user with effective access to at least one
// asset carrying the tag.
func (x *Explorer) UsersForTag(tagID graph.ID) ([]AccessSummary, error) {
	assets, err := x.AssetsForTag(tagID, false)
	if err != nil {
		return nil, err
	}

	best := map[graph.ID]AccessSummary{}
	for _, a := range assets {
		access, err := x.UsersForAsset(a.ID, false)
		if err != nil {
			return nil, err
		}
		for _, u := range access.Users {
			if _, ok := best[u.Node.ID]; !ok {
				best[u.Node.ID] = u
			}
		}
	}

	out := make([]AccessSummary, 0, len(best))
	for _, u := range best {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node.ID < out[j].Node.ID })
	return out, nil
}

// DirectGroups reports the groups the agent is an immediate member of.
func (x *Explorer) DirectGroups(agentID graph.ID) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, agentID, graph.KindUser, graph.KindGroup); err != nil {
		return nil, err
	}
	return x.neighborSummaries(agentID, graph.MemberOf, graph.Outgoing)
}

// InheritedGroups reports groups reached only through nested
// membership, with witness paths.
func (x *Explorer) InheritedGroups(agentID graph.ID) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, agentID, graph.KindUser, graph.KindGroup); err != nil {
		return nil, err
	}
	direct := map[graph.ID]bool{}
	for _, id := range x.gen.Store.Neighbors(agentID, graph.MemberOf, graph.Outgoing) {
		direct[id] = true
	}
	return x.closureSummaries(agentID, graph.MemberOf, graph.Outgoing, func(id graph.ID) bool {
		return !direct[id]
	})
}

// DirectMembers reports the immediate members of a group.
func (x *Explorer) DirectMembers(groupID graph.ID) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, groupID, graph.KindGroup); err != nil {
		return nil, err
	}
	return x.neighborSummaries(groupID, graph.MemberOf, graph.Incoming)
}

// AllMembers reports the transitive members of a group, with witness
// paths.
func (x *Explorer) AllMembers(groupID graph.ID) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, groupID, graph.KindGroup); err != nil {
		return nil, err
	}
	return x.closureSummaries(groupID, graph.MemberOf, graph.Incoming, nil)
}

// Related reports the closure of an asset along one edge type and
// direction: hierarchy or lineage, upstream or downstream.
func (x *Explorer) Related(assetID graph.ID, t graph.EdgeType, dir graph.Direction) ([]NodeSummary, error) {
	if _, err := requireKind(x.gen.Store, assetID, graph.KindAsset); err != nil {
		return nil, err
	}
	return x.closureSummaries(assetID, t, dir, nil)
}

// PathsBetween enumerates simple paths from one node to another over
// any edge types, bounded by maxPathsBetween.
func (x *Explorer) PathsBetween(from, to graph.ID) ([]closure.Path, []ConditionView, error) {
	types := []graph.EdgeType{graph.MemberOf, graph.ChildOf, graph.DerivedFrom, graph.TaggedWith}
	paths, conds, err := x.gen.Closures.MatchingPaths(from, to, types, maxPathsBetween)
	if err != nil {
		return nil, nil, err
	}
	return paths, viewConditions(conds), nil
}

// Subgraph extracts the neighborhood of a node: every node reachable
// within depth hops over any edge type in either direction, with every
// edge among the collected nodes. depth < 1 is treated as 1.
func (x *Explorer) Subgraph(center graph.ID, depth int) (SubgraphView, error) {
	if _, err := x.gen.Store.Get(center); err != nil {
		return SubgraphView{}, err
	}
	if depth < 1 {
		depth = 1
	}

	types := []graph.EdgeType{graph.MemberOf, graph.ChildOf, graph.DerivedFrom, graph.TaggedWith}
	seen := map[graph.ID]bool{center: true}
	frontier := []graph.ID{center}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []graph.ID
		for _, id := range frontier {
			for _, t := range types {
				for _, dir := range []graph.Direction{graph.Outgoing, graph.Incoming} {
					for _, nid := range x.gen.Store.Neighbors(id, t, dir) {
						if seen[nid] {
							continue
						}
						seen[nid] = true
						next = append(next, nid)
					}
				}
			}
		}
		frontier = next
	}

	view := SubgraphView{Center: center}
	for id := range seen {
		n, err := x.gen.Store.Get(id)
		if err != nil {
			return SubgraphView{}, err
		}
		view.Nodes = append(view.Nodes, summarize(n))
		for _, t := range types {
			for _, nid := range x.gen.Store.Neighbors(id, t, graph.Outgoing) {
				if seen[nid] {
					view.Edges = append(view.Edges, EdgeView{From: id, To: nid, Type: t.String()})
				}
			}
		}
	}
	sort.Slice(view.Nodes, func(i, j int) bool { return view.Nodes[i].ID < view.Nodes[j].ID })
	sort.Slice(view.Edges, func(i, j int) bool {
		a, b := view.Edges[i], view.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})
	return view, nil
}

func (x *Explorer) neighborSummaries(id graph.ID, t graph.EdgeType, dir graph.Direction) ([]NodeSummary, error) {
	var out []NodeSummary
	for _, nid := range x.gen.Store.Neighbors(id, t, dir) {
		n, err := x.gen.Store.Get(nid)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (x *Explorer) closureSummaries(id graph.ID, t graph.EdgeType, dir graph.Direction, keep func(graph.ID) bool) ([]NodeSummary, error) {
	res, err := x.gen.Closures.Closure(id, t, dir)
	if err != nil {
		return nil, err
	}
	var out []NodeSummary
	for reached, paths := range res.Reached {
		if keep != nil && !keep(reached) {
			continue
		}
		n, err := x.gen.Store.Get(reached)
		if err != nil {
			return nil, err
		}
		s := summarize(n)
		s.Paths = paths
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortedSummaries(m map[graph.ID]NodeSummary) []NodeSummary {
	out := make([]NodeSummary, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func agentsOf(ps []*policy.Policy) []graph.ID {
	var out []graph.ID
	for _, p := range ps {
		out = append(out, p.Agents...)
	}
	return out
}

// requireKind fetches a node and checks its kind, failing with the
// store's NOT_FOUND error for unknown ids and INVALID_REQUEST for a
// node of the wrong kind.
func requireKind(store *graph.Store, id graph.ID, kinds ...graph.Kind) (graph.Node, error) {
	n, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if n.NodeKind() == k {
			return n, nil
		}
	}
	want := make([]string, len(kinds))
	for i, k := range kinds {
		want[i] = k.String()
	}
	return nil, oops.
		Code(resolve.CodeInvalidRequest).
		With("id", id).
		With("kind", n.NodeKind().String()).
		Errorf("node %q is a %s, want %s", id, n.NodeKind(), strings.Join(want, " or "))
}
