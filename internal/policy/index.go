// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package policy

import (
	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// DefaultEntry pairs a default policy with its compiled scope.
type DefaultEntry struct {
	Policy *Policy
	Scope  *CompiledScope
}

// Index answers target and agent lookups over one generation's
// policies. It is immutable after Build and safe for concurrent reads.
type Index struct {
	policies []Policy

	byAgent map[graph.ID][]*Policy
	byAsset map[graph.ID][]*Policy
	byTag   map[graph.ID][]*Policy

	defaults         []*DefaultEntry
	defaultsByAnchor map[graph.ID][]*DefaultEntry
}

// Build validates policies against the graph and indexes them. Every
// referenced agent, asset, tag, and anchor id must exist in the store
// and have the right kind; violations are fatal to the generation
// (NOT_FOUND for unknown ids, CONFIGURATION_ERROR for everything else).
func Build(policies []Policy, store *graph.Store) (*Index, error) {
	idx := &Index{
		policies:         policies,
		byAgent:          make(map[graph.ID][]*Policy),
		byAsset:          make(map[graph.ID][]*Policy),
		byTag:            make(map[graph.ID][]*Policy),
		defaultsByAnchor: make(map[graph.ID][]*DefaultEntry),
	}

	seenIDs := make(map[string]bool, len(policies))
	for i := range idx.policies {
		p := &idx.policies[i]
		if err := validatePolicy(p, store, seenIDs); err != nil {
			return nil, err
		}

		for _, agent := range p.Agents {
			idx.byAgent[agent] = append(idx.byAgent[agent], p)
		}
		for _, asset := range p.Assets {
			idx.byAsset[asset] = append(idx.byAsset[asset], p)
		}
		for _, tag := range p.Tags {
			idx.byTag[tag] = append(idx.byTag[tag], p)
		}
		if p.Default != nil {
			scope, err := CompileScope(*p.Default)
			if err != nil {
				return nil, oops.
					Code(graph.CodeConfigurationError).
					With("policy", p.ID).
					Wrapf(err, "policy %q has an invalid default scope", p.ID)
			}
			if err := checkAnchorHierarchy(store, scope.Anchor()); err != nil {
				return nil, oops.
					Code(graph.CodeConfigurationError).
					With("policy", p.ID).
					Wrapf(err, "policy %q has a circular default scope", p.ID)
			}
			entry := &DefaultEntry{Policy: p, Scope: scope}
			idx.defaults = append(idx.defaults, entry)
			idx.defaultsByAnchor[scope.Anchor()] = append(idx.defaultsByAnchor[scope.Anchor()], entry)
		}
	}
	return idx, nil
}

func validatePolicy(p *Policy, store *graph.Store, seenIDs map[string]bool) error {
	if p.ID == "" {
		return oops.
			Code(graph.CodeConfigurationError).
			With("name", p.Name).
			Errorf("policy has empty id")
	}
	if seenIDs[p.ID] {
		return oops.
			Code(graph.CodeConfigurationError).
			With("policy", p.ID).
			Errorf("duplicate policy id %q", p.ID)
	}
	seenIDs[p.ID] = true

	if len(p.Agents) == 0 {
		return oops.
			Code(graph.CodeConfigurationError).
			With("policy", p.ID).
			Errorf("policy %q has no agents", p.ID)
	}
	if len(p.Assets) == 0 && len(p.Tags) == 0 && p.Default == nil {
		return oops.
			Code(graph.CodeConfigurationError).
			With("policy", p.ID).
			Errorf("policy %q has no targets", p.ID)
	}

	for _, agent := range p.Agents {
		if err := requireKind(store, p.ID, agent, graph.KindUser, graph.KindGroup); err != nil {
			return err
		}
	}
	for _, asset := range p.Assets {
		if err := requireKind(store, p.ID, asset, graph.KindAsset); err != nil {
			return err
		}
	}
	for _, tag := range p.Tags {
		if err := requireKind(store, p.ID, tag, graph.KindTag); err != nil {
			return err
		}
	}
	if p.Default != nil {
		if err := requireKind(store, p.ID, p.Default.AnchorAsset, graph.KindAsset); err != nil {
			return err
		}
	}
	return nil
}

func requireKind(store *graph.Store, policyID string, id graph.ID, kinds ...graph.Kind) error {
	n, err := store.Get(id)
	if err != nil {
		return oops.
			Code(graph.CodeNotFound).
			With("policy", policyID).
			Wrapf(err, "policy %q references unknown node %q", policyID, id)
	}
	for _, k := range kinds {
		if n.NodeKind() == k {
			return nil
		}
	}
	return oops.
		Code(graph.CodeConfigurationError).
		With("policy", policyID).
		With("id", id).
		With("kind", n.NodeKind().String()).
		Errorf("policy %q references %q with unexpected kind %s", policyID, id, n.NodeKind())
}

// checkAnchorHierarchy rejects a default policy whose anchor sits on a
// cyclic hierarchy: its scope would be circular, so it is refused at
// load rather than surfaced as a query-time cycle.
func checkAnchorHierarchy(store *graph.Store, anchor graph.ID) error {
	const (
		gray  = 1
		black = 2
	)
	color := map[graph.ID]int{anchor: gray}
	type frame struct {
		node graph.ID
		next int
	}
	stack := []frame{{node: anchor}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		descendants := store.Neighbors(f.node, graph.ChildOf, graph.Incoming)
		if f.next < len(descendants) {
			v := descendants[f.next]
			f.next++
			switch color[v] {
			case gray:
				return oops.
					Code(graph.CodeConfigurationError).
					With("anchor", anchor).
					With("node", v).
					Errorf("circular hierarchy under default policy anchor %q", anchor)
			case black:
			default:
				color[v] = gray
				stack = append(stack, frame{node: v})
			}
			continue
		}
		color[f.node] = black
		stack = stack[:len(stack)-1]
	}
	return nil
}

// ByAgents returns every policy whose agent set intersects ids,
// deduplicated, in stable (input) order.
func (idx *Index) ByAgents(ids []graph.ID) []*Policy {
	seen := make(map[*Policy]bool)
	var out []*Policy
	for _, id := range ids {
		for _, p := range idx.byAgent[id] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// ByAsset returns the policies naming id as an exact asset target.
func (idx *Index) ByAsset(id graph.ID) []*Policy {
	return idx.byAsset[id]
}

// ByTag returns the policies naming id as a tag target.
func (idx *Index) ByTag(id graph.ID) []*Policy {
	return idx.byTag[id]
}

// DefaultsFor returns the default policies anchored at the given asset.
func (idx *Index) DefaultsFor(anchor graph.ID) []*DefaultEntry {
	return idx.defaultsByAnchor[anchor]
}

// Defaults returns every default policy entry.
func (idx *Index) Defaults() []*DefaultEntry {
	return idx.defaults
}

// All returns every indexed policy.
func (idx *Index) All() []*Policy {
	out := make([]*Policy, len(idx.policies))
	for i := range idx.policies {
		out[i] = &idx.policies[i]
	}
	return out
}

// Len returns the policy count.
func (idx *Index) Len() int {
	return len(idx.policies)
}
