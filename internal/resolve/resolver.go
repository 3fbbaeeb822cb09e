// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package resolve computes effective permissions: who can access what,
// and why.
//
// For an (agent, asset) pair the resolver gathers every applicable
// policy — direct, inherited through hierarchy, propagated through tags
// and (for Deny) lineage — ranks the matches by specificity, applies
// deny-overrides within the winning tier, and reports the witness paths
// behind every contributing policy.
package resolve

import (
	"sort"
	"time"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
)

// CodeInvalidRequest classifies a resolve request naming a node of the
// wrong kind (e.g. an asset as the agent).
const CodeInvalidRequest = "INVALID_REQUEST"

// Resolver answers effective-permission queries over one generation.
// It is stateless beyond the generation's closure caches and safe for
// concurrent use.
type Resolver struct {
	closures *closure.Engine
	index    *policy.Index
}

// New creates a Resolver over a generation's closure engine and policy
// index.
func New(closures *closure.Engine, index *policy.Index) *Resolver {
	return &Resolver{closures: closures, index: index}
}

// Index returns the resolver's policy index.
func (r *Resolver) Index() *policy.Index {
	return r.index
}

// Closures returns the resolver's closure engine.
func (r *Resolver) Closures() *closure.Engine {
	return r.closures
}

// Resolve computes the effective privilege of agent on asset. An
// unknown id fails with NOT_FOUND; a node of the wrong kind with
// INVALID_REQUEST. Cycle and truncation conditions from the underlying
// closures annotate the decision rather than failing it.
func (r *Resolver) Resolve(agentID, assetID graph.ID) (*Decision, error) {
	start := time.Now()

	store := r.closures.Store()
	agentNode, err := store.Get(agentID)
	if err != nil {
		return nil, err
	}
	switch agentNode.NodeKind() {
	case graph.KindUser, graph.KindGroup:
	default:
		return nil, oops.
			Code(CodeInvalidRequest).
			With("id", agentID).
			With("kind", agentNode.NodeKind().String()).
			Errorf("agent %q is a %s, want user or group", agentID, agentNode.NodeKind())
	}
	assetNode, err := store.Get(assetID)
	if err != nil {
		return nil, err
	}
	asset, ok := assetNode.(graph.Asset)
	if !ok {
		return nil, oops.
			Code(CodeInvalidRequest).
			With("id", assetID).
			With("kind", assetNode.NodeKind().String()).
			Errorf("target %q is a %s, want asset", assetID, assetNode.NodeKind())
	}

	decision := &Decision{Agent: agentID, Asset: assetID}

	// Agent expansion: the agent plus its full membership closure.
	membership, err := r.closures.Closure(agentID, graph.MemberOf, graph.Outgoing)
	if err != nil {
		return nil, err
	}
	decision.Conditions = append(decision.Conditions, membership.Conditions...)

	agentIDs := make([]graph.ID, 0, len(membership.Reached)+1)
	agentIDs = append(agentIDs, agentID)
	agentIDs = append(agentIDs, membership.IDs()...)

	// Target expansion: effective tags, hierarchy ancestors, and (for
	// Deny inheritance) lineage ancestors.
	tctx, err := r.targetContext(assetID, asset)
	if err != nil {
		return nil, err
	}
	decision.Conditions = append(decision.Conditions, tctx.conditions...)

	for _, p := range r.index.ByAgents(agentIDs) {
		if p.Effect == policy.EffectAllow && !p.AppliesToConnectors(asset.Connectors) {
			continue
		}
		m, ok := r.matchTarget(p, tctx)
		if !ok {
			continue
		}
		decision.Explanations = append(decision.Explanations, Explanation{
			Policy:      p,
			Tier:        m.tier,
			Distance:    m.distance,
			AgentPaths:  agentPaths(p, agentID, membership),
			TargetPaths: m.targetPaths,
		})
	}

	r.combine(decision)
	recordResolve(time.Since(start), decision)
	return decision, nil
}

// combine applies the specificity and deny-overrides rules to the
// gathered explanations and finalizes the decision.
func (r *Resolver) combine(d *Decision) {
	if len(d.Explanations) == 0 {
		d.Effect = EffectDefaultDeny
		d.Privilege = policy.PrivilegeNone
		d.Tier = TierNone
		return
	}

	// The winning position is the most specific (tier, distance)
	// present among the matches.
	winTier, winDist := TierNone, 0
	for _, e := range d.Explanations {
		if e.Tier < winTier || (e.Tier == winTier && e.Distance < winDist) {
			winTier, winDist = e.Tier, e.Distance
		}
	}

	// Deny wins ties at equal specificity; otherwise additive access
	// across overlapping memberships resolves to the most permissive
	// privilege.
	denied := false
	best := policy.PrivilegeNone
	for _, e := range d.Explanations {
		if e.Tier != winTier || e.Distance != winDist {
			continue
		}
		if e.Policy.Effect == policy.EffectDeny {
			denied = true
		} else if e.Policy.Privilege > best {
			best = e.Policy.Privilege
		}
	}

	d.Tier = winTier
	if denied {
		d.Effect = EffectDeny
		d.Privilege = policy.PrivilegeNone
	} else {
		d.Effect = EffectAllow
		d.Privilege = best
	}

	for i := range d.Explanations {
		e := &d.Explanations[i]
		if e.Tier != winTier || e.Distance != winDist {
			continue
		}
		if denied {
			e.Contributing = e.Policy.Effect == policy.EffectDeny
		} else {
			e.Contributing = e.Policy.Privilege == best
		}
	}

	sort.SliceStable(d.Explanations, func(i, j int) bool {
		a, b := d.Explanations[i], d.Explanations[j]
		if a.Contributing != b.Contributing {
			return a.Contributing
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Policy.ID < b.Policy.ID
	})
}

// agentPaths collects the membership witness paths from the agent to
// every agent the policy names.
func agentPaths(p *policy.Policy, agent graph.ID, membership *closure.Result) []closure.Path {
	var out []closure.Path
	for _, id := range p.Agents {
		if id == agent {
			out = append(out, closure.Path{agent})
			continue
		}
		out = append(out, membership.Reached[id]...)
	}
	return out
}
