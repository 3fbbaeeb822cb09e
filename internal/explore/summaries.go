// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package explore answers read-only questions over a published
// generation: who can reach what, through which paths, and why. It also
// serves the JSON API the exploration UI consumes.
package explore

import (
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

// NodeSummary is the wire form of a graph node, optionally carrying the
// witness paths that connected it to the queried node.
type NodeSummary struct {
	ID         graph.ID       `json:"id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Connectors []string       `json:"connectors,omitempty"`
	AssetType  string         `json:"asset_type,omitempty"`
	Paths      []closure.Path `json:"paths,omitempty"`
}

func summarize(n graph.Node) NodeSummary {
	s := NodeSummary{
		ID:         n.NodeID(),
		Name:       n.NodeName(),
		Kind:       n.NodeKind().String(),
		Connectors: n.ConnectorSet(),
	}
	if a, ok := n.(graph.Asset); ok {
		s.AssetType = a.AssetType
	}
	return s
}

// ConditionView is the wire form of a traversal condition.
type ConditionView struct {
	Kind   string   `json:"kind"`
	Node   graph.ID `json:"node,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

func viewConditions(conds []closure.Condition) []ConditionView {
	if len(conds) == 0 {
		return nil
	}
	out := make([]ConditionView, len(conds))
	for i, c := range conds {
		out[i] = ConditionView{Kind: c.Kind.String(), Node: c.Node, Detail: c.Detail}
	}
	return out
}

// EdgeView is the wire form of one edge in a subgraph, always in the
// edge's declared orientation.
type EdgeView struct {
	From graph.ID `json:"from"`
	To   graph.ID `json:"to"`
	Type string   `json:"type"`
}

// SubgraphView is the neighborhood of one node: every node within the
// requested number of hops, plus every edge among them.
type SubgraphView struct {
	Center graph.ID      `json:"center"`
	Nodes  []NodeSummary `json:"nodes"`
	Edges  []EdgeView    `json:"edges"`
}

// AccessSummary pairs a node with the outcome of resolving it against
// the queried counterpart.
type AccessSummary struct {
	Node      NodeSummary `json:"node"`
	Effect    string      `json:"effect"`
	Privilege string      `json:"privilege"`
	Tier      string      `json:"tier"`
}

// ExplanationView is the wire form of one applicable policy.
type ExplanationView struct {
	PolicyID     string         `json:"policy_id"`
	PolicyName   string         `json:"policy_name,omitempty"`
	Effect       string         `json:"effect"`
	Privilege    string         `json:"privilege,omitempty"`
	Tier         string         `json:"tier"`
	Distance     int            `json:"distance"`
	AgentPaths   []closure.Path `json:"agent_paths,omitempty"`
	TargetPaths  []closure.Path `json:"target_paths,omitempty"`
	Contributing bool           `json:"contributing"`
}

// DecisionView is the wire form of a resolved decision, the payload of
// the explain endpoint.
type DecisionView struct {
	Agent        graph.ID          `json:"agent"`
	Asset        graph.ID          `json:"asset"`
	Effect       string            `json:"effect"`
	Privilege    string            `json:"privilege"`
	Tier         string            `json:"tier"`
	Explanations []ExplanationView `json:"explanations,omitempty"`
	Conditions   []ConditionView   `json:"conditions,omitempty"`
}

func viewDecision(d *resolve.Decision) DecisionView {
	v := DecisionView{
		Agent:      d.Agent,
		Asset:      d.Asset,
		Effect:     d.Effect.String(),
		Privilege:  d.Privilege.String(),
		Tier:       d.Tier.String(),
		Conditions: viewConditions(d.Conditions),
	}
	for _, e := range d.Explanations {
		ev := ExplanationView{
			PolicyID:     e.Policy.ID,
			PolicyName:   e.Policy.Name,
			Effect:       e.Policy.Effect.String(),
			Tier:         e.Tier.String(),
			Distance:     e.Distance,
			AgentPaths:   e.AgentPaths,
			TargetPaths:  e.TargetPaths,
			Contributing: e.Contributing,
		}
		if e.Policy.Effect == policy.EffectAllow {
			ev.Privilege = e.Policy.Privilege.String()
		}
		v.Explanations = append(v.Explanations, ev)
	}
	return v
}
