// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package resolve

import (
	"fmt"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
)

// Effect is the resolved outcome for an (agent, asset) pair.
type Effect int

// Effect constants. DefaultDeny is the baseline when no policy matches:
// access must be explicit.
const (
	EffectDefaultDeny Effect = iota // default_deny
	EffectAllow                     // allow
	EffectDeny                      // deny
)

var effectStrings = [...]string{
	"default_deny",
	"allow",
	"deny",
}

func (e Effect) String() string {
	if e >= 0 && int(e) < len(effectStrings) {
		return effectStrings[e]
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

// Tier ranks how specifically a policy targets an asset. Lower is more
// specific. The ordering is strict and total; within TierDefault,
// hierarchical distance breaks ties (closer wins), and there is no
// recency or priority tie-break beyond that.
type Tier int

// Tier constants, most specific first.
const (
	// TierAssetAndTag: the policy names this exact asset and a tag
	// filter that matches the asset's effective tags.
	TierAssetAndTag Tier = iota // asset_and_tag
	// TierAsset: the policy names this exact asset.
	TierAsset // asset
	// TierTag: the policy names a tag in the asset's effective tag set.
	TierTag // tag
	// TierDefault: the policy reaches the asset by inheritance — a
	// plain policy on a hierarchy ancestor (for Deny, also a lineage
	// ancestor), or a default policy whose glob matches.
	TierDefault // default
	// TierNone: no target match.
	TierNone // none
)

var tierStrings = [...]string{
	"asset_and_tag",
	"asset",
	"tag",
	"default",
	"none",
}

func (t Tier) String() string {
	if t >= 0 && int(t) < len(tierStrings) {
		return tierStrings[t]
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Explanation records one applicable policy and the witness paths that
// connect the agent and the asset to it.
type Explanation struct {
	Policy *policy.Policy
	Tier   Tier
	// Distance is the hierarchy/lineage hop count to the policy's
	// point of attachment; zero for the direct tiers.
	Distance int
	// AgentPaths witness the membership chain from the agent to the
	// user/group the policy names. A policy naming the agent itself
	// has the single-element path.
	AgentPaths []closure.Path
	// TargetPaths witness the hierarchy, lineage, and/or
	// tag-application chain from the asset to the policy's target.
	TargetPaths []closure.Path
	// Contributing marks the policies that produced the winning
	// effect and privilege. Non-contributing explanations document
	// matches that were overridden by a more specific tier or a
	// deny.
	Contributing bool
}

// Decision is the effective permission for one (agent, asset) pair plus
// the full explanation of how it was reached.
type Decision struct {
	Agent graph.ID
	Asset graph.ID

	Effect Effect
	// Privilege is the effective level for Allow decisions;
	// PrivilegeNone otherwise.
	Privilege policy.Privilege
	// Tier is the specificity tier the decision was made at;
	// TierNone for default deny.
	Tier Tier

	// Explanations lists every applicable policy, contributing
	// entries first, then by specificity.
	Explanations []Explanation
	// Conditions carries cycle/truncation annotations from the
	// closures consulted, so callers can flag incomplete results.
	Conditions []closure.Condition
}

// HasAccess reports whether the decision grants any access at all.
func (d *Decision) HasAccess() bool {
	return d.Effect == EffectAllow && d.Privilege > policy.PrivilegeNone
}
