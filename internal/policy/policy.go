// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package policy defines access policies and the per-generation index
// that answers which policies target a given asset or tag.
package policy

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Privilege is the ordered access scale. Deny is not on the scale; it
// is a distinct, non-comparable override expressed by Effect.
type Privilege int

// Privilege constants, least to most permissive.
const (
	PrivilegeNone     Privilege = iota // none
	PrivilegeMetadata                  // metadata
	PrivilegeRead                      // read
	PrivilegeWrite                     // write
)

var privilegeStrings = [...]string{
	"none",
	"metadata",
	"read",
	"write",
}

func (p Privilege) String() string {
	if p >= 0 && int(p) < len(privilegeStrings) {
		return privilegeStrings[p]
	}
	return fmt.Sprintf("unknown(%d)", int(p))
}

// ParsePrivilege parses a privilege name. Unknown names fail with
// CONFIGURATION_ERROR.
func ParsePrivilege(s string) (Privilege, error) {
	for i, name := range privilegeStrings {
		if s == name {
			return Privilege(i), nil
		}
	}
	return PrivilegeNone, oops.
		Code(graph.CodeConfigurationError).
		With("privilege", s).
		Errorf("unknown privilege %q", s)
}

// Effect distinguishes grants from the deny override.
type Effect int

// Effect constants.
const (
	EffectAllow Effect = iota // allow
	EffectDeny                // deny
)

func (e Effect) String() string {
	if e == EffectDeny {
		return "deny"
	}
	return "allow"
}

// ParseEffect parses an effect name. Unknown names fail with
// CONFIGURATION_ERROR.
func ParseEffect(s string) (Effect, error) {
	switch s {
	case "allow":
		return EffectAllow, nil
	case "deny":
		return EffectDeny, nil
	}
	return EffectAllow, oops.
		Code(graph.CodeConfigurationError).
		With("effect", s).
		Errorf("unknown effect %q", s)
}

// DefaultScope describes a default policy: rather than targeting its
// anchor asset, the policy applies to hierarchical descendants of the
// anchor whose path from the anchor matches PathGlob and whose asset
// type matches TargetType.
type DefaultScope struct {
	// AnchorAsset is the asset the glob is evaluated relative to.
	AnchorAsset graph.ID
	// PathGlob is a /-separated pattern: a "*" segment matches
	// exactly one hierarchy level, a trailing "**" matches one or
	// more, and any other segment matches the level's name segment
	// as a glob.
	PathGlob string
	// TargetType restricts matches to assets of this type; empty
	// matches any type.
	TargetType string
}

// Policy is an immutable Allow or Deny record tying a set of agents to
// a set of targets. Targets are exact asset ids, tag ids, and/or a
// default scope.
type Policy struct {
	// ID uniquely identifies the policy within a generation.
	ID string
	// Name is the human-readable policy name.
	Name string
	Effect Effect
	// Privilege is the granted level for Allow policies; ignored for
	// Deny.
	Privilege Privilege
	// Agents are user and/or group ids the policy applies to.
	Agents []graph.ID
	// Assets are exact asset targets.
	Assets []graph.ID
	// Tags are tag targets: the policy applies to any asset whose
	// effective tag set includes one of them.
	Tags []graph.ID
	// Default, when set, makes this a default policy scoped by a
	// hierarchical path glob.
	Default *DefaultScope
	// Connectors restricts an Allow policy to assets known to one of
	// these platforms. Empty means unrestricted. Deny policies are
	// evaluated cross-connector and ignore this scope.
	Connectors []string
	// Managed marks policies under jetty management, as opposed to
	// policies observed on the platform.
	Managed bool
}

// TargetsAsset reports whether the policy names id as an exact asset target.
func (p *Policy) TargetsAsset(id graph.ID) bool {
	for _, a := range p.Assets {
		if a == id {
			return true
		}
	}
	return false
}

// TargetsTag reports whether the policy names id as a tag target.
func (p *Policy) TargetsTag(id graph.ID) bool {
	for _, t := range p.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// AppliesToConnectors reports whether the policy's connector scope
// intersects the given connector set. Deny policies always apply.
func (p *Policy) AppliesToConnectors(connectors []string) bool {
	if p.Effect == EffectDeny || len(p.Connectors) == 0 {
		return true
	}
	for _, scoped := range p.Connectors {
		for _, c := range connectors {
			if scoped == c {
				return true
			}
		}
	}
	return false
}
