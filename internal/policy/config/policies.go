// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package config

import (
	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
)

// PolicyFile is the top-level policy configuration document.
type PolicyFile struct {
	Policies []PolicyDoc `yaml:"policies"`
}

// PolicyDoc is one policy entry as written in configuration. An allow
// policy must name a privilege; a deny policy must not.
type PolicyDoc struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name,omitempty"`
	Effect     string      `yaml:"effect"`
	Privilege  string      `yaml:"privilege,omitempty"`
	Agents     []string    `yaml:"agents"`
	Assets     []string    `yaml:"assets,omitempty"`
	Tags       []string    `yaml:"tags,omitempty"`
	Connectors []string    `yaml:"connectors,omitempty"`
	Default    *DefaultDoc `yaml:"default,omitempty"`
}

// DefaultDoc scopes a default policy to descendants of an anchor asset.
type DefaultDoc struct {
	Anchor     string `yaml:"anchor"`
	Path       string `yaml:"path"`
	TargetType string `yaml:"target_type,omitempty"`
}

// ParsePolicies decodes a policy document into the policy model.
// Structural validation against the graph (unknown ids, bad globs)
// happens later, in policy.Build.
func ParsePolicies(data []byte) ([]policy.Policy, error) {
	var file PolicyFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}

	policies := make([]policy.Policy, 0, len(file.Policies))
	for _, doc := range file.Policies {
		p, err := doc.toPolicy()
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func (doc PolicyDoc) toPolicy() (policy.Policy, error) {
	effect, err := policy.ParseEffect(doc.Effect)
	if err != nil {
		return policy.Policy{}, err
	}

	var privilege policy.Privilege
	switch effect {
	case policy.EffectAllow:
		if doc.Privilege == "" {
			return policy.Policy{}, oops.
				Code(graph.CodeConfigurationError).
				With("policy", doc.ID).
				Errorf("allow policy %q has no privilege", doc.ID)
		}
		privilege, err = policy.ParsePrivilege(doc.Privilege)
		if err != nil {
			return policy.Policy{}, err
		}
		if privilege == policy.PrivilegeNone {
			return policy.Policy{}, oops.
				Code(graph.CodeConfigurationError).
				With("policy", doc.ID).
				Errorf("allow policy %q grants privilege none", doc.ID)
		}
	case policy.EffectDeny:
		if doc.Privilege != "" {
			return policy.Policy{}, oops.
				Code(graph.CodeConfigurationError).
				With("policy", doc.ID).
				Errorf("deny policy %q must not name a privilege", doc.ID)
		}
	}

	p := policy.Policy{
		ID:         doc.ID,
		Name:       doc.Name,
		Effect:     effect,
		Privilege:  privilege,
		Agents:     toIDs(doc.Agents),
		Assets:     toIDs(doc.Assets),
		Tags:       toIDs(doc.Tags),
		Connectors: doc.Connectors,
		Managed:    true,
	}
	if doc.Default != nil {
		p.Default = &policy.DefaultScope{
			AnchorAsset: graph.ID(doc.Default.Anchor),
			PathGlob:    doc.Default.Path,
			TargetType:  doc.Default.TargetType,
		}
	}
	return p, nil
}
