// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package graph

import (
	"fmt"

	"github.com/samber/oops"
)

// ID is an opaque node identifier, stable across fetch cycles.
type ID string

// Kind identifies the variant of a Node.
type Kind int

// Kind constants enumerate the node variants.
const (
	KindUser  Kind = iota // user
	KindGroup             // group
	KindAsset             // asset
	KindTag               // tag
)

var kindStrings = [...]string{
	"user",
	"group",
	"asset",
	"tag",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Node is the closed set of graph node variants. The concrete types are
// User, Group, Asset, and Tag; every site that needs kind-specific
// behavior switches exhaustively over them.
type Node interface {
	// NodeID returns the globally unique, fetch-stable identifier.
	NodeID() ID
	// NodeName returns the platform-qualified display name,
	// e.g. "snowflake::db/schema/table".
	NodeName() string
	// NodeKind returns the variant tag.
	NodeKind() Kind
	// ConnectorSet returns the origin connectors the node is known
	// to exist in.
	ConnectorSet() []string

	sealed()
}

// Common holds the attributes shared by every node variant.
type Common struct {
	ID         ID
	Name       string
	Connectors []string
	Metadata   map[string]string
}

// NodeID implements Node.
func (c Common) NodeID() ID { return c.ID }

// NodeName implements Node.
func (c Common) NodeName() string { return c.Name }

// ConnectorSet implements Node.
func (c Common) ConnectorSet() []string { return c.Connectors }

// User is a person or service identity known to one or more platforms.
type User struct {
	Common
	// Identifiers maps identifier kinds (email, full name, ...) to
	// their connector-reported values.
	Identifiers map[string]string
}

// Group is a collection of users and/or other groups.
type Group struct {
	Common
}

// Asset is a governed data object: table, schema, dashboard, and so on.
type Asset struct {
	Common
	// AssetType is the connector-reported object type ("table",
	// "view", "workbook", ...).
	AssetType string
}

// Tag is a governance label applied to assets, optionally inherited
// through hierarchy and/or lineage.
type Tag struct {
	Common
	Description string
	// Value is an optional tag value for key/value style tags.
	Value string
	// PassThroughHierarchy propagates the tag to hierarchical
	// descendants of tagged assets.
	PassThroughHierarchy bool
	// PassThroughLineage propagates the tag to lineage descendants
	// of tagged assets.
	PassThroughLineage bool
}

// NodeKind implements Node.
func (User) NodeKind() Kind { return KindUser }

// NodeKind implements Node.
func (Group) NodeKind() Kind { return KindGroup }

// NodeKind implements Node.
func (Asset) NodeKind() Kind { return KindAsset }

// NodeKind implements Node.
func (Tag) NodeKind() Kind { return KindTag }

func (User) sealed()  {}
func (Group) sealed() {}
func (Asset) sealed() {}
func (Tag) sealed()   {}

// mergeNode combines two reports of the same node, typically from
// different connectors. Connector and metadata sets union; scalar
// fields must agree. Mismatched kinds or conflicting scalars fail with
// CONFIGURATION_ERROR so a bad fetch never builds a generation.
func mergeNode(existing, incoming Node) (Node, error) {
	if existing.NodeKind() != incoming.NodeKind() {
		return nil, oops.
			Code(CodeConfigurationError).
			With("id", existing.NodeID()).
			Errorf("node reported with conflicting kinds %s and %s",
				existing.NodeKind(), incoming.NodeKind())
	}

	switch a := existing.(type) {
	case User:
		b := incoming.(User)
		common, err := mergeCommon(a.Common, b.Common)
		if err != nil {
			return nil, err
		}
		ids, err := mergeStringMap(a.NodeID(), "identifiers", a.Identifiers, b.Identifiers)
		if err != nil {
			return nil, err
		}
		return User{Common: common, Identifiers: ids}, nil
	case Group:
		b := incoming.(Group)
		common, err := mergeCommon(a.Common, b.Common)
		if err != nil {
			return nil, err
		}
		return Group{Common: common}, nil
	case Asset:
		b := incoming.(Asset)
		common, err := mergeCommon(a.Common, b.Common)
		if err != nil {
			return nil, err
		}
		if err := matchField(a.NodeID(), "asset_type", a.AssetType, b.AssetType); err != nil {
			return nil, err
		}
		return Asset{Common: common, AssetType: a.AssetType}, nil
	case Tag:
		b := incoming.(Tag)
		common, err := mergeCommon(a.Common, b.Common)
		if err != nil {
			return nil, err
		}
		if err := matchField(a.NodeID(), "value", a.Value, b.Value); err != nil {
			return nil, err
		}
		if err := matchField(a.NodeID(), "pass_through_hierarchy", a.PassThroughHierarchy, b.PassThroughHierarchy); err != nil {
			return nil, err
		}
		if err := matchField(a.NodeID(), "pass_through_lineage", a.PassThroughLineage, b.PassThroughLineage); err != nil {
			return nil, err
		}
		merged := a
		merged.Common = common
		if merged.Description == "" {
			merged.Description = b.Description
		}
		return merged, nil
	default:
		return nil, oops.Errorf("unhandled node variant %T", existing)
	}
}

func mergeCommon(a, b Common) (Common, error) {
	if err := matchField(a.ID, "name", a.Name, b.Name); err != nil {
		return Common{}, err
	}
	meta, err := mergeStringMap(a.ID, "metadata", a.Metadata, b.Metadata)
	if err != nil {
		return Common{}, err
	}
	return Common{
		ID:         a.ID,
		Name:       a.Name,
		Connectors: unionStrings(a.Connectors, b.Connectors),
		Metadata:   meta,
	}, nil
}

func matchField[T comparable](id ID, field string, a, b T) error {
	if a != b {
		return oops.
			Code(CodeConfigurationError).
			With("id", id).
			With("field", field).
			Errorf("conflicting values for %s: %v, %v", field, a, b)
	}
	return nil
}

func mergeStringMap(id ID, field string, a, b map[string]string) (map[string]string, error) {
	if len(a) == 0 && len(b) == 0 {
		return nil, nil
	}
	merged := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		if existing, ok := merged[k]; ok && existing != v {
			return nil, oops.
				Code(CodeConfigurationError).
				With("id", id).
				With("field", field).
				With("key", k).
				Errorf("conflicting %s values for key %q: %q, %q", field, k, existing, v)
		}
		merged[k] = v
	}
	return merged, nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
