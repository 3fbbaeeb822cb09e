// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package engine

import (
	"bytes"
	"io"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Bundle is the serialized graph a fetch produces: the users, groups,
// and assets observed across connectors, plus the membership, hierarchy,
// and lineage edges between them. Tags arrive separately, from the tag
// taxonomy document.
type Bundle struct {
	Users       []NodeDoc       `yaml:"users,omitempty"`
	Groups      []NodeDoc       `yaml:"groups,omitempty"`
	Assets      []AssetDoc      `yaml:"assets,omitempty"`
	Memberships []MembershipDoc `yaml:"memberships,omitempty"`
	Hierarchy   []HierarchyDoc  `yaml:"hierarchy,omitempty"`
	Lineage     []LineageDoc    `yaml:"lineage,omitempty"`
}

// NodeDoc is the serialized form shared by user and group nodes.
type NodeDoc struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name,omitempty"`
	Connectors  []string          `yaml:"connectors,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
	Identifiers map[string]string `yaml:"identifiers,omitempty"`
}

// AssetDoc extends NodeDoc with the platform asset type.
type AssetDoc struct {
	NodeDoc   `yaml:",inline"`
	AssetType string `yaml:"asset_type,omitempty"`
}

// MembershipDoc is one member-of edge.
type MembershipDoc struct {
	Member string `yaml:"member"`
	Group  string `yaml:"group"`
}

// HierarchyDoc is one child-of edge.
type HierarchyDoc struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
}

// LineageDoc is one derived-from edge.
type LineageDoc struct {
	Derived string `yaml:"derived"`
	Source  string `yaml:"source"`
}

// ParseBundle decodes a graph bundle document. Unknown fields fail with
// CONFIGURATION_ERROR; dangling edge endpoints surface when the builder
// freezes.
func ParseBundle(data []byte) (*Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var b Bundle
	if err := dec.Decode(&b); err != nil && err != io.EOF {
		return nil, oops.
			Code(graph.CodeConfigurationError).
			Wrapf(err, "invalid graph bundle")
	}
	return &b, nil
}

// Apply adds the bundle's nodes and edges to the graph under
// construction.
func (b *Bundle) Apply(builder *graph.Builder) error {
	for _, doc := range b.Users {
		if err := builder.AddNode(graph.User{
			Common:      doc.common(),
			Identifiers: doc.Identifiers,
		}); err != nil {
			return err
		}
	}
	for _, doc := range b.Groups {
		if err := builder.AddNode(graph.Group{Common: doc.common()}); err != nil {
			return err
		}
	}
	for _, doc := range b.Assets {
		if err := builder.AddNode(graph.Asset{
			Common:    doc.common(),
			AssetType: doc.AssetType,
		}); err != nil {
			return err
		}
	}
	for _, e := range b.Memberships {
		builder.AddEdge(graph.ID(e.Member), graph.ID(e.Group), graph.MemberOf)
	}
	for _, e := range b.Hierarchy {
		builder.AddEdge(graph.ID(e.Child), graph.ID(e.Parent), graph.ChildOf)
	}
	for _, e := range b.Lineage {
		builder.AddEdge(graph.ID(e.Derived), graph.ID(e.Source), graph.DerivedFrom)
	}
	return nil
}

func (doc NodeDoc) common() graph.Common {
	c := graph.Common{
		ID:         graph.ID(doc.ID),
		Name:       doc.Name,
		Connectors: doc.Connectors,
		Metadata:   doc.Metadata,
	}
	if c.Name == "" {
		c.Name = doc.ID
	}
	// Ids follow the "connector::path" convention; recover the owning
	// connector when none is listed.
	if len(c.Connectors) == 0 {
		if prefix, _, ok := strings.Cut(doc.ID, "::"); ok {
			c.Connectors = []string{prefix}
		}
	}
	return c
}
