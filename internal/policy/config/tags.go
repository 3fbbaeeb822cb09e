// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package config

import (
	"sort"

	"github.com/samber/oops"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// tagConnector marks tag nodes as owned by the governance layer rather
// than observed on a platform.
const tagConnector = "jetty"

// TagFile is the tag taxonomy document: tag name to definition.
type TagFile struct {
	Tags map[string]TagDoc `yaml:"tags"`
}

// TagDoc defines one tag and the assets it is applied to or explicitly
// removed from.
type TagDoc struct {
	Description          string   `yaml:"description,omitempty"`
	Value                string   `yaml:"value,omitempty"`
	PassThroughHierarchy bool     `yaml:"pass_through_hierarchy,omitempty"`
	PassThroughLineage   bool     `yaml:"pass_through_lineage,omitempty"`
	ApplyTo              []string `yaml:"apply_to,omitempty"`
	RemoveFrom           []string `yaml:"remove_from,omitempty"`
}

// ParseTags decodes a tag taxonomy document. An asset listed in both
// apply_to and remove_from of the same tag is a contradiction and fails
// the load.
func ParseTags(data []byte) (*TagFile, error) {
	var file TagFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}

	for name, doc := range file.Tags {
		applied := make(map[string]bool, len(doc.ApplyTo))
		for _, asset := range doc.ApplyTo {
			applied[asset] = true
		}
		for _, asset := range doc.RemoveFrom {
			if applied[asset] {
				return nil, oops.
					Code(graph.CodeConfigurationError).
					With("tag", name).
					With("asset", asset).
					Errorf("tag %q both applies to and is removed from %q", name, asset)
			}
		}
	}
	return &file, nil
}

// Apply adds the taxonomy's tag nodes and tag-application edges to the
// graph under construction. Unknown asset ids surface when the builder
// freezes.
func (tf *TagFile) Apply(b *graph.Builder) error {
	names := make([]string, 0, len(tf.Tags))
	for name := range tf.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		doc := tf.Tags[name]
		err := b.AddNode(graph.Tag{
			Common: graph.Common{
				ID:         graph.ID(name),
				Name:       name,
				Connectors: []string{tagConnector},
			},
			Description:          doc.Description,
			Value:                doc.Value,
			PassThroughHierarchy: doc.PassThroughHierarchy,
			PassThroughLineage:   doc.PassThroughLineage,
		})
		if err != nil {
			return err
		}
		for _, asset := range doc.ApplyTo {
			b.AddEdge(graph.ID(asset), graph.ID(name), graph.TaggedWith)
		}
		for _, asset := range doc.RemoveFrom {
			b.AddEdge(graph.ID(asset), graph.ID(name), graph.TaggedWith, graph.WithRemoved())
		}
	}
	return nil
}
