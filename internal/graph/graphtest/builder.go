// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package graphtest provides fixture helpers for building small access
// graphs in tests.
package graphtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// Fixture wraps a graph.Builder with terse helpers. Node names default
// to "test::<id>" and connectors to ["test"] unless overridden.
type Fixture struct {
	t *testing.T
	b *graph.Builder
}

// New creates an empty Fixture.
func New(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{t: t, b: graph.NewBuilder()}
}

// Builder exposes the underlying builder for cases the helpers don't cover.
func (f *Fixture) Builder() *graph.Builder {
	return f.b
}

func (f *Fixture) common(id string) graph.Common {
	return graph.Common{
		ID:         graph.ID(id),
		Name:       "test::" + id,
		Connectors: []string{"test"},
	}
}

// User adds a user node.
func (f *Fixture) User(id string) *Fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddNode(graph.User{Common: f.common(id)}))
	return f
}

// Group adds a group node.
func (f *Fixture) Group(id string) *Fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddNode(graph.Group{Common: f.common(id)}))
	return f
}

// Asset adds an asset node of type "table".
func (f *Fixture) Asset(id string) *Fixture {
	return f.AssetTyped(id, "table")
}

// AssetTyped adds an asset node with an explicit asset type.
func (f *Fixture) AssetTyped(id, assetType string) *Fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddNode(graph.Asset{Common: f.common(id), AssetType: assetType}))
	return f
}

// Tag adds a tag node with both pass-through flags set.
func (f *Fixture) Tag(id string) *Fixture {
	return f.TagFlags(id, true, true)
}

// TagFlags adds a tag node with explicit pass-through flags.
func (f *Fixture) TagFlags(id string, hierarchy, lineage bool) *Fixture {
	f.t.Helper()
	require.NoError(f.t, f.b.AddNode(graph.Tag{
		Common:               f.common(id),
		PassThroughHierarchy: hierarchy,
		PassThroughLineage:   lineage,
	}))
	return f
}

// MemberOf adds a membership edge.
func (f *Fixture) MemberOf(member, group string) *Fixture {
	f.b.AddEdge(graph.ID(member), graph.ID(group), graph.MemberOf)
	return f
}

// ChildOf adds a hierarchy edge from child to parent.
func (f *Fixture) ChildOf(child, parent string) *Fixture {
	f.b.AddEdge(graph.ID(child), graph.ID(parent), graph.ChildOf)
	return f
}

// DerivedFrom adds a lineage edge from derived to source.
func (f *Fixture) DerivedFrom(derived, source string) *Fixture {
	f.b.AddEdge(graph.ID(derived), graph.ID(source), graph.DerivedFrom)
	return f
}

// TaggedWith adds a tag-application edge.
func (f *Fixture) TaggedWith(asset, tag string, opts ...graph.EdgeOption) *Fixture {
	f.b.AddEdge(graph.ID(asset), graph.ID(tag), graph.TaggedWith, opts...)
	return f
}

// Freeze builds the store, failing the test on error.
func (f *Fixture) Freeze() *graph.Store {
	f.t.Helper()
	s, err := f.b.Freeze()
	require.NoError(f.t, err)
	return s
}
