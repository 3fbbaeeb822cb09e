// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package engine_test

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
)

const sampleBundle = `
users:
  - id: snowflake::elliot
    identifiers: {email: elliot@example.com}
groups:
  - id: snowflake::analysts
    name: Analysts
assets:
  - id: snowflake::db
    asset_type: database
  - id: snowflake::db/schema
    asset_type: schema
  - id: tableau::workbook
    asset_type: workbook
memberships:
  - {member: snowflake::elliot, group: snowflake::analysts}
hierarchy:
  - {child: snowflake::db/schema, parent: snowflake::db}
lineage:
  - {derived: tableau::workbook, source: snowflake::db/schema}
`

func TestParseBundleAndApply(t *testing.T) {
	bundle, err := engine.ParseBundle([]byte(sampleBundle))
	require.NoError(t, err)

	b := graph.NewBuilder()
	require.NoError(t, bundle.Apply(b))
	store, err := b.Freeze()
	require.NoError(t, err)

	assert.Equal(t, 5, store.Len())

	n, err := store.Get("snowflake::elliot")
	require.NoError(t, err)
	assert.Equal(t, graph.KindUser, n.NodeKind())
	assert.Equal(t, []string{"snowflake"}, n.ConnectorSet(), "connector recovered from the id prefix")
	assert.Equal(t, "snowflake::elliot", n.NodeName(), "name defaults to the id")

	n, err = store.Get("snowflake::analysts")
	require.NoError(t, err)
	assert.Equal(t, "Analysts", n.NodeName())

	assert.Equal(t,
		[]graph.ID{"snowflake::analysts"},
		store.Neighbors("snowflake::elliot", graph.MemberOf, graph.Outgoing))
	assert.Equal(t,
		[]graph.ID{"snowflake::db"},
		store.Neighbors("snowflake::db/schema", graph.ChildOf, graph.Outgoing))
	assert.Equal(t,
		[]graph.ID{"snowflake::db/schema"},
		store.Neighbors("tableau::workbook", graph.DerivedFrom, graph.Outgoing))
}

func TestParseBundleRejectsUnknownField(t *testing.T) {
	_, err := engine.ParseBundle([]byte("users:\n  - id: u\n    shoe_size: 9\n"))
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, graph.CodeConfigurationError, oopsErr.Code())
}

func TestBundleBuildsGeneration(t *testing.T) {
	bundle, err := engine.ParseBundle([]byte(sampleBundle))
	require.NoError(t, err)

	b := graph.NewBuilder()
	require.NoError(t, bundle.Apply(b))
	gen, err := engine.Build(b, nil, closure.DefaultLimits())
	require.NoError(t, err)

	// Lineage closure crosses the connector boundary.
	res, err := gen.Closures.Closure("tableau::workbook", graph.DerivedFrom, graph.Outgoing)
	require.NoError(t, err)
	assert.True(t, res.Has("snowflake::db/schema"))
}
