// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package closure_test

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/graphtest"
)

func TestMatchingPathsFindsAllSimplePaths(t *testing.T) {
	// Two routes from t1 to root: direct hierarchy and via mid.
	store := graphtest.New(t).
		Asset("t1").Asset("mid").Asset("root").
		ChildOf("t1", "root").
		ChildOf("t1", "mid").
		ChildOf("mid", "root").
		Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	paths, conditions, err := engine.MatchingPaths("t1", "root", []graph.EdgeType{graph.ChildOf}, 0)
	require.NoError(t, err)
	assert.Empty(t, conditions)
	assert.ElementsMatch(t,
		[]closure.Path{{"t1", "root"}, {"t1", "mid", "root"}},
		paths)
}

func TestMatchingPathsMixedEdgeTypes(t *testing.T) {
	// A path crossing a lineage edge and then a hierarchy edge.
	store := graphtest.New(t).
		Asset("report").Asset("table").Asset("schema").
		DerivedFrom("report", "table").
		ChildOf("table", "schema").
		Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	paths, _, err := engine.MatchingPaths("report", "schema",
		[]graph.EdgeType{graph.ChildOf, graph.DerivedFrom}, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, closure.Path{"report", "table", "schema"}, paths[0])
}

func TestMatchingPathsBounded(t *testing.T) {
	store := graphtest.New(t).
		Asset("a").Asset("b1").Asset("b2").Asset("b3").Asset("z").
		ChildOf("a", "b1").ChildOf("a", "b2").ChildOf("a", "b3").
		ChildOf("b1", "z").ChildOf("b2", "z").ChildOf("b3", "z").
		Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	paths, conditions, err := engine.MatchingPaths("a", "z", []graph.EdgeType{graph.ChildOf}, 2)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	require.NotEmpty(t, conditions)
	assert.Equal(t, closure.Truncated, conditions[0].Kind)
}

func TestMatchingPathsCyclicGraphTerminates(t *testing.T) {
	store := graphtest.New(t).
		Asset("a").Asset("b").Asset("c").
		ChildOf("a", "b").ChildOf("b", "c").ChildOf("c", "a").
		Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	paths, _, err := engine.MatchingPaths("a", "c", []graph.EdgeType{graph.ChildOf}, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, closure.Path{"a", "b", "c"}, paths[0])
}

func TestMatchingPathsNoRoute(t *testing.T) {
	store := graphtest.New(t).
		Asset("a").Asset("b").
		Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	paths, conditions, err := engine.MatchingPaths("a", "b", []graph.EdgeType{graph.ChildOf}, 0)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Empty(t, conditions)
}

func TestMatchingPathsUnknownEndpoint(t *testing.T) {
	store := graphtest.New(t).Asset("a").Freeze()
	engine := closure.New(store, closure.DefaultLimits())

	_, _, err := engine.MatchingPaths("a", "ghost", []graph.EdgeType{graph.ChildOf}, 0)
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, graph.CodeNotFound, oopsErr.Code())
}
