// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package explore_test

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/explore"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/graphtest"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

// warehouseGeneration models a small warehouse: elliot is an analyst,
// analysts may read anything tagged pii, the pii tag sits on db and
// flows down to schema and (via lineage) to wb, and elliot is denied
// wb outright. mallory has no grants at all.
func warehouseGeneration(t *testing.T) *engine.Generation {
	t.Helper()

	fx := graphtest.New(t)
	fx.User("elliot").User("mallory").
		Group("analysts").Group("staff").
		Asset("db").AssetTyped("schema", "schema").AssetTyped("wb", "workbook").
		Tag("pii").
		MemberOf("elliot", "analysts").
		MemberOf("analysts", "staff").
		ChildOf("schema", "db").
		DerivedFrom("wb", "db").
		TaggedWith("db", "pii")

	policies := []policy.Policy{
		{
			ID: "analysts-read-pii", Name: "Analysts read PII",
			Effect: policy.EffectAllow, Privilege: policy.PrivilegeRead,
			Agents: []graph.ID{"analysts"}, Tags: []graph.ID{"pii"},
		},
		{
			ID: "deny-elliot-wb", Effect: policy.EffectDeny,
			Agents: []graph.ID{"elliot"}, Assets: []graph.ID{"wb"},
		},
	}

	gen, err := engine.Build(fx.Builder(), policies, closure.DefaultLimits())
	require.NoError(t, err)
	return gen
}

func TestNodes(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	assert.Len(t, x.Nodes(), 8)
	assert.Len(t, x.Nodes(graph.KindUser), 2)
	assert.Len(t, x.Nodes(graph.KindAsset), 3)

	users := x.Nodes(graph.KindUser)
	assert.Equal(t, graph.ID("elliot"), users[0].ID)
	assert.Equal(t, "user", users[0].Kind)
}

func TestUsersForAsset(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	access, err := x.UsersForAsset("schema", false)
	require.NoError(t, err)
	require.Len(t, access.Users, 1)
	assert.Equal(t, graph.ID("elliot"), access.Users[0].Node.ID)
	assert.Equal(t, "read", access.Users[0].Privilege)
	assert.Equal(t, "tag", access.Users[0].Tier)

	// Nothing names schema directly.
	access, err = x.UsersForAsset("schema", true)
	require.NoError(t, err)
	assert.Empty(t, access.Users)
}

func TestUsersForAssetDeniedUserExcluded(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	// elliot would reach wb through the pii tag, but the direct deny
	// wins.
	access, err := x.UsersForAsset("wb", false)
	require.NoError(t, err)
	assert.Empty(t, access.Users)
}

func TestAssetsForUser(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	assets, err := x.AssetsForUser("elliot")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, graph.ID("db"), assets[0].Node.ID)
	assert.Equal(t, graph.ID("schema"), assets[1].Node.ID)

	assets, err = x.AssetsForUser("mallory")
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestTagsForAssetGrouped(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	tg, err := x.TagsForAsset("db")
	require.NoError(t, err)
	require.Len(t, tg.Direct, 1)
	assert.Empty(t, tg.ViaHierarchy)

	tg, err = x.TagsForAsset("schema")
	require.NoError(t, err)
	assert.Empty(t, tg.Direct)
	require.Len(t, tg.ViaHierarchy, 1)
	assert.Equal(t, graph.ID("pii"), tg.ViaHierarchy[0].ID)
	assert.Equal(t, []closure.Path{{"schema", "db", "pii"}}, tg.ViaHierarchy[0].Paths)

	tg, err = x.TagsForAsset("wb")
	require.NoError(t, err)
	require.Len(t, tg.ViaLineage, 1)
}

func TestAssetsForTag(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	all, err := x.AssetsForTag("pii", false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	direct, err := x.AssetsForTag("pii", true)
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, graph.ID("db"), direct[0].ID)
}

func TestUsersForTag(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	users, err := x.UsersForTag("pii")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, graph.ID("elliot"), users[0].Node.ID)
}

func TestGroupQueries(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	direct, err := x.DirectGroups("elliot")
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, graph.ID("analysts"), direct[0].ID)

	inherited, err := x.InheritedGroups("elliot")
	require.NoError(t, err)
	require.Len(t, inherited, 1)
	assert.Equal(t, graph.ID("staff"), inherited[0].ID)
	assert.Equal(t, []closure.Path{{"elliot", "analysts", "staff"}}, inherited[0].Paths)

	members, err := x.DirectMembers("staff")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, graph.ID("analysts"), members[0].ID)

	all, err := x.AllMembers("staff")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, graph.ID("analysts"), all[0].ID)
	assert.Equal(t, graph.ID("elliot"), all[1].ID)
}

func TestRelated(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	up, err := x.Related("schema", graph.ChildOf, graph.Outgoing)
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, graph.ID("db"), up[0].ID)

	down, err := x.Related("db", graph.ChildOf, graph.Incoming)
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, graph.ID("schema"), down[0].ID)

	lineage, err := x.Related("wb", graph.DerivedFrom, graph.Outgoing)
	require.NoError(t, err)
	require.Len(t, lineage, 1)
	assert.Equal(t, graph.ID("db"), lineage[0].ID)
}

func TestPathsBetween(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	paths, conds, err := x.PathsBetween("elliot", "staff")
	require.NoError(t, err)
	assert.Empty(t, conds)
	assert.Equal(t, []closure.Path{{"elliot", "analysts", "staff"}}, paths)
}

func TestSubgraph(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	view, err := x.Subgraph("db", 1)
	require.NoError(t, err)
	assert.Equal(t, graph.ID("db"), view.Center)
	require.Len(t, view.Nodes, 4)
	assert.Equal(t, graph.ID("db"), view.Nodes[0].ID)
	assert.Equal(t, graph.ID("pii"), view.Nodes[1].ID)
	assert.Equal(t, graph.ID("schema"), view.Nodes[2].ID)
	assert.Equal(t, graph.ID("wb"), view.Nodes[3].ID)
	assert.Equal(t, []explore.EdgeView{
		{From: "db", To: "pii", Type: "tagged_with"},
		{From: "schema", To: "db", Type: "child_of"},
		{From: "wb", To: "db", Type: "derived_from"},
	}, view.Edges)

	// Membership chains expand hop by hop.
	view, err = x.Subgraph("elliot", 1)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 2)

	view, err = x.Subgraph("elliot", 2)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, []explore.EdgeView{
		{From: "analysts", To: "staff", Type: "member_of"},
		{From: "elliot", To: "analysts", Type: "member_of"},
	}, view.Edges)

	_, err = x.Subgraph("ghost", 1)
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, graph.CodeNotFound, oopsErr.Code())
}

func TestExplain(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	v, err := x.Explain("elliot", "schema")
	require.NoError(t, err)
	assert.Equal(t, "allow", v.Effect)
	assert.Equal(t, "read", v.Privilege)
	assert.Equal(t, "tag", v.Tier)
	require.Len(t, v.Explanations, 1)
	assert.Equal(t, "analysts-read-pii", v.Explanations[0].PolicyID)
	assert.True(t, v.Explanations[0].Contributing)
}

func TestQueryErrors(t *testing.T) {
	x := explore.NewExplorer(warehouseGeneration(t))

	_, err := x.AssetsForUser("ghost")
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, graph.CodeNotFound, oopsErr.Code())

	_, err = x.AssetsForUser("db")
	require.Error(t, err)
	oopsErr, ok = oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, resolve.CodeInvalidRequest, oopsErr.Code())

	_, err = x.AllMembers("elliot")
	require.Error(t, err)
	oopsErr, ok = oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, resolve.CodeInvalidRequest, oopsErr.Code())
}
