// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package policy

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, pathGlob string) *CompiledScope {
	t.Helper()
	scope, err := CompileScope(DefaultScope{AnchorAsset: "root", PathGlob: pathGlob})
	require.NoError(t, err)
	return scope
}

func TestCompileScopeInvalid(t *testing.T) {
	tests := []struct {
		name     string
		pathGlob string
	}{
		{"empty", ""},
		{"only slashes", "//"},
		{"empty segment", "*//*"},
		{"double star not last", "**/*"},
		{"bad pattern", "[/*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileScope(DefaultScope{AnchorAsset: "root", PathGlob: tt.pathGlob})
			require.Error(t, err)
			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "CONFIGURATION_ERROR", oopsErr.Code())
		})
	}
}

func TestMatchesPathSingleLevel(t *testing.T) {
	scope := compile(t, "*")

	assert.True(t, scope.MatchesPath([]string{"schema"}))
	assert.False(t, scope.MatchesPath([]string{"schema", "table"}))
	assert.False(t, scope.MatchesPath(nil), "anchor itself is never a match")
}

func TestMatchesPathOpenEnded(t *testing.T) {
	// ** matches one or more levels.
	scope := compile(t, "**")

	assert.True(t, scope.MatchesPath([]string{"schema"}))
	assert.True(t, scope.MatchesPath([]string{"schema", "table"}))
	assert.True(t, scope.MatchesPath([]string{"schema", "table", "column"}))
	assert.False(t, scope.MatchesPath(nil))
}

func TestMatchesPathFixedThenOpenEnded(t *testing.T) {
	// */** requires at least two levels.
	scope := compile(t, "*/**")

	assert.False(t, scope.MatchesPath([]string{"schema"}))
	assert.True(t, scope.MatchesPath([]string{"schema", "table"}))
	assert.True(t, scope.MatchesPath([]string{"schema", "table", "column"}))
}

func TestMatchesPathExactDepth(t *testing.T) {
	scope := compile(t, "*/*")

	assert.False(t, scope.MatchesPath([]string{"schema"}))
	assert.True(t, scope.MatchesPath([]string{"schema", "table"}))
	assert.False(t, scope.MatchesPath([]string{"schema", "table", "column"}))
}

func TestMatchesPathLiteralSegments(t *testing.T) {
	scope := compile(t, "reporting/*")

	assert.True(t, scope.MatchesPath([]string{"reporting", "orders"}))
	assert.False(t, scope.MatchesPath([]string{"staging", "orders"}))
}

func TestMatchesPathGlobSegments(t *testing.T) {
	scope := compile(t, "stg_*/**")

	assert.True(t, scope.MatchesPath([]string{"stg_orders", "t"}))
	assert.False(t, scope.MatchesPath([]string{"orders", "t"}))
}

func TestMatchesType(t *testing.T) {
	scope, err := CompileScope(DefaultScope{
		AnchorAsset: "root",
		PathGlob:    "**",
		TargetType:  "table",
	})
	require.NoError(t, err)

	assert.True(t, scope.MatchesType("table"))
	assert.False(t, scope.MatchesType("view"))

	unrestricted := compile(t, "**")
	assert.True(t, unrestricted.MatchesType("anything"))
}

func TestNameSegment(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"snowflake::db/schema/table", "table"},
		{"snowflake::db", "db"},
		{"tableau::workbook", "workbook"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameSegment(tt.name))
	}
}
