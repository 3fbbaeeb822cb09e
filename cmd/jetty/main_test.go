// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"explore", "validate"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func writeTestInputs(t *testing.T) (graphPath, policyPath, tagPath string) {
	t.Helper()
	dir := t.TempDir()

	graphPath = filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(graphPath, []byte(`
users:
  - id: snowflake::elliot
groups:
  - id: snowflake::analysts
assets:
  - id: snowflake::db
    asset_type: database
memberships:
  - {member: snowflake::elliot, group: snowflake::analysts}
`), 0o600))

	policyPath = filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
policies:
  - id: analysts-read-db
    effect: allow
    privilege: read
    agents: [snowflake::analysts]
    assets: [snowflake::db]
`), 0o600))

	tagPath = filepath.Join(dir, "tags.yaml")
	require.NoError(t, os.WriteFile(tagPath, []byte(`
tags:
  pii:
    apply_to: [snowflake::db]
`), 0o600))

	return graphPath, policyPath, tagPath
}

func TestValidateCommand(t *testing.T) {
	graphPath, policyPath, tagPath := writeTestInputs(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"validate",
		"--graph", graphPath,
		"--policies", policyPath,
		"--tags", tagPath,
	})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "ok: 4 nodes, 1 policies")
}

func TestValidateCommand_BadPolicy(t *testing.T) {
	graphPath, _, _ := writeTestInputs(t)

	dir := t.TempDir()
	badPolicy := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPolicy, []byte(`
policies:
  - id: nope
    effect: allow
    privilege: read
    agents: [snowflake::analysts]
    assets: [snowflake::missing]
`), 0o600))

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate", "--graph", graphPath, "--policies", badPolicy})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowflake::missing")
}

func TestValidateCommand_RequiresGraph(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"validate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph bundle")
}
