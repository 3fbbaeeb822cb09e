// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package config parses the policy and tag configuration documents.
// Parsing is strict: unknown YAML fields, unknown effect or privilege
// names, and contradictory tag applications all fail at load time with
// CONFIGURATION_ERROR, never at query time.
package config

import (
	"bytes"
	"io"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// decodeStrict decodes one YAML document into out, rejecting unknown
// fields.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return oops.
			Code(graph.CodeConfigurationError).
			Wrapf(err, "invalid YAML")
	}
	return nil
}

func toIDs(ss []string) []graph.ID {
	if len(ss) == 0 {
		return nil
	}
	ids := make([]graph.ID, len(ss))
	for i, s := range ss {
		ids[i] = graph.ID(s)
	}
	return ids
}
