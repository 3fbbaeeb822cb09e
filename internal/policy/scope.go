// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package policy

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	igraph "github.com/jettylabs-archive/jetty-access-control/internal/graph"
)

// CompiledScope is the parsed, validated form of a DefaultScope. Globs
// are compiled once at load; matching at query time is allocation-free.
type CompiledScope struct {
	anchor     igraph.ID
	targetType string
	raw        string
	// matchers holds one compiled glob per fixed level. For an
	// open-ended scope the trailing "**" is not in matchers; it
	// covers level len(matchers)+1 and below.
	matchers  []glob.Glob
	openEnded bool
}

// CompileScope parses and validates a default scope. Malformed globs
// ("**" anywhere but last, empty segments, invalid patterns) fail with
// CONFIGURATION_ERROR so they never reach query time.
func CompileScope(s DefaultScope) (*CompiledScope, error) {
	trimmed := strings.Trim(s.PathGlob, "/")
	if trimmed == "" {
		return nil, oops.
			Code(igraph.CodeConfigurationError).
			With("anchor", s.AnchorAsset).
			Errorf("default policy path glob is empty")
	}

	segments := strings.Split(trimmed, "/")
	c := &CompiledScope{
		anchor:     s.AnchorAsset,
		targetType: s.TargetType,
		raw:        s.PathGlob,
	}
	for i, seg := range segments {
		if seg == "" {
			return nil, oops.
				Code(igraph.CodeConfigurationError).
				With("glob", s.PathGlob).
				Errorf("default policy path glob %q has an empty segment", s.PathGlob)
		}
		if seg == "**" {
			if i != len(segments)-1 {
				return nil, oops.
					Code(igraph.CodeConfigurationError).
					With("glob", s.PathGlob).
					Errorf("default policy path glob %q: ** must be the final segment", s.PathGlob)
			}
			c.openEnded = true
			continue
		}
		m, err := glob.Compile(seg)
		if err != nil {
			return nil, oops.
				Code(igraph.CodeConfigurationError).
				With("glob", s.PathGlob).
				With("segment", seg).
				Wrapf(err, "default policy path glob %q: invalid segment %q", s.PathGlob, seg)
		}
		c.matchers = append(c.matchers, m)
	}
	return c, nil
}

// Anchor returns the asset the scope is evaluated relative to.
func (c *CompiledScope) Anchor() igraph.ID {
	return c.anchor
}

// Glob returns the raw path glob.
func (c *CompiledScope) Glob() string {
	return c.raw
}

// MatchesPath evaluates the scope against a candidate asset's hierarchy
// path. segments are the name segments of the nodes strictly between
// the anchor and the asset plus the asset itself, anchor side first.
// The anchor itself is never a match (distance zero).
func (c *CompiledScope) MatchesPath(segments []string) bool {
	dist := len(segments)
	if dist == 0 {
		return false
	}
	if c.openEnded {
		// Fixed levels must be present and match; the trailing **
		// consumes one or more further levels.
		if dist <= len(c.matchers) {
			return false
		}
	} else if dist != len(c.matchers) {
		return false
	}
	for i, m := range c.matchers {
		if !m.Match(segments[i]) {
			return false
		}
	}
	return true
}

// MatchesType reports whether the asset type is within the scope's
// target type restriction.
func (c *CompiledScope) MatchesType(assetType string) bool {
	return c.targetType == "" || c.targetType == assetType
}

// NameSegment extracts the final path segment of a platform-qualified
// node name: "snowflake::db/schema/table" yields "table". Names with no
// path separator yield the part after the connector qualifier.
func NameSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	if i := strings.Index(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}
