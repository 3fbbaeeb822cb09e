// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package engine manages generations: immutable snapshots of the access
// graph, policy index, and closure caches produced by one fetch. A new
// fetch builds a fresh generation from scratch; queries always run
// against exactly one generation.
package engine

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

// Generation is one immutable build of the governance state. All fields
// are read-only after Build returns; closure caches inside Closures fill
// lazily but never change observable results.
type Generation struct {
	ID       ulid.ULID
	Store    *graph.Store
	Closures *closure.Engine
	Index    *policy.Index
	BuiltAt  time.Time

	resolver *resolve.Resolver
}

// Build freezes the assembled graph, validates and indexes the policy
// set, and wraps both in a new generation. Any validation failure
// aborts the build; the caller keeps serving its previous generation.
func Build(b *graph.Builder, policies []policy.Policy, limits closure.Limits) (*Generation, error) {
	store, err := b.Freeze()
	if err != nil {
		return nil, err
	}
	index, err := policy.Build(policies, store)
	if err != nil {
		return nil, err
	}

	closures := closure.New(store, limits)
	return &Generation{
		ID:       newGenerationID(),
		Store:    store,
		Closures: closures,
		Index:    index,
		BuiltAt:  time.Now().UTC(),
		resolver: resolve.New(closures, index),
	}, nil
}

// Resolver returns the generation's resolver. Safe for concurrent use.
func (g *Generation) Resolver() *resolve.Resolver {
	return g.resolver
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newGenerationID issues ulids that sort by build order even within one
// millisecond.
func newGenerationID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
