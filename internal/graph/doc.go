// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

// Package graph models data access metadata as a typed graph of users,
// groups, assets, and tags connected by membership, hierarchy, lineage,
// and tag-application edges.
//
// A graph is assembled through a Builder, which accumulates nodes and
// edges from connector fetch results and merges duplicate reports of the
// same node. Freeze validates every edge endpoint and produces an
// immutable Store that is safe for concurrent reads for the lifetime of
// a generation.
package graph
