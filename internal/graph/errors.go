// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package graph

// Error codes attached to oops errors at package boundaries. Load-time
// codes (NOT_FOUND, CONFIGURATION_ERROR) are fatal to building a
// generation; the query-time codes annotate best-effort results.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeCycleDetected      = "CYCLE_DETECTED"
	CodeTruncated          = "TRUNCATED"
)
