// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package resolve

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for effective-permission resolution.
var (
	// resolveDuration tracks the latency of Resolve() calls.
	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jetty_resolve_duration_seconds",
		Help:    "Histogram of effective-permission resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// resolveDecisions counts decisions by effect and winning tier.
	resolveDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jetty_resolve_decisions_total",
		Help: "Total number of effective-permission decisions",
	}, []string{"effect", "tier"})

	// resolveConditions counts non-fatal traversal conditions
	// surfaced on decisions.
	resolveConditions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jetty_resolve_conditions_total",
		Help: "Total number of cycle/truncation conditions on decisions",
	}, []string{"kind"})
)

// recordResolve records metrics for one completed resolution.
func recordResolve(duration time.Duration, d *Decision) {
	resolveDuration.Observe(duration.Seconds())
	resolveDecisions.WithLabelValues(d.Effect.String(), d.Tier.String()).Inc()
	for _, c := range d.Conditions {
		resolveConditions.WithLabelValues(c.Kind.String()).Inc()
	}
}
