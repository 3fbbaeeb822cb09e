// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

//go:build integration

package resolve_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy/config"
	"github.com/jettylabs-archive/jetty-access-control/internal/resolve"
)

const graphBundle = `
users:
  - id: snowflake::elliot
  - id: snowflake::darlene
groups:
  - id: snowflake::analysts
  - id: snowflake::staff
assets:
  - id: snowflake::db
    asset_type: database
  - id: snowflake::db/finance
    asset_type: schema
  - id: snowflake::db/finance/ledger
    asset_type: table
  - id: tableau::ledger_dash
    asset_type: dashboard
memberships:
  - {member: snowflake::elliot, group: snowflake::analysts}
  - {member: snowflake::analysts, group: snowflake::staff}
hierarchy:
  - {child: snowflake::db/finance, parent: snowflake::db}
  - {child: snowflake::db/finance/ledger, parent: snowflake::db/finance}
lineage:
  - {derived: tableau::ledger_dash, source: snowflake::db/finance/ledger}
`

const tagDoc = `
tags:
  pii:
    description: personally identifying information
    pass_through_hierarchy: true
    pass_through_lineage: true
    apply_to: [snowflake::db/finance]
  financial:
    pass_through_lineage: true
    apply_to: [snowflake::db/finance/ledger]
`

const policyDoc = `
policies:
  - id: staff-read-pii
    effect: allow
    privilege: read
    agents: [snowflake::staff]
    tags: [pii, financial]
  - id: deny-darlene-ledger
    effect: deny
    agents: [snowflake::darlene]
    assets: [snowflake::db/finance/ledger]
  - id: default-tables
    effect: allow
    privilege: metadata
    agents: [snowflake::analysts]
    default:
      anchor: snowflake::db
      path: "**"
      target_type: table
`

func buildFromDocuments() *engine.Generation {
	bundle, err := engine.ParseBundle([]byte(graphBundle))
	Expect(err).NotTo(HaveOccurred())

	builder := graph.NewBuilder()
	Expect(bundle.Apply(builder)).To(Succeed())

	tags, err := config.ParseTags([]byte(tagDoc))
	Expect(err).NotTo(HaveOccurred())
	Expect(tags.Apply(builder)).To(Succeed())

	policies, err := config.ParsePolicies([]byte(policyDoc))
	Expect(err).NotTo(HaveOccurred())

	gen, err := engine.Build(builder, policies, closure.DefaultLimits())
	Expect(err).NotTo(HaveOccurred())
	return gen
}

var _ = Describe("document pipeline", func() {
	var gen *engine.Generation

	BeforeEach(func() {
		gen = buildFromDocuments()
	})

	It("grants through nested membership and an inherited tag", func() {
		d, err := gen.Resolver().Resolve("snowflake::elliot", "snowflake::db/finance/ledger")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Effect).To(Equal(resolve.EffectAllow))
		Expect(d.Privilege).To(Equal(policy.PrivilegeRead))
		Expect(d.Tier).To(Equal(resolve.TierTag))
	})

	It("carries a tag across lineage into another connector", func() {
		// ledger_dash derives from the tagged ledger table; the
		// financial tag passes through lineage, so the grant follows
		// the data onto the dashboard.
		d, err := gen.Resolver().Resolve("snowflake::elliot", "tableau::ledger_dash")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Effect).To(Equal(resolve.EffectAllow))
		Expect(d.Tier).To(Equal(resolve.TierTag))
	})

	It("lets an exact-asset deny override the tag grant", func() {
		d, err := gen.Resolver().Resolve("snowflake::darlene", "snowflake::db/finance/ledger")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Effect).To(Equal(resolve.EffectDeny))
		Expect(d.HasAccess()).To(BeFalse())
	})

	It("applies default policies by glob and target type", func() {
		// darlene is not an analyst; the default grant does not reach her.
		d, err := gen.Resolver().Resolve("snowflake::darlene", "snowflake::db/finance")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Effect).To(Equal(resolve.EffectDefaultDeny))

		// elliot gets metadata on the table via the default policy, but
		// read via the tag wins at the more specific tier.
		d, err = gen.Resolver().Resolve("snowflake::elliot", "snowflake::db/finance/ledger")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Privilege).To(Equal(policy.PrivilegeRead))

		var defaultMatch bool
		for _, e := range d.Explanations {
			if e.Policy.ID == "default-tables" {
				defaultMatch = true
				Expect(e.Contributing).To(BeFalse())
			}
		}
		Expect(defaultMatch).To(BeTrue(), "default policy should appear as a non-contributing match")
	})
})

var _ = Describe("generation swap under load", func() {
	It("serves consistent decisions while publishing replacements", func() {
		svc := engine.NewService()
		svc.Publish(buildFromDocuments())

		const (
			workers    = 8
			iterations = 200
		)

		var wg sync.WaitGroup
		stop := make(chan struct{})

		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				for {
					select {
					case <-stop:
						return
					default:
					}
					gen, err := svc.Current()
					Expect(err).NotTo(HaveOccurred())
					d, err := gen.Resolver().Resolve("snowflake::elliot", "snowflake::db/finance/ledger")
					Expect(err).NotTo(HaveOccurred())
					// Every generation is built from the same documents;
					// no reader may observe a partial build.
					Expect(d.Effect).To(Equal(resolve.EffectAllow))
					Expect(d.Privilege).To(Equal(policy.PrivilegeRead))
				}
			}()
		}

		for range iterations {
			svc.Publish(buildFromDocuments())
		}
		close(stop)
		wg.Wait()
	})

	It("keeps serving the old generation when a rebuild fails", func() {
		svc := engine.NewService()
		first := buildFromDocuments()
		svc.Publish(first)

		builder := graph.NewBuilder()
		builder.AddEdge("nowhere", "nowhere-else", graph.MemberOf)
		_, err := engine.Build(builder, nil, closure.DefaultLimits())
		Expect(err).To(HaveOccurred())

		current, err := svc.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(current).To(BeIdenticalTo(first))
	})
})
