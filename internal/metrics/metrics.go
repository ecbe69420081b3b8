// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsCreated counts claims accepted by POST /claims.
	ClaimsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbridge_claims_created_total",
		Help: "Claims created.",
	})

	// ClaimTransitions counts applied claim transitions by target status.
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbridge_claim_transitions_total",
		Help: "Claim status transitions applied, by target status.",
	}, []string{"status"})

	// SandboxQueries counts ad-hoc analytics queries by outcome.
	SandboxQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbridge_sandbox_queries_total",
		Help: "Ad-hoc analytics queries, by outcome.",
	}, []string{"outcome"})
)
