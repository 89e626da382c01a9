package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authOutcomesTotal counts authentication outcomes at the gate.
	// Labels:
	// - stage: bearer | verify | extract
	// - result: success | failure
	authOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Authentication outcomes by pipeline stage and result.",
		},
		[]string{"stage", "result"},
	)

	// permissionDenialsTotal counts capability/role gate denials.
	// Labels:
	// - kind: capability | role
	permissionDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "auth",
			Name:      "permission_denials_total",
			Help:      "Denied capability and role checks.",
		},
		[]string{"kind"},
	)

	// tenantViolationsTotal counts tenant-isolation failures by source field.
	// Labels:
	// - source: header | body | params | query | resource
	tenantViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "tenant",
			Name:      "violations_total",
			Help:      "Tenant isolation violations by request source.",
		},
		[]string{"source"},
	)

	// challengeOutcomesTotal counts challenge-stage results.
	// Labels:
	// - stage: define | create | verify | post_auth | pre_auth | pre_signup
	// - result: success | failure
	challengeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "challenge",
			Name:      "outcomes_total",
			Help:      "Authentication ceremony stage outcomes.",
		},
		[]string{"stage", "result"},
	)

	// jwksFetchesTotal counts remote key-set fetches.
	// Labels:
	// - result: hit | miss | error | throttled
	jwksFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "jwks",
			Name:      "fetches_total",
			Help:      "JWKS cache lookups and remote fetch outcomes.",
		},
		[]string{"result"},
	)
)

// IncAuthOutcome increments the auth outcome counter.
func IncAuthOutcome(stage, result string) {
	if stage == "" {
		stage = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	authOutcomesTotal.WithLabelValues(stage, result).Inc()
}

// IncPermissionDenied increments the permission denial counter.
func IncPermissionDenied(kind string) {
	permissionDenialsTotal.WithLabelValues(kind).Inc()
}

// IncTenantViolation increments the tenant isolation violation counter.
func IncTenantViolation(source string) {
	if source == "" {
		source = "unknown"
	}
	tenantViolationsTotal.WithLabelValues(source).Inc()
}

// IncChallengeOutcome increments the challenge stage counter.
func IncChallengeOutcome(stage, result string) {
	challengeOutcomesTotal.WithLabelValues(stage, result).Inc()
}

// IncJWKSFetch increments the key-set fetch counter.
func IncJWKSFetch(result string) {
	jwksFetchesTotal.WithLabelValues(result).Inc()
}
