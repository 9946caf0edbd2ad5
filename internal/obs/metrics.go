package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	authnAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataward_authentication_attempts_total",
			Help: "Credential authentication attempts by result.",
		},
		[]string{"result"},
	)

	tokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dataward_tokens_issued_total",
			Help: "API tokens issued after successful authentication.",
		},
	)

	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataward_authorization_decisions_total",
			Help: "Token admission decisions by policy and result.",
		},
		[]string{"policy", "result"},
	)
)

// Init registers the engine metrics with the default registry. Call once at
// process start.
func Init() {
	prometheus.MustRegister(authnAttempts, tokensIssued, authzDecisions)
}

// RecordAuthnAttempt counts a credential authentication by outcome.
func RecordAuthnAttempt(result string) {
	authnAttempts.WithLabelValues(result).Inc()
}

// RecordTokenIssued counts a freshly issued API token.
func RecordTokenIssued() {
	tokensIssued.Inc()
}

// RecordAuthzDecision counts a policy decision by outcome.
func RecordAuthzDecision(policy, result string) {
	authzDecisions.WithLabelValues(policy, result).Inc()
}
