// File: internal/infra/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	onboardingStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_started_total",
			Help: "Onboarding sessions started, by repeat-policy outcome.",
		},
		[]string{"outcome"}, // new | repeat_prompted | repeat_blocked
	)

	onboardingCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_completed_total",
			Help: "Onboardings finished and durably persisted.",
		},
	)

	onboardingAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_abandoned_total",
			Help: "Onboardings explicitly aborted at the repeat-choice branch or via /cancel.",
		},
	)

	persistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_persistence_failures_total",
			Help: "Record writes or reads that failed, by backend.",
		},
		[]string{"backend", "op"},
	)

	roleGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_role_grants_total",
			Help: "Role promotion outcomes after completion.",
		},
		[]string{"result"}, // granted | already_held | not_configured | failed
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_sessions_expired_total",
			Help: "Transitions rejected because no live session existed.",
		},
	)
)

// Register registers all collectors exactly once on the default registry.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			onboardingStarted,
			onboardingCompleted,
			onboardingAbandoned,
			persistenceFailures,
			roleGrants,
			sessionsExpired,
		)
	})
}

func IncStarted(outcome string) { onboardingStarted.WithLabelValues(outcome).Inc() }
func IncCompleted()             { onboardingCompleted.Inc() }
func IncAbandoned()             { onboardingAbandoned.Inc() }
func IncPersistenceFailure(backend, op string) {
	persistenceFailures.WithLabelValues(backend, op).Inc()
}
func IncRoleGrant(result string) { roleGrants.WithLabelValues(result).Inc() }
func IncSessionExpired()         { sessionsExpired.Inc() }
