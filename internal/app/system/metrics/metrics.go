// Package metrics holds the Prometheus collectors the app exports on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicketsCreated counts created tickets by visibility.
	TicketsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zelus",
		Subsystem: "tickets",
		Name:      "created_total",
		Help:      "The total number of tickets created",
	}, []string{"private"})

	// TicketStatusChanges counts status transitions by target status.
	TicketStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zelus",
		Subsystem: "tickets",
		Name:      "status_changes_total",
		Help:      "The total number of ticket status changes",
	}, []string{"to"})

	// AuthzDenied counts access-guard rejections by reason.
	AuthzDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zelus",
		Subsystem: "authz",
		Name:      "denied_total",
		Help:      "The total number of requests rejected by the access guard",
	}, []string{"reason"})

	// AuditWriteFailures counts audit entries that could not be stored.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zelus",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "The total number of audit entries that failed to persist",
	})

	// Logins counts sign-in attempts by method and outcome.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zelus",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "The total number of sign-in attempts",
	}, []string{"method", "success"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
