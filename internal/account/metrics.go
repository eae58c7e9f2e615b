package account

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	createRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lacework_account_create_requests_total",
		Help: "CreateStackInstances requests issued.",
	})
	busyDeferralsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lacework_account_busy_deferrals_total",
		Help: "Work items requeued because the stack set had an operation in flight.",
	})
	requeueFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lacework_account_requeue_failures_total",
		Help: "Requeue publishes that failed and were dropped.",
	})
	ignoredEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lacework_account_ignored_events_total",
		Help: "Trigger events with an unrecognized shape.",
	})
)

// MetricsHandler exposes the registered counters for scraping, either by a
// Lambda telemetry extension sidecar or the local-dev harness.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
