// Package metrics provides Prometheus metrics for joinkeeper. They are exposed
// on the /metrics endpoint of the bot's HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters and gauges updated by the membership service
// and the statistics reporter.
type Metrics struct {
	JoinRequests     prometheus.Counter
	Approvals        prometheus.Counter
	ApprovalFailures prometheus.Counter
	MembersLeft      prometheus.Counter
	WelcomeMessages  prometheus.Counter
	AdminNotices     prometheus.Counter
	ReportsSent      *prometheus.CounterVec
	PendingRequests  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewLocal creates metrics on a private registry, for components built
// without shared metrics.
func NewLocal() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry creates metrics registered on a custom registry, which keeps
// tests isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		JoinRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_join_requests_total",
			Help: "Total number of chat join requests received",
		}),
		Approvals: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_approvals_total",
			Help: "Total number of join requests approved",
		}),
		ApprovalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_approval_failures_total",
			Help: "Total number of join request approvals rejected by the Bot API",
		}),
		MembersLeft: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_members_left_total",
			Help: "Total number of members who left or were removed",
		}),
		WelcomeMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_welcome_messages_total",
			Help: "Total number of welcome messages sent",
		}),
		AdminNotices: factory.NewCounter(prometheus.CounterOpts{
			Name: "joinkeeper_admin_notifications_total",
			Help: "Total number of new request notifications delivered to admins",
		}),
		ReportsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "joinkeeper_reports_sent_total",
			Help: "Total number of statistics reports delivered to admins",
		}, []string{"period"}),
		PendingRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "joinkeeper_pending_requests",
			Help: "Number of join requests waiting for automatic approval",
		}),
		gatherer: gatherer,
	}
}

// Handler returns the HTTP handler serving the metrics in the Prometheus format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
