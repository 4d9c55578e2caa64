package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	routeDelivered = "delivered"
	routeLate      = "late"
	routeUnknown   = "unknown"

	outcomeComplete   = "complete"
	outcomeIncomplete = "incomplete"
	outcomeCancelled  = "cancelled"
	outcomeFailed     = "failed"
)

// Metrics kept by a correlator. Every metric carries the
// group and member labels, so multiple correlators can share
// the same registry.
type correlatorMetrics struct {
	// Requests sent, by response mode.
	requests *prometheus.CounterVec

	// Replies received, by how they were routed.
	replies *prometheus.CounterVec

	// How requests issued through the dispatcher finished.
	outcomes *prometheus.CounterVec

	// Requests waiting for replies.
	pending prometheus.Gauge

	// Requests the transport failed to send.
	failures prometheus.Counter
}

func newCorrelatorMetrics(configuration *Configuration) (*correlatorMetrics, error) {
	labels := prometheus.Labels{
		"group":  configuration.Name,
		"member": configuration.Address.String(),
	}
	m := &correlatorMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "groupcall_requests_total",
			Help:        "Requests sent by response mode.",
			ConstLabels: labels,
		}, []string{"mode"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "groupcall_replies_total",
			Help:        "Replies received by route.",
			ConstLabels: labels,
		}, []string{"route"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "groupcall_request_outcomes_total",
			Help:        "How requests finished.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "groupcall_pending_requests",
			Help:        "Requests waiting for replies.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "groupcall_send_failures_total",
			Help:        "Requests the transport failed to send.",
			ConstLabels: labels,
		}),
	}

	if configuration.Registerer == nil {
		return m, nil
	}

	var registered []prometheus.Collector
	for _, c := range m.collectors() {
		if err := configuration.Registerer.Register(c); err != nil {
			// Only undo what was registered here, an equal collector
			// may belong to another correlator.
			for _, r := range registered {
				configuration.Registerer.Unregister(r)
			}
			return nil, err
		}
		registered = append(registered, c)
	}
	return m, nil
}

func (m *correlatorMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.replies, m.outcomes, m.pending, m.failures}
}

func (m *correlatorMetrics) unregister(registerer prometheus.Registerer) {
	for _, c := range m.collectors() {
		registerer.Unregister(c)
	}
}
