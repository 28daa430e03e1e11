// Package metrics exposes the client's operational counters as Prometheus
// collectors. A nil *Metrics is a valid no-op receiver, so components can
// hold one unconditionally and the client only pays for what it registered.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcome labels.
const (
	KindRPC          = "rpc"
	KindSubscription = "subscription"
	KindIgnored      = "ignored"
)

// Metrics groups the client's counters.
type Metrics struct {
	inboundDropped  prometheus.Counter
	outboundDropped prometheus.Counter
	rateLimited     prometheus.Counter
	parseErrors     prometheus.Counter
	sent            prometheus.Counter
	dispatched      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Returns nil when
// reg is nil, which disables metrics throughout the client.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		inboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "inbound_dropped_total",
			Help:      "Frames dropped because the inbound queue was full.",
		}),
		outboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "outbound_dropped_total",
			Help:      "Requests dropped because the outbound queue was full.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "rate_limited_total",
			Help:      "Requests denied by the admission token bucket.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "parse_errors_total",
			Help:      "Inbound frames discarded as malformed JSON.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "frames_sent_total",
			Help:      "Frames written to the transport by the sender.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deribit",
			Name:      "frames_dispatched_total",
			Help:      "Frames processed by the dispatcher, by classification.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.inboundDropped,
		m.outboundDropped,
		m.rateLimited,
		m.parseErrors,
		m.sent,
		m.dispatched,
	)
	return m
}

func (m *Metrics) IncInboundDropped() {
	if m != nil {
		m.inboundDropped.Inc()
	}
}

func (m *Metrics) IncOutboundDropped() {
	if m != nil {
		m.outboundDropped.Inc()
	}
}

func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) IncParseErrors() {
	if m != nil {
		m.parseErrors.Inc()
	}
}

func (m *Metrics) IncSent() {
	if m != nil {
		m.sent.Inc()
	}
}

func (m *Metrics) IncDispatched(kind string) {
	if m != nil {
		m.dispatched.WithLabelValues(kind).Inc()
	}
}
