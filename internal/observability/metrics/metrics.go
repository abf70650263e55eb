// Package metrics exposes Prometheus counters for the webhook pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes recorded on the inbound counter.
const (
	OutcomeProcessed   = "processed"
	OutcomeDroppedSig  = "dropped_signature"
	OutcomeDroppedRate = "dropped_rate_limit"
	OutcomeIgnored     = "ignored"
	OutcomeFailed      = "failed"
)

// Metrics aggregates the process-wide counters.
type Metrics struct {
	InboundEvents      *prometheus.CounterVec
	OrdersCreated      prometheus.Counter
	ExtractionFallback *prometheus.CounterVec
	OutboundMessages   *prometheus.CounterVec
}

// New registers the counters on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the counters on the given registerer. Tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InboundEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_inbound_events_total",
			Help: "Inbound webhook events by outcome.",
		}, []string{"outcome"}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ordena_orders_created_total",
			Help: "Orders created through the customer flow.",
		}),
		ExtractionFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_extraction_provider_fallback_total",
			Help: "Extraction calls that fell through to the next provider.",
		}, []string{"provider"}),
		OutboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_outbound_messages_total",
			Help: "Messages sent to the messaging gateway by kind.",
		}, []string{"kind"}),
	}
}
