package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records the outcomes of the mutating order workflows.
type OrderMetrics struct {
	created          *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	cancellations    prometheus.Counter
	stockConflicts   prometheus.Counter
	checkoutDuration prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, by source and type.",
	}, []string{"source", "type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions, by target status.",
	}, []string{"to_status"})
	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_cancellations_total",
		Help: "Customer self-service cancellations.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Order attempts rejected for insufficient stock.",
	})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, transitions, cancellations, stockConflicts, checkoutDuration)
	return &OrderMetrics{
		created:          created,
		transitions:      transitions,
		cancellations:    cancellations,
		stockConflicts:   stockConflicts,
		checkoutDuration: checkoutDuration,
	}
}

// IncCreated counts one created order.
func (m *OrderMetrics) IncCreated(source, orderType string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(source), normalizeLabel(orderType)).Inc()
}

// IncTransition counts one applied status transition.
func (m *OrderMetrics) IncTransition(toStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncCancellation counts one customer cancellation.
func (m *OrderMetrics) IncCancellation() {
	if m == nil || m.cancellations == nil {
		return
	}
	m.cancellations.Inc()
}

// IncStockConflict counts one insufficient-stock rejection.
func (m *OrderMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

// ObserveCheckoutDuration records how long a checkout transaction took.
func (m *OrderMetrics) ObserveCheckoutDuration(duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
