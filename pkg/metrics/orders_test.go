package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderMetricsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncCreated("Online", "ready_stock")
	m.IncCreated("online", "ready_stock")
	m.IncTransition("cancelled")
	m.IncCancellation()
	m.IncStockConflict()
	m.ObserveCheckoutDuration(125 * time.Millisecond)

	if got := testutil.ToFloat64(m.created.WithLabelValues("online", "ready_stock")); got != 2 {
		t.Fatalf("expected 2 created, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.cancellations); got != 1 {
		t.Fatalf("expected 1 cancellation, got %v", got)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *OrderMetrics
	m.IncCreated("online", "ready_stock")
	m.IncTransition("shipped")
	m.IncCancellation()
	m.IncStockConflict()
	m.ObserveCheckoutDuration(time.Second)

	empty := NewOrderMetrics(nil)
	empty.IncCreated("online", "ready_stock")
}
