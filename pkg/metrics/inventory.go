package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics records ledger operation outcomes.
type InventoryMetrics struct {
	duration  *prometheus.HistogramVec
	failures  *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewInventoryMetrics registers the inventory ledger metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which tests rely on.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_ledger_op_duration_seconds",
		Help:    "Duration of inventory ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_op_failures",
		Help: "Failed inventory ledger operations by error code.",
	}, []string{"op", "code"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_ledger_lock_conflicts",
		Help: "Row lock or concurrent-modification conflicts that triggered a retry.",
	})
	reg.MustRegister(duration, failures, conflicts)
	return &InventoryMetrics{
		duration:  duration,
		failures:  failures,
		conflicts: conflicts,
	}
}

// ObserveDuration records how long the named ledger operation took.
func (m *InventoryMetrics) ObserveDuration(op string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

// IncFailure increments the failure counter for the named operation.
func (m *InventoryMetrics) IncFailure(op, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

// IncConflict counts a retried lock/serialization conflict.
func (m *InventoryMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}
