package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for vault operations.
type Metrics struct {
	RecordsCreated      *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	IllegalTransitions  *prometheus.CounterVec
	Conflicts           *prometheus.CounterVec
	DecryptFailures     *prometheus.CounterVec
	PayloadsReEncrypted *prometheus.CounterVec
	OwnersPurged        prometheus.Counter

	// Performance metrics
	StoreOperationLatency *prometheus.HistogramVec
	ListPageSize          prometheus.Histogram
}

// New registers and returns vault metrics collectors.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_records_created_total",
			Help: "Total number of records created, labeled by kind",
		}, []string{"kind"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_transitions_total",
			Help: "Total number of applied state transitions, labeled by kind and target state",
		}, []string{"kind", "target"}),
		IllegalTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_illegal_transitions_total",
			Help: "Total number of rejected state transitions, labeled by kind",
		}, []string{"kind"}),
		Conflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_transition_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts, labeled by kind",
		}, []string{"kind"}),
		DecryptFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_decrypt_failures_total",
			Help: "Total number of payload decryption failures, labeled by kind",
		}, []string{"kind"}),
		PayloadsReEncrypted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "satsvault_payloads_reencrypted_total",
			Help: "Total number of payloads replaced via the re-keying path, labeled by kind",
		}, []string{"kind"}),
		OwnersPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "satsvault_owners_purged_total",
			Help: "Total number of owner-initiated purges",
		}),

		// Performance metrics
		StoreOperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satsvault_store_operation_latency_seconds",
			Help:    "Latency of vault store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		ListPageSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "satsvault_list_page_size",
			Help:    "Distribution of ListByState page sizes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementRecordsCreated(kind string) {
	m.RecordsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementTransitions(kind, target string) {
	m.Transitions.WithLabelValues(kind, target).Inc()
}

func (m *Metrics) IncrementIllegalTransitions(kind string) {
	m.IllegalTransitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementConflicts(kind string) {
	m.Conflicts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDecryptFailures(kind string) {
	m.DecryptFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveStoreOperation(operation string, d time.Duration) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(d.Seconds())
}
