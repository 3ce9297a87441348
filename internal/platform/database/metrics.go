package database

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeCommit   = "commit"
	outcomeRollback = "rollback"
)

type Metrics struct {
	transactions *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics registers the runner and registry collectors on reg.
func NewMetrics(reg prometheus.Registerer, registry *Registry) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudcoder",
			Subsystem: "db",
			Name:      "transactions_total",
			Help:      "Transactions run by the database runner, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cloudcoder",
			Subsystem: "db",
			Name:      "transaction_duration_seconds",
			Help:      "Time from BEGIN to COMMIT or ROLLBACK.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.transactions, m.duration)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cloudcoder",
		Subsystem: "db",
		Name:      "open_connections",
		Help:      "Connections currently leased by the connection registry.",
	}, func() float64 { return float64(registry.OpenConnections()) }))
	return m
}

func (m *Metrics) observe(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
