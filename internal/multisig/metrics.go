package multisig

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	proposalsTotal  prometheus.Counter
	signaturesTotal prometheus.Counter
	executionsTotal *prometheus.CounterVec
)

// ensureMetrics registers the coordinator counters once per process.
func ensureMetrics() {
	metricsOnce.Do(func() {
		proposalsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "multisig_proposals_total",
			Help: "Number of multi-sig transactions proposed.",
		})
		signaturesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "multisig_signatures_total",
			Help: "Number of partial signatures recorded.",
		})
		executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "multisig_executions_total",
			Help: "Number of execute attempts by outcome.",
		}, []string{"outcome"})
	})
}
