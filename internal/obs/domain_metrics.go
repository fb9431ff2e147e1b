package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BasketMutations counts basket mutations by operation and outcome.
	BasketMutations *prometheus.CounterVec
	// BasketReadRecoveries counts reads that fell back to an empty basket.
	BasketReadRecoveries *prometheus.CounterVec
	// BundleCommits counts bundle commit attempts by outcome.
	BundleCommits *prometheus.CounterVec
	// BreakerState reports each breaker target as 0=closed, 1=open, 2=half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts breaker state changes.
	BreakerTransitions *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers basket collectors once per process.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BasketMutations = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_mutations_total",
			Help:      "Basket mutations by operation and result.",
		}, []string{"op", "result"}))
		BasketReadRecoveries = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_read_recoveries_total",
			Help:      "Basket reads recovered to an empty basket, by reason.",
		}, []string{"reason"}))
		BundleCommits = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_commits_total",
			Help:      "Bundle commit attempts by result.",
		}, []string{"result"}))
		BreakerState = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
		}, []string{"target"}))
		BreakerTransitions = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Breaker state transitions.",
		}, []string{"target", "from", "to"}))
	})
}
