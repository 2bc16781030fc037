package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CycleTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autotrader",
			Subsystem: "api",
			Name:      "cycle_triggers_total",
			Help:      "Manual cycle triggers by outcome",
		},
		[]string{"outcome"},
	)

	ResponseCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autotrader",
			Subsystem: "api",
			Name:      "response_cache_total",
			Help:      "Response cache lookups by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(CycleTriggers, ResponseCache)
	})
}
