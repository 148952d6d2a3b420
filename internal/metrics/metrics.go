package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intelhub",
		Name:      "fetch_total",
		Help:      "Source fetches by outcome.",
	}, []string{"source", "result"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intelhub",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent in a single source fetch.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intelhub",
		Name:      "cache_lookups_total",
		Help:      "Endpoint cache lookups by result (hit/miss).",
	}, []string{"endpoint", "result"})
)

// ObserveFetch 记录一次数据源抓取的结果与耗时
func ObserveFetch(source string, ok bool, elapsed time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	fetchTotal.WithLabelValues(source, result).Inc()
	fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func CacheHit(endpoint string) {
	cacheLookups.WithLabelValues(endpoint, "hit").Inc()
}

func CacheMiss(endpoint string) {
	cacheLookups.WithLabelValues(endpoint, "miss").Inc()
}
