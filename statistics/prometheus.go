package statistics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vsockcmd",
			Name:      "requests_total",
			Help:      "Request/reply exchanges by side, backend and result.",
		},
		[]string{"side", "backend", "result"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vsockcmd",
			Name:      "request_duration_seconds",
			Help:      "Request/reply exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"side", "backend"},
	)
)

func RegisterPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requests, requestDuration)
	})
}

// RecordRequest counts one exchange; result is "ok" or the failing stage.
func RecordRequest(side, backend, result string, d time.Duration) {
	requests.WithLabelValues(side, backend, result).Inc()
	requestDuration.WithLabelValues(side, backend).Observe(d.Seconds())
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	RegisterPrometheus()
	return promhttp.Handler()
}
