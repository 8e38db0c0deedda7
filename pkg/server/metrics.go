package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridwatch/dcimpact/pkg/types"
)

var (
	metricRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dcimpact",
			Name:      "http_requests_total",
			Help:      "API requests by route pattern and status code",
		},
		[]string{"route", "code"},
	)

	metricRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dcimpact",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	metricRunsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dcimpact",
			Name:      "runs_created_total",
			Help:      "Forecast runs created through the API",
		},
	)

	metricRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dcimpact",
			Name:      "run_duration_seconds",
			Help:      "Time spent computing a forecast run",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	metricLatestPriceR2 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dcimpact",
			Name:      "latest_price_r2",
			Help:      "R² of the price model on its training set for the latest created run",
		},
	)

	metricHeadlineMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dcimpact",
			Name:      "headline_misses_total",
			Help:      "Headline checkpoints outside tolerance across created runs",
		},
	)
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func observeRun(run types.Run, elapsed time.Duration) {
	metricRunsCreated.Inc()
	metricRunDuration.Observe(elapsed.Seconds())
	metricLatestPriceR2.Set(run.PriceFit.R2)
	for _, h := range run.Headlines {
		if !h.WithinTolerance {
			metricHeadlineMisses.Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, route := next.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		metricRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		metricRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
