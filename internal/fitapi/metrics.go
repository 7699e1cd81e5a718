package fitapi

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fitsync/internal/domain"
)

var (
	callCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "fitness_api",
		Name:      "calls_total",
		Help:      "Fitness history API reads grouped by query and outcome.",
	}, []string{"query", "outcome"})

	callDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitsync",
		Subsystem: "fitness_api",
		Name:      "call_duration_seconds",
		Help:      "Latency of fitness history API reads.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 11),
	}, []string{"query"})
)

func init() {
	prometheus.MustRegister(callCounter, callDuration)
}

func recordCall(query string, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrRemoteCallTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	callCounter.WithLabelValues(query, outcome).Inc()
	callDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}
