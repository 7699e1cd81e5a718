package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobRunsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "engine",
		Name:      "job_runs_total",
		Help:      "Finished job runs grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitsync",
		Subsystem: "engine",
		Name:      "job_duration_seconds",
		Help:      "Wall time of job runs by kind.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	recordsInsertedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "engine",
		Name:      "records_inserted_total",
		Help:      "Workout records written to the cache by backfill runs.",
	})

	reportsSupersededCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "engine",
		Name:      "reports_superseded_total",
		Help:      "Report runs whose results were discarded because a newer request arrived.",
	})
)

func init() {
	prometheus.MustRegister(jobRunsCounter, jobDuration, recordsInsertedCounter, reportsSupersededCounter)
}

func recordJob(kind JobKind, outcome JobState, started time.Time) {
	jobRunsCounter.WithLabelValues(string(kind), string(outcome)).Inc()
	jobDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())
}
