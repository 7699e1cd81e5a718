// Package observability exposes process-wide watermark gauges and the
// report gauge listener.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fitsync/internal/domain"
)

var (
	workoutCachedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "cache",
		Name:      "last_workout_cached_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout record written to the cache.",
	})
	reportPublishedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "report",
		Name:      "last_published_timestamp_seconds",
		Help:      "Unix timestamp of the most recent final report per time frame.",
	}, []string{"timeframe"})
	reportStepsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "report",
		Name:      "steps",
		Help:      "Step count per activity in the latest final report.",
	}, []string{"timeframe", "activity"})
	reportDurationGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "report",
		Name:      "duration_seconds",
		Help:      "Active time per activity in the latest final report.",
	}, []string{"timeframe", "activity"})
)

func init() {
	prometheus.MustRegister(workoutCachedGauge, reportPublishedGauge, reportStepsGauge, reportDurationGauge)
}

// RecordWorkoutCached updates the cache watermark gauge.
func RecordWorkoutCached(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutCachedGauge.Set(float64(ts.Unix()))
}

// ReportGauges mirrors final reports into prometheus gauges.
type ReportGauges struct{}

// OnReportUpdated ignores partial reports; entries of the previous report for
// the same time frame are dropped first so vanished activities do not linger.
func (ReportGauges) OnReportUpdated(report domain.Report) {
	if report.Partial {
		return
	}
	tf := report.TimeFrame.String()
	reportStepsGauge.DeletePartialMatch(prometheus.Labels{"timeframe": tf})
	reportDurationGauge.DeletePartialMatch(prometheus.Labels{"timeframe": tf})
	for _, entry := range report.Entries {
		activity := entry.Type.String()
		reportStepsGauge.WithLabelValues(tf, activity).Set(float64(entry.StepCount))
		reportDurationGauge.WithLabelValues(tf, activity).Set(entry.Duration.Seconds())
	}
	if !report.GeneratedAt.IsZero() {
		reportPublishedGauge.WithLabelValues(tf).Set(float64(report.GeneratedAt.Unix()))
	}
}
